// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/junegunn/fzf/src/util"

	"github.com/canopy-a11y/canopy/client"
	"github.com/canopy-a11y/canopy/lib/fuzzy"
	"github.com/canopy-a11y/canopy/schema"
)

// noticeFadeMsg clears the transient status-bar notice.
type noticeFadeMsg struct{}

const noticeFadeDelay = 2 * time.Second

// Model is the inspector's bubbletea model: a replica of the remote
// tree, a flattened outline with cursor and filter, and connection
// status for the bar at the bottom.
type Model struct {
	source *streamSource
	target string
	keys   KeyMap

	replica *client.Replica
	rows    []outlineRow
	visible []outlineRow
	cursor  int
	scroll  int

	filter       string
	filterActive bool
	slab         *util.Slab

	updates   uint64
	connected bool
	streamErr error
	notice    string

	width  int
	height int
}

// NewModel builds the initial model for a connection to target (shown
// in the status bar).
func NewModel(source *streamSource, target string) Model {
	return Model{
		source: source,
		target: target,
		keys:   defaultKeyMap,
		slab:   fuzzy.NewSlab(),
	}
}

func (m Model) Init() tea.Cmd {
	return m.source.waitForEvent()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureCursorVisible()
		return m, nil

	case streamEventMsg:
		return m.handleStreamEvent(msg.event)

	case streamClosedMsg:
		m.connected = false
		m.streamErr = msg.err
		return m, nil

	case actionResultMsg:
		if msg.err != nil {
			m.notice = "action failed: " + msg.err.Error()
		} else {
			m.notice = string(msg.request.Action) + " sent"
		}
		return m, tea.Tick(noticeFadeDelay, func(time.Time) tea.Msg { return noticeFadeMsg{} })

	case noticeFadeMsg:
		m.notice = ""
		return m, nil

	case tea.KeyMsg:
		if m.filterActive {
			return m.handleFilterKey(msg)
		}
		return m.handleListKey(msg)
	}
	return m, nil
}

// handleStreamEvent folds one event into the replica and rebuilds the
// outline, keeping the cursor on the same node when it survives.
func (m Model) handleStreamEvent(event client.Event) (tea.Model, tea.Cmd) {
	if m.replica == nil {
		m.replica = client.NewReplica()
	}
	if err := m.replica.Apply(event); err != nil {
		m.notice = err.Error()
		return m, m.source.waitForEvent()
	}
	m.connected = true
	m.updates++

	var selected schema.NodeID
	if row, ok := m.selectedRow(); ok {
		selected = row.id
	}
	m.rows = buildOutline(m.replica.Tree())
	m.refilter(selected)
	return m, m.source.waitForEvent()
}

func (m *Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return *m, tea.Quit
	case key.Matches(msg, m.keys.FilterClear):
		m.filter = ""
		m.filterActive = false
		m.refilter(0)
	case key.Matches(msg, m.keys.FilterAccept):
		m.filterActive = false
	case msg.Type == tea.KeyBackspace:
		if m.filter != "" {
			runes := []rune(m.filter)
			m.filter = string(runes[:len(runes)-1])
			m.refilter(0)
		}
	case msg.Type == tea.KeyRunes:
		m.filter += string(msg.Runes)
		m.refilter(0)
	}
	return *m, nil
}

func (m *Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return *m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Home):
		m.cursor = 0
		m.ensureCursorVisible()
	case key.Matches(msg, m.keys.End):
		m.cursor = len(m.visible) - 1
		m.ensureCursorVisible()

	case key.Matches(msg, m.keys.FilterActivate):
		m.filterActive = true
	case key.Matches(msg, m.keys.FilterClear):
		if m.filter != "" {
			m.filter = ""
			m.refilter(0)
		}

	case key.Matches(msg, m.keys.GotoFocus):
		if m.replica != nil && m.replica.Ready() {
			if i := rowIndex(m.visible, m.replica.Tree().Focus()); i >= 0 {
				m.cursor = i
				m.ensureCursorVisible()
			}
		}

	case key.Matches(msg, m.keys.Click):
		return m.requestAction(schema.ActionClick)
	case key.Matches(msg, m.keys.Focus):
		return m.requestAction(schema.ActionFocus)
	}
	return *m, nil
}

// requestAction sends an action targeting the selected node. Returned
// alone, never batched, so the connection sees one writer at a time.
func (m *Model) requestAction(action schema.Action) (tea.Model, tea.Cmd) {
	row, ok := m.selectedRow()
	if !ok || !m.connected {
		return *m, nil
	}
	return *m, m.source.sendAction(schema.ActionRequest{
		Action: action,
		Target: row.id,
	})
}

// refilter recomputes the visible rows and restores the cursor to
// keep, falling back to a clamped position.
func (m *Model) refilter(keep schema.NodeID) {
	m.visible = filterOutline(m.rows, m.filter, m.slab)
	if keep != 0 {
		if i := rowIndex(m.visible, keep); i >= 0 {
			m.cursor = i
			m.ensureCursorVisible()
			return
		}
	}
	m.clampCursor()
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.ensureCursorVisible()
}

// ensureCursorVisible scrolls the list window to include the cursor.
func (m *Model) ensureCursorVisible() {
	visible := m.listHeight()
	if visible <= 0 {
		return
	}
	if m.cursor < m.scroll {
		m.scroll = m.cursor
	}
	if m.cursor >= m.scroll+visible {
		m.scroll = m.cursor - visible + 1
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

func (m *Model) selectedRow() (outlineRow, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return outlineRow{}, false
	}
	return m.visible[m.cursor], true
}
