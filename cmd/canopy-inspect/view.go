// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/canopy-a11y/canopy/schema"
)

// Styles use ANSI 256-color codes for broad terminal compatibility.
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	faintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	roleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("180"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255"))

	focusMarkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("250"))

	detailBorder = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("238")).
			PaddingLeft(1)
)

// listHeight is the row budget of the outline pane: total height minus
// the header and status lines.
func (m *Model) listHeight() int {
	return m.height - 2
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.replica == nil || !m.replica.Ready() {
		return m.waitingView()
	}

	listWidth := m.width * 3 / 5
	detailWidth := m.width - listWidth - 2

	var b strings.Builder
	b.WriteString(m.headerLine())
	b.WriteString("\n")

	listLines := m.listLines(listWidth)
	detailLines := m.detailLines(detailWidth)
	for i := 0; i < m.listHeight(); i++ {
		left := ""
		if i < len(listLines) {
			left = listLines[i]
		}
		left = ansi.Truncate(left, listWidth, "…")
		pad := listWidth - ansi.StringWidth(left)
		if pad > 0 {
			left += strings.Repeat(" ", pad)
		}
		right := ""
		if i < len(detailLines) {
			right = ansi.Truncate(detailLines[i], detailWidth, "…")
		}
		b.WriteString(left)
		b.WriteString(detailBorder.Render(right))
		b.WriteString("\n")
	}

	b.WriteString(m.statusLine())
	return b.String()
}

func (m Model) waitingView() string {
	message := "connecting to " + m.target + "…"
	if m.streamErr != nil {
		message = errorStyle.Render("stream error: " + m.streamErr.Error())
	} else if !m.connected && m.updates > 0 {
		message = "disconnected"
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, message)
}

func (m Model) headerLine() string {
	info := m.replica.Tree().Info()
	title := info.AppName
	if title == "" {
		title = "(unnamed application)"
	}
	header := headerStyle.Render("canopy-inspect") + "  " + title
	if info.Toolkit != "" {
		header += faintStyle.Render("  " + info.Toolkit + " " + info.ToolkitVersion)
	}
	return ansi.Truncate(header, m.width, "…")
}

// listLines renders the visible window of the outline.
func (m Model) listLines(width int) []string {
	focus := m.replica.Tree().Focus()
	end := m.scroll + m.listHeight()
	if end > len(m.visible) {
		end = len(m.visible)
	}
	lines := make([]string, 0, end-m.scroll)
	for i := m.scroll; i < end; i++ {
		lines = append(lines, m.listLine(m.visible[i], i == m.cursor, focus, width))
	}
	if len(m.visible) == 0 && m.filter != "" {
		lines = append(lines, faintStyle.Render("  no nodes match "+m.filter))
	}
	return lines
}

func (m Model) listLine(row outlineRow, selected bool, focus schema.NodeID, width int) string {
	indent := strings.Repeat("  ", row.depth)
	mark := "  "
	if row.id == focus {
		mark = focusMarkStyle.Render("● ")
	}

	text := roleStyle.Render(string(row.node.Role))
	if row.node.Label != "" {
		text += " " + row.node.Label
	}
	if row.node.Value != "" {
		text += " " + valueStyle.Render(row.node.Value)
	}
	if row.node.Toggled != nil {
		text += faintStyle.Render(" [" + string(*row.node.Toggled) + "]")
	}
	line := mark + indent + text + faintStyle.Render(fmt.Sprintf(" #%d", row.id))

	line = ansi.Truncate(line, width, "…")
	if selected {
		return selectedStyle.Render(ansi.Strip(line))
	}
	return line
}

// detailLines renders the selected node's fields, one per line.
func (m Model) detailLines(width int) []string {
	row, ok := m.selectedRow()
	if !ok {
		return []string{faintStyle.Render("no node selected")}
	}
	node := row.node

	lines := []string{
		headerStyle.Render(fmt.Sprintf("node #%d", node.ID)),
		"role      " + roleStyle.Render(string(node.Role)),
	}
	if node.Label != "" {
		lines = append(lines, "label     "+node.Label)
	}
	if node.Value != "" {
		lines = append(lines, "value     "+valueStyle.Render(node.Value))
	}
	if node.Toggled != nil {
		lines = append(lines, "toggled   "+string(*node.Toggled))
	}
	if node.Bounds != nil {
		lines = append(lines, fmt.Sprintf("bounds    (%.0f,%.0f)–(%.0f,%.0f)",
			node.Bounds.X0, node.Bounds.Y0, node.Bounds.X1, node.Bounds.Y1))
	}
	if node.Disabled {
		lines = append(lines, errorStyle.Render("disabled"))
	}
	if node.Hidden {
		lines = append(lines, faintStyle.Render("hidden"))
	}
	if len(node.Children) > 0 {
		lines = append(lines, fmt.Sprintf("children  %d", len(node.Children)))
	}
	if len(node.Actions) > 0 {
		names := make([]string, len(node.Actions))
		for i, action := range node.Actions {
			names[i] = string(action)
		}
		lines = append(lines, "actions   "+strings.Join(names, ", "))
	}
	for i, line := range lines {
		lines[i] = ansi.Truncate(line, width, "…")
	}
	return lines
}

func (m Model) statusLine() string {
	state := "connected"
	if !m.connected {
		state = "disconnected"
		if m.streamErr != nil {
			state = "error: " + m.streamErr.Error()
		}
	}

	left := fmt.Sprintf(" %s  %d nodes  %d updates", state, m.replica.Tree().NodeCount(), m.updates)
	middle := ""
	switch {
	case m.filterActive:
		middle = "  /" + m.filter + "▌"
	case m.filter != "":
		middle = "  /" + m.filter
	case m.notice != "":
		middle = "  " + m.notice
	}
	help := "j/k move  / filter  a click  f focus  q quit "

	bar := left + middle
	gap := m.width - ansi.StringWidth(bar) - ansi.StringWidth(help)
	if gap < 1 {
		gap = 1
	}
	bar += strings.Repeat(" ", gap) + help
	return statusStyle.Render(ansi.Truncate(bar, m.width, ""))
}
