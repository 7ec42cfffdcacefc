// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package main

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the inspector's key bindings. Vim-style movement
// alongside the arrow keys.
type KeyMap struct {
	Up   key.Binding
	Down key.Binding
	Home key.Binding
	End  key.Binding

	// Filter.
	FilterActivate key.Binding // Start typing a filter query.
	FilterClear    key.Binding // Clear the filter and leave filter mode.
	FilterAccept   key.Binding // Keep the filter, return focus to the list.

	// Actions on the selected node.
	Click key.Binding
	Focus key.Binding

	// Jump to the tree's focused node.
	GotoFocus key.Binding

	Quit key.Binding
}

var defaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Home: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "top"),
	),
	End: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "bottom"),
	),
	FilterActivate: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	FilterClear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear filter"),
	),
	FilterAccept: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "apply filter"),
	),
	Click: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "click node"),
	),
	Focus: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "focus node"),
	),
	GotoFocus: key.NewBinding(
		key.WithKeys("F"),
		key.WithHelp("F", "go to focus"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
