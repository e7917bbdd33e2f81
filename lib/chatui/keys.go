// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the chat UI. Navigation keys
// are context-sensitive: in the roster they move the selection, in
// the message pane they move the selected message.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	// FocusNext cycles roster → messages → composer.
	FocusNext key.Binding

	TabGroups  key.Binding
	TabPrivate key.Binding

	// Open opens the selected roster conversation.
	Open key.Binding

	FilterActivate key.Binding
	FilterClear    key.Binding

	// Compose jumps to the composer.
	Compose key.Binding

	// Message actions (message pane).
	Edit   key.Binding
	Delete key.Binding

	// PrivateChat opens a private chat with the selected message's
	// sender.
	PrivateChat key.Binding

	// Submit sends the composer text or applies the edit. Escape
	// cancels an edit, or leaves the composer.
	Submit  key.Binding
	Newline key.Binding
	Cancel  key.Binding

	// LeaveGroup leaves the open group.
	LeaveGroup key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set. Vim-style navigation
// (j/k) alongside the arrow keys.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("C-u", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("C-d", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "oldest"),
	),
	End: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "newest"),
	),
	FocusNext: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("Tab", "switch pane"),
	),
	TabGroups: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "groups"),
	),
	TabPrivate: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "private"),
	),
	Open: key.NewBinding(
		key.WithKeys("enter", "l", "right"),
		key.WithHelp("enter", "open"),
	),
	FilterActivate: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	FilterClear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear"),
	),
	Compose: key.NewBinding(
		key.WithKeys("i", "a"),
		key.WithHelp("i", "compose"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d", "delete"),
		key.WithHelp("d", "delete"),
	),
	PrivateChat: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "message sender"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send"),
	),
	Newline: key.NewBinding(
		key.WithKeys("alt+enter", "ctrl+j"),
		key.WithHelp("M-enter", "newline"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	LeaveGroup: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("C-l", "leave group"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
