// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the chat UI. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected roster row or message.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Sender names. The local user's name uses OwnName so the user's
	// own messages stand out in a busy group.
	OwnName  lipgloss.Color
	PeerName lipgloss.Color

	// Date bucket headers and system messages ("Alice joined").
	DateHeader lipgloss.Color
	SystemText lipgloss.Color

	// EditedMarker colors the "(edited)" suffix and the pending-edit
	// indicator.
	EditedMarker lipgloss.Color

	// Fuzzy filter match highlighting in roster titles.
	MatchForeground lipgloss.Color

	// Status bar.
	StatusConnected    lipgloss.Color
	StatusReconnecting lipgloss.Color
	StatusWarning      lipgloss.Color
	StatusError        lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	FocusBorderColor lipgloss.Color
	HelpText         lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	OwnName:  lipgloss.Color("114"), // green
	PeerName: lipgloss.Color("75"),  // blue

	DateHeader: lipgloss.Color("141"), // light purple
	SystemText: lipgloss.Color("243"),

	EditedMarker: lipgloss.Color("243"),

	MatchForeground: lipgloss.Color("220"), // amber

	StatusConnected:    lipgloss.Color("114"),
	StatusReconnecting: lipgloss.Color("220"),
	StatusWarning:      lipgloss.Color("208"),
	StatusError:        lipgloss.Color("196"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	FocusBorderColor: lipgloss.Color("75"),
	HelpText:         lipgloss.Color("241"),
}
