// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderScrollbar produces a single-column scrollbar of the given
// height for a view showing visibleLines of totalLines starting at
// offset. When more history can be loaded the top cell shows an
// arrow, since the scrollbar alone cannot tell "top of what is loaded"
// from "top of the conversation".
func renderScrollbar(theme Theme, height, totalLines, visibleLines, offset int, focused, moreAbove bool) string {
	if height <= 0 {
		return ""
	}

	thumbColor := theme.BorderColor
	if focused {
		thumbColor = theme.FocusBorderColor
	}
	trackStyle := lipgloss.NewStyle().Foreground(theme.BorderColor)
	thumbStyle := lipgloss.NewStyle().Foreground(thumbColor)

	thumbSize, thumbOffset := height, 0
	if totalLines > visibleLines && totalLines > 0 {
		thumbSize = max(1, height*visibleLines/totalLines)
		scrollableRange := totalLines - visibleLines
		trackRange := height - thumbSize
		if trackRange > 0 {
			thumbOffset = min(offset, scrollableRange) * trackRange / scrollableRange
		}
	}

	lines := make([]string, height)
	for index := range lines {
		switch {
		case index == 0 && moreAbove:
			lines[index] = trackStyle.Render("↑")
		case index >= thumbOffset && index < thumbOffset+thumbSize:
			lines[index] = thumbStyle.Render("┃")
		default:
			lines[index] = trackStyle.Render("│")
		}
	}
	return strings.Join(lines, "\n")
}
