// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"slices"

	"github.com/charmbracelet/bubbles/viewport"

	"github.com/bureau-foundation/chatsync/lib/ref"
)

// messagePane is the scrollable message list. It implements
// pagination.ScrollContainer: offsets and heights are in terminal
// lines.
//
// The pane is shared by pointer between the model (which renders
// into it) and the pagination controller (which anchors the scroll
// position across page merges), so it lives outside the model value.
type messagePane struct {
	viewport viewport.Model
	rendered renderedMessages

	// reflow holds AfterReflow callbacks until the next SetContent.
	reflow []func()
}

func newMessagePane() *messagePane {
	pane := &messagePane{viewport: viewport.New(0, 0)}
	// The model routes keys itself.
	pane.viewport.KeyMap = viewport.KeyMap{}
	return pane
}

// ScrollTop returns the first visible line.
func (pane *messagePane) ScrollTop() int { return pane.viewport.YOffset }

// ScrollHeight returns the total content height.
func (pane *messagePane) ScrollHeight() int { return pane.viewport.TotalLineCount() }

// SetScrollTop scrolls so line top is first visible, clamped to the
// content.
func (pane *messagePane) SetScrollTop(top int) { pane.viewport.SetYOffset(top) }

// AfterReflow runs fn after the next render. The model renders on the
// same goroutine that drains the scheduler, so fn runs on the loop.
func (pane *messagePane) AfterReflow(fn func()) {
	pane.reflow = append(pane.reflow, fn)
}

// setContent replaces the rendered messages, then runs pending
// AfterReflow callbacks against the new layout.
func (pane *messagePane) setContent(rendered renderedMessages) {
	pane.rendered = rendered
	pane.viewport.SetContent(rendered.content)
	callbacks := pane.reflow
	pane.reflow = nil
	for _, fn := range callbacks {
		fn()
	}
}

func (pane *messagePane) setSize(width, height int) {
	pane.viewport.Width = max(width, 0)
	pane.viewport.Height = max(height, 0)
	// Re-clamp the offset for the new height.
	pane.viewport.SetYOffset(pane.viewport.YOffset)
}

// reveal scrolls the minimum distance that makes the message with id
// visible.
func (pane *messagePane) reveal(id ref.MessageID) {
	start, ok := pane.rendered.starts[id]
	if !ok {
		return
	}
	end := pane.rendered.lines
	if index := slices.Index(pane.rendered.order, id); index+1 < len(pane.rendered.order) {
		end = pane.rendered.starts[pane.rendered.order[index+1]]
	}
	top := pane.viewport.YOffset
	switch {
	case start < top:
		pane.viewport.SetYOffset(start)
	case end > top+pane.viewport.Height:
		pane.viewport.SetYOffset(min(start, end-pane.viewport.Height))
	}
}
