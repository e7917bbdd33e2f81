// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/bureau-foundation/chatsync/lib/datebucket"
	"github.com/bureau-foundation/chatsync/lib/ref"
	"github.com/bureau-foundation/chatsync/lib/roster"
	"github.com/bureau-foundation/chatsync/lib/schema/chat"
)

// bodyIndent is the left margin of message text under the sender
// line. The first column is the selection gutter.
const bodyIndent = 2

// compactMagnitudes formats roster timestamps as "now", "5m", "3h",
// "2d", "4w", "1y".
var compactMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Minute, Format: "now", DivBy: 1},
	{D: time.Hour, Format: "%dm", DivBy: time.Minute},
	{D: humanize.Day, Format: "%dh", DivBy: time.Hour},
	{D: humanize.Week, Format: "%dd", DivBy: humanize.Day},
	{D: humanize.Year, Format: "%dw", DivBy: humanize.Week},
	{D: math.MaxInt64, Format: "%dy", DivBy: humanize.Year},
}

// relativeTime renders then relative to now for the roster.
func relativeTime(then, now time.Time) string {
	if then.IsZero() {
		return ""
	}
	return humanize.CustomRelTime(then, now, "", "", compactMagnitudes)
}

// messageView configures renderMessages.
type messageView struct {
	theme    Theme
	width    int
	self     ref.UserID
	location *time.Location

	// selected is the highlighted message, if any.
	selected ref.MessageID

	// pending reports messages with an edit awaiting its ack.
	pending func(ref.MessageID) bool
}

// renderedMessages is the message pane content plus the line each
// message starts on, so the model can keep the selection visible.
type renderedMessages struct {
	content string
	lines   int
	order   []ref.MessageID
	starts  map[ref.MessageID]int
}

// renderMessages lays out buckets as date headers followed by their
// messages. Each message is a sender line and an indented, wrapped
// body; system messages are a single faint line.
func renderMessages(buckets datebucket.Buckets, view messageView) renderedMessages {
	result := renderedMessages{starts: make(map[ref.MessageID]int)}
	if view.location == nil {
		view.location = time.Local
	}
	width := max(view.width, bodyIndent+8)

	headerStyle := lipgloss.NewStyle().Foreground(view.theme.DateHeader).Bold(true)
	systemStyle := lipgloss.NewStyle().Foreground(view.theme.SystemText).Italic(true)
	faintStyle := lipgloss.NewStyle().Foreground(view.theme.FaintText)
	markerStyle := lipgloss.NewStyle().Foreground(view.theme.EditedMarker)
	gutterStyle := lipgloss.NewStyle().Foreground(view.theme.FocusBorderColor)
	ownStyle := lipgloss.NewStyle().Foreground(view.theme.OwnName).Bold(true)
	peerStyle := lipgloss.NewStyle().Foreground(view.theme.PeerName).Bold(true)

	var lines []string
	for index, bucket := range buckets {
		if index > 0 {
			lines = append(lines, "")
		}
		label := headerStyle.Render("── " + bucket.Label + " ──")
		lines = append(lines, lipgloss.PlaceHorizontal(width, lipgloss.Center, label))

		for _, message := range bucket.Messages {
			result.starts[message.ID] = len(lines)
			result.order = append(result.order, message.ID)

			gutter := " "
			if message.ID == view.selected {
				gutter = gutterStyle.Render("▌")
			}

			if message.IsSystemMessage {
				text := ansi.Truncate(systemText(message), width-bodyIndent, "…")
				lines = append(lines, gutter+" "+systemStyle.Render(text))
				continue
			}

			nameStyle := peerStyle
			if message.IsFrom(view.self) {
				nameStyle = ownStyle
			}
			header := nameStyle.Render(message.Sender.DisplayName()) + " " +
				faintStyle.Render(message.CreatedAt.In(view.location).Format("15:04"))
			if message.Status == chat.StatusEdited {
				header += " " + markerStyle.Render("(edited)")
			}
			if view.pending != nil && view.pending(message.ID) {
				header += " " + markerStyle.Render("…")
			}
			lines = append(lines, gutter+ansi.Truncate(header, width-1, "…"))

			var body string
			if message.IsDeleted() {
				body = faintStyle.Italic(true).Render("message deleted")
			} else {
				body = renderMessageBody(message.Content, view.theme, width-bodyIndent)
			}
			for _, line := range strings.Split(indent.String(body, bodyIndent-1), "\n") {
				lines = append(lines, gutter+line)
			}
		}
	}

	result.content = strings.Join(lines, "\n")
	result.lines = len(lines)
	return result
}

// wrapText word-wraps text to width, hard-breaking words longer than
// a line.
func wrapText(text string, width int) string {
	return wrap.String(wordwrap.String(text, width), width)
}

// systemText is the display text of a membership notice. The server
// usually provides it; the type is the fallback.
func systemText(message chat.Message) string {
	if message.Content != "" {
		return message.Content
	}
	subject := "someone"
	if !message.SystemSubjectID.IsZero() {
		subject = message.SystemSubjectID.String()
	}
	switch message.SystemMessageType {
	case chat.SystemJoined:
		return subject + " joined"
	case chat.SystemLeft:
		return subject + " left"
	}
	return "membership changed"
}

// rosterRow configures renderRosterRow.
type rosterRow struct {
	theme    Theme
	width    int
	now      time.Time
	selected bool

	// unread marks conversations with activity since they were last
	// open.
	unread bool
}

// renderRosterRow renders a roster entry as two lines: the title with
// any filter matches highlighted and the relative time of the last
// activity, then the preview.
func renderRosterRow(match roster.Match, row rosterRow) string {
	width := max(row.width, 8)
	base := lipgloss.NewStyle().Foreground(row.theme.NormalText)
	if row.selected {
		base = base.Background(row.theme.SelectedBackground).Foreground(row.theme.SelectedForeground)
	}
	titleStyle := base.Bold(row.unread)
	matchStyle := titleStyle.Foreground(row.theme.MatchForeground)
	faintStyle := base.Foreground(row.theme.FaintText)

	when := relativeTime(match.Conversation.LastActivity(), row.now)
	titleWidth := width - ansi.StringWidth(when) - 1

	var title strings.Builder
	for index, character := range []rune(match.Title) {
		if slices.Contains(match.Positions, index) {
			title.WriteString(matchStyle.Render(string(character)))
		} else {
			title.WriteString(titleStyle.Render(string(character)))
		}
	}
	titleText := ansi.Truncate(title.String(), titleWidth, "…")
	gap := max(1, width-ansi.StringWidth(titleText)-ansi.StringWidth(when))
	first := titleText + base.Render(strings.Repeat(" ", gap)) + faintStyle.Render(when)

	preview := "No messages yet"
	if last := match.Conversation.LastMessagePreview; last != nil {
		preview = strings.Join(strings.Fields(last.Content), " ")
		if last.SenderName != "" {
			preview = last.SenderName + ": " + preview
		}
	}
	preview = ansi.Truncate(preview, width, "…")
	second := faintStyle.Render(preview + strings.Repeat(" ", max(0, width-ansi.StringWidth(preview))))

	return first + "\n" + second
}
