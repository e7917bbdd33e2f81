// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/chatsync/lib/datebucket"
	"github.com/bureau-foundation/chatsync/lib/ref"
	"github.com/bureau-foundation/chatsync/lib/roster"
	"github.com/bureau-foundation/chatsync/lib/schema/chat"
)

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "now"},
		{5 * time.Minute, "5m"},
		{3 * time.Hour, "3h"},
		{2 * 24 * time.Hour, "2d"},
		{15 * 24 * time.Hour, "2w"},
		{800 * 24 * time.Hour, "2y"},
	}
	for _, test := range tests {
		if got := relativeTime(now.Add(-test.ago), now); got != test.want {
			t.Errorf("relativeTime(-%v) = %q, want %q", test.ago, got, test.want)
		}
	}
	if got := relativeTime(time.Time{}, now); got != "" {
		t.Errorf("relativeTime(zero) = %q, want empty", got)
	}
}

func TestRenderMessages(t *testing.T) {
	at := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	mine := chat.Member{ID: ref.MustParseUserID("u_self"), Name: "Me"}
	peer := chat.Member{ID: ref.MustParseUserID("u_alice"), Name: "Alice"}
	id := func(raw string) ref.MessageID { return ref.MustParseMessageID(raw) }

	buckets := datebucket.Buckets{{
		Label: "Today",
		Messages: []chat.Message{
			{ID: id("m1"), Sender: &peer, Content: "lineup is out", CreatedAt: at, Status: chat.StatusSent},
			{ID: id("m2"), Sender: &mine, Content: "meet at gate B", CreatedAt: at.Add(time.Minute), Status: chat.StatusEdited},
			{ID: id("m3"), IsSystemMessage: true, SystemMessageType: chat.SystemJoined,
				SystemSubjectID: ref.MustParseUserID("u_bob"), CreatedAt: at.Add(2 * time.Minute), Status: chat.StatusSent},
			{ID: id("m4"), Sender: &peer, Content: "", CreatedAt: at.Add(3 * time.Minute), Status: chat.StatusDeleted},
		},
	}}
	rendered := renderMessages(buckets, messageView{
		theme:    DefaultTheme,
		width:    40,
		self:     mine.ID,
		location: time.UTC,
		selected: id("m2"),
		pending:  func(message ref.MessageID) bool { return message == id("m2") },
	})

	lines := strings.Split(ansi.Strip(rendered.content), "\n")
	if rendered.lines != len(lines) {
		t.Errorf("lines = %d, content has %d", rendered.lines, len(lines))
	}
	if !strings.Contains(lines[0], "── Today ──") {
		t.Errorf("first line = %q, want the date header", lines[0])
	}

	want := map[string]int{"m1": 1, "m2": 3, "m3": 5, "m4": 6}
	for raw, line := range want {
		if got := rendered.starts[id(raw)]; got != line {
			t.Errorf("starts[%s] = %d, want %d", raw, got, line)
		}
	}
	if len(rendered.order) != 4 || rendered.order[3] != id("m4") {
		t.Errorf("order = %v", rendered.order)
	}

	checks := []struct {
		line     int
		contains []string
	}{
		{1, []string{"Alice", "09:30"}},
		{2, []string{"lineup is out"}},
		{3, []string{"▌", "Me", "09:31", "(edited)", "…"}},
		{5, []string{"u_bob joined"}},
		{7, []string{"message deleted"}},
	}
	for _, check := range checks {
		for _, fragment := range check.contains {
			if !strings.Contains(lines[check.line], fragment) {
				t.Errorf("line %d = %q, missing %q", check.line, lines[check.line], fragment)
			}
		}
	}
	if strings.Contains(lines[1], "▌") {
		t.Error("unselected message has the selection gutter")
	}
}

func TestWrapTextBreaksLongWords(t *testing.T) {
	wrapped := wrapText("a festival-wristband-registration-number", 10)
	for _, line := range strings.Split(wrapped, "\n") {
		if ansi.StringWidth(line) > 10 {
			t.Errorf("line %q wider than 10", line)
		}
	}
}

func TestRenderRosterRow(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	match := roster.Match{
		Conversation: chat.Conversation{
			ID:          ref.MustParseConversationID("grp_festival"),
			Kind:        chat.KindGroup,
			DisplayName: "Festival crew",
			LastMessagePreview: &chat.Preview{
				Content:    "gates open\nat noon",
				SenderName: "Alice",
				At:         now.Add(-5 * time.Minute),
			},
		},
		Title:     "Festival crew",
		Positions: []int{0, 1},
	}

	row := ansi.Strip(renderRosterRow(match, rosterRow{theme: DefaultTheme, width: 30, now: now}))
	lines := strings.Split(row, "\n")
	if len(lines) != 2 {
		t.Fatalf("row has %d lines, want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Festival crew") || !strings.HasSuffix(lines[0], "5m") {
		t.Errorf("title line = %q", lines[0])
	}
	if strings.TrimRight(lines[1], " ") != "Alice: gates open at noon" {
		t.Errorf("preview line = %q", lines[1])
	}
	for index, line := range lines {
		if width := ansi.StringWidth(line); width != 30 {
			t.Errorf("line %d width = %d, want 30", index, width)
		}
	}

	match.Conversation.LastMessagePreview = nil
	row = ansi.Strip(renderRosterRow(match, rosterRow{theme: DefaultTheme, width: 30, now: now}))
	if !strings.Contains(row, "No messages yet") {
		t.Errorf("row without preview = %q", row)
	}
}

func TestRenderScrollbar(t *testing.T) {
	bar := strings.Split(ansi.Strip(renderScrollbar(DefaultTheme, 10, 100, 10, 90, false, true)), "\n")
	if len(bar) != 10 {
		t.Fatalf("scrollbar height = %d, want 10", len(bar))
	}
	if bar[0] != "↑" {
		t.Errorf("top cell = %q, want the more-history arrow", bar[0])
	}
	if bar[9] != "┃" {
		t.Errorf("bottom cell = %q, want the thumb at the end", bar[9])
	}
	if renderScrollbar(DefaultTheme, 0, 10, 10, 0, false, false) != "" {
		t.Error("zero-height scrollbar rendered")
	}
}
