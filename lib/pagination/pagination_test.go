// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pagination

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/chatsync/lib/clock"
	"github.com/bureau-foundation/chatsync/lib/datebucket"
	"github.com/bureau-foundation/chatsync/lib/eventloop"
	"github.com/bureau-foundation/chatsync/lib/messagestore"
	"github.com/bureau-foundation/chatsync/lib/ref"
	"github.com/bureau-foundation/chatsync/lib/schema/chat"
)

var (
	group = ref.MustParseConversationID("grp_1")
	other = ref.MustParseConversationID("grp_2")
	now   = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
)

type fetchCall struct {
	conversation ref.ConversationID
	before       time.Time
	ctx          context.Context
}

type fakeHistory struct {
	calls []fetchCall
	page  chat.Page
	err   error
}

func (h *fakeHistory) FetchMessagesBefore(ctx context.Context, conversation ref.ConversationID, before time.Time) (chat.Page, error) {
	h.calls = append(h.calls, fetchCall{conversation: conversation, before: before, ctx: ctx})
	return h.page, h.err
}

type fakeContainer struct {
	scrollTop    int
	scrollHeight int
	reflows      []func()
}

func (c *fakeContainer) ScrollTop() int        { return c.scrollTop }
func (c *fakeContainer) ScrollHeight() int     { return c.scrollHeight }
func (c *fakeContainer) SetScrollTop(top int)  { c.scrollTop = top }
func (c *fakeContainer) AfterReflow(fn func()) { c.reflows = append(c.reflows, fn) }

func (c *fakeContainer) reflow(newHeight int) {
	c.scrollHeight = newHeight
	pending := c.reflows
	c.reflows = nil
	for _, fn := range pending {
		fn()
	}
}

func message(id string, at time.Time) chat.Message {
	return chat.Message{ID: ref.MustParseMessageID(id), ConversationID: group, CreatedAt: at, Status: chat.StatusSent}
}

type fixture struct {
	scheduler  *eventloop.Manual
	history    *fakeHistory
	container  *fakeContainer
	store      *messagestore.Store
	controller *Controller
	changes    int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		scheduler: eventloop.NewManual(),
		history:   &fakeHistory{},
		container: &fakeContainer{},
		store:     messagestore.New(datebucket.Bucketer{Clock: clock.Fake(now), Location: time.UTC}, nil),
	}
	f.controller = New(Config{
		History:   f.history,
		Scheduler: f.scheduler,
		OnChange:  func() { f.changes++ },
	})
	f.controller.SetContainer(f.container)

	f.store.Reset(group)
	f.store.LoadInitial([]chat.Message{message("m_10", now.Add(-time.Hour)), message("m_11", now)})
	f.controller.Reset(group, f.store, true)
	return f
}

func TestScrollAnchoring(t *testing.T) {
	f := newFixture(t)
	f.container.scrollTop = 200
	f.container.scrollHeight = 2000
	f.history.page = chat.Page{
		Messages: []chat.Message{message("m_8", now.Add(-3*time.Hour)), message("m_9", now.Add(-2*time.Hour))},
		HasMore:  true,
	}

	if !f.controller.LoadOlder() {
		t.Fatal("LoadOlder did not start")
	}
	if !f.controller.Cursor().IsLoadingOlder {
		t.Error("IsLoadingOlder not set during fetch")
	}
	f.scheduler.Drain()

	if f.store.Len() != 4 {
		t.Fatalf("store holds %d messages, want 4", f.store.Len())
	}
	f.container.reflow(2500)

	if f.container.scrollTop != 700 {
		t.Errorf("scrollTop = %d, want 700", f.container.scrollTop)
	}
	cursor := f.controller.Cursor()
	if cursor.IsLoadingOlder {
		t.Error("IsLoadingOlder still set after load")
	}
	if !cursor.HasMore {
		t.Error("HasMore cleared although the page reported more")
	}
	if !cursor.OldestLoadedAt.Equal(now.Add(-3 * time.Hour)) {
		t.Errorf("OldestLoadedAt = %v", cursor.OldestLoadedAt)
	}
}

func TestLoadOlderRequestsBeforeOldest(t *testing.T) {
	f := newFixture(t)
	f.controller.LoadOlder()
	f.scheduler.Drain()

	if len(f.history.calls) != 1 {
		t.Fatalf("fetches = %d, want 1", len(f.history.calls))
	}
	call := f.history.calls[0]
	if call.conversation != group || !call.before.Equal(now.Add(-time.Hour)) {
		t.Errorf("fetch = %v before %v", call.conversation, call.before)
	}
}

func TestLoadOlderGuards(t *testing.T) {
	t.Run("already loading", func(t *testing.T) {
		f := newFixture(t)
		if !f.controller.LoadOlder() {
			t.Fatal("first LoadOlder did not start")
		}
		if f.controller.LoadOlder() {
			t.Error("second LoadOlder started while the first was in flight")
		}
	})

	t.Run("no more history", func(t *testing.T) {
		f := newFixture(t)
		f.controller.Reset(group, f.store, false)
		if f.controller.LoadOlder() {
			t.Error("LoadOlder started with HasMore=false")
		}
	})

	t.Run("empty store", func(t *testing.T) {
		f := newFixture(t)
		f.store.LoadInitial(nil)
		f.controller.Reset(group, f.store, true)
		if f.controller.LoadOlder() {
			t.Error("LoadOlder started on an empty store")
		}
	})
}

func TestLoadOlderErrorClearsLoadingFlag(t *testing.T) {
	f := newFixture(t)
	f.history.err = errors.New("503 service unavailable")

	f.controller.LoadOlder()
	f.scheduler.Drain()

	cursor := f.controller.Cursor()
	if cursor.IsLoadingOlder {
		t.Error("IsLoadingOlder still set after failed fetch")
	}
	if !cursor.HasMore {
		t.Error("failed fetch cleared HasMore; the user could not retry")
	}
	if !f.controller.LoadOlder() {
		t.Error("retry after failure did not start")
	}
}

func TestEmptyPageEndsHistory(t *testing.T) {
	f := newFixture(t)
	f.history.page = chat.Page{HasMore: true}
	f.controller.LoadOlder()
	f.scheduler.Drain()
	if f.controller.Cursor().HasMore {
		t.Error("empty page left HasMore set")
	}
	if len(f.container.reflows) != 0 {
		t.Error("anchoring scheduled although nothing was merged")
	}
}

func TestPageWithoutOlderMessagesEndsHistory(t *testing.T) {
	f := newFixture(t)
	// The server treated before as inclusive and sent back the oldest
	// loaded message.
	f.history.page = chat.Page{
		Messages: []chat.Message{message("m_10", now.Add(-time.Hour))},
		HasMore:  true,
	}
	f.controller.LoadOlder()
	f.scheduler.Drain()

	cursor := f.controller.Cursor()
	if cursor.HasMore {
		t.Error("HasMore still set after a page that reached no further back")
	}
	if !cursor.OldestLoadedAt.Equal(now.Add(-time.Hour)) {
		t.Errorf("OldestLoadedAt = %v, want unchanged", cursor.OldestLoadedAt)
	}
	if f.controller.LoadOlder() {
		t.Error("LoadOlder started another fetch of the same window")
	}
	f.scheduler.Drain()
	if len(f.history.calls) != 1 {
		t.Errorf("history fetched %d times, want 1", len(f.history.calls))
	}
}

func TestResetDiscardsLateResponse(t *testing.T) {
	f := newFixture(t)
	f.history.page = chat.Page{
		Messages: []chat.Message{message("m_old", now.Add(-5*time.Hour))},
		HasMore:  true,
	}
	f.controller.LoadOlder()

	// The user switches conversation before the fetch resolves.
	otherStore := messagestore.New(datebucket.Bucketer{Clock: clock.Fake(now), Location: time.UTC}, nil)
	otherStore.Reset(other)
	otherStore.LoadInitial([]chat.Message{{ID: ref.MustParseMessageID("x_1"), ConversationID: other, CreatedAt: now, Status: chat.StatusSent}})
	f.controller.Reset(other, otherStore, true)

	if len(f.history.calls) != 0 {
		t.Fatalf("fetch ran before drain")
	}
	f.scheduler.Drain()

	if f.history.calls[0].ctx.Err() == nil {
		t.Error("in-flight fetch context not cancelled by Reset")
	}
	if otherStore.Len() != 1 || f.store.Len() != 2 {
		t.Errorf("late page applied: other=%d original=%d", otherStore.Len(), f.store.Len())
	}
	if f.controller.Cursor().IsLoadingOlder {
		t.Error("IsLoadingOlder set after Reset")
	}
}

func TestOnScrollEdgeTriggered(t *testing.T) {
	f := newFixture(t)
	f.history.page = chat.Page{HasMore: true, Messages: []chat.Message{message("m_1", now.Add(-9*time.Hour))}}

	f.controller.OnScroll(300)
	if len(f.history.calls) != 0 || f.controller.Cursor().IsLoadingOlder {
		t.Fatal("scrolling away from the top started a load")
	}

	f.controller.OnScroll(0)
	f.scheduler.Drain()
	f.controller.OnScroll(0)
	f.controller.OnScroll(0)
	f.scheduler.Drain()
	if len(f.history.calls) != 1 {
		t.Fatalf("repeated scroll events at the top triggered %d loads, want 1", len(f.history.calls))
	}

	f.controller.OnScroll(50)
	f.controller.OnScroll(0)
	f.scheduler.Drain()
	if len(f.history.calls) != 2 {
		t.Errorf("returning to the top triggered %d loads total, want 2", len(f.history.calls))
	}
}

func TestLoadWithoutContainerStillMerges(t *testing.T) {
	f := newFixture(t)
	f.controller.SetContainer(nil)
	f.history.page = chat.Page{Messages: []chat.Message{message("m_1", now.Add(-9*time.Hour))}}
	f.controller.LoadOlder()
	f.scheduler.Drain()
	if f.store.Len() != 3 {
		t.Errorf("store holds %d messages, want 3", f.store.Len())
	}
	if f.changes == 0 {
		t.Error("OnChange never ran")
	}
}
