// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pagination

import (
	"context"
	"log/slog"
	"time"

	"github.com/bureau-foundation/chatsync/lib/eventloop"
	"github.com/bureau-foundation/chatsync/lib/ref"
	"github.com/bureau-foundation/chatsync/lib/schema/chat"
)

// ScrollContainer is the scrollable message view.
type ScrollContainer interface {
	ScrollTop() int
	ScrollHeight() int
	SetScrollTop(top int)

	// AfterReflow runs fn on the event loop once the view reflects the
	// latest store contents.
	AfterReflow(fn func())
}

// History fetches messages created strictly before a timestamp.
type History interface {
	FetchMessagesBefore(ctx context.Context, conversation ref.ConversationID, before time.Time) (chat.Page, error)
}

// Target is the store older pages are merged into.
type Target interface {
	MergeOlderPage(page []chat.Message) int
	Oldest() (time.Time, bool)
	IsEmpty() bool
}

// Cursor is the pagination state of the open conversation.
type Cursor struct {
	OldestLoadedAt time.Time
	HasMore        bool
	IsLoadingOlder bool
}

// Config configures a Controller.
type Config struct {
	History   History
	Scheduler eventloop.Scheduler
	Logger    *slog.Logger

	// Context is the parent of every fetch context. Default:
	// context.Background().
	Context context.Context

	// OnChange runs on the loop after a page is merged or a load
	// starts or finishes.
	OnChange func()
}

// Controller drives backward pagination for one conversation at a time.
type Controller struct {
	history   History
	scheduler eventloop.Scheduler
	logger    *slog.Logger
	parent    context.Context
	onChange  func()

	container    ScrollContainer
	conversation ref.ConversationID
	target       Target
	cursor       Cursor

	generation uint64
	cancel     context.CancelFunc
	atTop      bool
}

// New creates a Controller with no conversation.
func New(config Config) *Controller {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Context == nil {
		config.Context = context.Background()
	}
	if config.OnChange == nil {
		config.OnChange = func() {}
	}
	return &Controller{
		history:   config.History,
		scheduler: config.Scheduler,
		logger:    config.Logger,
		parent:    config.Context,
		onChange:  config.OnChange,
	}
}

// SetContainer attaches the scroll view. A nil container disables
// anchoring; loads still merge.
func (c *Controller) SetContainer(container ScrollContainer) {
	c.container = container
}

// Reset binds the controller to conversation and target, cancelling
// any in-flight load. Called on every open and again when initial
// history arrives.
func (c *Controller) Reset(conversation ref.ConversationID, target Target, hasMore bool) {
	c.Cancel()
	c.conversation = conversation
	c.target = target
	c.cursor = Cursor{HasMore: hasMore}
	if target != nil {
		c.cursor.OldestLoadedAt, _ = target.Oldest()
	}
	c.atTop = false
}

// Cancel abandons the in-flight load, if any.
func (c *Controller) Cancel() {
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.cursor.IsLoadingOlder = false
}

// Cursor returns the current pagination state.
func (c *Controller) Cursor() Cursor { return c.cursor }

// OnScroll reports the view's scroll offset. Reaching the top edge
// starts one load; the view must leave the edge before another scroll
// event there triggers again.
func (c *Controller) OnScroll(scrollTop int) {
	wasAtTop := c.atTop
	c.atTop = scrollTop <= 0
	if c.atTop && !wasAtTop {
		c.LoadOlder()
	}
}

// LoadOlder fetches the page before the oldest loaded message. It is a
// no-op while a load is running, when the server reported no more
// history, or when nothing is loaded. Reports whether a fetch started.
func (c *Controller) LoadOlder() bool {
	if c.cursor.IsLoadingOlder || !c.cursor.HasMore || c.target == nil || c.target.IsEmpty() {
		return false
	}
	oldest, ok := c.target.Oldest()
	if !ok {
		return false
	}

	anchor := c.captureAnchor()
	c.cursor.IsLoadingOlder = true

	ctx, cancel := context.WithCancel(c.parent)
	c.cancel = cancel
	generation := c.generation
	conversation := c.conversation
	history := c.history

	c.logger.Debug("loading older messages",
		"conversation_id", conversation,
		"before", oldest,
	)
	c.onChange()

	c.scheduler.Go(func() func() {
		page, err := history.FetchMessagesBefore(ctx, conversation, oldest)
		return func() {
			c.finish(generation, cancel, anchor, page, err)
		}
	})
	return true
}

type anchor struct {
	valid        bool
	scrollTop    int
	scrollHeight int
}

func (c *Controller) captureAnchor() anchor {
	if c.container == nil {
		return anchor{}
	}
	return anchor{
		valid:        true,
		scrollTop:    c.container.ScrollTop(),
		scrollHeight: c.container.ScrollHeight(),
	}
}

func (c *Controller) finish(generation uint64, cancel context.CancelFunc, before anchor, page chat.Page, err error) {
	cancel()
	if generation != c.generation {
		c.logger.Debug("discarding stale history page",
			"conversation_id", c.conversation,
			"messages", len(page.Messages),
		)
		return
	}
	c.cancel = nil
	defer func() {
		c.cursor.IsLoadingOlder = false
		c.onChange()
	}()

	if err != nil {
		c.logger.Warn("loading older messages failed",
			"conversation_id", c.conversation,
			"error", err,
		)
		return
	}

	previous, hadPrevious := c.target.Oldest()
	added := c.target.MergeOlderPage(page.Messages)
	c.cursor.HasMore = page.HasMore && len(page.Messages) > 0
	c.cursor.OldestLoadedAt, _ = c.target.Oldest()

	// A page that does not reach further back would be requested again
	// on every top-edge hit.
	if c.cursor.HasMore && hadPrevious && !c.cursor.OldestLoadedAt.Before(previous) {
		c.logger.Warn("history page did not reach older messages, stopping pagination",
			"conversation_id", c.conversation,
			"messages", len(page.Messages),
			"added", added,
		)
		c.cursor.HasMore = false
	}

	if added == 0 || !before.valid || c.container == nil {
		return
	}
	container := c.container
	c.container.AfterReflow(func() {
		if generation != c.generation {
			return
		}
		heightAfter := container.ScrollHeight()
		container.SetScrollTop(before.scrollTop + (heightAfter - before.scrollHeight))
	})
}
