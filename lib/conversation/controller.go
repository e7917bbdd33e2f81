// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bureau-foundation/chatsync/lib/chatchannel"
	"github.com/bureau-foundation/chatsync/lib/clock"
	"github.com/bureau-foundation/chatsync/lib/composer"
	"github.com/bureau-foundation/chatsync/lib/datebucket"
	"github.com/bureau-foundation/chatsync/lib/eventloop"
	"github.com/bureau-foundation/chatsync/lib/messagestore"
	"github.com/bureau-foundation/chatsync/lib/pagination"
	"github.com/bureau-foundation/chatsync/lib/ref"
	"github.com/bureau-foundation/chatsync/lib/schema/chat"
	"github.com/bureau-foundation/chatsync/lib/typing"
)

// Channel is the part of the channel adapter the controller uses.
// *chatchannel.Adapter implements it.
type Channel interface {
	Subscribe(conversation ref.ConversationID, handlers chatchannel.Handlers) *chatchannel.Subscription
	Join(ctx context.Context, conversation ref.ConversationID) (string, error)
	Leave(ctx context.Context, conversation ref.ConversationID) (string, error)
	Send(ctx context.Context, conversation ref.ConversationID, content string) (string, error)
	Mutate(ctx context.Context, conversation ref.ConversationID, message ref.MessageID, status chat.Status, content *string) (string, error)
	TypingStart(ctx context.Context, conversation ref.ConversationID) (string, error)
	TypingStop(ctx context.Context, conversation ref.ConversationID) (string, error)
	AddMembers(ctx context.Context, conversation ref.ConversationID, members []ref.UserID) (string, error)
	RemoveMember(ctx context.Context, conversation ref.ConversationID, member ref.UserID) (string, error)
}

// Roster is the part of the roster the controller reads and updates.
// The roster owns conversations and their member lists.
type Roster interface {
	Conversation(id ref.ConversationID) (chat.Conversation, bool)
	Remove(id ref.ConversationID) bool
}

// Config configures a Controller.
type Config struct {
	Channel   Channel
	Roster    Roster
	History   pagination.History
	Scheduler eventloop.Scheduler
	Clock     clock.Clock
	Logger    *slog.Logger

	// Self is the local user.
	Self ref.UserID

	// Location decides calendar days for date buckets. Default:
	// time.Local.
	Location *time.Location

	TypingIdle   time.Duration
	TypingMaxAge time.Duration

	// Context bounds emits and history fetches. Default:
	// context.Background().
	Context context.Context
}

// Controller is the open-conversation state machine.
type Controller struct {
	channel   Channel
	roster    Roster
	scheduler eventloop.Scheduler
	clock     clock.Clock
	logger    *slog.Logger
	self      ref.UserID
	ctx       context.Context

	typingIdle   time.Duration
	typingMaxAge time.Duration

	store    *messagestore.Store
	pages    *pagination.Controller
	composer *composer.Composer
	tracker  *typing.Tracker

	state        State
	conversation ref.ConversationID
	kind         chat.Kind
	title        string
	err          error
	suspended    bool
	subscription *chatchannel.Subscription

	onChange []func()
	onNotice []func(Notice)
}

// New creates a Closed controller.
func New(config Config) *Controller {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.Context == nil {
		config.Context = context.Background()
	}

	c := &Controller{
		channel:      config.Channel,
		roster:       config.Roster,
		scheduler:    config.Scheduler,
		clock:        config.Clock,
		logger:       logger,
		self:         config.Self,
		ctx:          config.Context,
		typingIdle:   config.TypingIdle,
		typingMaxAge: config.TypingMaxAge,
		composer:     &composer.Composer{},
	}
	c.store = messagestore.New(datebucket.Bucketer{Clock: config.Clock, Location: config.Location}, logger)
	c.pages = pagination.New(pagination.Config{
		History:   config.History,
		Scheduler: config.Scheduler,
		Logger:    logger,
		Context:   config.Context,
		OnChange:  c.changed,
	})
	c.composer.OnInput = c.onInput
	return c
}

// OnChange registers fn to run after any visible state change.
func (c *Controller) OnChange(fn func()) { c.onChange = append(c.onChange, fn) }

// OnNotice registers fn to receive user-visible notices.
func (c *Controller) OnNotice(fn func(Notice)) { c.onNotice = append(c.onNotice, fn) }

func (c *Controller) changed() {
	for _, fn := range c.onChange {
		fn()
	}
}

func (c *Controller) notify(kind NoticeKind, text string) {
	notice := Notice{Kind: kind, Conversation: c.conversation, Text: text}
	for _, fn := range c.onNotice {
		fn(notice)
	}
}

// State returns the lifecycle state.
func (c *Controller) State() State { return c.state }

// ConversationID returns the open (or last opened) conversation.
func (c *Controller) ConversationID() ref.ConversationID { return c.conversation }

// Kind returns the open conversation's kind.
func (c *Controller) Kind() chat.Kind { return c.kind }

// Err returns the error that stopped the last open, if any.
func (c *Controller) Err() error { return c.err }

// Suspended reports whether live updates are paused by a disconnect.
func (c *Controller) Suspended() bool { return c.suspended }

// Store exposes the message store for rendering.
func (c *Controller) Store() *messagestore.Store { return c.store }

// Cursor returns the pagination state.
func (c *Controller) Cursor() pagination.Cursor { return c.pages.Cursor() }

// Composer exposes the input state for rendering.
func (c *Controller) Composer() *composer.Composer { return c.composer }

// Title is the display title of the open conversation, as seen by the
// local user.
func (c *Controller) Title() string {
	if conversation, ok := c.lookup(); ok {
		return conversation.Title(c.self)
	}
	return c.title
}

// Members returns the roster's member list for the open conversation.
func (c *Controller) Members() []chat.Member {
	if conversation, ok := c.lookup(); ok {
		return conversation.Members
	}
	return nil
}

// TypingNames returns the names of peers currently typing, in the
// order they started.
func (c *Controller) TypingNames() []string {
	if c.tracker == nil {
		return nil
	}
	return c.tracker.Peers.Names()
}

// refreshTitle caches the roster title so notices can name the
// conversation after the roster has dropped it.
func (c *Controller) refreshTitle() {
	if existing, ok := c.lookup(); ok {
		c.title = existing.Title(c.self)
	}
}

func (c *Controller) lookup() (chat.Conversation, bool) {
	if c.roster == nil || c.conversation.IsZero() {
		return chat.Conversation{}, false
	}
	return c.roster.Conversation(c.conversation)
}

// SetContainer attaches the scroll view used for pagination anchoring.
func (c *Controller) SetContainer(container pagination.ScrollContainer) {
	c.pages.SetContainer(container)
}

// OnScroll forwards the view's scroll offset to pagination.
func (c *Controller) OnScroll(scrollTop int) {
	if c.state != StateActive {
		return
	}
	c.pages.OnScroll(scrollTop)
}

// LoadOlder requests the previous page explicitly.
func (c *Controller) LoadOlder() bool {
	if c.state != StateActive {
		return false
	}
	return c.pages.LoadOlder()
}

// Relabel refreshes date bucket labels, for when the calendar day
// changes while a conversation is open.
func (c *Controller) Relabel() {
	c.store.Relabel(c.clock.Now())
	c.changed()
}

// Open switches to conversation. The previous conversation's handlers
// and timers are released first. A failed join leaves the controller
// Joining with Err set; a reconnect retries it.
func (c *Controller) Open(conversation ref.ConversationID, kind chat.Kind) error {
	if conversation.IsZero() {
		return errors.New("conversation: open requires a conversation id")
	}
	if !kind.IsKnown() {
		return fmt.Errorf("conversation: open %s: unknown kind %q", conversation, kind)
	}

	c.teardown()

	c.conversation = conversation
	c.kind = kind
	c.state = StateJoining
	c.err = nil
	c.suspended = false
	c.title = conversation.String()
	c.refreshTitle()

	c.store.Reset(conversation)
	c.pages.Reset(conversation, c.store, false)
	c.composer.Reset()
	c.tracker = typing.NewTracker(typing.Config{
		Clock:      c.clock,
		Scheduler:  c.scheduler,
		Self:       c.self,
		IdleWindow: c.typingIdle,
		MaxAge:     c.typingMaxAge,
		Start:      func() { c.emitTyping(conversation, true) },
		Stop:       func() { c.emitTyping(conversation, false) },
		OnChange:   c.changed,
	})
	c.subscription = c.channel.Subscribe(conversation, c.handlers())

	c.logger.Info("opening conversation", "conversation_id", conversation, "kind", kind)
	if _, err := c.channel.Join(c.ctx, conversation); err != nil {
		c.err = fmt.Errorf("conversation: joining %s: %w", conversation, err)
		c.logger.Warn("join failed", "conversation_id", conversation, "error", err)
		c.changed()
		return c.err
	}
	c.changed()
	return nil
}

// Close releases the open conversation without leaving it. Used when
// switching away and on unmount.
func (c *Controller) Close() {
	if c.state == StateClosed {
		return
	}
	c.teardown()
	c.state = StateClosed
	c.store.Reset(ref.ConversationID{})
	c.composer.Reset()
	c.changed()
}

// teardown releases everything tied to the current open.
func (c *Controller) teardown() {
	if c.subscription != nil {
		c.subscription.Close()
		c.subscription = nil
	}
	if c.tracker != nil {
		c.tracker.Close()
		c.tracker = nil
	}
	c.pages.Cancel()
}

func (c *Controller) emitTyping(conversation ref.ConversationID, start bool) {
	var err error
	if start {
		_, err = c.channel.TypingStart(c.ctx, conversation)
	} else {
		_, err = c.channel.TypingStop(c.ctx, conversation)
	}
	if err != nil {
		c.logger.Debug("typing intent not sent",
			"conversation_id", conversation,
			"start", start,
			"error", err,
		)
	}
}

func (c *Controller) handlers() chatchannel.Handlers {
	return chatchannel.Handlers{
		InitialHistory:    c.handleInitialHistory,
		LiveMessage:       c.handleLiveMessage,
		StatusChanged:     c.handleStatusChanged,
		MutationAck:       c.handleMutationAck,
		MemberAdded:       func(chatchannel.MemberAdded) { c.changed() },
		MemberRemoved:     c.handleMemberRemoved,
		PeerTyping:        c.handlePeerTyping,
		PeerStoppedTyping: c.handlePeerStoppedTyping,
		Connected:         c.Resync,
		Disconnected:      func(error) { c.Suspend() },
	}
}

func (c *Controller) handleInitialHistory(event chatchannel.InitialHistory) {
	if c.state != StateJoining || event.Conversation != c.conversation {
		c.logger.Debug("ignoring initial history",
			"conversation_id", event.Conversation,
			"state", c.state,
		)
		return
	}
	c.store.LoadInitial(event.Messages)
	c.pages.Reset(c.conversation, c.store, event.HasMore)
	c.state = StateActive
	c.err = nil
	c.refreshTitle()
	c.logger.Info("conversation active",
		"conversation_id", c.conversation,
		"messages", len(event.Messages),
		"has_more", event.HasMore,
	)
	c.changed()
}

// live reports whether live events should be applied now.
func (c *Controller) live() bool {
	return c.state == StateActive && !c.suspended
}

func (c *Controller) handleLiveMessage(event chatchannel.LiveMessage) {
	if !c.live() {
		return
	}
	if !c.store.ReceiveLive(event.Message) {
		return
	}
	// A peer's message ends its typing burst even if the stop event is
	// still in flight.
	if event.Message.Sender != nil && c.tracker != nil {
		c.tracker.Peers.Stopped(event.Message.Sender.ID)
	}
	c.changed()
}

func (c *Controller) handleStatusChanged(event chatchannel.StatusChanged) {
	if !c.live() {
		return
	}
	if c.store.ApplyStatusChange(event.MessageID, event.Status, event.Content) {
		c.changed()
	}
}

func (c *Controller) handleMutationAck(event chatchannel.MutationAck) {
	messageID, ok := c.store.ReconcileOptimisticEdit(event.RequestID, messagestore.Ack{OK: event.OK, Error: event.Error})
	if !ok {
		return
	}
	if !event.OK {
		c.notify(NoticeError, fmt.Sprintf("Could not change message %s: %s", messageID, event.Error))
	}
	c.changed()
}

func (c *Controller) handleMemberRemoved(event chatchannel.MemberRemoved) {
	if event.MemberID != c.self {
		c.changed()
		return
	}
	if c.state != StateActive && c.state != StateJoining {
		return
	}
	title := c.Title()
	c.shutdown()
	c.logger.Info("removed from conversation", "conversation_id", c.conversation)
	c.notify(NoticeRemoved, fmt.Sprintf("You were removed from %s", title))
	c.changed()
}

func (c *Controller) handlePeerTyping(event chatchannel.PeerTyping) {
	if c.live() && c.tracker != nil {
		c.tracker.Peers.Started(event.Member)
	}
}

func (c *Controller) handlePeerStoppedTyping(event chatchannel.PeerStoppedTyping) {
	if c.tracker != nil {
		c.tracker.Peers.Stopped(event.MemberID)
	}
}

// shutdown runs Active → Closing → Closed and drops the conversation
// from the roster. The roster may already have dropped it.
func (c *Controller) shutdown() {
	c.state = StateClosing
	c.teardown()
	if c.roster != nil {
		c.roster.Remove(c.conversation)
	}
	c.store.Reset(ref.ConversationID{})
	c.composer.Reset()
	c.state = StateClosed
}

// Suspend pauses live updates after a disconnect. The state does not
// change; what is on screen may go stale until Resync.
func (c *Controller) Suspend() {
	if c.state != StateActive && c.state != StateJoining {
		return
	}
	c.suspended = true
	if c.tracker != nil {
		c.tracker.Peers.Clear()
	}
	c.pages.Cancel()
	c.changed()
}

// Resync re-opens the current conversation after a reconnect. Pending
// edit markers are dropped without rollback; the fresh history carries
// the authoritative state.
func (c *Controller) Resync() {
	if c.state != StateActive && c.state != StateJoining {
		return
	}
	if dropped := c.store.ClearPendingEdits(); dropped > 0 {
		c.logger.Debug("dropped pending edits on resync",
			"conversation_id", c.conversation,
			"count", dropped,
		)
	}
	c.Open(c.conversation, c.kind)
}

// Send posts content. Nothing is added locally; the message appears
// when the server echoes it.
func (c *Controller) Send(content string) error {
	if c.state != StateActive {
		return ErrNotActive
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}
	if _, err := c.channel.Send(c.ctx, c.conversation, content); err != nil {
		return fmt.Errorf("conversation: sending to %s: %w", c.conversation, err)
	}
	c.tracker.Local.Flush()
	c.store.SetUserScrolledUp(false)
	return nil
}

// Edit replaces the content of one of the local user's messages.
func (c *Controller) Edit(id ref.MessageID, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}
	return c.mutate(id, chat.StatusEdited, &content)
}

// Delete deletes one of the local user's messages.
func (c *Controller) Delete(id ref.MessageID) error {
	return c.mutate(id, chat.StatusDeleted, nil)
}

func (c *Controller) mutate(id ref.MessageID, status chat.Status, content *string) error {
	if c.state != StateActive {
		return ErrNotActive
	}
	message, ok := c.store.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMessage, id)
	}
	if err := composer.CanModify(message, c.self); err != nil {
		return err
	}
	requestID, err := c.channel.Mutate(c.ctx, c.conversation, id, status, content)
	if err != nil {
		return fmt.Errorf("conversation: %s message %s: %w", status, id, err)
	}
	c.store.MarkPendingEdit(requestID, id)
	c.changed()
	return nil
}

// AddMembers invites users to the open group.
func (c *Controller) AddMembers(members []ref.UserID) error {
	if err := c.requireGroup(); err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}
	if _, err := c.channel.AddMembers(c.ctx, c.conversation, members); err != nil {
		return fmt.Errorf("conversation: adding members to %s: %w", c.conversation, err)
	}
	return nil
}

// RemoveMember removes a user from the open group. Removing the local
// user is the same as Leave.
func (c *Controller) RemoveMember(member ref.UserID) error {
	if member == c.self {
		return c.Leave()
	}
	if err := c.requireGroup(); err != nil {
		return err
	}
	if _, err := c.channel.RemoveMember(c.ctx, c.conversation, member); err != nil {
		return fmt.Errorf("conversation: removing %s from %s: %w", member, c.conversation, err)
	}
	return nil
}

// Leave leaves the open group and closes it. The server's later
// member_removed for the local user finds the controller Closed and
// does nothing.
func (c *Controller) Leave() error {
	if err := c.requireGroup(); err != nil {
		return err
	}
	if _, err := c.channel.Leave(c.ctx, c.conversation); err != nil {
		return fmt.Errorf("conversation: leaving %s: %w", c.conversation, err)
	}
	title := c.Title()
	c.shutdown()
	c.logger.Info("left conversation", "conversation_id", c.conversation)
	c.notify(NoticeLeft, fmt.Sprintf("You left %s", title))
	c.changed()
	return nil
}

func (c *Controller) requireGroup() error {
	if c.state != StateActive {
		return ErrNotActive
	}
	if c.kind != chat.KindGroup {
		return ErrNotGroup
	}
	return nil
}

// Input replaces the composer text after a keystroke.
func (c *Controller) Input(text string) {
	c.composer.SetText(text)
}

func (c *Controller) onInput(text string) {
	if c.state == StateActive && c.tracker != nil {
		c.tracker.Local.Input(text)
	}
	c.changed()
}

// BeginEdit puts the composer into edit mode for message id.
func (c *Controller) BeginEdit(id ref.MessageID) error {
	if c.state != StateActive {
		return ErrNotActive
	}
	message, ok := c.store.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMessage, id)
	}
	return c.composer.BeginEdit(message, c.self)
}

// CancelEdit leaves edit mode and restores the draft.
func (c *Controller) CancelEdit() {
	c.composer.CancelEdit()
}

// Submit sends the composer text, or applies the edit in progress. On
// a failed send the text is put back so the user can retry.
func (c *Controller) Submit() error {
	if c.state != StateActive {
		return ErrNotActive
	}
	submission, ok := c.composer.Submit()
	if !ok {
		return nil
	}
	switch submission.Mode {
	case composer.ModeEdit:
		return c.Edit(submission.MessageID, submission.Content)
	default:
		if err := c.Send(submission.Content); err != nil {
			c.composer.SetText(submission.Content)
			return err
		}
		return nil
	}
}
