// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatchannel

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/bureau-foundation/chatsync/lib/eventloop"
	"github.com/bureau-foundation/chatsync/lib/ref"
	"github.com/bureau-foundation/chatsync/lib/schema/chat"
)

// ErrRateLimited is returned when an intent exceeds the client-side
// intent rate.
var ErrRateLimited = errors.New("chatchannel: intent rate exceeded")

// Config configures an Adapter.
type Config struct {
	Transport Transport
	Scheduler eventloop.Scheduler
	Logger    *slog.Logger

	// Limiter throttles outbound intents. Nil means unlimited.
	Limiter *rate.Limiter

	// NewRequestID generates request ids. Defaults to uuid.NewString.
	NewRequestID func() string
}

// Adapter is the process-wide channel. All methods except Start and
// Close must be called on the event loop.
type Adapter struct {
	transport    Transport
	scheduler    eventloop.Scheduler
	logger       *slog.Logger
	limiter      *rate.Limiter
	newRequestID func() string

	connected bool
	global    []*Subscription
	scoped    map[ref.ConversationID][]*Subscription

	// mutations maps the request id of each unanswered mutate intent
	// to its target, so acks and errors that carry only the request id
	// still reach the conversation's handler sets.
	mutations map[string]mutationTarget
}

type mutationTarget struct {
	conversation ref.ConversationID
	message      ref.MessageID
}

// Subscription is one registered handler set.
type Subscription struct {
	adapter      *Adapter
	conversation ref.ConversationID
	handlers     Handlers
	closed       bool
}

// New creates an adapter. Call Start to connect the transport.
func New(config Config) *Adapter {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limiter := config.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	newRequestID := config.NewRequestID
	if newRequestID == nil {
		newRequestID = uuid.NewString
	}
	return &Adapter{
		transport:    config.Transport,
		scheduler:    config.Scheduler,
		logger:       logger,
		limiter:      limiter,
		newRequestID: newRequestID,
		scoped:       make(map[ref.ConversationID][]*Subscription),
		mutations:    make(map[string]mutationTarget),
	}
}

// Start starts the transport. Its callbacks are posted to the loop.
func (a *Adapter) Start(ctx context.Context) {
	a.transport.Start(ctx, loopSink{adapter: a})
}

// Close stops the transport.
func (a *Adapter) Close() error {
	return a.transport.Close()
}

// Connected reports whether the channel currently has a connection.
func (a *Adapter) Connected() bool {
	return a.connected
}

// Subscribe registers handlers for events of one conversation.
func (a *Adapter) Subscribe(conversation ref.ConversationID, handlers Handlers) *Subscription {
	subscription := &Subscription{adapter: a, conversation: conversation, handlers: handlers}
	a.scoped[conversation] = append(a.scoped[conversation], subscription)
	return subscription
}

// SubscribeAll registers handlers for events of every conversation.
func (a *Adapter) SubscribeAll(handlers Handlers) *Subscription {
	subscription := &Subscription{adapter: a, handlers: handlers}
	a.global = append(a.global, subscription)
	return subscription
}

// Subscriptions returns how many handler sets are registered for
// conversation. A zero id counts the global sets.
func (a *Adapter) Subscriptions(conversation ref.ConversationID) int {
	if conversation.IsZero() {
		return len(a.global)
	}
	return len(a.scoped[conversation])
}

// Close removes the handler set. No handler of the set runs after
// Close returns, including for events already being dispatched.
// Closing twice is a no-op.
func (s *Subscription) Close() {
	if s == nil || s.closed {
		return
	}
	s.closed = true
	a := s.adapter
	if s.conversation.IsZero() {
		a.global = slices.DeleteFunc(a.global, func(other *Subscription) bool { return other == s })
		return
	}
	remaining := slices.DeleteFunc(a.scoped[s.conversation], func(other *Subscription) bool { return other == s })
	if len(remaining) == 0 {
		delete(a.scoped, s.conversation)
	} else {
		a.scoped[s.conversation] = remaining
	}
}

// Dispatch delivers event to the global sets, then to the sets of the
// event's conversation. Lifecycle events reach every set. Dispatch
// iterates a snapshot so handlers may subscribe or close freely.
func (a *Adapter) Dispatch(event Event) {
	switch e := event.(type) {
	case Connected:
		a.connected = true
	case Disconnected:
		a.connected = false
		clear(a.mutations)
		a.logger.Warn("channel disconnected", "error", e.Err)
	}

	targets := slices.Clone(a.global)
	switch event.(type) {
	case Connected, Disconnected:
		for _, conversation := range a.sortedConversations() {
			targets = append(targets, a.scoped[conversation]...)
		}
	default:
		if conversation := event.ConversationID(); !conversation.IsZero() {
			targets = append(targets, a.scoped[conversation]...)
		}
	}

	for _, subscription := range targets {
		if subscription.closed {
			continue
		}
		subscription.handlers.dispatch(event)
	}
}

// sortedConversations orders scoped conversations so lifecycle
// delivery is deterministic.
func (a *Adapter) sortedConversations() []ref.ConversationID {
	conversations := make([]ref.ConversationID, 0, len(a.scoped))
	for conversation := range a.scoped {
		conversations = append(conversations, conversation)
	}
	slices.SortFunc(conversations, func(x, y ref.ConversationID) int {
		return cmp.Compare(x.String(), y.String())
	})
	return conversations
}

// handleFrame decodes and dispatches one inbound frame.
func (a *Adapter) handleFrame(frame Frame) {
	if frame.Type == FrameError || frame.Type == FrameMutationAck {
		if target, ok := a.mutations[frame.RequestID]; ok {
			delete(a.mutations, frame.RequestID)
			if frame.ConversationID.IsZero() {
				frame.ConversationID = target.conversation
			}
			if frame.MessageID.IsZero() {
				frame.MessageID = target.message
			}
		}
	}
	if frame.Type == FrameError {
		a.logger.Warn("channel request failed",
			"request_id", frame.RequestID,
			"conversation_id", frame.ConversationID,
			"error", frame.Error,
		)
		// A rejected mutate still needs its optimistic marker cleared.
		a.Dispatch(MutationAck{
			Conversation: frame.ConversationID,
			RequestID:    frame.RequestID,
			MessageID:    frame.MessageID,
			OK:           false,
			Error:        frame.Error,
		})
		return
	}
	event, err := DecodeEvent(frame)
	if err != nil {
		if errors.Is(err, ErrUnknownFrame) {
			a.logger.Debug("unknown channel frame type", "type", frame.Type)
		} else {
			a.logger.Warn("dropping malformed channel frame", "type", frame.Type, "error", err)
		}
		return
	}
	if history, ok := event.(InitialHistory); ok && history.Dropped > 0 {
		a.logger.Warn("dropping invalid history messages",
			"conversation_id", history.Conversation,
			"dropped", history.Dropped,
		)
	}
	a.Dispatch(event)
}

// loopSink moves transport callbacks onto the event loop.
type loopSink struct {
	adapter *Adapter
}

func (s loopSink) Connected() {
	s.adapter.scheduler.Post(func() { s.adapter.Dispatch(Connected{}) })
}

func (s loopSink) Disconnected(err error) {
	s.adapter.scheduler.Post(func() { s.adapter.Dispatch(Disconnected{Err: err}) })
}

func (s loopSink) Frame(frame Frame) {
	s.adapter.scheduler.Post(func() { s.adapter.handleFrame(frame) })
}

// emit stamps a request id on frame and sends it.
func (a *Adapter) emit(ctx context.Context, frame Frame) (string, error) {
	if !a.connected {
		return "", fmt.Errorf("chatchannel: %s: %w", frame.Type, ErrDisconnected)
	}
	if !a.limiter.Allow() {
		return "", fmt.Errorf("chatchannel: %s: %w", frame.Type, ErrRateLimited)
	}
	frame.RequestID = a.newRequestID()
	if err := a.transport.Emit(ctx, frame); err != nil {
		if errors.Is(err, ErrDisconnected) {
			return "", fmt.Errorf("chatchannel: %s: %w", frame.Type, ErrDisconnected)
		}
		return "", fmt.Errorf("chatchannel: emitting %s: %w", frame.Type, err)
	}
	a.logger.Debug("channel intent emitted",
		"type", frame.Type,
		"request_id", frame.RequestID,
		"conversation_id", frame.ConversationID,
	)
	return frame.RequestID, nil
}

// Join asks the server for the conversation's live events. The server
// answers with an initial_history frame.
func (a *Adapter) Join(ctx context.Context, conversation ref.ConversationID) (string, error) {
	return a.emit(ctx, Frame{Type: FrameJoin, ConversationID: conversation})
}

// Leave removes the local user from a group. The server follows up
// with member_removed for the local user.
func (a *Adapter) Leave(ctx context.Context, conversation ref.ConversationID) (string, error) {
	return a.emit(ctx, Frame{Type: FrameLeave, ConversationID: conversation})
}

// Send posts a new message. The message appears locally only when the
// server echoes it back as a live message.
func (a *Adapter) Send(ctx context.Context, conversation ref.ConversationID, content string) (string, error) {
	return a.emit(ctx, Frame{Type: FrameSend, ConversationID: conversation, Content: &content})
}

// Mutate requests an edit or delete of a message. content is nil for
// a delete that clears the text.
func (a *Adapter) Mutate(ctx context.Context, conversation ref.ConversationID, message ref.MessageID, status chat.Status, content *string) (string, error) {
	requestID, err := a.emit(ctx, Frame{
		Type:           FrameMutate,
		ConversationID: conversation,
		MessageID:      message,
		Status:         status,
		Content:        content,
	})
	if err != nil {
		return "", err
	}
	a.mutations[requestID] = mutationTarget{conversation: conversation, message: message}
	return requestID, nil
}

// PendingMutations returns how many mutate intents await an answer.
func (a *Adapter) PendingMutations() int {
	return len(a.mutations)
}

// TypingStart tells peers the local user started typing.
func (a *Adapter) TypingStart(ctx context.Context, conversation ref.ConversationID) (string, error) {
	return a.emit(ctx, Frame{Type: FrameTypingStart, ConversationID: conversation})
}

// TypingStop tells peers the local user stopped typing.
func (a *Adapter) TypingStop(ctx context.Context, conversation ref.ConversationID) (string, error) {
	return a.emit(ctx, Frame{Type: FrameTypingStop, ConversationID: conversation})
}

// AddMembers adds users to a group conversation.
func (a *Adapter) AddMembers(ctx context.Context, conversation ref.ConversationID, members []ref.UserID) (string, error) {
	return a.emit(ctx, Frame{Type: FrameAddMembers, ConversationID: conversation, MemberIDs: members})
}

// RemoveMember removes another user from a group conversation.
func (a *Adapter) RemoveMember(ctx context.Context, conversation ref.ConversationID, member ref.UserID) (string, error) {
	return a.emit(ctx, Frame{Type: FrameRemoveMember, ConversationID: conversation, MemberID: member})
}
