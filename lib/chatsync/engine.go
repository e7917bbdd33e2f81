// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/bureau-foundation/chatsync/lib/chatchannel"
	"github.com/bureau-foundation/chatsync/lib/clock"
	"github.com/bureau-foundation/chatsync/lib/conversation"
	"github.com/bureau-foundation/chatsync/lib/eventloop"
	"github.com/bureau-foundation/chatsync/lib/pagination"
	"github.com/bureau-foundation/chatsync/lib/ref"
	"github.com/bureau-foundation/chatsync/lib/roster"
	"github.com/bureau-foundation/chatsync/lib/schema/chat"
	"github.com/bureau-foundation/chatsync/lib/typing"
)

var (
	// ErrNotMounted is returned by operations that need a mounted
	// engine.
	ErrNotMounted = errors.New("chatsync: engine is not mounted")

	// ErrMounted is returned by Mount on an engine already mounted.
	ErrMounted = errors.New("chatsync: engine is already mounted")

	// ErrUnknownConversation is returned by Open for an id that is in
	// neither roster list.
	ErrUnknownConversation = errors.New("chatsync: conversation is not in the roster")
)

// Backend is the server-side collaborator set: history pages, roster
// lists, private chat creation, and identity.
// *messaging.Client implements it.
type Backend interface {
	pagination.History
	roster.Collaborator
	WhoAmI(ctx context.Context) (chat.Member, error)
}

// Config configures an Engine.
type Config struct {
	Backend   Backend
	Transport chatchannel.Transport
	Scheduler eventloop.Scheduler
	Clock     clock.Clock
	Logger    *slog.Logger

	// Location decides calendar days for date buckets.
	Location *time.Location

	TypingIdle time.Duration

	// TypingMaxAge evicts a typing peer that never sends a stop event.
	// Zero means typing.DefaultMaxAge; a negative value disables
	// eviction.
	TypingMaxAge time.Duration

	// Limiter throttles outbound intents. Nil means unlimited.
	Limiter *rate.Limiter

	// NewRequestID overrides intent request id generation.
	NewRequestID func() string

	// OnChange runs on the event loop after the roster or the open
	// conversation changes.
	OnChange func()

	// OnNotice runs on the event loop for controller notices.
	OnNotice func(conversation.Notice)
}

// Engine is the composition root. Every method must be called on the
// event loop, or before the loop starts running.
type Engine struct {
	config Config
	logger *slog.Logger

	ctx        context.Context
	cancel     context.CancelFunc
	self       chat.Member
	adapter    *chatchannel.Adapter
	roster     *roster.Manager
	controller *conversation.Controller
}

// New creates an unmounted engine.
func New(config Config) *Engine {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.OnChange == nil {
		config.OnChange = func() {}
	}
	if config.TypingMaxAge == 0 {
		config.TypingMaxAge = typing.DefaultMaxAge
	}
	return &Engine{config: config, logger: logger}
}

// Mount resolves the local user, starts the channel, subscribes the
// roster to every conversation, and starts loading both roster lists.
// The identity request blocks; the roster loads run on the scheduler.
func (e *Engine) Mount(ctx context.Context) error {
	if e.cancel != nil {
		return ErrMounted
	}
	self, err := e.config.Backend.WhoAmI(ctx)
	if err != nil {
		return fmt.Errorf("chatsync: resolving identity: %w", err)
	}
	if self.ID.IsZero() {
		return errors.New("chatsync: identity response has no user id")
	}

	ctx, cancel := context.WithCancel(ctx)
	e.ctx, e.cancel = ctx, cancel
	e.self = self
	logger := e.logger.With("user_id", self.ID)

	e.adapter = chatchannel.New(chatchannel.Config{
		Transport:    e.config.Transport,
		Scheduler:    e.config.Scheduler,
		Logger:       logger,
		Limiter:      e.config.Limiter,
		NewRequestID: e.config.NewRequestID,
	})
	e.roster = roster.New(roster.Config{
		Collaborator: e.config.Backend,
		Scheduler:    e.config.Scheduler,
		Logger:       logger,
		Self:         self.ID,
		Context:      ctx,
		OnChange:     e.config.OnChange,
	})
	e.controller = conversation.New(conversation.Config{
		Channel:      e.adapter,
		Roster:       e.roster,
		History:      e.config.Backend,
		Scheduler:    e.config.Scheduler,
		Clock:        e.config.Clock,
		Logger:       logger,
		Self:         self.ID,
		Location:     e.config.Location,
		TypingIdle:   e.config.TypingIdle,
		TypingMaxAge: e.config.TypingMaxAge,
		Context:      ctx,
	})
	e.controller.OnChange(e.config.OnChange)
	if e.config.OnNotice != nil {
		e.controller.OnNotice(e.config.OnNotice)
	}

	// The roster subscribes before the transport starts so it sees the
	// first Connected event.
	e.roster.Attach(e.adapter)
	e.adapter.Start(ctx)
	e.roster.LoadGroups(ctx)
	e.roster.LoadPrivateChats(ctx)

	logger.Info("chat engine mounted", "name", self.DisplayName())
	return nil
}

// Unmount closes the open conversation, drops the roster subscription,
// and stops the transport. Unmounting an unmounted engine is a no-op.
func (e *Engine) Unmount() error {
	if e.cancel == nil {
		return nil
	}
	e.controller.Close()
	e.roster.Detach()
	err := e.adapter.Close()
	if idle, ok := e.config.Backend.(interface{ CloseIdleConnections() }); ok {
		idle.CloseIdleConnections()
	}
	e.cancel()
	e.ctx, e.cancel = nil, nil
	e.logger.Info("chat engine unmounted")
	if err != nil {
		return fmt.Errorf("chatsync: closing channel: %w", err)
	}
	return nil
}

// Mounted reports whether Mount succeeded and Unmount has not run.
func (e *Engine) Mounted() bool {
	return e.cancel != nil
}

// Open switches the controller to the roster conversation with id.
func (e *Engine) Open(id ref.ConversationID) error {
	if e.cancel == nil {
		return ErrNotMounted
	}
	conversation, ok := e.roster.Conversation(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	return e.controller.Open(id, conversation.Kind)
}

// OpenPrivateWith opens the private chat with peer, creating it when
// the roster has none. done, if set, receives the outcome on the
// event loop.
func (e *Engine) OpenPrivateWith(peer ref.UserID, done func(error)) {
	if done == nil {
		done = func(error) {}
	}
	if e.cancel == nil {
		done(ErrNotMounted)
		return
	}
	controller := e.controller
	e.roster.StartPrivateChat(e.ctx, peer, func(conversation chat.Conversation, err error) {
		// An Unmount while the create was in flight leaves nothing to
		// open.
		if err == nil && (e.cancel == nil || e.controller != controller) {
			err = ErrNotMounted
		}
		if err == nil {
			err = controller.Open(conversation.ID, chat.KindPrivate)
		}
		done(err)
	})
}

// Self returns the local user. Zero before Mount.
func (e *Engine) Self() chat.Member { return e.self }

// Roster returns the roster manager. Nil before Mount.
func (e *Engine) Roster() *roster.Manager { return e.roster }

// Controller returns the open-conversation controller. Nil before
// Mount.
func (e *Engine) Controller() *conversation.Controller { return e.controller }

// Channel returns the channel adapter. Nil before Mount.
func (e *Engine) Channel() *chatchannel.Adapter { return e.adapter }
