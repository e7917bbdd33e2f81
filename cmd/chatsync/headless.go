// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bureau-foundation/chatsync/lib/chatchannel"
	"github.com/bureau-foundation/chatsync/lib/chatsync"
	"github.com/bureau-foundation/chatsync/lib/chatui"
	"github.com/bureau-foundation/chatsync/lib/config"
	"github.com/bureau-foundation/chatsync/lib/conversation"
	"github.com/bureau-foundation/chatsync/lib/eventloop"
	"github.com/bureau-foundation/chatsync/lib/ref"
	"github.com/bureau-foundation/chatsync/lib/schema/chat"
	"github.com/bureau-foundation/chatsync/lib/secret"
)

// runHeadless follows every conversation on a plain event loop and
// prints live messages to stdout until ctx is cancelled. When openID
// is set, that conversation is also opened so its initial history is
// printed.
func runHeadless(ctx context.Context, cfg *config.Config, token *secret.Token, level slog.Level, openID ref.ConversationID) error {
	var handler slog.Handler = newStderrHandler(level)
	if cfg.Log.Output != "" {
		fileHandler, closeFile, err := openFileLogHandler(cfg.Log.Output, level)
		if err != nil {
			return fmt.Errorf("cannot open log file %s: %w", cfg.Log.Output, err)
		}
		defer closeFile()
		handler = chatui.FanoutHandler{handler, fileHandler}
	}
	logger := slog.New(handler)

	location, err := cfg.Location()
	if err != nil {
		return err
	}
	loop := eventloop.NewLoop(logger)
	printer := &linePrinter{writer: os.Stdout, location: location}

	var engine *chatsync.Engine
	follow := &follower{printer: printer, pending: openID}
	engine, err = chatsync.NewFromConfig(cfg, chatsync.Options{
		Token:     token,
		Scheduler: loop,
		Logger:    logger,
		OnChange:  func() { follow.changed(engine) },
		OnNotice: func(notice conversation.Notice) {
			logger.Warn(notice.Text, "conversation_id", notice.Conversation)
		},
	})
	if err != nil {
		return err
	}

	// The loop is not running yet, so the engine can be mounted and
	// subscribed from this goroutine.
	if err := engine.Mount(ctx); err != nil {
		return err
	}
	defer engine.Unmount()
	follow.subscribe(engine)

	logger.Info("following conversations", "user_id", engine.Self().ID)
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// follower prints every live message, plus the initial history of the
// conversation requested on the command line once the roster has it.
type follower struct {
	printer *linePrinter
	pending ref.ConversationID
	listed  bool
}

func (f *follower) subscribe(engine *chatsync.Engine) {
	engine.Channel().SubscribeAll(chatchannel.Handlers{
		LiveMessage: func(event chatchannel.LiveMessage) {
			f.printer.message(engine, event.Message)
		},
		InitialHistory: func(event chatchannel.InitialHistory) {
			for _, message := range event.Messages {
				f.printer.message(engine, message)
			}
		},
		Connected:    func() { f.printer.status("connected") },
		Disconnected: func(error) { f.printer.status("disconnected, reconnecting") },
	})
}

// changed runs on the loop after every roster or controller change.
func (f *follower) changed(engine *chatsync.Engine) {
	if engine == nil || !engine.Mounted() {
		return
	}
	engineRoster := engine.Roster()
	loaded := !engineRoster.Loading(chat.KindGroup) && !engineRoster.Loading(chat.KindPrivate)
	if loaded && !f.listed {
		f.listed = true
		f.printer.roster(engine)
	}
	if f.pending.IsZero() {
		return
	}
	id := f.pending
	if _, ok := engineRoster.Conversation(id); ok {
		f.pending = ref.ConversationID{}
		if err := engine.Open(id); err != nil {
			f.printer.status(fmt.Sprintf("cannot open %s: %v", id, err))
		}
		return
	}
	if loaded {
		f.pending = ref.ConversationID{}
		f.printer.status(fmt.Sprintf("conversation %s is not in your roster", id))
	}
}

// linePrinter formats chat output for stdout, one record per line.
type linePrinter struct {
	writer   io.Writer
	location *time.Location
}

func (p *linePrinter) message(engine *chatsync.Engine, message chat.Message) {
	title := message.ConversationID.String()
	if conversation, ok := engine.Roster().Conversation(message.ConversationID); ok {
		title = conversation.Title(engine.Self().ID)
	}
	sender := "*"
	if message.Sender != nil {
		sender = message.Sender.DisplayName()
	}
	content := strings.Join(strings.Fields(message.Content), " ")
	if message.IsDeleted() {
		content = "(deleted)"
	}
	fmt.Fprintf(p.writer, "%s [%s] %s: %s\n",
		message.CreatedAt.In(p.location).Format("2006-01-02 15:04"), title, sender, content)
}

func (p *linePrinter) roster(engine *chatsync.Engine) {
	self := engine.Self().ID
	for _, list := range [][]chat.Conversation{engine.Roster().Groups(), engine.Roster().Private()} {
		for index := range list {
			fmt.Fprintf(p.writer, "# %s %s\n", list[index].ID, list[index].Title(self))
		}
	}
}

func (p *linePrinter) status(text string) {
	fmt.Fprintf(p.writer, "# %s\n", text)
}
