// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatsync

import (
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/bureau-foundation/chatsync/lib/chatchannel"
	"github.com/bureau-foundation/chatsync/lib/config"
	"github.com/bureau-foundation/chatsync/lib/conversation"
	"github.com/bureau-foundation/chatsync/lib/eventloop"
	"github.com/bureau-foundation/chatsync/lib/secret"
	"github.com/bureau-foundation/chatsync/messaging"
)

// Options carries the runtime pieces a config file cannot describe.
type Options struct {
	// Token authenticates both the HTTP API and the channel. The
	// engine does not close it.
	Token *secret.Token

	Scheduler eventloop.Scheduler
	Logger    *slog.Logger
	OnChange  func()
	OnNotice  func(conversation.Notice)
}

// NewFromConfig builds an unmounted engine wired to the servers named
// in cfg. cfg must already be validated.
func NewFromConfig(cfg *config.Config, options Options) (*Engine, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	client, err := messaging.NewClient(messaging.ClientConfig{
		URL:      cfg.Server.APIURL,
		Token:    options.Token,
		Logger:   logger,
		PageSize: cfg.Chat.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("chatsync: creating API client: %w", err)
	}

	transport := chatchannel.NewStreamTransport(chatchannel.StreamConfig{
		Network:        cfg.Server.ChannelNetwork,
		Address:        cfg.Server.ChannelAddress,
		Token:          options.Token,
		Compression:    cfg.Server.Compression,
		InitialBackoff: cfg.Channel.ReconnectInitial,
		MaxBackoff:     cfg.Channel.ReconnectMax,
		Logger:         logger,
	})

	// Zero in the config file turns eviction off.
	typingMaxAge := cfg.Chat.TypingMaxAge
	if typingMaxAge == 0 {
		typingMaxAge = -1
	}

	return New(Config{
		Backend:      client,
		Transport:    transport,
		Scheduler:    options.Scheduler,
		Logger:       logger,
		Location:     location,
		TypingIdle:   cfg.Chat.TypingIdle,
		TypingMaxAge: typingMaxAge,
		Limiter:      rate.NewLimiter(rate.Limit(cfg.Channel.IntentRate), cfg.Channel.IntentBurst),
		OnChange:     options.OnChange,
		OnNotice:     options.OnNotice,
	}), nil
}
