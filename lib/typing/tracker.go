// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package typing

import (
	"time"

	"github.com/bureau-foundation/chatsync/lib/clock"
	"github.com/bureau-foundation/chatsync/lib/eventloop"
	"github.com/bureau-foundation/chatsync/lib/ref"
)

// Config configures a Tracker.
type Config struct {
	Clock     clock.Clock
	Scheduler eventloop.Scheduler
	Self      ref.UserID

	IdleWindow time.Duration
	MaxAge     time.Duration

	Start    func()
	Stop     func()
	OnChange func()
}

// Tracker is the typing state of one open conversation. A new Tracker
// is created on every open, and Close releases its timers.
type Tracker struct {
	Local *Local
	Peers *Peers
}

// NewTracker creates a Tracker.
func NewTracker(config Config) *Tracker {
	return &Tracker{
		Local: NewLocal(LocalConfig{
			Clock:      config.Clock,
			Scheduler:  config.Scheduler,
			IdleWindow: config.IdleWindow,
			Start:      config.Start,
			Stop:       config.Stop,
		}),
		Peers: NewPeers(PeersConfig{
			Clock:     config.Clock,
			Scheduler: config.Scheduler,
			Self:      config.Self,
			MaxAge:    config.MaxAge,
			OnChange:  config.OnChange,
		}),
	}
}

// Close flushes local typing and clears the peer set.
func (t *Tracker) Close() {
	t.Local.Flush()
	t.Peers.Clear()
}
