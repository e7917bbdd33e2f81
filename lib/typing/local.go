// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package typing

import (
	"time"

	"github.com/bureau-foundation/chatsync/lib/clock"
	"github.com/bureau-foundation/chatsync/lib/eventloop"
)

// DefaultIdleWindow is how long the composer must be quiet before the
// stop intent is sent.
const DefaultIdleWindow = time.Second

// LocalConfig configures a Local debouncer.
type LocalConfig struct {
	Clock     clock.Clock
	Scheduler eventloop.Scheduler

	// IdleWindow defaults to DefaultIdleWindow.
	IdleWindow time.Duration

	// Start and Stop emit the typing intents. They run on the loop.
	Start func()
	Stop  func()
}

// Local debounces the local user's keystrokes.
type Local struct {
	clock     clock.Clock
	scheduler eventloop.Scheduler
	idle      time.Duration
	start     func()
	stop      func()

	typing     bool
	generation uint64
	timer      *clock.Timer
}

// NewLocal creates a debouncer in the not-typing state.
func NewLocal(config LocalConfig) *Local {
	if config.IdleWindow <= 0 {
		config.IdleWindow = DefaultIdleWindow
	}
	if config.Start == nil {
		config.Start = func() {}
	}
	if config.Stop == nil {
		config.Stop = func() {}
	}
	return &Local{
		clock:     config.Clock,
		scheduler: config.Scheduler,
		idle:      config.IdleWindow,
		start:     config.Start,
		stop:      config.Stop,
	}
}

// Input reports the composer text after a keystroke. Non-empty text
// emits start if not already typing and re-arms the idle timer. Empty
// text stops typing immediately.
func (l *Local) Input(text string) {
	if text == "" {
		l.Flush()
		return
	}
	if !l.typing {
		l.typing = true
		l.start()
	}
	l.arm()
}

// Flush emits stop now if typing. Called on send and on conversation
// switch.
func (l *Local) Flush() {
	if !l.typing {
		return
	}
	l.disarm()
	l.typing = false
	l.stop()
}

// Close cancels the idle timer without emitting stop.
func (l *Local) Close() {
	l.disarm()
	l.typing = false
}

// Typing reports whether a start has been emitted without a matching
// stop.
func (l *Local) Typing() bool { return l.typing }

func (l *Local) arm() {
	l.disarm()
	generation := l.generation
	l.timer = l.clock.AfterFunc(l.idle, func() {
		l.scheduler.Post(func() { l.expire(generation) })
	})
}

func (l *Local) disarm() {
	l.generation++
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

func (l *Local) expire(generation uint64) {
	if generation != l.generation || !l.typing {
		return
	}
	l.timer = nil
	l.typing = false
	l.stop()
}
