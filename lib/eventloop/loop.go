// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventloop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Loop is the production Scheduler: one goroutine drains an unbounded
// FIFO queue. Posted functions run in the order they were posted.
type Loop struct {
	logger *slog.Logger

	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool

	workers sync.WaitGroup
}

// NewLoop creates a Loop. Call Run to start processing.
func NewLoop(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
}

// Post queues fn. Functions posted after the loop stops are dropped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Go runs work on its own goroutine and posts the continuation.
func (l *Loop) Go(work func() func()) {
	l.workers.Add(1)
	go func() {
		defer l.workers.Done()
		if continuation := work(); continuation != nil {
			l.Post(continuation)
		}
	}()
}

// Run processes posted functions until ctx is cancelled. Functions
// still queued at cancellation are dropped. Run waits for outstanding
// Go workers before returning; workers must observe ctx themselves.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
		l.workers.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}

		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			batch := l.queue
			l.queue = nil
			l.mu.Unlock()

			for _, fn := range batch {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				l.run(fn)
			}
		}
	}
}

// run executes fn, converting a panic into a logged error so one bad
// handler does not take the loop down.
func (l *Loop) run(fn func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			l.logger.Error("event loop handler panicked", "panic", fmt.Sprint(recovered))
		}
	}()
	fn()
}
