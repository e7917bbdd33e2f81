// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"fmt"
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// wakeMsg tells the model that functions are waiting in the
// scheduler queue.
type wakeMsg struct{}

// Scheduler is an eventloop.Scheduler whose loop is the bubbletea
// program. Post and Go may be called from any goroutine; queued
// functions run inside Model.Update, on the program's goroutine.
//
// Posting never blocks and never calls into the program, so the
// engine can be mounted (and its first loads queued) before the
// program starts.
type Scheduler struct {
	logger *slog.Logger

	mutex  sync.Mutex
	queue  []func()
	wake   chan struct{}
	done   chan struct{}
	closed sync.Once
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Post queues fn and wakes the model.
func (scheduler *Scheduler) Post(fn func()) {
	scheduler.mutex.Lock()
	scheduler.queue = append(scheduler.queue, fn)
	scheduler.mutex.Unlock()

	select {
	case scheduler.wake <- struct{}{}:
	default:
	}
}

// Go runs work on its own goroutine and posts the continuation.
func (scheduler *Scheduler) Go(work func() func()) {
	go func() {
		if continuation := work(); continuation != nil {
			scheduler.Post(continuation)
		}
	}()
}

// Close releases a pending wait command. Functions posted afterwards
// are queued but never run.
func (scheduler *Scheduler) Close() {
	scheduler.closed.Do(func() { close(scheduler.done) })
}

// Wait returns a command that blocks until something is posted, then
// delivers a wakeMsg. The model re-issues it after every drain.
func (scheduler *Scheduler) Wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-scheduler.wake:
			return wakeMsg{}
		case <-scheduler.done:
			return nil
		}
	}
}

// Drain runs queued functions, including ones queued while draining,
// until the queue is empty. Returns the number run.
func (scheduler *Scheduler) Drain() int {
	count := 0
	for {
		scheduler.mutex.Lock()
		if len(scheduler.queue) == 0 {
			scheduler.mutex.Unlock()
			return count
		}
		batch := scheduler.queue
		scheduler.queue = nil
		scheduler.mutex.Unlock()

		for _, fn := range batch {
			scheduler.run(fn)
			count++
		}
	}
}

// run executes fn, logging a panic instead of tearing down the
// terminal mid-frame.
func (scheduler *Scheduler) run(fn func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			scheduler.logger.Error("scheduled function panicked", "panic", fmt.Sprint(recovered))
		}
	}()
	fn()
}
