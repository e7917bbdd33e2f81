// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventloop

import "sync"

// Manual is a Scheduler for tests. Posted functions and Go work items
// wait in a queue until Drain or Step runs them on the calling
// goroutine. Go work runs synchronously inside Drain, and its
// continuation is queued behind everything already posted.
type Manual struct {
	mu    sync.Mutex
	queue []func()
}

// NewManual returns an empty Manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

// Post queues fn.
func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, fn)
}

// Go queues work. When run, a non-nil continuation is posted.
func (m *Manual) Go(work func() func()) {
	m.Post(func() {
		if continuation := work(); continuation != nil {
			m.Post(continuation)
		}
	})
}

// Step runs the oldest queued function and reports whether one ran.
func (m *Manual) Step() bool {
	m.mu.Lock()
	if len(m.queue) == 0 {
		m.mu.Unlock()
		return false
	}
	fn := m.queue[0]
	m.queue = m.queue[1:]
	m.mu.Unlock()

	fn()
	return true
}

// Drain runs queued functions, including ones queued while draining,
// until the queue is empty. Returns the number of functions run.
func (m *Manual) Drain() int {
	count := 0
	for m.Step() {
		count++
	}
	return count
}

// Pending returns the number of queued functions.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
