// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventloop

// Scheduler runs functions one at a time on the event loop.
type Scheduler interface {
	// Post queues fn to run on the loop. Post never blocks and may be
	// called from any goroutine, including from a function already
	// running on the loop.
	Post(fn func())

	// Go runs work off the loop. If work returns a non-nil function,
	// that continuation is posted onto the loop.
	Go(work func() func())
}
