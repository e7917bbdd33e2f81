// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package eventloop serializes all chat state mutations onto a single
// logical thread.
//
// The message store, typing tracker, pagination cursor, roster, and
// conversation controller hold no locks. Every read and write of their
// state happens inside a function handed to a [Scheduler], and the
// scheduler guarantees that such functions never run concurrently.
// Blocking work (HTTP fetches, channel emits) runs through
// [Scheduler.Go]: the work function runs off the loop and returns a
// continuation that is posted back onto it.
//
// Three schedulers exist:
//
//   - [Loop] runs posted functions on one goroutine. The headless CLI
//     and the channel transport tests use it.
//   - [Manual] queues posted functions until the test calls Drain. It
//     makes every ordering in a test explicit.
//   - lib/chatui adapts the bubbletea program, whose Update method is
//     already a single-threaded loop.
package eventloop
