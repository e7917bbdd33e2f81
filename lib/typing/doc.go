// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package typing tracks typing presence for one open conversation.
//
// [Local] debounces composer keystrokes into at most one start intent
// per burst of typing and one stop intent after an idle window. [Peers]
// holds the set of remote members currently typing, in the order they
// started. Remote stop events are expected to be reliable, but a peer
// that never sends one is evicted after a maximum age so the indicator
// cannot stick.
//
// Timers fire on the clock's goroutine and post their effects onto the
// event loop. Each timer carries the generation it was armed in; a
// timer whose generation is stale by the time its callback runs on the
// loop does nothing.
package typing
