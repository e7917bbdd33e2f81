// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction so that the
// timer-driven parts of the chat engine (typing debounce, typing
// expiry, reconnect backoff, date bucketing against "now") can be
// tested deterministically.
//
// Production code holds a Clock field and receives Real(). Tests
// receive Fake(start) and move time explicitly:
//
//	c := clock.Fake(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
//	debouncer := typing.NewLocal(typing.LocalConfig{Clock: c, ...})
//	debouncer.Input("h")
//	c.Advance(time.Second) // fires the stop-typing timer
//
// AfterFunc callbacks registered on a FakeClock run synchronously
// inside Advance, in deadline order. Callers that must not run
// callbacks on the advancing goroutine post them onto an
// eventloop.Scheduler from inside the callback.
package clock
