// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatchannel is the client side of the realtime chat channel.
//
// The [Adapter] owns the process-wide channel connection. It turns
// inbound wire frames into typed [Event] values and dispatches them to
// handler sets, and it turns user intents (join, send, mutate, typing,
// membership) into outbound frames.
//
// Handler sets are registered per conversation with [Adapter.Subscribe]
// or for every conversation with [Adapter.SubscribeAll]. Each call
// returns a [Subscription] whose Close removes exactly that set, so a
// conversation controller that subscribes on open and closes on
// teardown can never stack duplicate handlers. Global sets run before
// conversation-scoped ones, which lets the roster update its previews
// before the open conversation renders.
//
// The wire is a [Transport]. [StreamTransport] speaks CBOR frames over
// a TCP or Unix socket, optionally zstd-compressed, and reconnects with
// exponential backoff. [MemoryTransport] is an in-process transport for
// tests and demos.
//
// Everything the Adapter does to its own state and every handler it
// invokes runs on the event loop. Transports call the Sink from their
// own goroutines; the Adapter's sink posts each call onto the loop.
package chatchannel
