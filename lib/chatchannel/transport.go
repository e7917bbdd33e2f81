// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatchannel

import (
	"context"
	"errors"
)

// ErrDisconnected is returned when an intent is emitted while the
// channel has no live connection. Intents are not queued across
// reconnects.
var ErrDisconnected = errors.New("chatchannel: not connected")

// Sink receives a transport's connection lifecycle and inbound frames.
// Transports call it from their own goroutines.
type Sink interface {
	Connected()
	Disconnected(err error)
	Frame(frame Frame)
}

// Transport carries frames between the client and the chat server.
type Transport interface {
	// Start begins delivering to sink in the background and returns
	// immediately. A transport is started at most once.
	Start(ctx context.Context, sink Sink)

	// Emit sends one frame on the current connection. It returns
	// ErrDisconnected when there is none.
	Emit(ctx context.Context, frame Frame) error

	// Close stops the transport and waits for its goroutines to exit.
	Close() error
}
