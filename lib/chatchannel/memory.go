// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatchannel

import (
	"context"
	"sync"
)

// MemoryTransport is an in-process Transport. The test (or demo
// server) drives the connection with Connect, Disconnect and Deliver,
// and inspects what the client emitted with Emitted.
type MemoryTransport struct {
	mu        sync.Mutex
	sink      Sink
	connected bool
	emitted   []Frame
	emitErr   error
	onEmit    func(Frame)
}

// NewMemoryTransport returns a disconnected transport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{}
}

// Start records the sink. It does not connect.
func (t *MemoryTransport) Start(_ context.Context, sink Sink) {
	t.mu.Lock()
	t.sink = sink
	t.mu.Unlock()
}

// Close disconnects without notifying the sink.
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	t.connected = false
	t.sink = nil
	t.mu.Unlock()
	return nil
}

// Emit records frame. It fails with ErrDisconnected while disconnected
// and with the error set by FailEmits otherwise.
func (t *MemoryTransport) Emit(_ context.Context, frame Frame) error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return ErrDisconnected
	}
	if t.emitErr != nil {
		err := t.emitErr
		t.mu.Unlock()
		return err
	}
	t.emitted = append(t.emitted, frame)
	onEmit := t.onEmit
	t.mu.Unlock()
	if onEmit != nil {
		onEmit(frame)
	}
	return nil
}

// Connect marks the transport connected and notifies the sink.
func (t *MemoryTransport) Connect() {
	t.mu.Lock()
	t.connected = true
	sink := t.sink
	t.mu.Unlock()
	if sink != nil {
		sink.Connected()
	}
}

// Disconnect marks the transport disconnected and notifies the sink.
func (t *MemoryTransport) Disconnect(err error) {
	t.mu.Lock()
	t.connected = false
	sink := t.sink
	t.mu.Unlock()
	if sink != nil {
		sink.Disconnected(err)
	}
}

// Deliver hands frame to the sink as if it arrived from the server.
func (t *MemoryTransport) Deliver(frame Frame) {
	t.mu.Lock()
	sink := t.sink
	t.mu.Unlock()
	if sink != nil {
		sink.Frame(frame)
	}
}

// FailEmits makes every following Emit return err. Nil restores
// normal behavior.
func (t *MemoryTransport) FailEmits(err error) {
	t.mu.Lock()
	t.emitErr = err
	t.mu.Unlock()
}

// OnEmit registers a callback invoked after each recorded emit,
// outside the transport's lock. A demo server uses it to answer
// intents.
func (t *MemoryTransport) OnEmit(fn func(Frame)) {
	t.mu.Lock()
	t.onEmit = fn
	t.mu.Unlock()
}

// Emitted returns a copy of every frame emitted so far.
func (t *MemoryTransport) Emitted() []Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Frame(nil), t.emitted...)
}

// TakeEmitted returns the emitted frames and forgets them.
func (t *MemoryTransport) TakeEmitted() []Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	frames := t.emitted
	t.emitted = nil
	return frames
}
