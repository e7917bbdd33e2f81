// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatchannel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/bureau-foundation/chatsync/lib/clock"
	"github.com/bureau-foundation/chatsync/lib/codec"
	"github.com/bureau-foundation/chatsync/lib/netutil"
	"github.com/bureau-foundation/chatsync/lib/secret"
)

const (
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 30 * time.Second

	// outboundQueueSize bounds frames waiting for the writer goroutine.
	// Emit blocks (subject to its context) when the queue is full.
	outboundQueueSize = 64
)

// Compression modes for StreamConfig.Compression.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// StreamConfig configures a StreamTransport.
type StreamConfig struct {
	// Network is "tcp" or "unix".
	Network string
	Address string

	// Token is sent in the hello frame that opens every connection.
	// The transport does not close it.
	Token *secret.Token

	// Compression is CompressionNone (or empty) or CompressionZstd.
	// Both ends must agree.
	Compression string

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Dial overrides the dialer. Tests use it to inject failures.
	Dial func(ctx context.Context, network, address string) (net.Conn, error)

	// Clock times the reconnect backoff. Defaults to clock.Real().
	Clock clock.Clock

	Logger *slog.Logger
}

// StreamTransport speaks CBOR frames over a stream socket and
// reconnects with exponential backoff when the connection drops.
type StreamTransport struct {
	config StreamConfig
	logger *slog.Logger

	mu      sync.Mutex
	current *streamConn
	cancel  context.CancelFunc
	done    chan struct{}
}

// streamConn is the per-connection outbound queue. closed is closed
// when the connection ends so a blocked Emit can give up.
type streamConn struct {
	outbound chan Frame
	closed   chan struct{}
}

// NewStreamTransport returns an unstarted transport.
func NewStreamTransport(config StreamConfig) *StreamTransport {
	if config.Network == "" {
		config.Network = "tcp"
	}
	if config.Compression == "" {
		config.Compression = CompressionNone
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = defaultInitialBackoff
	}
	if config.MaxBackoff < config.InitialBackoff {
		config.MaxBackoff = max(defaultMaxBackoff, config.InitialBackoff)
	}
	if config.Dial == nil {
		var dialer net.Dialer
		config.Dial = dialer.DialContext
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamTransport{
		config: config,
		logger: logger.With("network", config.Network, "address", config.Address),
	}
}

// Start launches the connection loop.
func (t *StreamTransport) Start(ctx context.Context, sink Sink) {
	ctx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	t.cancel = cancel
	t.done = make(chan struct{})
	done := t.done
	t.mu.Unlock()

	go func() {
		defer close(done)
		t.streamLoop(ctx, sink)
	}()
}

// Close stops reconnecting, drops the current connection, and waits
// for the loop to exit.
func (t *StreamTransport) Close() error {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Emit queues frame on the current connection.
func (t *StreamTransport) Emit(ctx context.Context, frame Frame) error {
	t.mu.Lock()
	conn := t.current
	t.mu.Unlock()
	if conn == nil {
		return ErrDisconnected
	}
	select {
	case conn.outbound <- frame:
		return nil
	case <-conn.closed:
		return ErrDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

// streamLoop maintains the connection, reconnecting with exponential
// backoff. The backoff resets after every connection that got as far
// as the hello frame.
func (t *StreamTransport) streamLoop(ctx context.Context, sink Sink) {
	backoff := t.config.InitialBackoff
	for {
		connected, err := t.runConnection(ctx, sink)
		if ctx.Err() != nil {
			return
		}
		if connected {
			sink.Disconnected(err)
			backoff = t.config.InitialBackoff
		}

		t.logger.Warn("channel connection lost, reconnecting",
			"error", err,
			"backoff", backoff,
		)

		select {
		case <-ctx.Done():
			return
		case <-t.config.Clock.After(backoff):
		}
		backoff = min(backoff*2, t.config.MaxBackoff)
	}
}

// runConnection dials, sends hello, and pumps frames until the
// connection fails. connected reports whether the sink was told about
// the connection.
func (t *StreamTransport) runConnection(ctx context.Context, sink Sink) (connected bool, err error) {
	conn, err := t.config.Dial(ctx, t.config.Network, t.config.Address)
	if err != nil {
		return false, fmt.Errorf("dialing %s %s: %w", t.config.Network, t.config.Address, err)
	}

	connCtx, cancelConn := context.WithCancel(ctx)
	defer cancelConn()
	// Closing the conn is the only way to unblock the decoder.
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()

	reader, writer, closeStreams, err := t.wrapStreams(conn)
	if err != nil {
		return false, err
	}
	defer closeStreams()

	encoder := codec.NewEncoder(writer)
	if err := t.writeFrame(encoder, writer, Frame{Type: FrameHello, Token: t.config.Token.Reveal()}); err != nil {
		return false, fmt.Errorf("sending hello: %w", err)
	}

	state := &streamConn{
		outbound: make(chan Frame, outboundQueueSize),
		closed:   make(chan struct{}),
	}
	t.mu.Lock()
	t.current = state
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		if t.current == state {
			t.current = nil
		}
		t.mu.Unlock()
		close(state.closed)
	}()

	t.logger.Info("channel connected", "compression", t.config.Compression)
	sink.Connected()

	writeErrors := make(chan error, 1)
	var writers sync.WaitGroup
	writers.Add(1)
	go func() {
		defer writers.Done()
		for {
			select {
			case <-connCtx.Done():
				return
			case frame := <-state.outbound:
				if err := t.writeFrame(encoder, writer, frame); err != nil {
					writeErrors <- fmt.Errorf("writing %s frame: %w", frame.Type, err)
					cancelConn()
					return
				}
			}
		}
	}()

	readErr := t.processFrames(codec.NewDecoder(reader), sink)
	cancelConn()
	writers.Wait()

	select {
	case err := <-writeErrors:
		return true, err
	default:
	}
	if netutil.IsExpectedCloseError(readErr) {
		return true, fmt.Errorf("connection closed: %w", readErr)
	}
	return true, readErr
}

// wrapStreams layers compression over conn when configured.
func (t *StreamTransport) wrapStreams(conn net.Conn) (io.Reader, io.Writer, func(), error) {
	if t.config.Compression != CompressionZstd {
		return conn, conn, func() {}, nil
	}
	encoder, err := zstd.NewWriter(conn, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating zstd writer: %w", err)
	}
	decoder, err := zstd.NewReader(conn, zstd.WithDecoderConcurrency(1))
	if err != nil {
		encoder.Close()
		return nil, nil, nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	return decoder, encoder, func() {
		decoder.Close()
		encoder.Close()
	}, nil
}

type flusher interface {
	Flush() error
}

// writeFrame encodes one frame and flushes it through any compression
// layer so the peer can decode it without waiting for more data.
func (t *StreamTransport) writeFrame(encoder *codec.Encoder, writer io.Writer, frame Frame) error {
	if err := encoder.Encode(frame); err != nil {
		return err
	}
	if f, ok := writer.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// processFrames reads frames until the connection fails. Heartbeats
// are consumed here. An error frame without a request id is fatal to
// the connection.
func (t *StreamTransport) processFrames(decoder *codec.Decoder, sink Sink) error {
	for {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return err
			}
			return fmt.Errorf("reading frame: %w", err)
		}
		switch {
		case frame.Type == FrameHeartbeat:
			// Liveness only.
		case frame.Type == FrameError && frame.RequestID == "":
			return fmt.Errorf("server error: %s", frame.Error)
		default:
			sink.Frame(frame)
		}
	}
}
