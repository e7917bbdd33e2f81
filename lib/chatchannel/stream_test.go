// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatchannel

import (
	"context"
	"errors"
	"io"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/bureau-foundation/chatsync/lib/clock"
	"github.com/bureau-foundation/chatsync/lib/codec"
	"github.com/bureau-foundation/chatsync/lib/schema/chat"
	"github.com/bureau-foundation/chatsync/lib/secret"
	"github.com/bureau-foundation/chatsync/lib/testutil"
)

const streamTimeout = 5 * time.Second

type recordingSink struct {
	connected    chan struct{}
	disconnected chan error
	frames       chan Frame
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		connected:    make(chan struct{}, 8),
		disconnected: make(chan error, 8),
		frames:       make(chan Frame, 64),
	}
}

func (s *recordingSink) Connected()             { s.connected <- struct{}{} }
func (s *recordingSink) Disconnected(err error) { s.disconnected <- err }
func (s *recordingSink) Frame(frame Frame)      { s.frames <- frame }

// serverConn is the test server's side of one connection.
type serverConn struct {
	conn    net.Conn
	encoder *codec.Encoder
	decoder *codec.Decoder
	flush   func() error
}

func acceptConn(t *testing.T, listener net.Listener, compression string) *serverConn {
	t.Helper()
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()
	conn := testutil.RequireReceive(t, accepted, streamTimeout, "waiting for client to dial")
	t.Cleanup(func() { conn.Close() })

	server := &serverConn{conn: conn, flush: func() error { return nil }}
	var reader io.Reader = conn
	var writer io.Writer = conn
	if compression == CompressionZstd {
		zw, err := zstd.NewWriter(conn)
		if err != nil {
			t.Fatalf("zstd.NewWriter: %v", err)
		}
		zr, err := zstd.NewReader(conn, zstd.WithDecoderConcurrency(1))
		if err != nil {
			t.Fatalf("zstd.NewReader: %v", err)
		}
		t.Cleanup(zr.Close)
		reader, writer, server.flush = zr, zw, zw.Flush
	}
	server.encoder = codec.NewEncoder(writer)
	server.decoder = codec.NewDecoder(reader)
	return server
}

func (s *serverConn) send(t *testing.T, frame Frame) {
	t.Helper()
	if err := s.encoder.Encode(frame); err != nil {
		t.Fatalf("server encode: %v", err)
	}
	if err := s.flush(); err != nil {
		t.Fatalf("server flush: %v", err)
	}
}

func (s *serverConn) receive(t *testing.T) Frame {
	t.Helper()
	s.conn.SetReadDeadline(time.Now().Add(streamTimeout))
	var frame Frame
	if err := s.decoder.Decode(&frame); err != nil {
		t.Fatalf("server decode: %v", err)
	}
	return frame
}

func listenUnix(t *testing.T) (net.Listener, string) {
	t.Helper()
	path := filepath.Join(testutil.SocketDir(t), "channel.sock")
	listener, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })
	return listener, path
}

func TestStreamTransportExchangesFrames(t *testing.T) {
	for _, compression := range []string{CompressionNone, CompressionZstd} {
		t.Run(compression, func(t *testing.T) {
			listener, path := listenUnix(t)
			token, err := secret.NewTokenFromString("secret")
			if err != nil {
				t.Fatalf("NewTokenFromString: %v", err)
			}
			t.Cleanup(func() { token.Close() })
			transport := NewStreamTransport(StreamConfig{
				Network:     "unix",
				Address:     path,
				Token:       token,
				Compression: compression,
			})
			sink := newRecordingSink()
			transport.Start(context.Background(), sink)
			t.Cleanup(func() { transport.Close() })

			server := acceptConn(t, listener, compression)
			hello := server.receive(t)
			if hello.Type != FrameHello || hello.Token != "secret" {
				t.Fatalf("first frame = %+v, want hello with token", hello)
			}
			testutil.RequireReceive(t, sink.connected, streamTimeout, "waiting for Connected")

			if err := transport.Emit(context.Background(), Frame{Type: FrameJoin, ConversationID: groupA, RequestID: "r1"}); err != nil {
				t.Fatalf("Emit: %v", err)
			}
			join := server.receive(t)
			if join.Type != FrameJoin || join.ConversationID != groupA || join.RequestID != "r1" {
				t.Errorf("server received %+v", join)
			}

			message := historyMessage("m1")
			server.send(t, Frame{Type: FrameHeartbeat})
			server.send(t, Frame{Type: FrameInitialHistory, ConversationID: groupA, Messages: []chat.Message{message}})
			frame := testutil.RequireReceive(t, sink.frames, streamTimeout, "waiting for history frame")
			if frame.Type != FrameInitialHistory {
				t.Fatalf("sink got %q, heartbeat should have been consumed", frame.Type)
			}
			if len(frame.Messages) != 1 || frame.Messages[0].ID != message.ID || !frame.Messages[0].CreatedAt.Equal(message.CreatedAt) {
				t.Errorf("history messages = %+v", frame.Messages)
			}
		})
	}
}

func TestStreamTransportReconnects(t *testing.T) {
	listener, path := listenUnix(t)
	fakeClock := clock.Fake(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	transport := NewStreamTransport(StreamConfig{
		Network:        "unix",
		Address:        path,
		InitialBackoff: time.Second,
		MaxBackoff:     4 * time.Second,
		Clock:          fakeClock,
	})
	sink := newRecordingSink()
	transport.Start(context.Background(), sink)
	t.Cleanup(func() { transport.Close() })

	first := acceptConn(t, listener, CompressionNone)
	first.receive(t)
	testutil.RequireReceive(t, sink.connected, streamTimeout, "waiting for first Connected")

	first.conn.Close()
	if err := testutil.RequireReceive(t, sink.disconnected, streamTimeout, "waiting for Disconnected"); err == nil {
		t.Error("Disconnected carried nil error")
	}

	fakeClock.WaitForTimers(1)
	fakeClock.Advance(time.Second)

	second := acceptConn(t, listener, CompressionNone)
	if hello := second.receive(t); hello.Type != FrameHello {
		t.Fatalf("reconnect first frame = %+v", hello)
	}
	testutil.RequireReceive(t, sink.connected, streamTimeout, "waiting for second Connected")
}

func TestStreamTransportServerErrorDropsConnection(t *testing.T) {
	listener, path := listenUnix(t)
	transport := NewStreamTransport(StreamConfig{Network: "unix", Address: path, InitialBackoff: time.Hour})
	sink := newRecordingSink()
	transport.Start(context.Background(), sink)
	t.Cleanup(func() { transport.Close() })

	server := acceptConn(t, listener, CompressionNone)
	server.receive(t)
	testutil.RequireReceive(t, sink.connected, streamTimeout, "waiting for Connected")

	server.send(t, Frame{Type: FrameError, Error: "token expired"})
	err := testutil.RequireReceive(t, sink.disconnected, streamTimeout, "waiting for Disconnected")
	if err == nil || !strings.Contains(err.Error(), "token expired") {
		t.Errorf("Disconnected(%v), want server error", err)
	}
	if err := transport.Emit(context.Background(), Frame{Type: FrameJoin}); !errors.Is(err, ErrDisconnected) {
		t.Errorf("Emit after drop: %v, want ErrDisconnected", err)
	}
}

func TestStreamTransportEmitBeforeConnect(t *testing.T) {
	transport := NewStreamTransport(StreamConfig{Network: "unix", Address: "/nonexistent"})
	if err := transport.Emit(context.Background(), Frame{Type: FrameJoin}); !errors.Is(err, ErrDisconnected) {
		t.Errorf("Emit: %v, want ErrDisconnected", err)
	}
	if err := transport.Close(); err != nil {
		t.Errorf("Close on unstarted transport: %v", err)
	}
}
