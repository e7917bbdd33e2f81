// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventloop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/chatsync/lib/testutil"
)

func TestManualRunsInPostOrder(t *testing.T) {
	m := NewManual()
	var order []int
	for i := range 3 {
		m.Post(func() { order = append(order, i) })
	}
	if m.Pending() != 3 {
		t.Fatalf("Pending = %d, want 3", m.Pending())
	}
	if n := m.Drain(); n != 3 {
		t.Fatalf("Drain ran %d functions, want 3", n)
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("order = %v, want [0 1 2]", order)
		}
	}
}

func TestManualGoContinuationQueuedBehindPosted(t *testing.T) {
	m := NewManual()
	var order []string
	m.Go(func() func() {
		order = append(order, "work")
		return func() { order = append(order, "continuation") }
	})
	m.Post(func() { order = append(order, "posted") })

	m.Drain()

	want := []string{"work", "posted", "continuation"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestManualStep(t *testing.T) {
	m := NewManual()
	ran := 0
	m.Post(func() { ran++ })
	m.Post(func() { ran++ })

	if !m.Step() || ran != 1 {
		t.Fatalf("first Step: ran = %d", ran)
	}
	if !m.Step() || ran != 2 {
		t.Fatalf("second Step: ran = %d", ran)
	}
	if m.Step() {
		t.Fatal("Step on empty queue returned true")
	}
}

func TestLoopSerializesPostsFromManyGoroutines(t *testing.T) {
	loop := NewLoop(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	const total = 200
	counter := 0 // touched only on the loop
	finished := make(chan struct{})
	for range total {
		go loop.Post(func() {
			counter++
			if counter == total {
				close(finished)
			}
		})
	}
	testutil.RequireClosed(t, finished, 5*time.Second, "waiting for posted functions")

	cancel()
	testutil.RequireReceive(t, done, 5*time.Second, "waiting for Run to return")
}

func TestLoopGoPostsContinuation(t *testing.T) {
	loop := NewLoop(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	result := make(chan string, 1)
	loop.Go(func() func() {
		value := "fetched"
		return func() { result <- value }
	})
	if got := testutil.RequireReceive(t, result, 5*time.Second, "waiting for continuation"); got != "fetched" {
		t.Errorf("continuation delivered %q", got)
	}
}

func TestLoopRecoversFromPanics(t *testing.T) {
	loop := NewLoop(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	var after atomic.Bool
	reached := make(chan struct{})
	loop.Post(func() { panic("handler bug") })
	loop.Post(func() {
		after.Store(true)
		close(reached)
	})
	testutil.RequireClosed(t, reached, 5*time.Second, "loop stopped after panic")
	if !after.Load() {
		t.Fatal("function after panic did not run")
	}
}

func TestLoopDropsPostsAfterStop(t *testing.T) {
	loop := NewLoop(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	cancel()
	testutil.RequireReceive(t, done, 5*time.Second, "waiting for Run to return")

	loop.Post(func() { t.Error("function ran after loop stopped") })
}
