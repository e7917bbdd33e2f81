// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	c := Fake(epoch)
	if !c.Now().Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", c.Now(), epoch)
	}
	c.Advance(90 * time.Second)
	if want := epoch.Add(90 * time.Second); !c.Now().Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", c.Now(), want)
	}
}

func TestFakeClockAfter(t *testing.T) {
	c := Fake(epoch)
	channel := c.After(time.Second)

	c.Advance(999 * time.Millisecond)
	select {
	case <-channel:
		t.Fatal("After fired before its deadline")
	default:
	}

	c.Advance(time.Millisecond)
	select {
	case got := <-channel:
		if want := epoch.Add(time.Second); !got.Equal(want) {
			t.Errorf("After delivered %v, want %v", got, want)
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}
}

func TestFakeClockAfterNonPositive(t *testing.T) {
	c := Fake(epoch)
	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) should be ready immediately")
	}
}

func TestFakeClockAfterFuncOrder(t *testing.T) {
	c := Fake(epoch)
	var fired []string
	c.AfterFunc(3*time.Second, func() { fired = append(fired, "third") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "first") })
	c.AfterFunc(2*time.Second, func() { fired = append(fired, "second") })

	c.Advance(5 * time.Second)

	want := []string{"first", "second", "third"}
	if len(fired) != len(want) {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Fatalf("fired = %v, want %v", fired, want)
		}
	}
}

func TestFakeClockAfterFuncStop(t *testing.T) {
	c := Fake(epoch)
	called := false
	timer := c.AfterFunc(time.Second, func() { called = true })

	if !timer.Stop() {
		t.Error("Stop on armed timer returned false")
	}
	if timer.Stop() {
		t.Error("second Stop returned true")
	}
	c.Advance(2 * time.Second)
	if called {
		t.Error("stopped timer fired")
	}
	if c.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0", c.PendingCount())
	}
}

func TestFakeClockAfterFuncReset(t *testing.T) {
	c := Fake(epoch)
	calls := 0
	timer := c.AfterFunc(time.Second, func() { calls++ })

	c.Advance(500 * time.Millisecond)
	if !timer.Reset(time.Second) {
		t.Error("Reset on armed timer returned false")
	}
	c.Advance(600 * time.Millisecond)
	if calls != 0 {
		t.Fatalf("timer fired at original deadline after Reset")
	}
	c.Advance(400 * time.Millisecond)
	if calls != 1 {
		t.Fatalf("calls = %d after reset deadline, want 1", calls)
	}

	if timer.Reset(time.Second) {
		t.Error("Reset on fired timer returned true")
	}
	c.Advance(time.Second)
	if calls != 2 {
		t.Fatalf("calls = %d after re-arming a fired timer, want 2", calls)
	}
}

func TestFakeClockAfterFuncChained(t *testing.T) {
	c := Fake(epoch)
	var fired []time.Duration
	c.AfterFunc(time.Second, func() {
		fired = append(fired, time.Second)
		c.AfterFunc(time.Second, func() { fired = append(fired, 2*time.Second) })
	})

	c.Advance(3 * time.Second)
	if len(fired) != 2 {
		t.Fatalf("chained timers fired %d times, want 2", len(fired))
	}
}

func TestFakeClockWaitForTimers(t *testing.T) {
	c := Fake(epoch)
	done := make(chan struct{})
	go func() {
		c.WaitForTimers(1)
		close(done)
	}()

	c.AfterFunc(time.Second, func() {})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForTimers did not return after a timer was registered")
	}
	if c.PendingCount() != 1 {
		t.Errorf("PendingCount = %d, want 1", c.PendingCount())
	}
}

func TestRealClockAfterFunc(t *testing.T) {
	fired := make(chan struct{})
	Real().AfterFunc(time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("real AfterFunc did not fire")
	}
}
