// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"log/slog"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestSchedulerPostWakes(t *testing.T) {
	scheduler := NewScheduler(slog.Default())
	defer scheduler.Close()

	var order []string
	scheduler.Post(func() {
		order = append(order, "first")
		scheduler.Post(func() { order = append(order, "nested") })
	})
	scheduler.Post(func() { order = append(order, "second") })

	if message := scheduler.Wait()(); message != (wakeMsg{}) {
		t.Fatalf("Wait() = %#v, want wakeMsg", message)
	}
	if count := scheduler.Drain(); count != 3 {
		t.Errorf("Drain() = %d, want 3", count)
	}
	want := []string{"first", "second", "nested"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for index := range want {
		if order[index] != want[index] {
			t.Errorf("order = %v, want %v", order, want)
			break
		}
	}
}

func TestSchedulerGoPostsContinuation(t *testing.T) {
	scheduler := NewScheduler(slog.Default())
	defer scheduler.Close()

	result := make(chan string, 1)
	scheduler.Go(func() func() {
		value := "fetched"
		return func() { result <- value }
	})

	scheduler.Wait()()
	scheduler.Drain()
	select {
	case got := <-result:
		if got != "fetched" {
			t.Errorf("continuation saw %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("continuation did not run")
	}
}

func TestSchedulerRecoversPanics(t *testing.T) {
	scheduler := NewScheduler(slog.New(slog.DiscardHandler))
	defer scheduler.Close()

	ran := false
	scheduler.Post(func() { panic("boom") })
	scheduler.Post(func() { ran = true })
	scheduler.Drain()
	if !ran {
		t.Error("function after a panic did not run")
	}
}

func TestSchedulerCloseReleasesWait(t *testing.T) {
	scheduler := NewScheduler(slog.Default())

	result := make(chan tea.Msg, 1)
	go func() { result <- scheduler.Wait()() }()
	scheduler.Close()
	scheduler.Close()

	select {
	case message := <-result:
		if message != nil {
			t.Errorf("Wait() after Close = %#v, want nil", message)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after Close")
	}
}
