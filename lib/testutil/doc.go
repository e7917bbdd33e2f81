// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for chatsync packages.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// safety valve so individual tests never call time.After directly.
// They are the only place in the test suite where wall-clock timeouts
// appear; everything else runs on lib/clock's FakeClock.
//
// [SocketDir] returns a short directory under /tmp for Unix socket
// tests, since sun_path is limited to 108 bytes and t.TempDir() can
// exceed it.
//
// All helpers call t.Fatalf on failure.
package testutil
