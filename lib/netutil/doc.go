// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil holds small I/O helpers shared by the HTTP client in
// messaging and the realtime channel transport.
package netutil
