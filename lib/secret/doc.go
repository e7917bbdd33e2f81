// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds the API bearer token outside the Go heap.
//
// A [Token] lives in an anonymous mmap region excluded from core dumps
// and, when the memlock limit allows, locked against swap. Close zeros
// and unmaps it. The garbage collector never sees the region, so no
// stray copy of the token survives a compaction.
//
// Token implements fmt.Stringer and slog.LogValuer with a redacted
// form, so passing one to a logger or a format verb never prints the
// value. [Token.Reveal] returns the value for the one place that needs
// it: the Authorization header or the channel hello frame.
package secret
