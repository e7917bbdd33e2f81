// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chat defines the conversation data model shared by the
// history API, the realtime channel, and the client-side stores.
//
// Types carry `json` tags only. The HTTP API reads and writes them as
// JSON, and lib/codec encodes the same tags as CBOR on the realtime
// channel.
//
// A [Conversation] is owned by the roster for the lifetime of the
// session. [Message] values exist only while their conversation is
// open; a closed conversation keeps nothing but its [Preview].
//
// Message status is monotonic: see [Status.CanTransition].
package chat
