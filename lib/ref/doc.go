// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides strongly typed, immutable identifiers for chat
// entities: conversations, users, and messages.
//
// All three identifiers are server-assigned and opaque to the client.
// The client never derives meaning from their contents; validation only
// rejects values that cannot have come from the server (empty strings,
// whitespace, control characters, oversized values). Parsing happens at
// the boundary where identifiers enter the process: the channel
// decoder, the HTTP collaborator client, and configuration.
//
// Each type is a comparable value usable as a map key. The zero value
// is not a valid identifier; use IsZero to check. JSON and CBOR
// serialization go through encoding.TextMarshaler so identifiers travel
// as plain strings on the wire.
package ref
