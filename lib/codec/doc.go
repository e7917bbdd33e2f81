// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration shared by the realtime
// channel transport.
//
// The HTTP history and roster endpoints speak JSON. The realtime
// channel speaks a stream of CBOR frames over a long-lived socket.
// Wire types carry `json` tags only: fxamacker/cbor reads them as a
// fallback, so one tag set controls naming for both encodings and a
// frame can be logged or replayed as JSON without a second schema.
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Identifiers from lib/ref implement encoding.TextMarshaler and
// travel as CBOR text strings.
package codec
