// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package conversation owns the lifecycle of the one open
// conversation: join, initial load, send, edit, delete, membership
// changes, leave, and forced close on removal.
//
// A [Controller] moves through Closed, Joining, Active and Closing. It
// composes the message store, the pagination controller, the typing
// tracker and the composer, and talks to the server only through the
// channel adapter. Group and private conversations share one
// controller; the kind only gates membership operations.
//
// Sends are echo-based. Nothing is appended locally; the message
// appears when the server broadcasts it back. Edits and deletes work
// the same way, with a pending marker on the message until the
// broadcast or the ack arrives.
//
// Every handler set the controller registers belongs to exactly one
// open. Open and Close release the previous set before anything else,
// so repeated opens never stack listeners.
//
// All methods run on the event loop.
package conversation
