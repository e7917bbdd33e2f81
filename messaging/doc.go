// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging is the HTTP client for the chat server's
// request/response API: message history, conversation rosters, private
// chat creation and the identity of the authenticated user.
//
// [Client] carries the base URL, HTTP transport and bearer token. Its
// methods map one-to-one onto endpoints under /api/v1 and return the
// shared types from lib/schema/chat. Client satisfies the History
// interface of lib/pagination and the collaborator interface of
// lib/roster, so it plugs into both without adapters.
//
// All API errors are returned as [*APIError] carrying the server's
// error code and the HTTP status. [IsAPIError] tests for a specific
// code. Response bodies are read through lib/netutil, which bounds
// their size.
//
// History is returned oldest first regardless of the order the server
// used, since the date bucketer and the pagination anchor both depend
// on ascending order.
package messaging
