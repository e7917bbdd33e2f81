// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatsync assembles the chat engine: the channel adapter,
// the roster, and the open-conversation controller, all sharing one
// event loop and one identity.
//
// An Engine is mounted once per session. Mount resolves the local
// user, starts the channel transport, and loads both roster lists.
// Open switches the controller to a conversation from the roster.
// Unmount closes the controller, drops every channel subscription,
// and stops the transport.
//
// NewFromConfig builds an Engine from a [config.Config]: an HTTP
// client in package messaging serves history, roster and identity,
// and a [chatchannel.StreamTransport] carries the live channel.
package chatsync
