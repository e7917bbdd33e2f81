// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package roster keeps the user's conversation lists: groups and
// private chats, each ordered most recent first.
//
// The [Manager] owns every [chat.Conversation] the client knows about,
// including the member lists. It loads each list from the server,
// keeps previews current from live messages for every conversation
// (open or not) through a global channel subscription, applies
// membership events, and creates private chats without duplicates.
//
// Manager methods run on the event loop. Fetches run off the loop
// through the scheduler and apply their results back on it.
package roster
