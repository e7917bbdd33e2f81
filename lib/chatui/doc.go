// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatui is the terminal front end for a mounted
// [chatsync.Engine], built on bubbletea (Elm architecture).
//
// The layout has three regions: the roster pane on the left (groups
// and private chats in two tabs, with previews and a fuzzy filter),
// the message pane on the right (date bucket headers, a typing line,
// and a composer), and a one-line status bar at the bottom showing
// connection state, controller notices, and forwarded log records.
//
// The bubbletea program is the event loop. [Scheduler] implements
// [eventloop.Scheduler] by queueing functions and waking the model,
// which runs them inside Update so engine state is only touched on
// the program's goroutine. The message pane implements
// [pagination.ScrollContainer] over a bubbles viewport: scrolling to
// the top loads the previous page and the pane restores the reading
// position once the merged page is rendered.
//
// Background logging goes through [LogHandler], which delivers
// records to the status bar instead of writing to stderr underneath
// the alt screen.
package chatui
