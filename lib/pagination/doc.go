// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pagination loads older history for the open conversation
// and keeps the user's place on screen while it does.
//
// When a page of older messages is merged, content grows above the
// viewport. The [Controller] records the scroll offset and content
// height before the fetch and, once the view has reflowed with the new
// content, sets
//
//	scrollTop = scrollTopBefore + (scrollHeightAfter - scrollHeightBefore)
//
// so the message the user was looking at stays where it was.
//
// Loads are triggered when the view scrolls to the top edge, once per
// arrival at the edge. Every [Controller.Reset] starts a new
// generation: the in-flight fetch is cancelled, and a response that
// still arrives for an older generation is discarded.
package pagination
