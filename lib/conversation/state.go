// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package conversation

import (
	"errors"

	"github.com/bureau-foundation/chatsync/lib/ref"
)

// State is the controller's lifecycle state.
type State int

const (
	StateClosed State = iota
	StateJoining
	StateActive
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	}
	return "unknown"
}

var (
	// ErrNotActive is returned by operations that need an Active
	// conversation.
	ErrNotActive = errors.New("conversation: not active")

	// ErrEmptyMessage is returned when the content is blank after
	// trimming.
	ErrEmptyMessage = errors.New("conversation: message is empty")

	// ErrNotGroup is returned by membership operations on a private
	// conversation.
	ErrNotGroup = errors.New("conversation: not a group conversation")

	// ErrUnknownMessage is returned when an edit or delete names a
	// message that is not loaded.
	ErrUnknownMessage = errors.New("conversation: message not loaded")
)

// NoticeKind classifies a Notice.
type NoticeKind int

const (
	// NoticeRemoved: another member removed the local user.
	NoticeRemoved NoticeKind = iota
	// NoticeLeft: the local user left.
	NoticeLeft
	// NoticeError: an operation failed in a way the user should see.
	NoticeError
)

// Notice is a user-visible message about the conversation lifecycle.
type Notice struct {
	Kind         NoticeKind
	Conversation ref.ConversationID
	Text         string
}
