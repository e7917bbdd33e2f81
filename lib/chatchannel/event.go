// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatchannel

import (
	"github.com/bureau-foundation/chatsync/lib/ref"
	"github.com/bureau-foundation/chatsync/lib/schema/chat"
)

// Event is an inbound channel event. The concrete types below are the
// only implementations.
type Event interface {
	// ConversationID is the conversation the event belongs to. It is
	// zero for connection lifecycle events and for acks the server sent
	// without one.
	ConversationID() ref.ConversationID
}

// InitialHistory answers a join with the newest page of history.
type InitialHistory struct {
	Conversation ref.ConversationID
	Messages     []chat.Message
	HasMore      bool

	// Dropped counts messages that failed validation.
	Dropped int
}

// LiveMessage is a newly created message, including the echo of the
// local user's own sends.
type LiveMessage struct {
	Message chat.Message
}

// StatusChanged is the authoritative edit or delete of a message,
// broadcast to every participant including the author.
type StatusChanged struct {
	Conversation ref.ConversationID
	MessageID    ref.MessageID
	Status       chat.Status

	// Content is the new text. Nil leaves the text alone.
	Content *string
}

// MutationAck answers a mutate intent.
type MutationAck struct {
	Conversation ref.ConversationID
	RequestID    string
	MessageID    ref.MessageID
	OK           bool
	Error        string
}

// MemberAdded reports a new member of a conversation.
type MemberAdded struct {
	Conversation ref.ConversationID
	Member       chat.Member
}

// MemberRemoved reports a member leaving or being removed.
type MemberRemoved struct {
	Conversation ref.ConversationID
	MemberID     ref.UserID
}

// PeerTyping reports a member starting to type.
type PeerTyping struct {
	Conversation ref.ConversationID
	Member       chat.Member
}

// PeerStoppedTyping reports a member stopping typing.
type PeerStoppedTyping struct {
	Conversation ref.ConversationID
	MemberID     ref.UserID
}

// Connected reports that the transport (re)established a connection.
type Connected struct{}

// Disconnected reports that the transport lost its connection. The
// transport is already trying to reconnect.
type Disconnected struct {
	Err error
}

func (e InitialHistory) ConversationID() ref.ConversationID    { return e.Conversation }
func (e LiveMessage) ConversationID() ref.ConversationID       { return e.Message.ConversationID }
func (e StatusChanged) ConversationID() ref.ConversationID     { return e.Conversation }
func (e MutationAck) ConversationID() ref.ConversationID       { return e.Conversation }
func (e MemberAdded) ConversationID() ref.ConversationID       { return e.Conversation }
func (e MemberRemoved) ConversationID() ref.ConversationID     { return e.Conversation }
func (e PeerTyping) ConversationID() ref.ConversationID        { return e.Conversation }
func (e PeerStoppedTyping) ConversationID() ref.ConversationID { return e.Conversation }
func (Connected) ConversationID() ref.ConversationID           { return ref.ConversationID{} }
func (Disconnected) ConversationID() ref.ConversationID        { return ref.ConversationID{} }

// Handlers is one set of event callbacks. Nil fields are skipped.
type Handlers struct {
	InitialHistory    func(InitialHistory)
	LiveMessage       func(LiveMessage)
	StatusChanged     func(StatusChanged)
	MutationAck       func(MutationAck)
	MemberAdded       func(MemberAdded)
	MemberRemoved     func(MemberRemoved)
	PeerTyping        func(PeerTyping)
	PeerStoppedTyping func(PeerStoppedTyping)

	// Connected and Disconnected are delivered to every set, scoped or
	// global.
	Connected    func()
	Disconnected func(error)
}

func (h *Handlers) dispatch(event Event) {
	switch e := event.(type) {
	case InitialHistory:
		if h.InitialHistory != nil {
			h.InitialHistory(e)
		}
	case LiveMessage:
		if h.LiveMessage != nil {
			h.LiveMessage(e)
		}
	case StatusChanged:
		if h.StatusChanged != nil {
			h.StatusChanged(e)
		}
	case MutationAck:
		if h.MutationAck != nil {
			h.MutationAck(e)
		}
	case MemberAdded:
		if h.MemberAdded != nil {
			h.MemberAdded(e)
		}
	case MemberRemoved:
		if h.MemberRemoved != nil {
			h.MemberRemoved(e)
		}
	case PeerTyping:
		if h.PeerTyping != nil {
			h.PeerTyping(e)
		}
	case PeerStoppedTyping:
		if h.PeerStoppedTyping != nil {
			h.PeerStoppedTyping(e)
		}
	case Connected:
		if h.Connected != nil {
			h.Connected()
		}
	case Disconnected:
		if h.Disconnected != nil {
			h.Disconnected(e.Err)
		}
	}
}
