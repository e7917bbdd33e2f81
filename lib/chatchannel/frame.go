// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatchannel

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bureau-foundation/chatsync/lib/ref"
	"github.com/bureau-foundation/chatsync/lib/schema/chat"
)

// Outbound frame types.
const (
	FrameHello        = "hello"
	FrameJoin         = "join"
	FrameLeave        = "leave"
	FrameSend         = "send"
	FrameMutate       = "mutate"
	FrameTypingStart  = "typing_start"
	FrameTypingStop   = "typing_stop"
	FrameAddMembers   = "add_members"
	FrameRemoveMember = "remove_member"
)

// Inbound frame types.
const (
	FrameInitialHistory = "initial_history"
	FrameMessageCreated = "message_created"
	FrameStatusChanged  = "status_changed"
	FrameMutationAck    = "mutation_ack"
	FrameMemberAdded    = "member_added"
	FrameMemberRemoved  = "member_removed"
	FramePeerTyping     = "typing_started"
	FramePeerStopped    = "typing_stopped"
	FrameError          = "error"
	FrameHeartbeat      = "heartbeat"
)

// Frame is the single wire envelope for both directions. Which fields
// are set depends on Type.
type Frame struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`

	// Token authenticates the hello frame.
	Token string `json:"token,omitempty"`

	ConversationID ref.ConversationID `json:"conversation_id,omitempty"`

	Message  *chat.Message  `json:"message,omitempty"`
	Messages []chat.Message `json:"messages,omitempty"`

	// HasMore is a pointer so an omitted field can be told apart from
	// false; see DecodeEvent.
	HasMore *bool `json:"has_more,omitempty"`

	MessageID ref.MessageID `json:"message_id,omitempty"`
	Status    chat.Status   `json:"status,omitempty"`
	Content   *string       `json:"content,omitempty"`

	Member    *chat.Member `json:"member,omitempty"`
	MemberID  ref.UserID   `json:"member_id,omitempty"`
	MemberIDs []ref.UserID `json:"member_ids,omitempty"`

	OK    *bool  `json:"ok,omitempty"`
	Error string `json:"error,omitempty"`
}

// ErrUnknownFrame is returned by DecodeEvent for frame types this
// client does not understand. Newer servers may send them; callers
// ignore them.
var ErrUnknownFrame = errors.New("chatchannel: unknown frame type")

// DecodeEvent converts an inbound frame into its typed event.
//
// Initial history is returned in ascending createdAt order whatever
// order the server sent it in; invalid messages are left out and
// counted in Dropped.
//
// An initial_history frame without has_more is treated as having more
// history exactly when it carries at least one message, so an older
// server that never sends the flag still gets a working pagination
// cursor.
func DecodeEvent(frame Frame) (Event, error) {
	requireConversation := func() error {
		if frame.ConversationID.IsZero() {
			return fmt.Errorf("chatchannel: %s frame without conversation_id", frame.Type)
		}
		return nil
	}

	switch frame.Type {
	case FrameInitialHistory:
		if err := requireConversation(); err != nil {
			return nil, err
		}
		messages := make([]chat.Message, 0, len(frame.Messages))
		dropped := 0
		for _, message := range frame.Messages {
			message.Normalize()
			if message.ConversationID.IsZero() {
				message.ConversationID = frame.ConversationID
			}
			if message.Validate() != nil {
				dropped++
				continue
			}
			messages = append(messages, message)
		}
		slices.SortStableFunc(messages, func(a, b chat.Message) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
		hasMore := len(frame.Messages) > 0
		if frame.HasMore != nil {
			hasMore = *frame.HasMore
		}
		return InitialHistory{
			Conversation: frame.ConversationID,
			Messages:     messages,
			HasMore:      hasMore,
			Dropped:      dropped,
		}, nil

	case FrameMessageCreated:
		if frame.Message == nil {
			return nil, fmt.Errorf("chatchannel: %s frame without message", frame.Type)
		}
		message := *frame.Message
		message.Normalize()
		if message.ConversationID.IsZero() {
			message.ConversationID = frame.ConversationID
		}
		if err := message.Validate(); err != nil {
			return nil, fmt.Errorf("chatchannel: %s frame: %w", frame.Type, err)
		}
		return LiveMessage{Message: message}, nil

	case FrameStatusChanged:
		if err := requireConversation(); err != nil {
			return nil, err
		}
		if frame.MessageID.IsZero() || !frame.Status.IsKnown() {
			return nil, fmt.Errorf("chatchannel: %s frame needs message_id and a known status, got %q", frame.Type, frame.Status)
		}
		return StatusChanged{
			Conversation: frame.ConversationID,
			MessageID:    frame.MessageID,
			Status:       frame.Status,
			Content:      frame.Content,
		}, nil

	case FrameMutationAck:
		ok := frame.Error == ""
		if frame.OK != nil {
			ok = *frame.OK
		}
		return MutationAck{
			Conversation: frame.ConversationID,
			RequestID:    frame.RequestID,
			MessageID:    frame.MessageID,
			OK:           ok,
			Error:        frame.Error,
		}, nil

	case FrameMemberAdded:
		if err := requireConversation(); err != nil {
			return nil, err
		}
		if frame.Member == nil || frame.Member.ID.IsZero() {
			return nil, fmt.Errorf("chatchannel: %s frame without member", frame.Type)
		}
		return MemberAdded{Conversation: frame.ConversationID, Member: *frame.Member}, nil

	case FrameMemberRemoved:
		if err := requireConversation(); err != nil {
			return nil, err
		}
		memberID := frame.MemberID
		if memberID.IsZero() && frame.Member != nil {
			memberID = frame.Member.ID
		}
		if memberID.IsZero() {
			return nil, fmt.Errorf("chatchannel: %s frame without member_id", frame.Type)
		}
		return MemberRemoved{Conversation: frame.ConversationID, MemberID: memberID}, nil

	case FramePeerTyping:
		if err := requireConversation(); err != nil {
			return nil, err
		}
		if frame.Member == nil || frame.Member.ID.IsZero() {
			return nil, fmt.Errorf("chatchannel: %s frame without member", frame.Type)
		}
		return PeerTyping{Conversation: frame.ConversationID, Member: *frame.Member}, nil

	case FramePeerStopped:
		if err := requireConversation(); err != nil {
			return nil, err
		}
		memberID := frame.MemberID
		if memberID.IsZero() && frame.Member != nil {
			memberID = frame.Member.ID
		}
		if memberID.IsZero() {
			return nil, fmt.Errorf("chatchannel: %s frame without member_id", frame.Type)
		}
		return PeerStoppedTyping{Conversation: frame.ConversationID, MemberID: memberID}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, frame.Type)
}
