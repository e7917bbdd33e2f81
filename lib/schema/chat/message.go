// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/bureau-foundation/chatsync/lib/ref"
)

// Status is the lifecycle state of a message.
type Status string

const (
	StatusSent    Status = "sent"
	StatusEdited  Status = "edited"
	StatusDeleted Status = "deleted"
)

// IsKnown reports whether s is a status this client understands.
func (s Status) IsKnown() bool {
	switch s {
	case StatusSent, StatusEdited, StatusDeleted:
		return true
	}
	return false
}

// CanTransition reports whether a message in status s may move to
// status to. Deleted is terminal. A message may be edited any number
// of times, and anything not yet deleted may be deleted. Nothing
// returns to sent.
func (s Status) CanTransition(to Status) bool {
	switch {
	case s == StatusDeleted:
		return false
	case to == StatusEdited:
		return s == StatusSent || s == StatusEdited
	case to == StatusDeleted:
		return s == StatusSent || s == StatusEdited
	}
	return false
}

// SystemMessageType classifies a membership notice.
type SystemMessageType string

const (
	SystemJoined SystemMessageType = "joined"
	SystemLeft   SystemMessageType = "left"
)

// Message is one entry in a conversation's history.
type Message struct {
	ID             ref.MessageID      `json:"id"`
	ConversationID ref.ConversationID `json:"conversation_id"`

	// Sender is nil for system messages.
	Sender *Member `json:"sender,omitempty"`

	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Status    Status    `json:"status"`

	IsSystemMessage   bool              `json:"is_system_message,omitempty"`
	SystemMessageType SystemMessageType `json:"system_message_type,omitempty"`

	// SystemSubjectID is the user who joined or left.
	SystemSubjectID ref.UserID `json:"system_subject_id,omitempty"`
}

// Normalize fills defaults the server may omit: an empty status means
// sent, and a message without a sender is a system message.
func (m *Message) Normalize() {
	if m.Status == "" {
		m.Status = StatusSent
	}
	if m.Sender == nil {
		m.IsSystemMessage = true
	}
}

// Validate checks the fields every stored message must have.
func (m *Message) Validate() error {
	var errs []error
	if m.ID.IsZero() {
		errs = append(errs, errors.New("message: id is required"))
	}
	if m.ConversationID.IsZero() {
		errs = append(errs, fmt.Errorf("message %s: conversation_id is required", m.ID))
	}
	if m.CreatedAt.IsZero() {
		errs = append(errs, fmt.Errorf("message %s: created_at is required", m.ID))
	}
	if !m.Status.IsKnown() {
		errs = append(errs, fmt.Errorf("message %s: unknown status %q", m.ID, m.Status))
	}
	return errors.Join(errs...)
}

// IsFrom reports whether user sent the message.
func (m *Message) IsFrom(user ref.UserID) bool {
	return m.Sender != nil && m.Sender.ID == user
}

// IsDeleted reports whether the message has been deleted.
func (m *Message) IsDeleted() bool {
	return m.Status == StatusDeleted
}

// Preview returns the roster preview for this message.
func (m *Message) Preview() Preview {
	preview := Preview{MessageID: m.ID, Content: m.Content, At: m.CreatedAt}
	if m.Sender != nil {
		preview.SenderID = m.Sender.ID
		preview.SenderName = m.Sender.DisplayName()
	}
	if m.IsDeleted() {
		preview.Content = "message deleted"
	}
	return preview
}
