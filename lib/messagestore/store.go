// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messagestore holds the bucketed messages of the one open
// conversation and applies authoritative updates to them.
//
// The store is not safe for concurrent use. It is owned by the
// conversation controller and touched only from the event loop.
package messagestore

import (
	"log/slog"
	"time"

	"github.com/bureau-foundation/chatsync/lib/datebucket"
	"github.com/bureau-foundation/chatsync/lib/ref"
	"github.com/bureau-foundation/chatsync/lib/schema/chat"
)

// Ack is the server's answer to a mutate intent.
type Ack struct {
	OK    bool
	Error string
}

// Store is the message state of one open conversation.
type Store struct {
	logger   *slog.Logger
	bucketer datebucket.Bucketer

	conversation ref.ConversationID
	buckets      datebucket.Buckets

	scrollToBottom bool
	userScrolledUp bool

	// pendingEdits maps a mutate request id to the message it targets.
	pendingEdits map[string]ref.MessageID
}

// New creates an empty store. A nil logger uses slog.Default().
func New(bucketer datebucket.Bucketer, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger:       logger,
		bucketer:     bucketer,
		pendingEdits: make(map[string]ref.MessageID),
	}
}

// Reset discards all state and binds the store to conversation.
func (s *Store) Reset(conversation ref.ConversationID) {
	s.conversation = conversation
	s.buckets = nil
	s.scrollToBottom = false
	s.userScrolledUp = false
	clear(s.pendingEdits)
}

// Conversation returns the conversation the store is bound to.
func (s *Store) Conversation() ref.ConversationID { return s.conversation }

// LoadInitial replaces the contents with page and requests a scroll to
// the newest message.
func (s *Store) LoadInitial(page []chat.Message) {
	s.buckets = s.bucketer.Group(page)
	s.scrollToBottom = true
	s.userScrolledUp = false
}

// ReceiveLive appends a live message. Messages for other conversations
// are ignored and reported as not added. The view is asked to follow
// the new message unless the user has scrolled up.
func (s *Store) ReceiveLive(message chat.Message) bool {
	if message.ConversationID != s.conversation {
		return false
	}
	before := s.buckets.Len()
	s.buckets = s.bucketer.AppendLive(s.buckets, message)
	if s.buckets.Len() == before {
		return false
	}
	if !s.userScrolledUp {
		s.scrollToBottom = true
	}
	return true
}

// ApplyStatusChange rewrites the status and content of a loaded
// message. A nil content leaves the text alone, except that deletion
// clears it. Unknown ids and transitions out of deleted are logged and
// ignored. Reports whether the message changed.
func (s *Store) ApplyStatusChange(id ref.MessageID, status chat.Status, content *string) bool {
	message, ok := s.buckets.Find(id)
	if !ok {
		s.logger.Debug("status change for message not loaded",
			"conversation_id", s.conversation,
			"message_id", id,
			"status", status,
		)
		return false
	}
	if !message.Status.CanTransition(status) {
		s.logger.Warn("ignoring status regression",
			"conversation_id", s.conversation,
			"message_id", id,
			"from", message.Status,
			"to", status,
		)
		return false
	}

	message.Status = status
	switch {
	case content != nil:
		message.Content = *content
	case status == chat.StatusDeleted:
		message.Content = ""
	}
	s.clearPendingFor(id)
	return true
}

// MarkPendingEdit records that a mutate intent with requestID is in
// flight for messageID.
func (s *Store) MarkPendingEdit(requestID string, messageID ref.MessageID) {
	s.pendingEdits[requestID] = messageID
}

// HasPendingEdit reports whether any mutate intent for messageID is
// awaiting acknowledgement.
func (s *Store) HasPendingEdit(messageID ref.MessageID) bool {
	for _, pending := range s.pendingEdits {
		if pending == messageID {
			return true
		}
	}
	return false
}

// ReconcileOptimisticEdit clears the pending marker for requestID.
// There is nothing to roll back: the store only ever holds
// server-confirmed content. A rejected mutation is logged. Returns the
// targeted message id and whether the request was pending.
func (s *Store) ReconcileOptimisticEdit(requestID string, ack Ack) (ref.MessageID, bool) {
	messageID, ok := s.pendingEdits[requestID]
	if !ok {
		return ref.MessageID{}, false
	}
	delete(s.pendingEdits, requestID)
	if !ack.OK {
		s.logger.Warn("message mutation rejected",
			"conversation_id", s.conversation,
			"message_id", messageID,
			"request_id", requestID,
			"error", ack.Error,
		)
	}
	return messageID, true
}

// ClearPendingEdits drops every pending marker without rollback. Used
// when the channel reconnects and outstanding acks can no longer
// arrive. Returns the number of markers dropped.
func (s *Store) ClearPendingEdits() int {
	count := len(s.pendingEdits)
	clear(s.pendingEdits)
	return count
}

func (s *Store) clearPendingFor(messageID ref.MessageID) {
	for requestID, pending := range s.pendingEdits {
		if pending == messageID {
			delete(s.pendingEdits, requestID)
		}
	}
}

// MergeOlderPage merges a page of older history. Returns the number of
// messages that were not already loaded.
func (s *Store) MergeOlderPage(page []chat.Message) int {
	before := s.buckets.Len()
	s.buckets = s.bucketer.MergeOlderPage(s.buckets, page)
	return s.buckets.Len() - before
}

// Oldest returns the creation time of the earliest loaded message.
func (s *Store) Oldest() (time.Time, bool) {
	message, ok := s.buckets.Oldest()
	if !ok {
		return time.Time{}, false
	}
	return message.CreatedAt, true
}

// Len returns the number of loaded messages.
func (s *Store) Len() int { return s.buckets.Len() }

// IsEmpty reports whether no messages are loaded.
func (s *Store) IsEmpty() bool { return s.buckets.Len() == 0 }

// Buckets returns the loaded messages grouped by day. The result is
// valid until the next mutating call.
func (s *Store) Buckets() datebucket.Buckets { return s.buckets }

// Find returns a copy of the message with the given id.
func (s *Store) Find(id ref.MessageID) (chat.Message, bool) {
	message, ok := s.buckets.Find(id)
	if !ok {
		return chat.Message{}, false
	}
	return *message, true
}

// Relabel refreshes bucket labels relative to now.
func (s *Store) Relabel(now time.Time) {
	location := s.bucketer.Location
	if location == nil {
		location = time.Local
	}
	s.buckets.Relabel(now, location)
}

// SetUserScrolledUp records whether the user has scrolled away from
// the newest message. While true, live messages do not request a
// scroll to bottom.
func (s *Store) SetUserScrolledUp(scrolledUp bool) {
	s.userScrolledUp = scrolledUp
}

// TakeScrollToBottom reports and clears a pending scroll-to-bottom
// request.
func (s *Store) TakeScrollToBottom() bool {
	pending := s.scrollToBottom
	s.scrollToBottom = false
	return pending
}
