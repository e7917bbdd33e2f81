// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bureau-foundation/chatsync/lib/ref"
)

// Kind distinguishes group conversations from one-to-one chats.
type Kind string

const (
	// KindGroup is a named conversation with any number of members.
	// Members can be added and removed after creation.
	KindGroup Kind = "group"

	// KindPrivate is a conversation between exactly two users. It is
	// never removed from the roster client-side.
	KindPrivate Kind = "private"
)

// IsKnown reports whether k is a kind this client understands.
func (k Kind) IsKnown() bool {
	return k == KindGroup || k == KindPrivate
}

// Member is a participant in a conversation. Members change only
// through membership events, never through message traffic.
type Member struct {
	ID        ref.UserID `json:"id"`
	Name      string     `json:"name"`
	AvatarURL string     `json:"avatar_url,omitempty"`
}

// DisplayName returns Name, or the user id when the server sent no
// name.
func (m Member) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID.String()
}

// Preview is the denormalized last message shown in the roster. It
// persists on the conversation while the conversation is closed.
type Preview struct {
	// MessageID is the previewed message. Servers may omit it.
	MessageID  ref.MessageID `json:"message_id,omitempty"`
	Content    string        `json:"content"`
	SenderID   ref.UserID    `json:"sender_id,omitempty"`
	SenderName string        `json:"sender_name,omitempty"`
	At         time.Time     `json:"at"`
}

// Conversation is a group or private chat as listed in the roster.
type Conversation struct {
	ID ref.ConversationID `json:"id"`

	Kind Kind `json:"kind"`

	// DisplayName is the group name. Private conversations usually
	// leave it empty and are titled by the peer; see Title.
	DisplayName string `json:"display_name,omitempty"`

	// DisplayImage is an optional avatar URL.
	DisplayImage string `json:"display_image,omitempty"`

	Members []Member `json:"members"`

	LastMessagePreview *Preview `json:"last_message_preview,omitempty"`

	// UpdatedAt is the time of the last activity, used for recency
	// ordering when no preview exists.
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks that the conversation has an id and a known kind.
func (c *Conversation) Validate() error {
	var errs []error
	if c.ID.IsZero() {
		errs = append(errs, errors.New("conversation: id is required"))
	}
	if !c.Kind.IsKnown() {
		errs = append(errs, fmt.Errorf("conversation %s: unknown kind %q", c.ID, c.Kind))
	}
	return errors.Join(errs...)
}

// HasMember reports whether user is in the member list.
func (c *Conversation) HasMember(user ref.UserID) bool {
	return slices.ContainsFunc(c.Members, func(m Member) bool { return m.ID == user })
}

// Member returns the member with the given id.
func (c *Conversation) Member(user ref.UserID) (Member, bool) {
	index := slices.IndexFunc(c.Members, func(m Member) bool { return m.ID == user })
	if index < 0 {
		return Member{}, false
	}
	return c.Members[index], true
}

// PeerOf returns the other participant of a private conversation.
// Returns false for groups and for private conversations whose member
// list does not contain a second user.
func (c *Conversation) PeerOf(self ref.UserID) (Member, bool) {
	if c.Kind != KindPrivate {
		return Member{}, false
	}
	for _, member := range c.Members {
		if member.ID != self {
			return member, true
		}
	}
	return Member{}, false
}

// Title returns the name to display for the conversation from self's
// point of view.
func (c *Conversation) Title(self ref.UserID) string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	if peer, ok := c.PeerOf(self); ok {
		return peer.DisplayName()
	}
	return c.ID.String()
}

// AddMember appends member unless a member with the same id exists,
// in which case the stored entry is refreshed. Reports whether the
// member list grew.
func (c *Conversation) AddMember(member Member) bool {
	index := slices.IndexFunc(c.Members, func(m Member) bool { return m.ID == member.ID })
	if index >= 0 {
		c.Members[index] = member
		return false
	}
	c.Members = append(c.Members, member)
	return true
}

// RemoveMember deletes the member with the given id. Reports whether
// a member was removed.
func (c *Conversation) RemoveMember(user ref.UserID) bool {
	before := len(c.Members)
	c.Members = slices.DeleteFunc(c.Members, func(m Member) bool { return m.ID == user })
	return len(c.Members) != before
}

// LastActivity returns the preview time, falling back to UpdatedAt.
func (c *Conversation) LastActivity() time.Time {
	if c.LastMessagePreview != nil && c.LastMessagePreview.At.After(c.UpdatedAt) {
		return c.LastMessagePreview.At
	}
	return c.UpdatedAt
}

// Clone returns a deep copy. The roster hands out clones so callers
// cannot mutate roster-owned state.
func (c Conversation) Clone() Conversation {
	c.Members = slices.Clone(c.Members)
	if c.LastMessagePreview != nil {
		preview := *c.LastMessagePreview
		c.LastMessagePreview = &preview
	}
	return c
}
