// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// ConversationID identifies a group or private conversation.
//
// ConversationID is an immutable value type. The zero value is not
// valid; use IsZero to check.
type ConversationID struct {
	id string
}

// ParseConversationID validates and wraps a raw conversation ID.
func ParseConversationID(raw string) (ConversationID, error) {
	if err := validateOpaque("conversation ID", raw); err != nil {
		return ConversationID{}, err
	}
	return ConversationID{id: raw}, nil
}

// MustParseConversationID is like ParseConversationID but panics on
// error. Use in tests and static initialization where the input is
// known-valid.
func MustParseConversationID(raw string) ConversationID {
	id, err := ParseConversationID(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseConversationID(%q): %v", raw, err))
	}
	return id
}

// String returns the raw conversation ID.
func (c ConversationID) String() string { return c.id }

// IsZero reports whether the ConversationID is the zero value.
func (c ConversationID) IsZero() bool { return c.id == "" }

// MarshalText implements encoding.TextMarshaler.
func (c ConversationID) MarshalText() ([]byte, error) {
	if c.id == "" {
		return nil, nil
	}
	return []byte(c.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value.
func (c *ConversationID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*c = ConversationID{}
		return nil
	}
	parsed, err := ParseConversationID(string(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
