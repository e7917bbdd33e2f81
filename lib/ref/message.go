// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// MessageID identifies a message within the server's message log. Message IDs are
// unique across conversations.
//
// MessageID is an immutable value type. The zero value is not
// valid; use IsZero to check.
type MessageID struct {
	id string
}

// ParseMessageID validates and wraps a raw message ID.
func ParseMessageID(raw string) (MessageID, error) {
	if err := validateOpaque("message ID", raw); err != nil {
		return MessageID{}, err
	}
	return MessageID{id: raw}, nil
}

// MustParseMessageID is like ParseMessageID but panics on
// error. Use in tests and static initialization where the input is
// known-valid.
func MustParseMessageID(raw string) MessageID {
	id, err := ParseMessageID(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseMessageID(%q): %v", raw, err))
	}
	return id
}

// String returns the raw message ID.
func (m MessageID) String() string { return m.id }

// IsZero reports whether the MessageID is the zero value.
func (m MessageID) IsZero() bool { return m.id == "" }

// MarshalText implements encoding.TextMarshaler.
func (m MessageID) MarshalText() ([]byte, error) {
	if m.id == "" {
		return nil, nil
	}
	return []byte(m.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value.
func (m *MessageID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*m = MessageID{}
		return nil
	}
	parsed, err := ParseMessageID(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
