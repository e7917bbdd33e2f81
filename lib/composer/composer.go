// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package composer holds the message input state: the draft text,
// whether the user is composing a new message or editing an existing
// one, and the rules for what the local user may edit.
package composer

import (
	"errors"
	"strings"

	"github.com/bureau-foundation/chatsync/lib/ref"
	"github.com/bureau-foundation/chatsync/lib/schema/chat"
)

var (
	// ErrNotAuthor is returned when the local user tries to modify a
	// message someone else sent.
	ErrNotAuthor = errors.New("composer: only the sender may modify a message")

	// ErrNotEditable is returned for deleted and system messages.
	ErrNotEditable = errors.New("composer: message cannot be modified")
)

// Mode is what Submit will produce.
type Mode int

const (
	ModeCompose Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "compose"
}

// Submission is the result of Submit.
type Submission struct {
	Mode Mode

	// MessageID is set for edits.
	MessageID ref.MessageID

	// Content is trimmed of surrounding whitespace.
	Content string
}

// CanModify reports whether self may edit or delete message. The
// server enforces the same rule; the client only uses it to hide
// affordances and reject obviously invalid intents early.
func CanModify(message chat.Message, self ref.UserID) error {
	if message.IsSystemMessage || message.Sender == nil || message.IsDeleted() {
		return ErrNotEditable
	}
	if !message.IsFrom(self) {
		return ErrNotAuthor
	}
	return nil
}

// Composer is the input box state. OnInput, if set, runs after every
// text change with the new text; the conversation controller feeds it
// to the typing debouncer.
type Composer struct {
	OnInput func(text string)

	text string
	mode Mode

	editing  ref.MessageID
	original string
	draft    string
}

// Text returns the current text.
func (c *Composer) Text() string { return c.text }

// Mode returns the current mode.
func (c *Composer) Mode() Mode { return c.mode }

// Editing returns the message being edited.
func (c *Composer) Editing() (ref.MessageID, bool) {
	return c.editing, c.mode == ModeEdit
}

// SetText replaces the text.
func (c *Composer) SetText(text string) {
	if text == c.text {
		return
	}
	c.text = text
	c.changed()
}

// Insert appends s, expanding emoji shortcodes.
func (c *Composer) Insert(s string) {
	c.SetText(c.text + ExpandShortcodes(s))
}

// BeginEdit switches to editing message, pre-filling its content. The
// compose draft is kept and restored when the edit ends.
func (c *Composer) BeginEdit(message chat.Message, self ref.UserID) error {
	if err := CanModify(message, self); err != nil {
		return err
	}
	if c.mode == ModeCompose {
		c.draft = c.text
	}
	c.mode = ModeEdit
	c.editing = message.ID
	c.original = message.Content
	c.SetText(message.Content)
	return nil
}

// CancelEdit leaves edit mode and restores the compose draft.
func (c *Composer) CancelEdit() {
	if c.mode != ModeEdit {
		return
	}
	c.endEdit()
}

// Reset clears everything, including any draft. Called when the
// conversation changes.
func (c *Composer) Reset() {
	c.mode = ModeCompose
	c.editing = ref.MessageID{}
	c.original = ""
	c.draft = ""
	c.text = ""
}

// Submit consumes the text. Blank text yields ok=false and leaves the
// composer unchanged. An edit whose content matches the original is
// dropped: edit mode ends and ok is false.
func (c *Composer) Submit() (Submission, bool) {
	content := strings.TrimSpace(c.text)
	if content == "" {
		return Submission{}, false
	}

	if c.mode == ModeEdit {
		submission := Submission{Mode: ModeEdit, MessageID: c.editing, Content: content}
		unchanged := content == strings.TrimSpace(c.original)
		c.endEdit()
		return submission, !unchanged
	}

	c.SetText("")
	return Submission{Mode: ModeCompose, Content: content}, true
}

func (c *Composer) endEdit() {
	draft := c.draft
	c.mode = ModeCompose
	c.editing = ref.MessageID{}
	c.original = ""
	c.draft = ""
	c.SetText(draft)
}

func (c *Composer) changed() {
	if c.OnInput != nil {
		c.OnInput(c.text)
	}
}
