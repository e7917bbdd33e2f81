// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/chatsync/lib/ref"
)

type sampleFrame struct {
	Type           string             `json:"type"`
	ConversationID ref.ConversationID `json:"conversation_id"`
	Content        string             `json:"content,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

func TestMarshalDeterministic(t *testing.T) {
	frame := sampleFrame{
		Type:           "message_created",
		ConversationID: ref.MustParseConversationID("grp_1"),
		Content:        "doors open at 7",
		CreatedAt:      time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC),
	}

	first, err := Marshal(frame)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(frame)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}

	var decoded sampleFrame
	if err := Unmarshal(first, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.ConversationID != frame.ConversationID {
		t.Errorf("ConversationID = %v, want %v", decoded.ConversationID, frame.ConversationID)
	}
	if !decoded.CreatedAt.Equal(frame.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", decoded.CreatedAt, frame.CreatedAt)
	}
}

func TestIdentifiersEncodeAsText(t *testing.T) {
	data, err := Marshal(sampleFrame{
		Type:           "typing_started",
		ConversationID: ref.MustParseConversationID("grp_42"),
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	diagnostic, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(diagnostic, `"conversation_id": "grp_42"`) {
		t.Errorf("conversation id not encoded as text string: %s", diagnostic)
	}
	if strings.Contains(diagnostic, `"content"`) {
		t.Errorf("omitempty content field present: %s", diagnostic)
	}
}

func TestStreamRoundtrip(t *testing.T) {
	frames := []sampleFrame{
		{Type: "join", ConversationID: ref.MustParseConversationID("grp_1")},
		{Type: "send", ConversationID: ref.MustParseConversationID("grp_1"), Content: "hi"},
		{Type: "leave", ConversationID: ref.MustParseConversationID("grp_1")},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, frame := range frames {
		if err := encoder.Encode(frame); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range frames {
		var got sampleFrame
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode[%d]: %v", i, err)
		}
		if got.Type != want.Type || got.Content != want.Content || got.ConversationID != want.ConversationID {
			t.Errorf("frame %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestUnknownFieldsIgnored(t *testing.T) {
	data, err := Marshal(map[string]any{
		"type":            "message_created",
		"conversation_id": "grp_1",
		"future_field":    []int{1, 2, 3},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded sampleFrame
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal with unknown field: %v", err)
	}
	if decoded.Type != "message_created" {
		t.Errorf("Type = %q", decoded.Type)
	}
}

func TestRawMessageDefersDecoding(t *testing.T) {
	type envelope struct {
		Type    string     `json:"type"`
		Payload RawMessage `json:"payload"`
	}
	data, err := Marshal(map[string]any{
		"type":    "member_added",
		"payload": map[string]any{"id": "u_bob", "name": "Bob"},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var outer envelope
	if err := Unmarshal(data, &outer); err != nil {
		t.Fatalf("Unmarshal envelope: %v", err)
	}
	var inner map[string]any
	if err := Unmarshal(outer.Payload, &inner); err != nil {
		t.Fatalf("Unmarshal payload: %v", err)
	}
	if inner["name"] != "Bob" {
		t.Errorf("payload name = %v, want Bob", inner["name"])
	}
}
