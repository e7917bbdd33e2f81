// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatchannel

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bureau-foundation/chatsync/lib/codec"
	"github.com/bureau-foundation/chatsync/lib/ref"
	"github.com/bureau-foundation/chatsync/lib/schema/chat"
)

func historyMessage(id string) chat.Message {
	return chat.Message{
		ID:        ref.MustParseMessageID(id),
		Sender:    &alice,
		Content:   id,
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestDecodeInitialHistoryHasMore(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		name     string
		messages []chat.Message
		hasMore  *bool
		want     bool
	}{
		{"absent flag, messages", []chat.Message{historyMessage("m1")}, nil, true},
		{"absent flag, empty", nil, nil, false},
		{"explicit false", []chat.Message{historyMessage("m1")}, &no, false},
		{"explicit true", nil, &yes, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			event, err := DecodeEvent(Frame{
				Type:           FrameInitialHistory,
				ConversationID: groupA,
				Messages:       test.messages,
				HasMore:        test.hasMore,
			})
			if err != nil {
				t.Fatalf("DecodeEvent: %v", err)
			}
			history := event.(InitialHistory)
			if history.HasMore != test.want {
				t.Errorf("HasMore = %v, want %v", history.HasMore, test.want)
			}
			for _, message := range history.Messages {
				if message.ConversationID != groupA {
					t.Errorf("message %s conversation = %q, want filled from frame", message.ID, message.ConversationID)
				}
				if message.Status != chat.StatusSent {
					t.Errorf("message %s status = %q, want normalized to sent", message.ID, message.Status)
				}
			}
		})
	}
}

func TestDecodeEventErrors(t *testing.T) {
	messageID := ref.MustParseMessageID("m1")
	tests := []struct {
		name  string
		frame Frame
	}{
		{"history without conversation", Frame{Type: FrameInitialHistory}},
		{"created without message", Frame{Type: FrameMessageCreated, ConversationID: groupA}},
		{"status without message id", Frame{Type: FrameStatusChanged, ConversationID: groupA, Status: chat.StatusEdited}},
		{"status unknown", Frame{Type: FrameStatusChanged, ConversationID: groupA, MessageID: messageID, Status: "pinned"}},
		{"member added without member", Frame{Type: FrameMemberAdded, ConversationID: groupA}},
		{"member removed without id", Frame{Type: FrameMemberRemoved, ConversationID: groupA}},
		{"typing without member", Frame{Type: FramePeerTyping, ConversationID: groupA}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := DecodeEvent(test.frame); err == nil {
				t.Errorf("DecodeEvent(%+v) succeeded", test.frame)
			}
		})
	}

	if _, err := DecodeEvent(Frame{Type: "poll_created"}); !errors.Is(err, ErrUnknownFrame) {
		t.Errorf("unknown type: %v, want ErrUnknownFrame", err)
	}
}

func TestDecodeMemberRemovedFallsBackToMember(t *testing.T) {
	event, err := DecodeEvent(Frame{Type: FrameMemberRemoved, ConversationID: groupA, Member: &alice})
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if removed := event.(MemberRemoved); removed.MemberID != alice.ID {
		t.Errorf("MemberID = %q, want %q", removed.MemberID, alice.ID)
	}
}

func TestMutationAckOKDefaultsFromError(t *testing.T) {
	event, err := DecodeEvent(Frame{Type: FrameMutationAck, RequestID: "r1", Error: "forbidden"})
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if ack := event.(MutationAck); ack.OK {
		t.Error("ack with error decoded as OK")
	}
	event, _ = DecodeEvent(Frame{Type: FrameMutationAck, RequestID: "r2"})
	if ack := event.(MutationAck); !ack.OK {
		t.Error("ack without error decoded as failed")
	}
}

func TestFrameWireFormat(t *testing.T) {
	content := "edited text"
	frame := Frame{
		Type:           FrameStatusChanged,
		ConversationID: groupA,
		MessageID:      ref.MustParseMessageID("m1"),
		Status:         chat.StatusEdited,
		Content:        &content,
	}
	data, err := codec.Marshal(frame)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw map[string]any
	if err := codec.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal to map: %v", err)
	}
	for _, key := range []string{"type", "conversation_id", "message_id", "status", "content"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("encoded frame missing %q: %v", key, raw)
		}
	}
	for _, key := range []string{"member_id", "request_id", "has_more", "ok"} {
		if _, ok := raw[key]; ok {
			t.Errorf("encoded frame carries empty %q", key)
		}
	}

	var decoded Frame
	if err := codec.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	event, err := DecodeEvent(decoded)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	changed := event.(StatusChanged)
	if changed.Content == nil || *changed.Content != content || changed.MessageID != frame.MessageID {
		t.Errorf("decoded %+v", changed)
	}
}

func TestDecodeInitialHistoryOrdersAndValidates(t *testing.T) {
	base := time.Date(2026, 3, 1, 14, 57, 0, 0, time.UTC)
	at := func(id string, minutes int) chat.Message {
		message := historyMessage(id)
		message.CreatedAt = base.Add(time.Duration(minutes) * time.Minute)
		return message
	}
	undated := historyMessage("m_undated")
	undated.CreatedAt = time.Time{}

	event, err := DecodeEvent(Frame{
		Type:           FrameInitialHistory,
		ConversationID: groupA,
		Messages:       []chat.Message{at("m_3", 2), undated, at("m_2", 1), at("m_1", 0)},
	})
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	history := event.(InitialHistory)
	var order []string
	for _, message := range history.Messages {
		order = append(order, message.ID.String())
	}
	if got, want := fmt.Sprint(order), "[m_1 m_2 m_3]"; got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
	if history.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", history.Dropped)
	}
	if !history.HasMore {
		t.Error("HasMore = false for a non-empty frame without the flag")
	}
}
