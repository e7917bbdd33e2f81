// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roster

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bureau-foundation/chatsync/lib/chatchannel"
	"github.com/bureau-foundation/chatsync/lib/eventloop"
	"github.com/bureau-foundation/chatsync/lib/ref"
	"github.com/bureau-foundation/chatsync/lib/schema/chat"
)

var (
	self  = chat.Member{ID: ref.MustParseUserID("u_self"), Name: "Me"}
	alice = chat.Member{ID: ref.MustParseUserID("u_alice"), Name: "Alice"}
	bob   = chat.Member{ID: ref.MustParseUserID("u_bob"), Name: "Bob"}
	epoch = time.Date(2026, 7, 4, 20, 0, 0, 0, time.UTC)
)

func group(id, name string, updated time.Duration, members ...chat.Member) chat.Conversation {
	return chat.Conversation{
		ID:          ref.MustParseConversationID(id),
		Kind:        chat.KindGroup,
		DisplayName: name,
		Members:     append([]chat.Member{self}, members...),
		UpdatedAt:   epoch.Add(updated),
	}
}

func private(id string, peer chat.Member, updated time.Duration) chat.Conversation {
	return chat.Conversation{
		ID:        ref.MustParseConversationID(id),
		Kind:      chat.KindPrivate,
		Members:   []chat.Member{self, peer},
		UpdatedAt: epoch.Add(updated),
	}
}

type fakeCollaborator struct {
	groupResponses [][]chat.Conversation
	groupCalls     int
	groupErr       error
	private        []chat.Conversation
	createCalls    int
	createErr      error
}

func (f *fakeCollaborator) FetchGroupConversations(context.Context) ([]chat.Conversation, error) {
	f.groupCalls++
	if f.groupErr != nil {
		return nil, f.groupErr
	}
	response := f.groupResponses[min(f.groupCalls, len(f.groupResponses))-1]
	return response, nil
}

func (f *fakeCollaborator) FetchPrivateConversations(context.Context) ([]chat.Conversation, error) {
	return f.private, nil
}

func (f *fakeCollaborator) CreatePrivateConversation(_ context.Context, peer ref.UserID) (chat.Conversation, error) {
	f.createCalls++
	if f.createErr != nil {
		return chat.Conversation{}, f.createErr
	}
	return private("dm_"+peer.String(), chat.Member{ID: peer, Name: "Peer"}, time.Hour), nil
}

func newManager(t *testing.T, collaborator *fakeCollaborator) (*Manager, *eventloop.Manual) {
	t.Helper()
	loop := eventloop.NewManual()
	manager := New(Config{Collaborator: collaborator, Scheduler: loop, Self: self.ID})
	return manager, loop
}

func ids(conversations []chat.Conversation) string {
	var out []string
	for _, conversation := range conversations {
		out = append(out, conversation.ID.String())
	}
	return fmt.Sprint(out)
}

func TestLoadSortsByRecency(t *testing.T) {
	collaborator := &fakeCollaborator{
		groupResponses: [][]chat.Conversation{{
			group("grp_old", "Old", 0),
			group("grp_new", "New", 2*time.Hour),
			group("grp_mid", "Mid", time.Hour),
		}},
		private: []chat.Conversation{private("dm_alice", alice, 0)},
	}
	manager, loop := newManager(t, collaborator)

	manager.LoadGroups(context.Background())
	manager.LoadPrivateChats(context.Background())
	if !manager.Loading(chat.KindGroup) {
		t.Error("Loading(group) = false while fetch is queued")
	}
	loop.Drain()

	if got := ids(manager.Groups()); got != "[grp_new grp_mid grp_old]" {
		t.Errorf("groups = %s", got)
	}
	if got := ids(manager.Private()); got != "[dm_alice]" {
		t.Errorf("private = %s", got)
	}
	if manager.Loading(chat.KindGroup) {
		t.Error("Loading(group) still true after drain")
	}
}

func TestLoadFailureKeepsList(t *testing.T) {
	collaborator := &fakeCollaborator{groupResponses: [][]chat.Conversation{{group("grp_a", "A", 0)}}}
	manager, loop := newManager(t, collaborator)
	manager.LoadGroups(context.Background())
	loop.Drain()

	collaborator.groupErr = errors.New("503")
	manager.LoadGroups(context.Background())
	loop.Drain()
	if got := ids(manager.Groups()); got != "[grp_a]" {
		t.Errorf("groups after failed reload = %s", got)
	}
}

func TestNewerLoadSupersedesOlder(t *testing.T) {
	collaborator := &fakeCollaborator{groupResponses: [][]chat.Conversation{
		{group("grp_first", "First", 0)},
		{group("grp_second", "Second", 0)},
	}}
	manager, loop := newManager(t, collaborator)
	manager.LoadGroups(context.Background())
	manager.LoadGroups(context.Background())
	loop.Drain()
	if got := ids(manager.Groups()); got != "[grp_second]" {
		t.Errorf("groups = %s, want the newer load", got)
	}
}

func TestUpdatePreviewMovesToFront(t *testing.T) {
	collaborator := &fakeCollaborator{groupResponses: [][]chat.Conversation{{
		group("grp_a", "A", 3*time.Hour),
		group("grp_b", "B", 2*time.Hour),
		group("grp_c", "C", time.Hour),
	}}}
	manager, loop := newManager(t, collaborator)
	manager.LoadGroups(context.Background())
	loop.Drain()

	message := chat.Message{
		ID:             ref.MustParseMessageID("m1"),
		ConversationID: ref.MustParseConversationID("grp_c"),
		Sender:         &bob,
		Content:        "doors open at 7",
		CreatedAt:      epoch.Add(4 * time.Hour),
		Status:         chat.StatusSent,
	}
	manager.UpdatePreviewFromLiveMessage(message)

	groups := manager.Groups()
	if got := ids(groups); got != "[grp_c grp_a grp_b]" {
		t.Fatalf("groups = %s, want grp_c first", got)
	}
	preview := groups[0].LastMessagePreview
	if preview == nil || preview.Content != "doors open at 7" || preview.SenderName != "Bob" || !preview.At.Equal(message.CreatedAt) {
		t.Errorf("preview = %+v", preview)
	}

	message.ConversationID = ref.MustParseConversationID("grp_unknown")
	manager.UpdatePreviewFromLiveMessage(message)
	if got := ids(manager.Groups()); got != "[grp_c grp_a grp_b]" {
		t.Errorf("unknown conversation changed order: %s", got)
	}
}

func TestReturnedConversationsAreCopies(t *testing.T) {
	collaborator := &fakeCollaborator{groupResponses: [][]chat.Conversation{{group("grp_a", "A", 0, alice)}}}
	manager, loop := newManager(t, collaborator)
	manager.LoadGroups(context.Background())
	loop.Drain()

	groups := manager.Groups()
	groups[0].Members[0].Name = "Mallory"
	conversation, _ := manager.Conversation(groups[0].ID)
	if conversation.Members[0].Name != "Me" {
		t.Error("mutating a returned conversation changed the roster")
	}
}

func TestStartPrivateChatIsIdempotent(t *testing.T) {
	collaborator := &fakeCollaborator{private: []chat.Conversation{private("dm_alice", alice, 0)}}
	manager, loop := newManager(t, collaborator)
	manager.LoadPrivateChats(context.Background())
	loop.Drain()

	var got []string
	record := func(conversation chat.Conversation, err error) {
		if err != nil {
			t.Errorf("callback error: %v", err)
		}
		got = append(got, conversation.ID.String())
	}

	manager.StartPrivateChat(context.Background(), alice.ID, record)
	if collaborator.createCalls != 0 {
		t.Errorf("existing chat triggered %d creates", collaborator.createCalls)
	}

	// Two requests before the first completes share one create.
	manager.StartPrivateChat(context.Background(), bob.ID, record)
	manager.StartPrivateChat(context.Background(), bob.ID, record)
	loop.Drain()
	// And a later request finds the created chat.
	manager.StartPrivateChat(context.Background(), bob.ID, record)

	if collaborator.createCalls != 1 {
		t.Errorf("createCalls = %d, want 1", collaborator.createCalls)
	}
	if fmt.Sprint(got) != "[dm_alice dm_u_bob dm_u_bob dm_u_bob]" {
		t.Errorf("callbacks = %v", got)
	}
	if list := ids(manager.Private()); list != "[dm_u_bob dm_alice]" {
		t.Errorf("private = %s, want new chat first and no duplicates", list)
	}
}

func TestStartPrivateChatErrors(t *testing.T) {
	collaborator := &fakeCollaborator{createErr: errors.New("peer blocked you")}
	manager, loop := newManager(t, collaborator)

	var selfErr, createErr error
	manager.StartPrivateChat(context.Background(), self.ID, func(_ chat.Conversation, err error) { selfErr = err })
	manager.StartPrivateChat(context.Background(), bob.ID, func(_ chat.Conversation, err error) { createErr = err })
	loop.Drain()

	if !errors.Is(selfErr, ErrSelfChat) {
		t.Errorf("self chat: %v, want ErrSelfChat", selfErr)
	}
	if !errors.Is(createErr, collaborator.createErr) {
		t.Errorf("create error: %v", createErr)
	}
	if len(manager.Private()) != 0 {
		t.Error("failed create added a conversation")
	}

	// The failed request does not block a retry.
	collaborator.createErr = nil
	manager.StartPrivateChat(context.Background(), bob.ID, nil)
	loop.Drain()
	if collaborator.createCalls != 2 {
		t.Errorf("createCalls = %d, want retry", collaborator.createCalls)
	}
}

func TestChannelEventsUpdateRoster(t *testing.T) {
	collaborator := &fakeCollaborator{
		groupResponses: [][]chat.Conversation{{group("grp_a", "A", 0, alice), group("grp_b", "B", 0)}},
		private:        []chat.Conversation{private("dm_alice", alice, 0)},
	}
	manager, loop := newManager(t, collaborator)
	manager.LoadGroups(context.Background())
	manager.LoadPrivateChats(context.Background())
	loop.Drain()

	transport := chatchannel.NewMemoryTransport()
	adapter := chatchannel.New(chatchannel.Config{Transport: transport, Scheduler: loop})
	adapter.Start(context.Background())
	manager.Attach(adapter)
	deliver := func(frame chatchannel.Frame) {
		transport.Deliver(frame)
		loop.Drain()
	}
	grpA := ref.MustParseConversationID("grp_a")
	grpB := ref.MustParseConversationID("grp_b")
	dm := ref.MustParseConversationID("dm_alice")

	deliver(chatchannel.Frame{Type: chatchannel.FrameMemberAdded, ConversationID: grpA, Member: &bob})
	conversation, _ := manager.Conversation(grpA)
	if !conversation.HasMember(bob.ID) {
		t.Error("member_added not applied")
	}
	deliver(chatchannel.Frame{Type: chatchannel.FrameMemberRemoved, ConversationID: grpA, MemberID: alice.ID})
	conversation, _ = manager.Conversation(grpA)
	if conversation.HasMember(alice.ID) {
		t.Error("member_removed not applied")
	}

	deliver(chatchannel.Frame{Type: chatchannel.FrameMemberRemoved, ConversationID: grpB, MemberID: self.ID})
	if _, ok := manager.Conversation(grpB); ok {
		t.Error("group still in roster after self removal")
	}
	deliver(chatchannel.Frame{Type: chatchannel.FrameMemberRemoved, ConversationID: dm, MemberID: self.ID})
	if _, ok := manager.Conversation(dm); !ok {
		t.Error("private chat removed client-side")
	}
	if manager.Remove(dm) {
		t.Error("Remove succeeded on a private chat")
	}

	// Being added to an unknown group reloads the group list.
	calls := collaborator.groupCalls
	deliver(chatchannel.Frame{Type: chatchannel.FrameMemberAdded, ConversationID: ref.MustParseConversationID("grp_new"), Member: &self})
	if collaborator.groupCalls != calls+1 {
		t.Errorf("groupCalls = %d, want a reload", collaborator.groupCalls)
	}

	live := chat.Message{ID: ref.MustParseMessageID("m9"), ConversationID: dm, Sender: &alice, Content: "hi", CreatedAt: epoch.Add(time.Hour), Status: chat.StatusSent}
	deliver(chatchannel.Frame{Type: chatchannel.FrameMessageCreated, Message: &live})
	conversation, _ = manager.Conversation(dm)
	if conversation.LastMessagePreview == nil || conversation.LastMessagePreview.Content != "hi" {
		t.Errorf("preview from live message not applied: %+v", conversation.LastMessagePreview)
	}

	edited := "hi all"
	other := "unrelated"
	deliver(chatchannel.Frame{Type: chatchannel.FrameStatusChanged, ConversationID: dm, MessageID: ref.MustParseMessageID("m8"), Status: chat.StatusEdited, Content: &other})
	deliver(chatchannel.Frame{Type: chatchannel.FrameStatusChanged, ConversationID: dm, MessageID: live.ID, Status: chat.StatusEdited, Content: &edited})
	conversation, _ = manager.Conversation(dm)
	if got := conversation.LastMessagePreview.Content; got != "hi all" {
		t.Errorf("preview after editing the previewed message = %q, want %q", got, edited)
	}
	deliver(chatchannel.Frame{Type: chatchannel.FrameStatusChanged, ConversationID: dm, MessageID: live.ID, Status: chat.StatusDeleted})
	conversation, _ = manager.Conversation(dm)
	if got := conversation.LastMessagePreview.Content; got != "message deleted" {
		t.Errorf("preview after deleting the previewed message = %q", got)
	}

	manager.Detach()
	if adapter.Subscriptions(ref.ConversationID{}) != 0 {
		t.Error("Detach left the global subscription")
	}
}

func TestFilter(t *testing.T) {
	collaborator := &fakeCollaborator{
		groupResponses: [][]chat.Conversation{{
			group("grp_fest", "Summer Festival Crew", time.Hour),
			group("grp_jazz", "Jazz Night", 2*time.Hour),
		}},
		private: []chat.Conversation{private("dm_alice", alice, 3*time.Hour)},
	}
	manager, loop := newManager(t, collaborator)
	manager.LoadGroups(context.Background())
	manager.LoadPrivateChats(context.Background())
	loop.Drain()

	all := manager.Filter("")
	if len(all) != 3 || all[0].Conversation.ID.String() != "dm_alice" {
		t.Fatalf("empty filter = %+v, want all by recency", all)
	}

	matches := manager.Filter("fest")
	if len(matches) != 1 || matches[0].Title != "Summer Festival Crew" || len(matches[0].Positions) != 4 {
		t.Fatalf("Filter(fest) = %+v", matches)
	}

	if matches := manager.Filter("ALI"); len(matches) != 1 || matches[0].Title != "Alice" {
		t.Errorf("Filter(ALI) = %+v, want the private chat by peer name", matches)
	}
	if matches := manager.Filter("zzz"); len(matches) != 0 {
		t.Errorf("Filter(zzz) = %+v", matches)
	}
}
