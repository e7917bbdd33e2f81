// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/bureau-foundation/chatsync/lib/chatchannel"
	"github.com/bureau-foundation/chatsync/lib/eventloop"
	"github.com/bureau-foundation/chatsync/lib/ref"
	"github.com/bureau-foundation/chatsync/lib/schema/chat"
)

// ErrSelfChat is returned when asked to start a private chat with the
// local user.
var ErrSelfChat = errors.New("roster: cannot start a private chat with yourself")

// Collaborator is the server API the roster loads from.
// *messaging.Client implements it.
type Collaborator interface {
	FetchGroupConversations(ctx context.Context) ([]chat.Conversation, error)
	FetchPrivateConversations(ctx context.Context) ([]chat.Conversation, error)
	CreatePrivateConversation(ctx context.Context, peer ref.UserID) (chat.Conversation, error)
}

// Subscriber registers global channel handlers.
// *chatchannel.Adapter implements it.
type Subscriber interface {
	SubscribeAll(handlers chatchannel.Handlers) *chatchannel.Subscription
}

// Config configures a Manager.
type Config struct {
	Collaborator Collaborator
	Scheduler    eventloop.Scheduler
	Logger       *slog.Logger

	// Self is the local user.
	Self ref.UserID

	// Context bounds fetches started by events rather than by a
	// caller. Default: context.Background().
	Context context.Context

	// OnChange runs on the loop after any list changes.
	OnChange func()
}

// PrivateChatCallback receives the result of StartPrivateChat on the
// loop.
type PrivateChatCallback func(chat.Conversation, error)

// Manager owns the conversation lists.
type Manager struct {
	collaborator Collaborator
	scheduler    eventloop.Scheduler
	logger       *slog.Logger
	self         ref.UserID
	ctx          context.Context
	onChange     func()

	lists   map[chat.Kind][]chat.Conversation
	loaded  map[chat.Kind]bool
	loading map[chat.Kind]uint64
	loadSeq uint64

	pendingPrivate map[ref.UserID][]PrivateChatCallback
	subscription   *chatchannel.Subscription
}

// New creates an empty Manager.
func New(config Config) *Manager {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Context == nil {
		config.Context = context.Background()
	}
	if config.OnChange == nil {
		config.OnChange = func() {}
	}
	return &Manager{
		collaborator:   config.Collaborator,
		scheduler:      config.Scheduler,
		logger:         logger,
		self:           config.Self,
		ctx:            config.Context,
		onChange:       config.OnChange,
		lists:          make(map[chat.Kind][]chat.Conversation),
		loaded:         make(map[chat.Kind]bool),
		loading:        make(map[chat.Kind]uint64),
		pendingPrivate: make(map[ref.UserID][]PrivateChatCallback),
	}
}

// Attach subscribes to live messages and membership events for every
// conversation. Attaching twice replaces the earlier subscription.
func (m *Manager) Attach(channel Subscriber) {
	m.Detach()
	m.subscription = channel.SubscribeAll(chatchannel.Handlers{
		LiveMessage: func(event chatchannel.LiveMessage) {
			m.UpdatePreviewFromLiveMessage(event.Message)
		},
		StatusChanged: func(event chatchannel.StatusChanged) {
			m.ApplyStatusChange(event.Conversation, event.MessageID, event.Status, event.Content)
		},
		MemberAdded: func(event chatchannel.MemberAdded) {
			m.ApplyMemberAdded(event.Conversation, event.Member)
		},
		MemberRemoved: func(event chatchannel.MemberRemoved) {
			m.ApplyMemberRemoved(event.Conversation, event.MemberID)
		},
		Connected: func() {
			// Previews for conversations that changed during the outage
			// are only recoverable by reloading.
			if m.loaded[chat.KindGroup] {
				m.LoadGroups(m.ctx)
			}
			if m.loaded[chat.KindPrivate] {
				m.LoadPrivateChats(m.ctx)
			}
		},
	})
}

// Detach drops the channel subscription.
func (m *Manager) Detach() {
	m.subscription.Close()
	m.subscription = nil
}

// LoadGroups replaces the group list from the server. On failure the
// old list stays.
func (m *Manager) LoadGroups(ctx context.Context) {
	m.load(ctx, chat.KindGroup, m.collaborator.FetchGroupConversations)
}

// LoadPrivateChats replaces the private chat list from the server. On
// failure the old list stays.
func (m *Manager) LoadPrivateChats(ctx context.Context) {
	m.load(ctx, chat.KindPrivate, m.collaborator.FetchPrivateConversations)
}

// Loading reports whether a load of kind is in flight.
func (m *Manager) Loading(kind chat.Kind) bool {
	return m.loading[kind] != 0
}

func (m *Manager) load(ctx context.Context, kind chat.Kind, fetch func(context.Context) ([]chat.Conversation, error)) {
	m.loadSeq++
	sequence := m.loadSeq
	m.loading[kind] = sequence
	m.onChange()

	m.scheduler.Go(func() func() {
		conversations, err := fetch(ctx)
		return func() {
			// A newer load of the same kind supersedes this one.
			if m.loading[kind] != sequence {
				return
			}
			delete(m.loading, kind)
			if err != nil {
				m.logger.Warn("roster load failed", "kind", kind, "error", err)
				m.onChange()
				return
			}
			m.replace(kind, conversations)
		}
	})
}

func (m *Manager) replace(kind chat.Kind, conversations []chat.Conversation) {
	list := make([]chat.Conversation, 0, len(conversations))
	seen := make(map[ref.ConversationID]bool, len(conversations))
	for _, conversation := range conversations {
		if conversation.Kind != kind || seen[conversation.ID] {
			continue
		}
		seen[conversation.ID] = true
		list = append(list, conversation.Clone())
	}
	slices.SortStableFunc(list, func(a, b chat.Conversation) int {
		return b.LastActivity().Compare(a.LastActivity())
	})
	m.lists[kind] = list
	m.loaded[kind] = true
	m.logger.Debug("roster loaded", "kind", kind, "conversations", len(list))
	m.onChange()
}

// find returns the list holding id and the index within it.
func (m *Manager) find(id ref.ConversationID) (chat.Kind, int) {
	for _, kind := range []chat.Kind{chat.KindGroup, chat.KindPrivate} {
		index := slices.IndexFunc(m.lists[kind], func(c chat.Conversation) bool { return c.ID == id })
		if index >= 0 {
			return kind, index
		}
	}
	return "", -1
}

// moveToFront moves the entry at index of kind's list to position 0.
func (m *Manager) moveToFront(kind chat.Kind, index int) {
	list := m.lists[kind]
	if index <= 0 {
		return
	}
	entry := list[index]
	copy(list[1:index+1], list[:index])
	list[0] = entry
}

// UpdatePreviewFromLiveMessage sets the conversation's preview from
// message and moves the conversation to the front of its list. Unknown
// conversations are ignored.
func (m *Manager) UpdatePreviewFromLiveMessage(message chat.Message) {
	kind, index := m.find(message.ConversationID)
	if index < 0 {
		m.logger.Debug("live message for conversation not in roster",
			"conversation_id", message.ConversationID,
			"message_id", message.ID,
		)
		return
	}
	conversation := &m.lists[kind][index]
	preview := message.Preview()
	conversation.LastMessagePreview = &preview
	if message.CreatedAt.After(conversation.UpdatedAt) {
		conversation.UpdatedAt = message.CreatedAt
	}
	m.moveToFront(kind, index)
	m.onChange()
}

// ApplyStatusChange rewrites the conversation's preview when the
// previewed message is edited or deleted. Recency is unchanged.
func (m *Manager) ApplyStatusChange(id ref.ConversationID, message ref.MessageID, status chat.Status, content *string) {
	kind, index := m.find(id)
	if index < 0 || message.IsZero() {
		return
	}
	current := m.lists[kind][index].LastMessagePreview
	if current == nil || current.MessageID != message {
		return
	}
	preview := *current
	switch {
	case status == chat.StatusDeleted:
		preview.Content = "message deleted"
	case content != nil:
		preview.Content = *content
	default:
		return
	}
	m.lists[kind][index].LastMessagePreview = &preview
	m.onChange()
}

// ApplyMemberAdded adds member to the conversation. When the local
// user is added to a group the roster does not know yet, the group
// list is reloaded to pick it up.
func (m *Manager) ApplyMemberAdded(id ref.ConversationID, member chat.Member) {
	kind, index := m.find(id)
	if index < 0 {
		if member.ID == m.self {
			m.logger.Info("added to unknown conversation, reloading groups", "conversation_id", id)
			m.LoadGroups(m.ctx)
		}
		return
	}
	m.lists[kind][index].AddMember(member)
	m.onChange()
}

// ApplyMemberRemoved removes user from the conversation. Removal of
// the local user drops a group from the roster. Private chats are
// never dropped.
func (m *Manager) ApplyMemberRemoved(id ref.ConversationID, user ref.UserID) {
	kind, index := m.find(id)
	if index < 0 {
		return
	}
	if user == m.self {
		if kind == chat.KindGroup {
			m.Remove(id)
		}
		return
	}
	if m.lists[kind][index].RemoveMember(user) {
		m.onChange()
	}
}

// Remove drops a group from the roster. It reports whether a group was
// removed; private chats are never removed.
func (m *Manager) Remove(id ref.ConversationID) bool {
	kind, index := m.find(id)
	if index < 0 || kind != chat.KindGroup {
		return false
	}
	m.lists[kind] = slices.Delete(m.lists[kind], index, index+1)
	m.logger.Info("conversation removed from roster", "conversation_id", id)
	m.onChange()
	return true
}

// Conversation returns a copy of the conversation with id.
func (m *Manager) Conversation(id ref.ConversationID) (chat.Conversation, bool) {
	kind, index := m.find(id)
	if index < 0 {
		return chat.Conversation{}, false
	}
	return m.lists[kind][index].Clone(), true
}

// Groups returns copies of the groups, most recent first.
func (m *Manager) Groups() []chat.Conversation {
	return cloneAll(m.lists[chat.KindGroup])
}

// Private returns copies of the private chats, most recent first.
func (m *Manager) Private() []chat.Conversation {
	return cloneAll(m.lists[chat.KindPrivate])
}

func cloneAll(list []chat.Conversation) []chat.Conversation {
	out := make([]chat.Conversation, len(list))
	for i, conversation := range list {
		out[i] = conversation.Clone()
	}
	return out
}

// privateWith returns the index of the private chat with peer.
func (m *Manager) privateWith(peer ref.UserID) int {
	return slices.IndexFunc(m.lists[chat.KindPrivate], func(c chat.Conversation) bool {
		other, ok := c.PeerOf(m.self)
		return ok && other.ID == peer
	})
}

// StartPrivateChat delivers the private chat with peer to callback,
// creating it on the server only when the roster has none. Concurrent
// requests for the same peer share one create.
func (m *Manager) StartPrivateChat(ctx context.Context, peer ref.UserID, callback PrivateChatCallback) {
	if callback == nil {
		callback = func(chat.Conversation, error) {}
	}
	if peer.IsZero() {
		callback(chat.Conversation{}, errors.New("roster: peer id is required"))
		return
	}
	if peer == m.self {
		callback(chat.Conversation{}, ErrSelfChat)
		return
	}
	if index := m.privateWith(peer); index >= 0 {
		callback(m.lists[chat.KindPrivate][index].Clone(), nil)
		return
	}
	if waiting, ok := m.pendingPrivate[peer]; ok {
		m.pendingPrivate[peer] = append(waiting, callback)
		return
	}
	m.pendingPrivate[peer] = []PrivateChatCallback{callback}

	m.scheduler.Go(func() func() {
		conversation, err := m.collaborator.CreatePrivateConversation(ctx, peer)
		return func() { m.finishPrivateChat(peer, conversation, err) }
	})
}

func (m *Manager) finishPrivateChat(peer ref.UserID, conversation chat.Conversation, err error) {
	callbacks := m.pendingPrivate[peer]
	delete(m.pendingPrivate, peer)

	if err != nil {
		err = fmt.Errorf("roster: starting private chat with %s: %w", peer, err)
		m.logger.Warn("private chat creation failed", "peer_id", peer, "error", err)
	} else {
		// A roster load may have delivered the same chat meanwhile.
		if kind, index := m.find(conversation.ID); index >= 0 {
			conversation = m.lists[kind][index]
		} else if index := m.privateWith(peer); index >= 0 {
			conversation = m.lists[chat.KindPrivate][index]
		} else {
			m.lists[chat.KindPrivate] = slices.Insert(m.lists[chat.KindPrivate], 0, conversation.Clone())
			m.onChange()
		}
	}
	for _, callback := range callbacks {
		callback(conversation.Clone(), err)
	}
}
