// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/bureau-foundation/chatsync/lib/ref"
	"github.com/bureau-foundation/chatsync/lib/schema/chat"
)

type conversationsResponse struct {
	Conversations []chat.Conversation `json:"conversations"`
}

type createPrivateRequest struct {
	PeerID ref.UserID `json:"peer_id"`
}

type whoAmIResponse struct {
	User chat.Member `json:"user"`
}

// FetchMessagesBefore returns the page of messages created strictly
// before before, oldest first. A zero before fetches the newest page.
func (c *Client) FetchMessagesBefore(ctx context.Context, conversation ref.ConversationID, before time.Time) (chat.Page, error) {
	if conversation.IsZero() {
		return chat.Page{}, fmt.Errorf("messaging: conversation id is required")
	}
	query := url.Values{"limit": {strconv.Itoa(c.pageSize)}}
	if !before.IsZero() {
		query.Set("before", before.UTC().Format(time.RFC3339Nano))
	}

	var page chat.Page
	path := "/api/v1/conversations/" + url.PathEscape(conversation.String()) + "/messages"
	if err := c.doJSON(ctx, http.MethodGet, path, query, nil, &page); err != nil {
		return chat.Page{}, fmt.Errorf("messaging: fetching history of %s: %w", conversation, err)
	}

	messages := page.Messages[:0]
	for _, message := range page.Messages {
		message.Normalize()
		if message.ConversationID.IsZero() {
			message.ConversationID = conversation
		}
		if err := message.Validate(); err != nil {
			c.logger.Warn("dropping invalid history message",
				"conversation_id", conversation,
				"message_id", message.ID,
				"error", err,
			)
			continue
		}
		messages = append(messages, message)
	}
	slices.SortStableFunc(messages, func(a, b chat.Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	page.Messages = messages

	c.logger.Debug("fetched history page",
		"conversation_id", conversation,
		"before", before,
		"messages", len(page.Messages),
		"has_more", page.HasMore,
	)
	return page, nil
}

// FetchGroupConversations returns every group the user belongs to.
func (c *Client) FetchGroupConversations(ctx context.Context) ([]chat.Conversation, error) {
	return c.fetchConversations(ctx, chat.KindGroup)
}

// FetchPrivateConversations returns every private chat of the user.
func (c *Client) FetchPrivateConversations(ctx context.Context) ([]chat.Conversation, error) {
	return c.fetchConversations(ctx, chat.KindPrivate)
}

func (c *Client) fetchConversations(ctx context.Context, kind chat.Kind) ([]chat.Conversation, error) {
	var response conversationsResponse
	query := url.Values{"kind": {string(kind)}}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/conversations", query, nil, &response); err != nil {
		return nil, fmt.Errorf("messaging: fetching %s conversations: %w", kind, err)
	}

	conversations := make([]chat.Conversation, 0, len(response.Conversations))
	for _, conversation := range response.Conversations {
		if conversation.Kind == "" {
			conversation.Kind = kind
		}
		if err := conversation.Validate(); err != nil {
			c.logger.Warn("dropping invalid conversation",
				"conversation_id", conversation.ID,
				"error", err,
			)
			continue
		}
		if conversation.Kind != kind {
			c.logger.Warn("server returned conversation of the wrong kind",
				"conversation_id", conversation.ID,
				"kind", conversation.Kind,
				"requested", kind,
			)
			continue
		}
		conversations = append(conversations, conversation)
	}
	return conversations, nil
}

// CreatePrivateConversation creates, or returns the existing, private
// chat with peer.
func (c *Client) CreatePrivateConversation(ctx context.Context, peer ref.UserID) (chat.Conversation, error) {
	if peer.IsZero() {
		return chat.Conversation{}, fmt.Errorf("messaging: peer id is required")
	}
	var conversation chat.Conversation
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/conversations/private", nil, createPrivateRequest{PeerID: peer}, &conversation)
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("messaging: creating private chat with %s: %w", peer, err)
	}
	if conversation.Kind == "" {
		conversation.Kind = chat.KindPrivate
	}
	if err := conversation.Validate(); err != nil {
		return chat.Conversation{}, fmt.Errorf("messaging: creating private chat with %s: %w", peer, err)
	}
	c.logger.Info("private chat ready", "conversation_id", conversation.ID, "peer_id", peer)
	return conversation, nil
}

// WhoAmI returns the authenticated user.
func (c *Client) WhoAmI(ctx context.Context) (chat.Member, error) {
	var response whoAmIResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/me", nil, nil, &response); err != nil {
		return chat.Member{}, fmt.Errorf("messaging: whoami: %w", err)
	}
	if response.User.ID.IsZero() {
		return chat.Member{}, fmt.Errorf("messaging: whoami: response has no user id")
	}
	return response.User, nil
}
