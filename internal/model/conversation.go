// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the docchat client.
package model

import "time"

// DefaultTitle is shown for conversations the backend has not titled yet.
const DefaultTitle = "Untitled"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation identifies a persistent thread of turns. Message history is
// held separately in the store, keyed by the conversation id.
type Conversation struct {
	ID        string     `json:"conversation_id"`
	Title     string     `json:"title,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// DisplayTitle returns the title or the default placeholder.
func (c Conversation) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return DefaultTitle
}

// NewLocalConversation creates an optimistic conversation entry titled from
// the first question. Used when the post-send list refresh fails and the
// client must show something for the server-assigned id.
func NewLocalConversation(id, firstQuestion string) Conversation {
	title := firstQuestion
	if runes := []rune(title); len(runes) > 80 {
		title = string(runes[:80])
	}
	return Conversation{ID: id, Title: title}
}
