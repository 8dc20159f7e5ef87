// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the docchat client.
package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLES
// =============================================================================

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Valid reports whether the role is one the backend can emit.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	}
	return false
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// LocalIDPrefix marks synthetic ids assigned to optimistic user messages
// before the server has persisted them. Reconciliation replaces the whole
// message list, so local entries disappear once the durable copy arrives.
const LocalIDPrefix = "local-"

// Message is one immutable turn entry in a conversation's history.
//
// Metadata is opaque structured data; for assistant messages it may carry
// the citation map under the "citations" key once history is reloaded.
type Message struct {
	ID             string          `json:"message_id"`
	ConversationID string          `json:"conversation_id"`
	Role           Role            `json:"role"`
	Content        string          `json:"content"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      *time.Time      `json:"created_at,omitempty"`
}

// NewLocalUserMessage creates an optimistic user message with a synthetic id.
// It is appended to history before server confirmation and superseded by the
// next full history reload.
func NewLocalUserMessage(conversationID, content string) Message {
	return Message{
		ID:             LocalIDPrefix + uuid.NewString(),
		ConversationID: conversationID,
		Role:           RoleUser,
		Content:        content,
		Metadata:       json.RawMessage(`{}`),
	}
}

// IsLocal reports whether the message carries a synthetic client-generated id.
func (m Message) IsLocal() bool {
	return strings.HasPrefix(m.ID, LocalIDPrefix)
}

// Citations extracts the citation map from assistant message metadata.
// Returns nil when the metadata carries no recognizable citation list.
func (m Message) Citations() []CitationMapEntry {
	if len(m.Metadata) == 0 {
		return nil
	}
	var meta struct {
		Citations []CitationMapEntry `json:"citations"`
	}
	if err := json.Unmarshal(m.Metadata, &meta); err != nil {
		return nil
	}
	return meta.Citations
}

// Preview returns the first maxRunes characters of the content, suitable for
// sidebar and listing display.
func (m Message) Preview(maxRunes int) string {
	content := strings.TrimSpace(m.Content)
	content = strings.ReplaceAll(content, "\n", " ")
	runes := []rune(content)
	if len(runes) <= maxRunes {
		return content
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}
