// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the docchat backend.
package api

import "github.com/morganforge/docchat-tui/internal/model"

// =============================================================================
// REQUEST / RESPONSE SHAPES
// =============================================================================

// chatRequest is the POST /chat payload. A nil conversation id asks the
// backend to create a new conversation.
type chatRequest struct {
	ConversationID *string `json:"conversation_id"`
	Message        string  `json:"message"`
}

// TurnReceipt is the POST /chat response: the (possibly newly created)
// conversation id and the persisted user message id.
type TurnReceipt struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// conversationsResponse is the GET /conversations envelope.
type conversationsResponse struct {
	Conversations []model.Conversation `json:"conversations"`
}

// historyResponse is the GET /conversations/{id}/history envelope.
type historyResponse struct {
	ConversationID string          `json:"conversation_id"`
	Messages       []model.Message `json:"messages"`
}

// UploadReceipt is the POST /upload response. The upload is queued for
// ingestion; DocID identifies the document for later citation resolution.
type UploadReceipt struct {
	Message string `json:"message"`
	JobID   string `json:"job_id"`
	DocID   string `json:"doc_id"`
}

// Health is the GET /health response.
type Health struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
	Qdrant string `json:"qdrant"`
}

// apiError is the error detail shape FastAPI-style backends return.
type apiError struct {
	Detail string `json:"detail"`
}
