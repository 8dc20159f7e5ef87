// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Bubble Tea message types for the chat view. Async work (controller calls,
// store change notifications, health probes) lands here; the Update loop
// stays synchronous.
package chat

import (
	"github.com/morganforge/docchat-tui/internal/api"
	"github.com/morganforge/docchat-tui/internal/store"
)

// =============================================================================
// STORE MESSAGES
// =============================================================================

// StoreChangedMsg reports that one store partition changed. Pumped into the
// program by the store subscription wired up in main.
type StoreChangedMsg struct {
	Partition store.Partition
}

// NoticeMsg carries a transient notice from the controller (stream info
// events, cache fallbacks, reconnects).
type NoticeMsg struct {
	ConversationID string
	Message        string
}

// =============================================================================
// CONTROLLER RESULT MESSAGES
// =============================================================================

// SendResultMsg reports the outcome of sending a turn.
type SendResultMsg struct {
	ConversationID string
	Err            error
}

// SelectResultMsg reports the outcome of switching conversations.
type SelectResultMsg struct {
	ConversationID string
	Err            error
}

// RefreshResultMsg reports the outcome of reloading the conversation list.
type RefreshResultMsg struct {
	Err error
}

// OpenCitedMsg reports the outcome of fetching and opening a cited PDF.
type OpenCitedMsg struct {
	DocID string
	Page  int
	Err   error
}

// =============================================================================
// BACKEND STATUS MESSAGES
// =============================================================================

// HealthMsg reports a backend health probe result.
type HealthMsg struct {
	Health *api.Health
	Err    error
}
