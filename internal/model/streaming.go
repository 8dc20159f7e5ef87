// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the docchat client.
package model

// =============================================================================
// STREAMING STATE
// =============================================================================

// ToolStatus describes a backend tool invocation in flight.
type ToolStatus struct {
	Tool   string
	Status string
}

// StreamingState is the ephemeral in-progress assistant turn for one
// conversation. It is never persisted: the durable record arrives via the
// history reload triggered by the done event. At most one streaming state is
// active per conversation; a new activation resets the buffer.
type StreamingState struct {
	ConversationID string
	Buffer         string
	Active         bool
	ToolStatus     *ToolStatus
	CitationMap    []CitationMapEntry
}
