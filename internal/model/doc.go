// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the docchat client.
//
// The package defines the wire shapes the backend speaks (conversations,
// messages, citations, stream events) and the ephemeral streaming state the
// store tracks per conversation. All JSON tags match the backend's
// snake_case field names exactly.
//
// # Key Types
//
// Persisted data:
//   - Conversation: a thread identified by a server-issued id
//   - Message: one immutable turn entry (user, assistant, system, tool)
//   - CitationMapEntry: a source reference keyed by inline marker number
//
// Ephemeral data:
//   - StreamingState: the in-progress assistant turn for one conversation
//   - Event: a decoded server-push event with its typed payload
//
// Event payloads arrive loosely typed; ParseEvent validates them at the
// decode boundary and rejects shapes it does not recognize so that
// undefined-like values never propagate into the store.
package model
