// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller sequences the chat workflow.
//
// The Controller sits between the backend client, the live event stream,
// and the state store. It owns the rules the store refuses to know:
//
//   - at most one live stream exists and it follows the selection: a
//     selection change closes the previous stream, loads history, then
//     attaches the new conversation's stream and keeps it attached,
//     reattaching after the server ends it at the close of a turn
//   - a sent message appears immediately as a local placeholder and is
//     superseded by the persisted history reloaded when the turn's done
//     event arrives
//   - history loads are fenced by a selection generation, so a slow fetch
//     for a conversation the user already left never lands
//
// All methods are safe for concurrent use.
package controller
