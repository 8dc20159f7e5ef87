// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the main TUI: a conversation sidebar, the message
// viewport with the live streaming turn, and the input line.
//
// The view is a thin projection of the store. Store mutations arrive as
// StoreChangedMsg values pumped in by main, carrying the partition that
// moved; the view re-renders only what that partition feeds. All chat
// semantics stay in the controller, invoked through tea.Cmd wrappers in
// commands.go.
package chat
