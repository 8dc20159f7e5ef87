// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the docchat TUI.
//
// Components are self-contained renderers: each takes its data and width
// and returns styled text. None of them reach into the store; the chat
// view feeds them snapshots.
package components
