// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the client-side conversation state.
//
// The Store is partitioned: the conversation list, per-conversation message
// history, per-conversation streaming state, per-conversation error slot,
// and the current selection change independently, and subscribers are
// notified with the partition that moved so views repaint only what they
// watch. Every read hands out copies; nothing shared escapes the lock.
//
// The store is deliberately dumb. It never talks to the network and never
// decides what a mutation means; sequencing rules (what supersedes what,
// when history replaces optimistic messages) live in the controller.
package store
