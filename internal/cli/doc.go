// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-TUI command surface: one-shot questions,
// the interactive REPL, uploads, status, and config inspection.
//
// The handlers talk to the backend through the api and sse packages
// directly; the store and controller exist for the TUI's benefit and the
// plain CLI does not need them.
package cli
