// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the docchat TUI.
//
// Colors live in colors.go as lipgloss.AdaptiveColor values so every style
// works on both light and dark terminals. Theme bundles the composed styles
// the views draw with; construct one per program and Resize it on window
// size changes.
package styles
