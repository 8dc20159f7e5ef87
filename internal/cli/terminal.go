// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// =============================================================================
// TERMINAL HELPERS
// =============================================================================

// isTTY reports whether stdout is an interactive terminal. Markdown and
// color are only emitted on a TTY so piped output stays clean.
func isTTY() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// colorEnabled reports whether the terminal supports any color at all.
func colorEnabled() bool {
	return isTTY() && termenv.ColorProfile() != termenv.Ascii
}

// newMarkdownRenderer builds a glamour renderer for CLI output, or nil
// when rendering is not appropriate.
func newMarkdownRenderer(width int) *glamour.TermRenderer {
	if !isTTY() {
		return nil
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return renderer
}

// renderMarkdown renders content when a renderer is available, otherwise
// returns it untouched.
func renderMarkdown(renderer *glamour.TermRenderer, content string) string {
	if renderer == nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
