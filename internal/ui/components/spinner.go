// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/docchat-tui/internal/ui/styles"
)

// =============================================================================
// SPINNER
// =============================================================================

// Spinner is the activity indicator shown while the assistant is working.
type Spinner struct {
	spinner  spinner.Model
	message  string
	isActive bool
}

// NewSpinner creates a spinner with ASCII-compatible frames.
func NewSpinner(theme *styles.Theme) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	s.Style = theme.Spinner
	return Spinner{spinner: s, message: "Thinking"}
}

// Start activates the spinner with a message and returns its tick command.
func (s *Spinner) Start(message string) tea.Cmd {
	s.isActive = true
	if message != "" {
		s.message = message
	}
	return s.spinner.Tick
}

// Stop deactivates the spinner.
func (s *Spinner) Stop() {
	s.isActive = false
}

// Active reports whether the spinner is running.
func (s Spinner) Active() bool {
	return s.isActive
}

// SetMessage updates the label without restarting the animation.
func (s *Spinner) SetMessage(message string) {
	s.message = message
}

// Update advances the animation.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if !s.isActive {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the spinner frame and message.
func (s Spinner) View() string {
	if !s.isActive {
		return ""
	}
	return s.spinner.View() + " " + s.message
}
