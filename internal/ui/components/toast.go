// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Non-blocking toasts in the lazygit style: they sit in a corner and
// auto-dismiss instead of stealing focus with a modal.
package components

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/docchat-tui/internal/ui/styles"
)

// =============================================================================
// TOAST TYPES
// =============================================================================

// ToastKind represents the type of toast notification.
type ToastKind int

const (
	// ToastKindStatus is an informational toast.
	ToastKindStatus ToastKind = iota
	// ToastKindError is an error toast.
	ToastKindError
)

// DefaultToastDuration is the auto-dismiss duration for status toasts.
const DefaultToastDuration = 4 * time.Second

// ErrorToastDuration is the auto-dismiss duration for error toasts,
// longer so they can actually be read.
const ErrorToastDuration = 8 * time.Second

var (
	toastIDMu sync.Mutex
	toastID   int
)

func nextToastID() int {
	toastIDMu.Lock()
	defer toastIDMu.Unlock()
	toastID++
	return toastID
}

// =============================================================================
// TOAST
// =============================================================================

// Toast is one transient notification.
type Toast struct {
	ID        int
	Message   string
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
}

// NewStatusToast creates an informational toast.
func NewStatusToast(message string) Toast {
	return Toast{
		ID:        nextToastID(),
		Message:   message,
		Kind:      ToastKindStatus,
		CreatedAt: time.Now(),
		Duration:  DefaultToastDuration,
	}
}

// NewErrorToast creates an error toast.
func NewErrorToast(message string) Toast {
	return Toast{
		ID:        nextToastID(),
		Message:   message,
		Kind:      ToastKindError,
		CreatedAt: time.Now(),
		Duration:  ErrorToastDuration,
	}
}

// Expired reports whether the toast should be dismissed.
func (t Toast) Expired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

// ToastExpiredMsg fires when a toast's display time runs out.
type ToastExpiredMsg struct {
	ID int
}

// ExpireCmd schedules the dismissal message for this toast.
func (t Toast) ExpireCmd() tea.Cmd {
	id := t.ID
	return tea.Tick(t.Duration, func(time.Time) tea.Msg {
		return ToastExpiredMsg{ID: id}
	})
}

// Render draws the toast with the kind's styling.
func (t Toast) Render(theme *styles.Theme) string {
	if t.Kind == ToastKindError {
		return theme.ToastError.Render(t.Message)
	}
	return theme.Toast.Render(t.Message)
}
