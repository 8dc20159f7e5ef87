// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/docchat-tui/internal/api"
	"github.com/morganforge/docchat-tui/internal/config"
	"github.com/morganforge/docchat-tui/internal/controller"
	"github.com/morganforge/docchat-tui/internal/store"
	"github.com/morganforge/docchat-tui/internal/ui/components"
	"github.com/morganforge/docchat-tui/internal/ui/styles"
)

// =============================================================================
// FOCUS
// =============================================================================

// focusArea tracks which pane receives navigation keys.
type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	cfg        *config.Config
	theme      *styles.Theme
	store      *store.Store
	controller *controller.Controller
	client     *api.Client

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  components.Spinner
	renderer *components.MessageRenderer

	// Key bindings
	keyMap KeyMap

	// Layout
	width        int
	height       int
	sidebarWidth int
	ready        bool

	// Sidebar navigation
	focus  focusArea
	cursor int

	// Backend status line
	backendUp    bool
	backendProbe bool

	// Transient notifications
	toasts []components.Toast

	showHelp bool
}

// Options bundles the dependencies for the chat view.
type Options struct {
	Config     *config.Config
	Store      *store.Store
	Controller *controller.Controller
	Client     *api.Client
}

// New creates the chat view model.
func New(opts Options) *Model {
	theme := styles.NewTheme(80, 24)

	input := textinput.New()
	input.Placeholder = "Ask about your documents..."
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.CharLimit = 4000
	input.Focus()

	return &Model{
		cfg:          opts.Config,
		theme:        theme,
		store:        opts.Store,
		controller:   opts.Controller,
		client:       opts.Client,
		input:        input,
		spinner:      components.NewSpinner(theme),
		renderer:     components.NewMessageRenderer(theme, opts.Config.UI.MarkdownWidth),
		keyMap:       DefaultKeyMap(),
		sidebarWidth: 28,
		focus:        focusInput,
	}
}

// Init starts the initial data loads.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), m.healthCmd(), textinput.Blink)
}

// selectedIndex returns the sidebar index of the selected conversation,
// -1 when nothing matches.
func (m *Model) selectedIndex() int {
	selected := m.store.Selected()
	for i, conv := range m.store.Conversations() {
		if conv.ID == selected {
			return i
		}
	}
	return -1
}

// addToast queues a transient notification and its expiry timer.
func (m *Model) addToast(toast components.Toast) tea.Cmd {
	m.toasts = append(m.toasts, toast)
	// Cap the stack; old toasts scroll away rather than flooding the view.
	if len(m.toasts) > 3 {
		m.toasts = m.toasts[len(m.toasts)-3:]
	}
	return toast.ExpireCmd()
}

// dropToast removes an expired toast by id.
func (m *Model) dropToast(id int) {
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
}
