// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/docchat-tui/internal/model"
	"github.com/morganforge/docchat-tui/internal/store"
	"github.com/morganforge/docchat-tui/internal/ui/components"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all incoming messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		cmd, handled := m.handleKey(msg)
		if handled {
			return m, cmd
		}

	case StoreChangedMsg:
		m.applyStoreChange(msg.Partition)

	case NoticeMsg:
		cmds = append(cmds, m.addToast(components.NewStatusToast(msg.Message)))

	case SendResultMsg:
		if msg.Err != nil {
			m.spinner.Stop()
			cmds = append(cmds, m.addToast(components.NewErrorToast(msg.Err.Error())))
		}

	case SelectResultMsg:
		if msg.Err != nil {
			cmds = append(cmds, m.addToast(components.NewErrorToast(msg.Err.Error())))
		}
		m.refreshViewport(true)

	case RefreshResultMsg:
		if msg.Err != nil {
			cmds = append(cmds, m.addToast(components.NewErrorToast("cannot load conversations: "+msg.Err.Error())))
		}

	case OpenCitedMsg:
		if msg.Err != nil {
			cmds = append(cmds, m.addToast(components.NewErrorToast("cannot open source: "+msg.Err.Error())))
		} else if msg.Page > 0 {
			cmds = append(cmds, m.addToast(components.NewStatusToast(
				fmt.Sprintf("opened %s - see p.%d", msg.DocID, msg.Page))))
		} else {
			cmds = append(cmds, m.addToast(components.NewStatusToast("opened "+msg.DocID)))
		}

	case HealthMsg:
		m.backendProbe = true
		m.backendUp = msg.Err == nil && msg.Health != nil && msg.Health.Status == "ok"

	case components.ToastExpiredMsg:
		m.dropToast(msg.ID)
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)

	if m.focus == focusInput {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// resize recomputes the layout for new terminal dimensions.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.theme.Resize(width, height)

	chatWidth := width - m.sidebarWidth - 1
	if chatWidth < 20 {
		chatWidth = 20
	}
	// Header, input and status bar each take a row.
	chatHeight := height - 4
	if chatHeight < 3 {
		chatHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(chatWidth, chatHeight)
		m.ready = true
	} else {
		m.viewport.Width = chatWidth
		m.viewport.Height = chatHeight
	}

	m.input.Width = chatWidth - 4
	wrap := chatWidth - 4
	if m.cfg.UI.MarkdownWidth > 0 && wrap > m.cfg.UI.MarkdownWidth {
		wrap = m.cfg.UI.MarkdownWidth
	}
	m.renderer.SetWidth(wrap)
	m.refreshViewport(false)
}

// handleKey routes a key press. Returns handled=false for keys that should
// fall through to the focused component.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.controller.Close()
		return tea.Quit, true

	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = !m.showHelp
		return nil, true

	case key.Matches(msg, m.keyMap.Focus):
		if m.focus == focusInput {
			m.focus = focusSidebar
			m.input.Blur()
			m.cursor = m.selectedIndex()
			if m.cursor < 0 {
				m.cursor = 0
			}
		} else {
			m.focus = focusInput
			m.input.Focus()
		}
		return nil, true

	case key.Matches(msg, m.keyMap.NewChat):
		m.focus = focusInput
		m.input.Focus()
		return m.selectCmd(""), true

	case key.Matches(msg, m.keyMap.Refresh):
		return m.refreshCmd(), true

	case key.Matches(msg, m.keyMap.OpenCited):
		entry, ok := m.latestCitation()
		if !ok {
			return m.addToast(components.NewStatusToast("no citations to open")), true
		}
		return m.openCitedCmd(entry), true

	case key.Matches(msg, m.keyMap.Submit):
		if m.focus == focusSidebar {
			convs := m.store.Conversations()
			if m.cursor >= 0 && m.cursor < len(convs) {
				m.focus = focusInput
				m.input.Focus()
				return m.selectCmd(convs[m.cursor].ID), true
			}
			return nil, true
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return nil, true
		}
		m.input.Reset()
		spin := m.spinner.Start("Thinking")
		return tea.Batch(m.sendCmd(text), spin), true

	case key.Matches(msg, m.keyMap.Up):
		if m.focus == focusSidebar {
			if m.cursor > 0 {
				m.cursor--
			}
			return nil, true
		}
		return nil, false

	case key.Matches(msg, m.keyMap.Down):
		if m.focus == focusSidebar {
			if m.cursor < len(m.store.Conversations())-1 {
				m.cursor++
			}
			return nil, true
		}
		return nil, false
	}

	return nil, false
}

// latestCitation picks the citation to open on C-o: the first entry of the
// in-progress stream's map if a turn is live, otherwise the first entry of
// the newest assistant message that carries any.
func (m *Model) latestCitation() (model.CitationMapEntry, bool) {
	selected := m.store.Selected()
	if selected == "" {
		return model.CitationMapEntry{}, false
	}
	if st := m.store.Streaming(selected); len(st.CitationMap) > 0 {
		return firstAddressable(st.CitationMap)
	}
	msgs := m.store.Messages(selected)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != model.RoleAssistant {
			continue
		}
		if citations := msgs[i].Citations(); len(citations) > 0 {
			return firstAddressable(citations)
		}
	}
	return model.CitationMapEntry{}, false
}

// firstAddressable returns the first entry that names a document.
func firstAddressable(entries []model.CitationMapEntry) (model.CitationMapEntry, bool) {
	for _, entry := range entries {
		if entry.DocID != "" {
			return entry, true
		}
	}
	return model.CitationMapEntry{}, false
}

// applyStoreChange re-renders whatever the changed partition feeds.
func (m *Model) applyStoreChange(p store.Partition) {
	switch p {
	case store.PartitionMessages, store.PartitionSelection:
		m.refreshViewport(true)
	case store.PartitionStreaming:
		st := m.store.Streaming(m.store.Selected())
		if st.Active {
			if st.ToolStatus != nil {
				m.spinner.SetMessage("using " + st.ToolStatus.Tool)
			} else {
				m.spinner.SetMessage("Thinking")
			}
		} else {
			m.spinner.Stop()
		}
		m.refreshViewport(true)
	case store.PartitionErrors:
		m.refreshViewport(true)
	case store.PartitionConversations:
		if m.cursor >= len(m.store.Conversations()) {
			m.cursor = len(m.store.Conversations()) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
	}
}

// refreshViewport rebuilds the message pane from the store. stick keeps
// the view pinned to the bottom, what you want while a turn streams in.
func (m *Model) refreshViewport(stick bool) {
	if !m.ready {
		return
	}
	selected := m.store.Selected()

	var sections []string
	if selected == "" {
		sections = append(sections, m.theme.ShortcutDesc.Render(
			"No conversation selected. Type a question to start one."))
	} else {
		for _, msg := range m.store.Messages(selected) {
			sections = append(sections, m.renderer.RenderMessage(msg))
		}
		if st := m.store.Streaming(selected); st.Active || st.Buffer != "" {
			if rendered := m.renderer.RenderStreaming(st); rendered != "" {
				sections = append(sections, rendered)
			}
		}
		if errMsg := m.store.Error(selected); errMsg != "" {
			sections = append(sections, m.theme.StatusBad.Render("error: "+errMsg))
		}
	}

	m.viewport.SetContent(strings.Join(sections, "\n\n"))
	if stick {
		m.viewport.GotoBottom()
	}
}
