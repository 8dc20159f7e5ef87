// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/docchat-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full chat screen.
func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	header := m.renderHeader()
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), m.viewport.View())
	input := m.theme.InputContainer.Width(m.width).Render(m.input.View())
	status := m.renderStatusBar()

	screen := lipgloss.JoinVertical(lipgloss.Left, header, body, input, status)

	if len(m.toasts) > 0 {
		var lines []string
		for _, t := range m.toasts {
			lines = append(lines, t.Render(m.theme))
		}
		screen += "\n" + strings.Join(lines, "\n")
	}
	return screen
}

// renderHeader draws the brand line with the backend indicator.
func (m *Model) renderHeader() string {
	brand := m.theme.Brand.Render("docchat")
	indicator := ""
	if m.backendProbe {
		if m.backendUp {
			indicator = m.theme.StatusGood.Render(" backend: ok")
		} else {
			indicator = m.theme.StatusBad.Render(" backend: down")
		}
	}
	title := ""
	if selected := m.store.Selected(); selected != "" {
		if conv, ok := m.store.Conversation(selected); ok {
			title = "  " + util.TruncateWidth(conv.DisplayTitle(), m.width/2)
		}
	}
	return m.theme.Header.Width(m.width).Render(brand + title + indicator)
}

// renderSidebar draws the conversation list.
func (m *Model) renderSidebar() string {
	innerWidth := m.sidebarWidth - 3

	var sb strings.Builder
	sb.WriteString(m.theme.SidebarTitle.Render("Conversations"))
	sb.WriteString("\n")

	convs := m.store.Conversations()
	if len(convs) == 0 {
		sb.WriteString(m.theme.ShortcutDesc.Render("(none yet)"))
	}

	selected := m.store.Selected()
	for i, conv := range convs {
		title := util.TruncateWidth(conv.DisplayTitle(), innerWidth)
		line := util.PadRight(title, innerWidth)
		switch {
		case m.focus == focusSidebar && i == m.cursor:
			line = m.theme.ConversationCurrent.Render("> " + line)
		case conv.ID == selected:
			line = m.theme.ConversationCurrent.Render("  " + line)
		default:
			line = m.theme.ConversationItem.Render("  " + line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return m.theme.Sidebar.
		Width(m.sidebarWidth).
		Height(m.viewport.Height).
		Render(sb.String())
}

// renderStatusBar draws the bottom line: spinner or key hints.
func (m *Model) renderStatusBar() string {
	if m.spinner.Active() {
		return m.theme.StatusBar.Width(m.width).Render(m.spinner.View())
	}

	if m.showHelp {
		var hints []string
		for _, binding := range m.keyMap.ShortHelp() {
			hints = append(hints,
				m.theme.ShortcutKey.Render(binding.Help().Key)+" "+
					m.theme.ShortcutDesc.Render(binding.Help().Desc))
		}
		return m.theme.StatusBar.Width(m.width).Render(strings.Join(hints, "  "))
	}

	return m.theme.StatusBar.Width(m.width).Render(
		m.theme.ShortcutDesc.Render("C-/ help  C-n new  Tab focus  C-c quit"))
}
