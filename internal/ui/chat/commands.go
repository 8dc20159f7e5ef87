// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tea.Cmd wrappers around the controller. Each command does its blocking
// work off the update loop and reports back with a result message.
package chat

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/docchat-tui/internal/model"
)

// sendCmd posts a user turn and attaches the reply stream.
func (m *Model) sendCmd(text string) tea.Cmd {
	return func() tea.Msg {
		convID, err := m.controller.Send(context.Background(), text)
		return SendResultMsg{ConversationID: convID, Err: err}
	}
}

// selectCmd switches conversations, loading history.
func (m *Model) selectCmd(conversationID string) tea.Cmd {
	return func() tea.Msg {
		err := m.controller.Select(context.Background(), conversationID)
		return SelectResultMsg{ConversationID: conversationID, Err: err}
	}
}

// refreshCmd reloads the conversation list.
func (m *Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return RefreshResultMsg{Err: m.controller.Refresh(context.Background())}
	}
}

// openCitedCmd downloads a cited source PDF to a temp file and hands it to
// the platform's default viewer.
func (m *Model) openCitedCmd(entry model.CitationMapEntry) tea.Cmd {
	return func() tea.Msg {
		path, err := m.client.FetchDocumentPDF(context.Background(), entry.DocID, os.TempDir())
		if err != nil {
			return OpenCitedMsg{DocID: entry.DocID, Page: entry.PageNumber, Err: err}
		}
		return OpenCitedMsg{DocID: entry.DocID, Page: entry.PageNumber, Err: openFile(path)}
	}
}

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// healthCmd probes the backend.
func (m *Model) healthCmd() tea.Cmd {
	return func() tea.Msg {
		health, err := m.client.CheckHealth(context.Background())
		return HealthMsg{Health: health, Err: err}
	}
}
