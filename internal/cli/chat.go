// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler.
//
// Handles "docchat chat", a line-oriented REPL for terminals where the
// full TUI is unwanted (ssh sessions, scripts around expect, screen
// readers).
//
// Interactive commands:
//   /new              Start a new conversation
//   /list             List conversations
//   /switch ID        Switch to a conversation
//   /history          Show the current conversation
//   /quit, /q         Exit
//   Ctrl+D            Exit
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/morganforge/docchat-tui/internal/config"
	"github.com/morganforge/docchat-tui/internal/model"
	"github.com/morganforge/docchat-tui/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	chatPromptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	chatInfoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	chatWarnStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)
)

// =============================================================================
// REPL
// =============================================================================

// chatREPL holds the interactive session state.
type chatREPL struct {
	line           *liner.State
	historyFile    string
	cfg            *config.Config
	conversationID string
}

// HandleChat runs the interactive chat command.
func HandleChat(args Args) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	repl := newChatREPL(cfg)
	defer repl.close()

	repl.conversationID = args.ConversationID
	fmt.Println(chatInfoStyle.Render("docchat interactive chat. /help for commands, Ctrl+D to exit."))
	repl.loop(args)
}

// newChatREPL creates the REPL with input history support.
func newChatREPL(cfg *config.Config) *chatREPL {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	historyFile := ""
	if dir, err := config.Dir(); err == nil {
		historyFile = filepath.Join(dir, "chat_history")
		if f, err := os.Open(historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	return &chatREPL{line: line, historyFile: historyFile, cfg: cfg}
}

// close persists input history and restores the terminal.
func (r *chatREPL) close() {
	if r.historyFile != "" {
		if f, err := os.Create(r.historyFile); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// loop reads and dispatches input until exit.
func (r *chatREPL) loop(args Args) {
	client := newClient(r.cfg)

	for {
		input, err := r.line.Prompt(chatPromptStyle.Render("you> "))
		if err == liner.ErrPromptAborted {
			continue
		}
		if err == io.EOF {
			fmt.Println()
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := r.handleCommand(input); quit {
				return
			}
			continue
		}

		result := runTurn(client, r.cfg, r.conversationID, input, turnOptions{
			Live:    true,
			Verbose: args.Verbose,
		})
		if result.Err != nil {
			fmt.Println(chatWarnStyle.Render("error: " + result.Err.Error()))
			continue
		}
		r.conversationID = result.ConversationID
		if r.cfg.UI.ShowCitations {
			printCitations(result.Citations)
		}
	}
}

// handleCommand dispatches a /command. Returns true to exit the REPL.
func (r *chatREPL) handleCommand(input string) bool {
	fields := strings.Fields(input)
	cmd := fields[0]

	switch cmd {
	case "/quit", "/q", "/exit":
		return true

	case "/new":
		r.conversationID = ""
		fmt.Println(chatInfoStyle.Render("starting a new conversation"))

	case "/list":
		r.listConversations()

	case "/switch":
		if len(fields) < 2 {
			fmt.Println(chatWarnStyle.Render("usage: /switch CONVERSATION_ID"))
			return false
		}
		r.conversationID = fields[1]
		fmt.Println(chatInfoStyle.Render("switched to " + r.conversationID))

	case "/history":
		r.showHistory()

	case "/help", "/h":
		fmt.Println(chatInfoStyle.Render(
			"/new  /list  /switch ID  /history  /quit"))

	default:
		fmt.Println(chatWarnStyle.Render("unknown command: " + cmd))
	}
	return false
}

// listConversations prints the conversation list.
func (r *chatREPL) listConversations() {
	client := newClient(r.cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	convs, err := client.ListConversations(ctx)
	if err != nil {
		fmt.Println(chatWarnStyle.Render("error: " + err.Error()))
		return
	}
	if len(convs) == 0 {
		fmt.Println(chatInfoStyle.Render("no conversations yet"))
		return
	}
	for _, conv := range convs {
		marker := "  "
		if conv.ID == r.conversationID {
			marker = "* "
		}
		fmt.Printf("%s%s  %s\n", marker, conv.ID, conv.DisplayTitle())
	}
}

// showHistory prints the current conversation's messages.
func (r *chatREPL) showHistory() {
	if r.conversationID == "" {
		fmt.Println(chatInfoStyle.Render("no conversation selected"))
		return
	}
	client := newClient(r.cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msgs, err := client.GetHistory(ctx, r.conversationID)
	if err != nil {
		fmt.Println(chatWarnStyle.Render("error: " + err.Error()))
		return
	}
	for _, msg := range msgs {
		switch msg.Role {
		case model.RoleUser:
			fmt.Println(chatPromptStyle.Render("you> ") + msg.Content)
		case model.RoleAssistant:
			fmt.Println(msg.Content)
		}
		fmt.Println()
	}
}
