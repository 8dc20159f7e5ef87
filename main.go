// docchat TUI - a terminal client for chatting with your documents.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/docchat-tui/internal/api"
	"github.com/morganforge/docchat-tui/internal/cache"
	"github.com/morganforge/docchat-tui/internal/cli"
	"github.com/morganforge/docchat-tui/internal/config"
	"github.com/morganforge/docchat-tui/internal/controller"
	"github.com/morganforge/docchat-tui/internal/store"
	"github.com/morganforge/docchat-tui/internal/ui/chat"
	"github.com/morganforge/docchat-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI()
	case cli.CmdAsk:
		cli.HandleAsk(args)
	case cli.CmdChat:
		cli.HandleChat(args)
	case cli.CmdStatus:
		cli.HandleStatus(args)
	case cli.CmdUpload:
		cli.HandleUpload(args)
	case cli.CmdConfig:
		cli.HandleConfig(args)
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	}
}

// runTUI wires the full interactive client together and runs it.
func runTUI() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	styles.ForceBackground(cfg.UI.Theme)

	client := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL: cfg.ServerURL,
		Timeout: time.Duration(cfg.Stream.RequestTimeoutSecs) * time.Second,
	})
	st := store.New()

	// Notices arrive before the program exists; buffer until it runs.
	noticeCh := make(chan chat.NoticeMsg, 16)

	opts := controller.Options{
		Client:               client,
		Store:                st,
		ReconnectDelay:       time.Duration(cfg.Stream.ReconnectDelayMs) * time.Millisecond,
		MaxReconnectAttempts: cfg.Stream.MaxReconnectAttempts,
		RequestTimeout:       time.Duration(cfg.Stream.RequestTimeoutSecs) * time.Second,
		OnNotice: func(conversationID, message string) {
			select {
			case noticeCh <- chat.NoticeMsg{ConversationID: conversationID, Message: message}:
			default:
			}
		},
	}

	if cfg.Cache.Enabled {
		if path, err := cfg.CachePath(); err == nil {
			if historyCache, err := cache.Open(path); err == nil {
				defer historyCache.Close()
				opts.Cache = historyCache
			}
		}
	}

	ctrl, err := controller.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer ctrl.Close()

	m := chat.New(chat.Options{
		Config:     cfg,
		Store:      st,
		Controller: ctrl,
		Client:     client,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())

	// Pump store changes and controller notices into the event loop.
	unsubscribe := st.Subscribe(func(p store.Partition) {
		program.Send(chat.StoreChangedMsg{Partition: p})
	})
	defer unsubscribe()

	go func() {
		for notice := range noticeCh {
			program.Send(notice)
		}
	}()

	// Live config reload: surface it, the next start applies it fully.
	if watcher, err := config.NewWatcher(func(*config.Config) {
		program.Send(chat.NoticeMsg{Message: "config changed, restart to apply"})
	}); err == nil {
		if watcher.Watch() == nil {
			defer watcher.Close()
		}
	}

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
