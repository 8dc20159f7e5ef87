// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration inspection command handler.
package cli

import (
	"fmt"
	"os"

	"github.com/morganforge/docchat-tui/internal/config"
)

// HandleConfig runs the config command.
func HandleConfig(args Args) {
	switch args.Subcommand {
	case "", "show":
		showConfig()
	case "path":
		path, err := config.Path()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(path)
	case "init":
		initConfig()
	default:
		fmt.Fprintf(os.Stderr, "unknown config subcommand: %s\n", args.Subcommand)
		fmt.Fprintln(os.Stderr, "usage: docchat config [show|path|init]")
		os.Exit(1)
	}
}

// showConfig prints the effective configuration.
func showConfig() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("server_url             = %s\n", cfg.ServerURL)
	fmt.Printf("reconnect_delay_ms     = %d\n", cfg.Stream.ReconnectDelayMs)
	fmt.Printf("max_reconnect_attempts = %d\n", cfg.Stream.MaxReconnectAttempts)
	fmt.Printf("request_timeout_secs   = %d\n", cfg.Stream.RequestTimeoutSecs)
	fmt.Printf("cache_enabled          = %t\n", cfg.Cache.Enabled)
	fmt.Printf("theme                  = %s\n", cfg.UI.Theme)
	fmt.Printf("markdown_width         = %d\n", cfg.UI.MarkdownWidth)
	fmt.Printf("show_citations         = %t\n", cfg.UI.ShowCitations)
}

// initConfig writes the default config file when none exists yet.
func initConfig() {
	path, err := config.Path()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(os.Stderr, "config already exists: %s\n", path)
		os.Exit(1)
	}

	if err := config.Default().Save(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", path)
}
