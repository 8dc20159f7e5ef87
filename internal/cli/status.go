// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Backend status command handler.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/docchat-tui/internal/config"
	"github.com/morganforge/docchat-tui/internal/ui/styles"
)

var (
	statusOKStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true)

	statusBadStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)
)

// HandleStatus runs the status command.
func HandleStatus(args Args) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	client := newClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	health, err := client.CheckHealth(ctx)

	if args.JSON {
		out := map[string]any{
			"server_url": cfg.ServerURL,
			"reachable":  err == nil,
		}
		if health != nil {
			out["status"] = health.Status
			out["redis"] = health.Redis
			out["qdrant"] = health.Qdrant
		}
		if err != nil {
			out["error"] = err.Error()
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(out)
		if err != nil {
			os.Exit(1)
		}
		return
	}

	fmt.Printf("Backend:  %s\n", cfg.ServerURL)
	if err != nil {
		fmt.Printf("Status:   %s (%v)\n", badge("down", false), err)
		os.Exit(1)
	}

	fmt.Printf("Status:   %s\n", badge(health.Status, health.Status == "ok"))
	if health.Redis != "" {
		fmt.Printf("Redis:    %s\n", badge(health.Redis, health.Redis == "ok"))
	}
	if health.Qdrant != "" {
		fmt.Printf("Qdrant:   %s\n", badge(health.Qdrant, health.Qdrant == "ok"))
	}
}

// badge colorizes a status word when the terminal allows it.
func badge(word string, ok bool) string {
	if !colorEnabled() {
		return word
	}
	if ok {
		return statusOKStyle.Render(word)
	}
	return statusBadStyle.Render(word)
}
