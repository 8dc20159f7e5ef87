// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single question command handler.
//
// Handles "docchat ask" which sends one question and streams the answer
// to stdout.
//
// Examples:
//   docchat ask "What does the contract say about termination?"
//   docchat ask -c 8f41c2 "And the notice period?"
//   docchat ask --json "List the parties" | jq .answer
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/morganforge/docchat-tui/internal/config"
	"github.com/morganforge/docchat-tui/internal/model"
)

// HandleAsk runs the ask command.
func HandleAsk(args Args) {
	if args.Query == "" {
		fmt.Fprintln(os.Stderr, "error: no question given")
		fmt.Fprintln(os.Stderr, `usage: docchat ask "question"`)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	client := newClient(cfg)

	// Raw deltas stream live only when nobody needs the final answer as a
	// single unit.
	live := !args.JSON && !isTTY()
	result := runTurn(client, cfg, args.ConversationID, args.Query, turnOptions{
		Live:    live,
		Verbose: args.Verbose,
	})
	if result.Err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", result.Err)
		os.Exit(1)
	}

	switch {
	case args.JSON:
		printAskJSON(result)
	case live:
		// Already printed while streaming.
	default:
		renderer := newMarkdownRenderer(cfg.UI.MarkdownWidth)
		fmt.Println(renderMarkdown(renderer, result.Answer))
		if cfg.UI.ShowCitations {
			printCitations(result.Citations)
		}
	}

	if args.Verbose {
		fmt.Fprintf(os.Stderr, "[conversation: %s]\n", result.ConversationID)
	}
}

// printAskJSON emits the answer as a machine-readable object.
func printAskJSON(result turnResult) {
	out := struct {
		ConversationID string                   `json:"conversation_id"`
		Answer         string                   `json:"answer"`
		Citations      []model.CitationMapEntry `json:"citations,omitempty"`
	}{
		ConversationID: result.ConversationID,
		Answer:         result.Answer,
		Citations:      result.Citations,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}
