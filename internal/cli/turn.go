// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/morganforge/docchat-tui/internal/api"
	"github.com/morganforge/docchat-tui/internal/config"
	"github.com/morganforge/docchat-tui/internal/model"
	"github.com/morganforge/docchat-tui/internal/sse"
	"github.com/morganforge/docchat-tui/internal/util"
)

// =============================================================================
// TURN RUNNER
// =============================================================================

// turnResult is the outcome of one question/answer exchange.
type turnResult struct {
	ConversationID string
	Answer         string
	Citations      []model.CitationMapEntry
	Err            error
}

// turnOptions controls how a CLI turn behaves.
type turnOptions struct {
	// Echo deltas to stdout as they arrive.
	Live bool
	// Print tool and info events to stderr.
	Verbose bool
}

// newClient builds a backend client from configuration.
func newClient(cfg *config.Config) *api.Client {
	return api.NewClientWithConfig(&api.ClientConfig{
		BaseURL: cfg.ServerURL,
		Timeout: time.Duration(cfg.Stream.RequestTimeoutSecs) * time.Second,
	})
}

// runTurn sends one question and consumes the full reply stream. An empty
// conversationID creates a new conversation; the result carries the id the
// turn landed in.
func runTurn(client *api.Client, cfg *config.Config, conversationID, question string, opts turnOptions) turnResult {
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Stream.RequestTimeoutSecs)*time.Second)
	receipt, err := client.SendTurn(ctx, conversationID, question)
	cancel()
	if err != nil {
		return turnResult{Err: err}
	}

	var (
		buffer    strings.Builder
		citations []model.CitationMapEntry
		streamErr error
	)

	session, err := sse.Open(sse.Config{
		URL:            client.StreamURL(receipt.ConversationID),
		ReconnectDelay: time.Duration(cfg.Stream.ReconnectDelayMs) * time.Millisecond,
		MaxAttempts:    cfg.Stream.MaxReconnectAttempts,
		OnEvent: func(ev model.Event) {
			switch ev.Type {
			case model.EventTextDelta:
				buffer.WriteString(ev.Delta)
				if opts.Live {
					fmt.Print(ev.Delta)
				}
			case model.EventCitationMap:
				citations = ev.Map
			case model.EventCitation:
				citations = model.MergeCitation(citations, ev.Citation)
			case model.EventToolCallStarted:
				if opts.Verbose {
					fmt.Fprintf(os.Stderr, "[tool: %s]\n", ev.Tool)
				}
			case model.EventInfo:
				if opts.Verbose {
					fmt.Fprintf(os.Stderr, "[%s]\n", ev.Message)
				}
			case model.EventError:
				streamErr = errors.New(ev.Message)
			}
		},
		OnStateChange: func(st sse.State, err error) {
			switch st {
			case sse.StateRetrying:
				if opts.Verbose {
					fmt.Fprintln(os.Stderr, "[connection lost, retrying]")
				}
			case sse.StateFailed:
				if err != nil {
					streamErr = err
				} else {
					streamErr = errors.New("stream connection failed")
				}
			}
		},
	})
	if err != nil {
		return turnResult{ConversationID: receipt.ConversationID, Err: err}
	}
	defer session.Close()

	<-session.Done()
	if opts.Live && buffer.Len() > 0 {
		fmt.Println()
	}

	return turnResult{
		ConversationID: receipt.ConversationID,
		Answer:         buffer.String(),
		Citations:      citations,
		Err:            streamErr,
	}
}

// printCitations writes the source list for an answer.
func printCitations(citations []model.CitationMapEntry) {
	if len(citations) == 0 {
		return
	}
	fmt.Println("\nSources:")
	for _, c := range citations {
		line := fmt.Sprintf("  [%d] %s", c.ID, c.DocID)
		if c.PageNumber > 0 {
			line += fmt.Sprintf(" p.%d", c.PageNumber)
		}
		if c.TextSnippet != "" {
			line += " - " + util.TruncateRunes(c.TextSnippet, 100)
		}
		fmt.Println(line)
	}
}
