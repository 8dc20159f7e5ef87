// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// upload.go - PDF upload command handler.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/morganforge/docchat-tui/internal/config"
)

// HandleUpload runs the upload command.
func HandleUpload(args Args) {
	if args.File == "" {
		fmt.Fprintln(os.Stderr, "error: no file given")
		fmt.Fprintln(os.Stderr, "usage: docchat upload FILE.pdf")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	client := newClient(cfg)

	// Uploads carry whole files; give them more room than a chat request.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	receipt, err := client.UploadPDF(ctx, args.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if args.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(receipt)
		return
	}

	fmt.Printf("Queued for ingestion.\n")
	if receipt.DocID != "" {
		fmt.Printf("  document: %s\n", receipt.DocID)
	}
	if receipt.JobID != "" {
		fmt.Printf("  job:      %s\n", receipt.JobID)
	}
	if receipt.Message != "" && args.Verbose {
		fmt.Printf("  message:  %s\n", receipt.Message)
	}
}
