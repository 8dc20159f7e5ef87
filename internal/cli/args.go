// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdStatus
	CmdUpload
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool

	// Command-specific
	Query          string
	File           string
	ConversationID string
	Subcommand     string

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `docchat - chat with your documents from the terminal

Docchat is a terminal client for a document-chat backend. Upload PDFs,
ask questions, and get streamed answers with source citations.

Usage:
  docchat                    Start the TUI (default)
  docchat ask "question"     Ask a single question
  docchat chat               Interactive chat
  docchat upload FILE.pdf    Upload a PDF for ingestion
  docchat status, s          Show backend status
  docchat config [show|path] Configuration
  docchat version            Show version
  docchat help               Show this help

Flags:
  -c, --conversation ID   Continue an existing conversation (ask)
  -q, --quiet             Minimal output
  -v, --verbose           Verbose output
  --json                  Output in JSON format

Environment:
  DOCCHAT_SERVER_URL      Backend base URL (default http://127.0.0.1:8000)
  DOCCHAT_CONFIG          Path to the config file

Config file: ~/.docchat/config.toml
`

// Parse reads os.Args and returns the command plus its arguments.
func Parse() (Command, Args) {
	return parseArgs(os.Args[1:])
}

// parseArgs is the testable core of Parse.
func parseArgs(argv []string) (Command, Args) {
	args := Args{}

	var positional []string
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch arg {
		case "-q", "--quiet":
			args.Quiet = true
		case "-v", "--verbose":
			args.Verbose = true
		case "--json":
			args.JSON = true
		case "-c", "--conversation":
			if i+1 < len(argv) {
				i++
				args.ConversationID = argv[i]
			}
		default:
			positional = append(positional, arg)
		}
	}

	if len(positional) == 0 {
		return CmdTUI, args
	}

	cmd := positional[0]
	rest := positional[1:]
	args.Raw = rest

	switch cmd {
	case "ask":
		args.Query = strings.Join(rest, " ")
		return CmdAsk, args
	case "chat":
		return CmdChat, args
	case "status", "s":
		return CmdStatus, args
	case "upload":
		if len(rest) > 0 {
			args.File = rest[0]
		}
		return CmdUpload, args
	case "config":
		if len(rest) > 0 {
			args.Subcommand = rest[0]
		}
		return CmdConfig, args
	case "version", "--version", "-V":
		return CmdVersion, args
	case "help", "--help", "-h":
		return CmdHelp, args
	default:
		// An unknown word is treated as a question, so
		// `docchat what is this` just works.
		args.Query = strings.Join(positional, " ")
		return CmdAsk, args
	}
}

// PrintUsage writes the usage text to stdout.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion writes version information to stdout.
func PrintVersion() {
	fmt.Printf("docchat %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
