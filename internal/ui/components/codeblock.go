// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/docchat-tui/internal/ui/styles"
	"github.com/morganforge/docchat-tui/internal/util"
)

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// CodeBlock renders a fenced code block with syntax highlighting. Used for
// code the assistant quotes out of technical documents.
type CodeBlock struct {
	Language string
	Code     string
	MaxWidth int
}

// NewCodeBlock creates a code block with the default width.
func NewCodeBlock(language, code string) CodeBlock {
	return CodeBlock{
		Language: language,
		Code:     code,
		MaxWidth: 80,
	}
}

// Render returns the highlighted block with a language badge.
func (c CodeBlock) Render() string {
	code := strings.TrimSpace(c.Code)
	highlighted := highlightCode(code, c.Language)

	var header string
	if c.Language != "" {
		header = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Background(styles.Overlay).
			Padding(0, 1).
			Bold(true).
			Render(c.Language) + "\n"
	}

	body := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(styles.Overlay).
		PaddingLeft(1).
		MaxWidth(c.MaxWidth).
		Render(highlighted)

	return header + body
}

// highlightCode applies chroma syntax highlighting, falling back to the
// plain text on any failure.
func highlightCode(code, language string) string {
	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		return code
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if !lipgloss.HasDarkBackground() {
		style = chromaStyles.Get("github")
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		return code
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var sb strings.Builder
	if err := formatter.Format(&sb, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FencedBlocks splits markdown-ish text into alternating prose and code
// segments so code can be highlighted independently.
type Segment struct {
	Code     bool
	Language string
	Text     string
}

// SplitFences parses triple-backtick fences out of text. Unterminated
// fences run to the end of the text.
func SplitFences(text string) []Segment {
	var segments []Segment
	lines := strings.Split(text, "\n")

	var current []string
	inFence := false
	language := ""

	flush := func(code bool, lang string) {
		if len(current) == 0 {
			return
		}
		segments = append(segments, Segment{
			Code:     code,
			Language: lang,
			Text:     strings.Join(current, "\n"),
		})
		current = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inFence {
				flush(true, language)
				inFence = false
				language = ""
			} else {
				flush(false, "")
				inFence = true
				language = strings.TrimPrefix(trimmed, "```")
			}
			continue
		}
		current = append(current, line)
	}
	flush(inFence, language)
	return segments
}

// TruncateBadge shortens a language badge to fit narrow layouts.
func TruncateBadge(language string, width int) string {
	return util.TruncateWidth(language, width)
}
