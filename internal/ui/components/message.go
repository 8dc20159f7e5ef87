// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/morganforge/docchat-tui/internal/model"
	"github.com/morganforge/docchat-tui/internal/ui/styles"
	"github.com/morganforge/docchat-tui/internal/util"
)

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

// MessageRenderer turns messages and in-progress turns into styled text.
// One renderer is shared per view; glamour setup is not cheap.
type MessageRenderer struct {
	theme    *styles.Theme
	markdown *glamour.TermRenderer
	width    int
}

// NewMessageRenderer creates a renderer wrapping at the given width.
func NewMessageRenderer(theme *styles.Theme, width int) *MessageRenderer {
	r := &MessageRenderer{theme: theme, width: width}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		r.markdown = renderer
	}
	return r
}

// SetWidth rebuilds the markdown renderer for a new wrap width.
func (r *MessageRenderer) SetWidth(width int) {
	if width == r.width {
		return
	}
	r.width = width
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		r.markdown = renderer
	}
}

// RenderMessage draws one persisted message as a role-labeled bubble.
func (r *MessageRenderer) RenderMessage(msg model.Message) string {
	switch msg.Role {
	case model.RoleUser:
		label := "You"
		if msg.IsLocal() {
			body := r.theme.PendingMessage.Render(msg.Content)
			return r.theme.UserBubble.Render(label + "\n" + body)
		}
		return r.theme.UserBubble.Render(label + "\n" + msg.Content)

	case model.RoleAssistant:
		body := r.renderMarkdown(msg.Content)
		out := r.theme.AssistantBubble.Render("Assistant\n" + body)
		if citations := msg.Citations(); len(citations) > 0 {
			out += "\n" + r.RenderCitations(citations)
		}
		return out

	default:
		// System and tool messages are backend bookkeeping; show them
		// dimmed rather than hiding history the server chose to return.
		return r.theme.PendingMessage.Render(string(msg.Role) + ": " + msg.Content)
	}
}

// RenderStreaming draws the in-progress assistant turn: buffer so far,
// tool activity line, and any citations already known.
func (r *MessageRenderer) RenderStreaming(st model.StreamingState) string {
	var parts []string

	if st.Buffer != "" {
		parts = append(parts, r.theme.AssistantBubble.Render("Assistant\n"+r.renderMarkdown(st.Buffer)))
	}
	if st.ToolStatus != nil {
		parts = append(parts, r.theme.ToolActivity.Render("using "+st.ToolStatus.Tool+"..."))
	} else if st.Active && st.Buffer == "" {
		parts = append(parts, r.theme.ToolActivity.Render("thinking..."))
	}
	if len(st.CitationMap) > 0 {
		parts = append(parts, r.RenderCitations(st.CitationMap))
	}
	return strings.Join(parts, "\n")
}

// RenderCitations draws the source list under an assistant answer.
func (r *MessageRenderer) RenderCitations(citations []model.CitationMapEntry) string {
	var sb strings.Builder
	sb.WriteString(r.theme.CitationDetail.Render("Sources:"))
	for _, c := range citations {
		sb.WriteString("\n")
		sb.WriteString("  ")
		sb.WriteString(r.theme.CitationRef.Render("[" + util.IntToString(c.ID) + "]"))
		sb.WriteString(" ")
		sb.WriteString(r.theme.CitationDetail.Render(describeCitation(c, r.width-8)))
	}
	return sb.String()
}

// renderMarkdown renders content through glamour, falling back to the raw
// text when the renderer is unavailable or fails.
func (r *MessageRenderer) renderMarkdown(content string) string {
	if r.markdown == nil {
		return content
	}
	rendered, err := r.markdown.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(rendered)
}

// describeCitation builds the one-line summary for a citation entry.
func describeCitation(c model.CitationMapEntry, maxWidth int) string {
	var sb strings.Builder
	sb.WriteString(c.DocID)
	if c.PageNumber > 0 {
		sb.WriteString(" p.")
		sb.WriteString(util.IntToString(c.PageNumber))
	}
	if c.TextSnippet != "" {
		sb.WriteString(" - ")
		sb.WriteString(c.TextSnippet)
	}
	if maxWidth > 0 {
		return util.TruncateWidth(sb.String(), maxWidth)
	}
	return sb.String()
}
