// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the docchat client.
package model

// CitationMapEntry is one source reference the assistant's answer points to.
// ID matches an inline marker "[n]" in the assistant text. All other fields
// are optional; a missing page number means the source is not page-addressed.
type CitationMapEntry struct {
	ID          int     `json:"id"`
	DocID       string  `json:"doc_id,omitempty"`
	PageNumber  int     `json:"page_number,omitempty"`
	StartOffset int     `json:"start_offset,omitempty"`
	EndOffset   int     `json:"end_offset,omitempty"`
	TextSnippet string  `json:"text_snippet,omitempty"`
	Score       float64 `json:"score,omitempty"`
}

// MergeCitation appends entry to entries unless an entry with the same id is
// already present, in which case the existing one is kept. Used for the
// progressive per-citation events the backend emits while searching.
func MergeCitation(entries []CitationMapEntry, entry CitationMapEntry) []CitationMapEntry {
	for _, existing := range entries {
		if existing.ID == entry.ID {
			return entries
		}
	}
	return append(entries, entry)
}
