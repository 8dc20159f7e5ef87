// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the docchat client.
package model

import "encoding/json"

// =============================================================================
// EVENT VOCABULARY
// =============================================================================

// EventType names a semantic stream event the backend can push.
type EventType string

const (
	// EventTyping signals the assistant turn has begun or ended
	// (payload status "started" or "stopped").
	EventTyping EventType = "typing"
	// EventToolCallStarted signals the backend invoked a named tool.
	EventToolCallStarted EventType = "tool_call_started"
	// EventToolCallFinished signals a named tool call completed.
	EventToolCallFinished EventType = "tool_call_finished"
	// EventTextDelta carries incremental assistant text.
	EventTextDelta EventType = "text_delta"
	// EventCitation carries one progressive citation row.
	EventCitation EventType = "citation"
	// EventCitationMap carries the full citation table for the turn.
	EventCitationMap EventType = "citation_map"
	// EventInfo carries a transient informational notice.
	EventInfo EventType = "info"
	// EventError signals the turn failed.
	EventError EventType = "error"
	// EventDone signals the turn completed and persisted history is current.
	EventDone EventType = "done"
)

// Known reports whether the event type is part of the protocol vocabulary.
func (t EventType) Known() bool {
	switch t {
	case EventTyping, EventToolCallStarted, EventToolCallFinished,
		EventTextDelta, EventCitation, EventCitationMap,
		EventInfo, EventError, EventDone:
		return true
	}
	return false
}

// TypingStopped is the typing payload status that ends an assistant turn
// without implying completion.
const TypingStopped = "stopped"

// genericErrorMessage is surfaced when an error payload has no usable shape.
const genericErrorMessage = "an unknown error occurred"

// =============================================================================
// DECODED EVENT
// =============================================================================

// Event is one decoded server-push event. Exactly the fields relevant to
// Type are populated; everything else is left zero.
type Event struct {
	Type EventType

	// Typing status ("started" / "stopped"), EventTyping only.
	Status string
	// Tool name, tool call events only. May be empty on finish.
	Tool string
	// Incremental text, EventTextDelta only.
	Delta string
	// Full citation table, EventCitationMap only.
	Map []CitationMapEntry
	// Single citation row, EventCitation only.
	Citation CitationMapEntry
	// Human-readable notice or error text, EventInfo / EventError.
	Message string
}

// ParseEvent validates a raw payload for a named event type and returns the
// decoded event. ok is false for unknown types and malformed payloads; such
// events must be dropped without mutating any state.
func ParseEvent(eventType string, data []byte) (Event, bool) {
	t := EventType(eventType)
	if !t.Known() {
		return Event{}, false
	}

	evt := Event{Type: t}
	switch t {
	case EventTyping:
		var payload struct {
			Status string `json:"status"`
		}
		if len(data) > 0 && json.Unmarshal(data, &payload) != nil {
			return Event{}, false
		}
		evt.Status = payload.Status

	case EventToolCallStarted, EventToolCallFinished:
		var payload struct {
			Tool string `json:"tool"`
		}
		if len(data) > 0 && json.Unmarshal(data, &payload) != nil {
			return Event{}, false
		}
		evt.Tool = payload.Tool

	case EventTextDelta:
		var payload struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return Event{}, false
		}
		evt.Delta = payload.Delta

	case EventCitationMap:
		var payload struct {
			Map []CitationMapEntry `json:"map"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return Event{}, false
		}
		evt.Map = payload.Map

	case EventCitation:
		var entry CitationMapEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return Event{}, false
		}
		evt.Citation = entry

	case EventInfo:
		var payload struct {
			Message string `json:"message"`
		}
		if len(data) > 0 && json.Unmarshal(data, &payload) != nil {
			return Event{}, false
		}
		evt.Message = payload.Message

	case EventError:
		evt.Message = parseErrorPayload(data)

	case EventDone:
		// Payload ignored; presence of the event is the signal.
	}

	return evt, true
}

// ParseEnvelope decodes an event delivered without an explicit type tag as a
// full {"type": ..., "data": ...} envelope. This is the generic fallback
// path for transports that do not frame named events.
func ParseEnvelope(raw []byte) (Event, bool) {
	var envelope struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Event{}, false
	}
	return ParseEvent(envelope.Type, envelope.Data)
}

// parseErrorPayload extracts a message from an error payload that may be a
// bare JSON string or an {"error": string} object. Any other shape yields a
// generic message rather than failing the event.
func parseErrorPayload(data []byte) string {
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Error != "" {
		return obj.Error
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil && s != "" {
		return s
	}

	return genericErrorMessage
}
