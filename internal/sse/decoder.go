// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"bufio"
	"bytes"
	"io"
)

// =============================================================================
// WIRE DECODER
// =============================================================================

// Frame is one decoded server-sent event: an optional event name and the
// joined data payload.
type Frame struct {
	Event string
	Data  []byte
}

// Decoder reads server-sent-event frames from a stream.
//
// A frame is a run of "event:" and "data:" fields terminated by a blank
// line. Comment lines (leading ':') and unknown fields such as "id:" and
// "retry:" are skipped. Multi-line data is joined with newlines per the
// wire format.
type Decoder struct {
	reader *bufio.Reader
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{reader: bufio.NewReader(r)}
}

// Next reads until a complete frame is available. Returns io.EOF when the
// stream ends cleanly between frames; a partial trailing frame without its
// terminating blank line is discarded.
func (d *Decoder) Next() (*Frame, error) {
	var (
		event    string
		data     [][]byte
		sawField bool
	)

	for {
		line, err := d.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, err
		}

		line = trimLineEnding(line)

		// Blank line terminates the frame.
		if len(line) == 0 {
			if !sawField {
				continue
			}
			if len(data) == 0 {
				// Event name without data carries nothing; reset and
				// keep reading.
				event = ""
				sawField = false
				continue
			}
			return &Frame{Event: event, Data: bytes.Join(data, []byte("\n"))}, nil
		}

		// Comment line.
		if line[0] == ':' {
			continue
		}

		field, value := splitField(line)
		switch field {
		case "event":
			event = string(value)
			sawField = true
		case "data":
			data = append(data, value)
			sawField = true
		default:
			// id, retry, anything else: not used here.
		}
	}
}

// trimLineEnding strips a trailing LF and optional CR.
func trimLineEnding(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}

// splitField splits "field: value", dropping the single optional space
// after the colon. A line without a colon is a field with an empty value.
func splitField(line []byte) (string, []byte) {
	idx := bytes.IndexByte(line, ':')
	if idx < 0 {
		return string(line), nil
	}
	value := line[idx+1:]
	if len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}
	return string(line[:idx]), value
}
