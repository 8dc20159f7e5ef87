// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"io"
	"strings"
	"testing"
)

func TestDecoderSingleFrame(t *testing.T) {
	d := NewDecoder(strings.NewReader("event: text_delta\ndata: {\"delta\":\"hi\"}\n\n"))

	frame, err := d.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if frame.Event != "text_delta" {
		t.Errorf("expected event text_delta, got %q", frame.Event)
	}
	if string(frame.Data) != `{"delta":"hi"}` {
		t.Errorf("unexpected data: %q", frame.Data)
	}
}

func TestDecoderMultipleFrames(t *testing.T) {
	input := "event: typing\ndata: {\"status\":\"started\"}\n\n" +
		"event: text_delta\ndata: {\"delta\":\"a\"}\n\n" +
		"event: done\ndata: {}\n\n"
	d := NewDecoder(strings.NewReader(input))

	var events []string
	for {
		frame, err := d.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		events = append(events, frame.Event)
	}
	if len(events) != 3 || events[0] != "typing" || events[2] != "done" {
		t.Errorf("unexpected frames: %v", events)
	}
}

func TestDecoderDataWithoutEventName(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: {\"type\":\"done\",\"data\":{}}\n\n"))

	frame, err := d.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if frame.Event != "" {
		t.Errorf("expected empty event name, got %q", frame.Event)
	}
	if string(frame.Data) != `{"type":"done","data":{}}` {
		t.Errorf("unexpected data: %q", frame.Data)
	}
}

func TestDecoderMultiLineData(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: line one\ndata: line two\n\n"))

	frame, err := d.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if string(frame.Data) != "line one\nline two" {
		t.Errorf("expected newline-joined data, got %q", frame.Data)
	}
}

func TestDecoderSkipsCommentsAndUnknownFields(t *testing.T) {
	input := ": keep-alive\nid: 42\nretry: 3000\ndata: payload\n\n"
	d := NewDecoder(strings.NewReader(input))

	frame, err := d.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if string(frame.Data) != "payload" {
		t.Errorf("unexpected data: %q", frame.Data)
	}
}

func TestDecoderCRLFLines(t *testing.T) {
	d := NewDecoder(strings.NewReader("event: done\r\ndata: {}\r\n\r\n"))

	frame, err := d.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if frame.Event != "done" || string(frame.Data) != "{}" {
		t.Errorf("unexpected frame: %+v", frame)
	}
}

func TestDecoderDiscardsPartialTrailingFrame(t *testing.T) {
	d := NewDecoder(strings.NewReader("event: text_delta\ndata: {\"delta\":\"x\"}"))

	_, err := d.Next()
	if err != io.EOF {
		t.Errorf("expected EOF for truncated frame, got %v", err)
	}
}

func TestDecoderEventWithoutData(t *testing.T) {
	input := "event: typing\n\nevent: done\ndata: {}\n\n"
	d := NewDecoder(strings.NewReader(input))

	frame, err := d.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	// The dataless frame is dropped; the done frame comes through without
	// inheriting the stale event name.
	if frame.Event != "done" {
		t.Errorf("expected done, got %q", frame.Event)
	}
}
