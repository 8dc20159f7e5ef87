// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClientWithConfig(&ClientConfig{BaseURL: server.URL})
}

func TestSendTurnNewConversation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ConversationID != nil {
			t.Errorf("expected nil conversation_id for a new conversation, got %q", *req.ConversationID)
		}
		if req.Message != "hello" {
			t.Errorf("expected message 'hello', got %q", req.Message)
		}
		json.NewEncoder(w).Encode(TurnReceipt{ConversationID: "conv-1", MessageID: "msg-1"})
	})

	receipt, err := client.SendTurn(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("SendTurn failed: %v", err)
	}
	if receipt.ConversationID != "conv-1" {
		t.Errorf("expected conversation id conv-1, got %q", receipt.ConversationID)
	}
	if receipt.MessageID != "msg-1" {
		t.Errorf("expected message id msg-1, got %q", receipt.MessageID)
	}
}

func TestSendTurnExistingConversation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.ConversationID == nil || *req.ConversationID != "conv-7" {
			t.Errorf("expected conversation_id conv-7, got %v", req.ConversationID)
		}
		json.NewEncoder(w).Encode(TurnReceipt{ConversationID: "conv-7", MessageID: "msg-2"})
	})

	receipt, err := client.SendTurn(context.Background(), "conv-7", "follow-up")
	if err != nil {
		t.Fatalf("SendTurn failed: %v", err)
	}
	if receipt.ConversationID != "conv-7" {
		t.Errorf("expected conversation id conv-7, got %q", receipt.ConversationID)
	}
}

func TestSendTurnMissingConversationID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(TurnReceipt{MessageID: "msg-1"})
	})

	_, err := client.SendTurn(context.Background(), "", "hello")
	if err == nil {
		t.Fatal("expected error for receipt without conversation_id")
	}
}

func TestListConversations(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/conversations" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"conversations":[{"conversation_id":"a","title":"First"},{"conversation_id":"b","title":"Second"}]}`))
	})

	convs, err := client.ListConversations(context.Background())
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	if convs[0].ID != "a" || convs[1].Title != "Second" {
		t.Errorf("unexpected conversations: %+v", convs)
	}
}

func TestGetHistory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/conversations/conv-1/history" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"conversation_id":"conv-1","messages":[` +
			`{"message_id":"m1","role":"user","content":"q"},` +
			`{"message_id":"m2","role":"assistant","content":"a"}]}`))
	})

	messages, err := client.GetHistory(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != "user" || messages[1].Content != "a" {
		t.Errorf("unexpected messages: %+v", messages)
	}
}

func TestGetHistoryNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetHistory(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestErrorDetailSurfaced(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"message must not be empty"}`))
	})

	_, err := client.SendTurn(context.Background(), "", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "message must not be empty" {
		t.Errorf("expected backend detail in error, got %q", err.Error())
	}
}

func TestUnreachableBackend(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{BaseURL: "http://127.0.0.1:1"})

	_, err := client.ListConversations(context.Background())
	if !IsUnreachable(err) {
		t.Errorf("expected unreachable error, got %v", err)
	}
}

func TestUploadPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 test"), 0644); err != nil {
		t.Fatal(err)
	}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file field: %v", err)
		}
		f.Close()
		if header.Filename != "report.pdf" {
			t.Errorf("expected filename report.pdf, got %q", header.Filename)
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(UploadReceipt{Message: "queued", JobID: "job-1", DocID: "doc-1"})
	})

	receipt, err := client.UploadPDF(context.Background(), path)
	if err != nil {
		t.Fatalf("UploadPDF failed: %v", err)
	}
	if receipt.JobID != "job-1" || receipt.DocID != "doc-1" {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	client := NewClient()
	_, err := client.UploadPDF(context.Background(), "notes.txt")
	if err == nil {
		t.Fatal("expected error for non-PDF upload")
	}
}

func TestFetchDocumentPDF(t *testing.T) {
	content := []byte("%PDF-1.4 downloaded")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/documents/doc-9/pdf" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(content)
	})

	dir := t.TempDir()
	path, err := client.FetchDocumentPDF(context.Background(), "doc-9", dir)
	if err != nil {
		t.Fatalf("FetchDocumentPDF failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("downloaded content mismatch")
	}
}

func TestCheckHealth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"ok","redis":"ok","qdrant":"ok"}`))
	})

	health, err := client.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("expected status ok, got %q", health.Status)
	}
}

func TestStreamURL(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{BaseURL: "http://localhost:8000/"})
	got := client.StreamURL("conv-1")
	want := "http://localhost:8000/chat/conv-1/stream"
	if got != want {
		t.Errorf("StreamURL = %q, want %q", got, want)
	}
}
