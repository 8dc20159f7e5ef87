// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/morganforge/docchat-tui/internal/model"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestConversationRoundTrip(t *testing.T) {
	c := openTestCache(t)
	now := time.Now().UTC().Truncate(time.Second)
	convs := []model.Conversation{
		{ID: "a", Title: "First", CreatedAt: &now},
		{ID: "b", Title: "Second"},
	}

	if err := c.SaveConversations(convs); err != nil {
		t.Fatalf("SaveConversations failed: %v", err)
	}
	loaded, err := c.LoadConversations()
	if err != nil {
		t.Fatalf("LoadConversations failed: %v", err)
	}

	if len(loaded) != 2 || loaded[0].ID != "a" || loaded[1].Title != "Second" {
		t.Errorf("unexpected conversations: %+v", loaded)
	}
	if loaded[0].CreatedAt == nil || !loaded[0].CreatedAt.Equal(now) {
		t.Errorf("created_at lost: %+v", loaded[0].CreatedAt)
	}
	if loaded[1].CreatedAt != nil {
		t.Errorf("expected nil created_at, got %v", loaded[1].CreatedAt)
	}
}

func TestSaveConversationsReplaces(t *testing.T) {
	c := openTestCache(t)
	c.SaveConversations([]model.Conversation{{ID: "a", Title: "Old"}})
	c.SaveConversations([]model.Conversation{{ID: "b", Title: "New"}})

	loaded, err := c.LoadConversations()
	if err != nil {
		t.Fatalf("LoadConversations failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "b" {
		t.Errorf("expected replacement, got %+v", loaded)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	c := openTestCache(t)
	msgs := []model.Message{
		{ID: "m1", Role: model.RoleUser, Content: "question"},
		{ID: "m2", Role: model.RoleAssistant, Content: "answer",
			Metadata: json.RawMessage(`{"citations":[{"id":1,"doc_id":"d1"}]}`)},
	}

	if err := c.SaveHistory("conv", msgs); err != nil {
		t.Fatalf("SaveHistory failed: %v", err)
	}
	loaded, err := c.LoadHistory("conv")
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}

	if len(loaded) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(loaded))
	}
	if loaded[0].Content != "question" || loaded[1].Role != model.RoleAssistant {
		t.Errorf("unexpected messages: %+v", loaded)
	}
	citations := loaded[1].Citations()
	if len(citations) != 1 || citations[0].DocID != "d1" {
		t.Errorf("citation metadata lost: %+v", citations)
	}
	if loaded[0].ConversationID != "conv" {
		t.Errorf("conversation id not restored: %+v", loaded[0])
	}
}

func TestSaveHistorySkipsLocalMessages(t *testing.T) {
	c := openTestCache(t)
	msgs := []model.Message{
		{ID: "m1", Role: model.RoleUser, Content: "persisted"},
		model.NewLocalUserMessage("conv", "optimistic"),
	}

	if err := c.SaveHistory("conv", msgs); err != nil {
		t.Fatalf("SaveHistory failed: %v", err)
	}
	loaded, err := c.LoadHistory("conv")
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "m1" {
		t.Errorf("expected only the persisted message, got %+v", loaded)
	}
}

func TestLoadHistoryNotCached(t *testing.T) {
	c := openTestCache(t)
	if _, err := c.LoadHistory("missing"); err != ErrNotCached {
		t.Errorf("expected ErrNotCached, got %v", err)
	}
}

func TestHistoriesAreIndependent(t *testing.T) {
	c := openTestCache(t)
	c.SaveHistory("a", []model.Message{{ID: "m1", Role: model.RoleUser, Content: "in a"}})
	c.SaveHistory("b", []model.Message{{ID: "m2", Role: model.RoleUser, Content: "in b"}})
	c.SaveHistory("a", []model.Message{{ID: "m3", Role: model.RoleUser, Content: "a again"}})

	loadedB, err := c.LoadHistory("b")
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}
	if len(loadedB) != 1 || loadedB[0].Content != "in b" {
		t.Errorf("history for b disturbed: %+v", loadedB)
	}
	loadedA, _ := c.LoadHistory("a")
	if len(loadedA) != 1 || loadedA[0].ID != "m3" {
		t.Errorf("history for a not replaced: %+v", loadedA)
	}
}
