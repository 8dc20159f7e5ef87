// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/morganforge/docchat-tui/internal/api"
	"github.com/morganforge/docchat-tui/internal/model"
	"github.com/morganforge/docchat-tui/internal/store"
)

// =============================================================================
// FAKE BACKEND
// =============================================================================

// fakeBackend is an in-memory chat backend. Stream frames are published
// onto a per-conversation feed; whatever connection is attached when a
// frame arrives delivers it, and frames published with nothing attached
// wait for the next attach. Events are never replayed.
type fakeBackend struct {
	mu            sync.Mutex
	conversations []model.Conversation
	histories     map[string][]model.Message
	streams       map[string]chan string
	streamOpens   map[string]int
	historyFails  map[string]int
	nextConv      int
	server        *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		histories:    make(map[string][]model.Message),
		streams:      make(map[string]chan string),
		streamOpens:  make(map[string]int),
		historyFails: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/chat", b.handleChat)
	mux.HandleFunc("/conversations", b.handleList)
	mux.HandleFunc("/conversations/", b.handleHistory)
	mux.HandleFunc("/chat/", b.handleStream)

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) client() *api.Client {
	return api.NewClientWithConfig(&api.ClientConfig{BaseURL: b.server.URL})
}

func (b *fakeBackend) addConversation(id, title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations = append([]model.Conversation{{ID: id, Title: title}}, b.conversations...)
}

func (b *fakeBackend) setHistory(id string, msgs []model.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.histories[id] = msgs
}

func (b *fakeBackend) stream(id string) chan string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.streams[id]
	if !ok {
		ch = make(chan string, 64)
		b.streams[id] = ch
	}
	return ch
}

func (b *fakeBackend) publish(id string, frames ...string) {
	ch := b.stream(id)
	for _, f := range frames {
		ch <- f
	}
}

func (b *fakeBackend) failHistory(id string, times int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.historyFails[id] = times
}

func (b *fakeBackend) streamOpenCount(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streamOpens[id]
}

func (b *fakeBackend) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConversationID *string `json:"conversation_id"`
		Message        string  `json:"message"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	convID := ""
	if req.ConversationID != nil {
		convID = *req.ConversationID
	} else {
		b.nextConv++
		convID = fmt.Sprintf("conv-%d", b.nextConv)
		b.conversations = append([]model.Conversation{{ID: convID, Title: req.Message}}, b.conversations...)
	}
	msgID := fmt.Sprintf("msg-%d", len(b.histories[convID])+1)
	b.histories[convID] = append(b.histories[convID], model.Message{
		ID: msgID, ConversationID: convID, Role: model.RoleUser, Content: req.Message,
	})
	b.mu.Unlock()

	json.NewEncoder(w).Encode(map[string]string{
		"conversation_id": convID,
		"message_id":      msgID,
	})
}

func (b *fakeBackend) handleList(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	convs := append([]model.Conversation(nil), b.conversations...)
	b.mu.Unlock()
	json.NewEncoder(w).Encode(map[string]any{"conversations": convs})
}

func (b *fakeBackend) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/conversations/"), "/history")

	b.mu.Lock()
	if b.historyFails[id] > 0 {
		b.historyFails[id]--
		b.mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	msgs := append([]model.Message(nil), b.histories[id]...)
	b.mu.Unlock()

	json.NewEncoder(w).Encode(map[string]any{
		"conversation_id": id,
		"messages":        msgs,
	})
}

func (b *fakeBackend) handleStream(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/chat/"), "/stream")

	b.mu.Lock()
	b.streamOpens[id]++
	b.mu.Unlock()
	ch := b.stream(id)

	flusher := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case f := <-ch:
			w.Write([]byte(f))
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func frame(event, data string) string {
	return "event: " + event + "\ndata: " + data + "\n\n"
}

// =============================================================================
// HELPERS
// =============================================================================

func newTestController(t *testing.T, b *fakeBackend, opts ...func(*Options)) (*Controller, *store.Store) {
	t.Helper()
	st := store.New()
	o := Options{
		Client:         b.client(),
		Store:          st,
		ReconnectDelay: 10 * time.Millisecond,
		RequestTimeout: 5 * time.Second,
	}
	for _, fn := range opts {
		fn(&o)
	}
	c, err := New(o)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c, st
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// =============================================================================
// TESTS
// =============================================================================

func TestSelectLoadsHistory(t *testing.T) {
	b := newFakeBackend(t)
	b.addConversation("c1", "Taxes")
	b.setHistory("c1", []model.Message{
		{ID: "m1", Role: model.RoleUser, Content: "question"},
		{ID: "m2", Role: model.RoleAssistant, Content: "answer"},
	})

	c, st := newTestController(t, b)
	if err := c.Select(context.Background(), "c1"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if st.Selected() != "c1" {
		t.Errorf("expected selection c1, got %q", st.Selected())
	}
	msgs := st.Messages("c1")
	if len(msgs) != 2 || msgs[1].Content != "answer" {
		t.Errorf("unexpected history: %+v", msgs)
	}
}

func TestSelectAttachesToTurnInProgress(t *testing.T) {
	b := newFakeBackend(t)
	b.addConversation("c1", "Docs")

	c, st := newTestController(t, b)
	if err := c.Select(context.Background(), "c1"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if live := c.LiveConversation(); live != "c1" {
		t.Fatalf("expected a live stream for c1 after Select, got %q", live)
	}

	// A turn started elsewhere streams in without any send from here.
	b.publish("c1",
		frame("typing", `{"status":"started"}`),
		frame("text_delta", `{"delta":"already "}`),
		frame("text_delta", `{"delta":"running"}`),
	)
	waitFor(t, "in-progress turn to render", func() bool {
		s := st.Streaming("c1")
		return s.Active && s.Buffer == "already running"
	})
}

func TestStreamReattachesAfterTurnEnds(t *testing.T) {
	b := newFakeBackend(t)
	b.addConversation("c1", "Docs")
	b.setHistory("c1", []model.Message{{ID: "m1", Role: model.RoleUser, Content: "q"}})

	c, st := newTestController(t, b)
	if err := c.Select(context.Background(), "c1"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	b.publish("c1",
		frame("text_delta", `{"delta":"first"}`),
		frame("done", `{}`),
	)

	// The server ends the stream after done; the conversation is still
	// selected, so a fresh attachment follows.
	waitFor(t, "reattach after done", func() bool {
		return b.streamOpenCount("c1") >= 2 && c.LiveConversation() == "c1"
	})

	// A later turn streams in over the new attachment.
	b.publish("c1",
		frame("text_delta", `{"delta":"second"}`),
	)
	waitFor(t, "later turn to render", func() bool {
		return st.Streaming("c1").Buffer == "second"
	})
}

func TestAtMostOneLiveStream(t *testing.T) {
	b := newFakeBackend(t)
	b.addConversation("c1", "First")
	b.addConversation("c2", "Second")
	// c1's stream never finishes; it must be torn down by the switch.

	c, _ := newTestController(t, b)
	if err := c.Select(context.Background(), "c1"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if live := c.LiveConversation(); live != "c1" {
		t.Fatalf("expected a live stream for c1 after Select, got %q", live)
	}

	if err := c.Select(context.Background(), "c2"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if live := c.LiveConversation(); live != "c2" {
		t.Errorf("expected the live stream to follow the selection, got %q", live)
	}
	if n := b.streamOpenCount("c1"); n != 1 {
		t.Errorf("c1's stream reopened after the switch: %d opens", n)
	}
}

func TestSendIntoNewConversationAdoptsServerID(t *testing.T) {
	b := newFakeBackend(t)

	c, st := newTestController(t, b)
	convID, err := c.Send(context.Background(), "what is chapter 3 about?")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if convID == "" {
		t.Fatal("expected a conversation id from the backend")
	}
	if st.Selected() != convID {
		t.Errorf("expected new conversation selected, got %q", st.Selected())
	}
	if _, ok := st.Conversation(convID); !ok {
		t.Errorf("new conversation missing from list")
	}
	msgs := st.Messages(convID)
	if len(msgs) == 0 || msgs[0].Content != "what is chapter 3 about?" {
		t.Errorf("expected the question visible immediately, got %+v", msgs)
	}
}

func TestOptimisticMessageSupersededByReconciliation(t *testing.T) {
	b := newFakeBackend(t)
	b.addConversation("c1", "Docs")

	c, st := newTestController(t, b)
	if err := c.Select(context.Background(), "c1"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if _, err := c.Send(context.Background(), "a question"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// The optimistic placeholder is visible before the turn finishes.
	hasLocal := false
	for _, msg := range st.Messages("c1") {
		if msg.IsLocal() {
			hasLocal = true
		}
	}
	if !hasLocal {
		t.Error("expected an optimistic local message after send")
	}

	b.publish("c1",
		frame("typing", `{"status":"started"}`),
		frame("text_delta", `{"delta":"The answer"}`),
		frame("done", `{}`),
	)

	// The done event reloads persisted history, which has real ids only.
	waitFor(t, "reconciliation", func() bool {
		msgs := st.Messages("c1")
		if len(msgs) == 0 {
			return false
		}
		for _, msg := range msgs {
			if msg.IsLocal() {
				return false
			}
		}
		return true
	})

	msgs := st.Messages("c1")
	if msgs[len(msgs)-1].Content != "a question" {
		t.Errorf("persisted history wrong: %+v", msgs)
	}
}

func TestStreamedTurnAccumulatesAndClears(t *testing.T) {
	b := newFakeBackend(t)
	b.addConversation("c1", "Docs")

	c, st := newTestController(t, b)
	if err := c.Select(context.Background(), "c1"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	var mu sync.Mutex
	var sawBuffer, sawCitations bool
	unsubscribe := st.Subscribe(func(p store.Partition) {
		if p != store.PartitionStreaming {
			return
		}
		s := st.Streaming("c1")
		mu.Lock()
		if s.Buffer == "It is about birds" {
			sawBuffer = true
		}
		if len(s.CitationMap) == 1 && s.CitationMap[0].DocID == "d1" {
			sawCitations = true
		}
		mu.Unlock()
	})
	defer unsubscribe()

	if _, err := c.Send(context.Background(), "chapter?"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	b.publish("c1",
		frame("typing", `{"status":"started"}`),
		frame("tool_call_started", `{"tool":"vector_search"}`),
		frame("tool_call_finished", `{"tool":"vector_search"}`),
		frame("text_delta", `{"delta":"It is "}`),
		frame("text_delta", `{"delta":"about birds"}`),
		frame("citation_map", `{"map":[{"id":1,"doc_id":"d1","page_number":4}]}`),
		frame("done", `{}`),
	)

	// Reconciliation eventually clears the streaming state.
	waitFor(t, "streaming state cleared", func() bool {
		s := st.Streaming("c1")
		return !s.Active && s.Buffer == ""
	})

	mu.Lock()
	defer mu.Unlock()
	if !sawBuffer {
		t.Error("deltas never accumulated in order into the buffer")
	}
	if !sawCitations {
		t.Error("citation map never reached the streaming state")
	}
}

func TestStreamErrorSurfacesOnConversation(t *testing.T) {
	b := newFakeBackend(t)
	b.addConversation("c1", "Docs")

	c, st := newTestController(t, b)
	c.Select(context.Background(), "c1")
	if _, err := c.Send(context.Background(), "q"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	b.publish("c1",
		frame("text_delta", `{"delta":"partial"}`),
		frame("error", `{"error":"model overloaded"}`),
		frame("done", `{}`),
	)

	waitFor(t, "error surfaced", func() bool {
		return st.Error("c1") == "model overloaded"
	})
}

func TestSendFailureRollsBackOptimisticMessage(t *testing.T) {
	b := newFakeBackend(t)
	b.addConversation("c1", "Docs")

	c, st := newTestController(t, b)
	// Selection applied straight to the store; a live stream attachment
	// would keep the server from shutting down below.
	st.Select("c1")

	// Kill the backend so the send cannot land.
	b.server.Close()

	if _, err := c.Send(context.Background(), "into the void"); err == nil {
		t.Fatal("expected send to fail")
	}
	for _, msg := range st.Messages("c1") {
		if msg.IsLocal() {
			t.Errorf("optimistic message survived a failed send: %+v", msg)
		}
	}
	if st.Error("c1") == "" {
		t.Error("expected an error on the conversation")
	}
}

func TestReconcileRetriesThenNotices(t *testing.T) {
	b := newFakeBackend(t)
	b.addConversation("c1", "Docs")
	b.publish("c1",
		frame("text_delta", `{"delta":"answer"}`),
		frame("done", `{}`),
	)
	// Both the reload and its retry fail.
	b.failHistory("c1", 10)

	var mu sync.Mutex
	var notices []string
	c, st := newTestController(t, b, func(o *Options) {
		o.OnNotice = func(convID, msg string) {
			mu.Lock()
			notices = append(notices, msg)
			mu.Unlock()
		}
	})

	st.Select("c1")
	if _, err := c.Send(context.Background(), "q"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	waitFor(t, "reconcile failure notice", func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, n := range notices {
			if strings.Contains(n, "could not refresh history") {
				return true
			}
		}
		return false
	})

	// The streamed answer stays on screen instead of vanishing.
	if got := st.Streaming("c1").Buffer; got != "answer" {
		t.Errorf("streamed buffer lost on failed reconcile: %q", got)
	}
}

func TestStaleHistoryFetchDoesNotLand(t *testing.T) {
	b := newFakeBackend(t)
	b.addConversation("c1", "Slow")
	b.addConversation("c2", "Fast")
	b.setHistory("c1", []model.Message{{ID: "m1", Role: model.RoleUser, Content: "old"}})
	b.setHistory("c2", []model.Message{{ID: "m2", Role: model.RoleUser, Content: "new"}})

	c, st := newTestController(t, b)

	// Select c1, then immediately c2. The c1 fetch result, however it
	// races, must never overwrite c2's view once c2 is current.
	c.Select(context.Background(), "c1")
	c.Select(context.Background(), "c2")

	if st.Selected() != "c2" {
		t.Fatalf("expected c2 selected, got %q", st.Selected())
	}
	msgs := st.Messages("c2")
	if len(msgs) != 1 || msgs[0].Content != "new" {
		t.Errorf("unexpected history for c2: %+v", msgs)
	}
}

func TestInfoEventBecomesNotice(t *testing.T) {
	b := newFakeBackend(t)
	b.addConversation("c1", "Docs")
	b.publish("c1",
		frame("info", `{"message":"searching 3 documents"}`),
		frame("done", `{}`),
	)

	var mu sync.Mutex
	var notices []string
	c, st := newTestController(t, b, func(o *Options) {
		o.OnNotice = func(convID, msg string) {
			mu.Lock()
			notices = append(notices, msg)
			mu.Unlock()
		}
	})

	st.Select("c1")
	if _, err := c.Send(context.Background(), "q"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	waitFor(t, "info notice", func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, n := range notices {
			if n == "searching 3 documents" {
				return true
			}
		}
		return false
	})
}

func TestRefreshReplacesConversationList(t *testing.T) {
	b := newFakeBackend(t)
	b.addConversation("c1", "Old")

	c, st := newTestController(t, b)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(st.Conversations()) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(st.Conversations()))
	}

	b.addConversation("c2", "New")
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	convs := st.Conversations()
	if len(convs) != 2 || convs[0].ID != "c2" {
		t.Errorf("expected refreshed list, got %+v", convs)
	}
}

func TestEndToEndTurn(t *testing.T) {
	b := newFakeBackend(t)

	c, st := newTestController(t, b)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	// First question with nothing selected creates the conversation.
	convID, err := c.Send(context.Background(), "summarize the report")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	b.publish(convID,
		frame("typing", `{"status":"started"}`),
		frame("text_delta", `{"delta":"The report "}`),
		frame("text_delta", `{"delta":"covers Q3."}`),
		frame("citation_map", `{"map":[{"id":1,"doc_id":"report","page_number":1}]}`),
		frame("done", `{}`),
	)
	waitFor(t, "first turn reconciled", func() bool {
		msgs := st.Messages(convID)
		return len(msgs) == 1 && !msgs[0].IsLocal() && !st.Streaming(convID).Active
	})

	// A follow-up turn streams in over the reattached connection.
	if _, err := c.Send(context.Background(), "and the details?"); err != nil {
		t.Fatalf("second Send failed: %v", err)
	}
	b.publish(convID,
		frame("text_delta", `{"delta":"Revenue grew."}`),
		frame("done", `{}`),
	)

	waitFor(t, "second turn reconciled", func() bool {
		msgs := st.Messages(convID)
		if len(msgs) != 2 {
			return false
		}
		for _, msg := range msgs {
			if msg.IsLocal() {
				return false
			}
		}
		return !st.Streaming(convID).Active
	})

	msgs := st.Messages(convID)
	if msgs[0].Content != "summarize the report" {
		t.Errorf("unexpected first message: %+v", msgs[0])
	}
	if st.Selected() != convID {
		t.Errorf("selection drifted to %q", st.Selected())
	}
}
