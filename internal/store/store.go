// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sync"

	"github.com/morganforge/docchat-tui/internal/model"
)

// =============================================================================
// PARTITIONS
// =============================================================================

// Partition identifies one independently-changing slice of client state.
type Partition int

const (
	PartitionConversations Partition = iota
	PartitionMessages
	PartitionStreaming
	PartitionErrors
	PartitionSelection
)

// String returns a human-readable partition name.
func (p Partition) String() string {
	switch p {
	case PartitionConversations:
		return "conversations"
	case PartitionMessages:
		return "messages"
	case PartitionStreaming:
		return "streaming"
	case PartitionErrors:
		return "errors"
	case PartitionSelection:
		return "selection"
	default:
		return "unknown"
	}
}

// Listener observes state changes. Called synchronously after the mutation
// commits, outside the store lock; reading the store from a listener is safe.
type Listener func(Partition)

// =============================================================================
// STORE
// =============================================================================

// Store is the mutable client state, safe for concurrent use.
type Store struct {
	mu            sync.RWMutex
	conversations []model.Conversation
	messages      map[string][]model.Message
	streaming     map[string]*model.StreamingState
	errors        map[string]string
	selected      string

	subMu  sync.Mutex
	subs   map[int]Listener
	nextID int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		messages:  make(map[string][]model.Message),
		streaming: make(map[string]*model.StreamingState),
		errors:    make(map[string]string),
		subs:      make(map[int]Listener),
	}
}

// Subscribe registers a listener for state changes. The returned function
// removes it; calling it more than once is harmless.
func (s *Store) Subscribe(fn Listener) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// notify fans a partition change out to every listener.
func (s *Store) notify(p Partition) {
	s.subMu.Lock()
	listeners := make([]Listener, 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.subMu.Unlock()

	for _, fn := range listeners {
		fn(p)
	}
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// SetConversations replaces the whole conversation list. Reloads always
// replace; the server's list is the truth, not a merge input.
func (s *Store) SetConversations(convs []model.Conversation) {
	s.mu.Lock()
	s.conversations = append([]model.Conversation(nil), convs...)
	s.mu.Unlock()
	s.notify(PartitionConversations)
}

// PrependConversation puts a conversation at the head of the list, replacing
// any existing entry with the same id.
func (s *Store) PrependConversation(conv model.Conversation) {
	s.mu.Lock()
	next := make([]model.Conversation, 0, len(s.conversations)+1)
	next = append(next, conv)
	for _, existing := range s.conversations {
		if existing.ID != conv.ID {
			next = append(next, existing)
		}
	}
	s.conversations = next
	s.mu.Unlock()
	s.notify(PartitionConversations)
}

// Conversations returns a copy of the conversation list.
func (s *Store) Conversations() []model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Conversation(nil), s.conversations...)
}

// Conversation looks up one conversation by id.
func (s *Store) Conversation(id string) (model.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, conv := range s.conversations {
		if conv.ID == id {
			return conv, true
		}
	}
	return model.Conversation{}, false
}

// =============================================================================
// MESSAGES
// =============================================================================

// SetMessages replaces the full message history for a conversation. This is
// the reconciliation path: the persisted history wins over anything local.
func (s *Store) SetMessages(conversationID string, msgs []model.Message) {
	s.mu.Lock()
	s.messages[conversationID] = append([]model.Message(nil), msgs...)
	s.mu.Unlock()
	s.notify(PartitionMessages)
}

// AppendMessage adds one message to a conversation's history. This is the
// optimistic path; the next SetMessages supersedes it.
func (s *Store) AppendMessage(conversationID string, msg model.Message) {
	s.mu.Lock()
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	s.mu.Unlock()
	s.notify(PartitionMessages)
}

// RemoveMessage deletes one message by id. This is the rollback path for an
// optimistic message whose send never reached the backend.
func (s *Store) RemoveMessage(conversationID, messageID string) {
	s.mu.Lock()
	msgs := s.messages[conversationID]
	for i, msg := range msgs {
		if msg.ID == messageID {
			s.messages[conversationID] = append(msgs[:i:i], msgs[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.notify(PartitionMessages)
}

// Messages returns a copy of a conversation's history. Unknown conversations
// have an empty history, not an error.
func (s *Store) Messages(conversationID string) []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Message(nil), s.messages[conversationID]...)
}

// =============================================================================
// STREAMING STATE
// =============================================================================

// BeginStreaming activates a fresh streaming state for a conversation,
// discarding any leftover buffer from an earlier turn.
func (s *Store) BeginStreaming(conversationID string) {
	s.mu.Lock()
	s.streaming[conversationID] = &model.StreamingState{
		ConversationID: conversationID,
		Active:         true,
	}
	s.mu.Unlock()
	s.notify(PartitionStreaming)
}

// AppendDelta concatenates incremental assistant text onto the streaming
// buffer, activating the state if the turn start was missed.
func (s *Store) AppendDelta(conversationID, delta string) {
	s.mu.Lock()
	st := s.ensureStreamingLocked(conversationID)
	st.Buffer += delta
	st.Active = true
	s.mu.Unlock()
	s.notify(PartitionStreaming)
}

// SetToolStatus records or clears the in-flight tool call for a conversation.
func (s *Store) SetToolStatus(conversationID string, ts *model.ToolStatus) {
	s.mu.Lock()
	st := s.ensureStreamingLocked(conversationID)
	st.ToolStatus = ts
	s.mu.Unlock()
	s.notify(PartitionStreaming)
}

// SetCitationMap replaces the citation table for the in-progress turn.
// Replacement, never a merge: the map event carries the whole table.
func (s *Store) SetCitationMap(conversationID string, entries []model.CitationMapEntry) {
	s.mu.Lock()
	st := s.ensureStreamingLocked(conversationID)
	st.CitationMap = append([]model.CitationMapEntry(nil), entries...)
	s.mu.Unlock()
	s.notify(PartitionStreaming)
}

// AddCitation merges one progressive citation row into the in-progress
// table. An existing row with the same id is kept.
func (s *Store) AddCitation(conversationID string, entry model.CitationMapEntry) {
	s.mu.Lock()
	st := s.ensureStreamingLocked(conversationID)
	st.CitationMap = model.MergeCitation(st.CitationMap, entry)
	s.mu.Unlock()
	s.notify(PartitionStreaming)
}

// EndStreaming deactivates the streaming state but keeps the buffer, so the
// view can keep painting the turn until reconciliation replaces it.
func (s *Store) EndStreaming(conversationID string) {
	s.mu.Lock()
	if st, ok := s.streaming[conversationID]; ok {
		st.Active = false
		st.ToolStatus = nil
	}
	s.mu.Unlock()
	s.notify(PartitionStreaming)
}

// ClearStreaming discards the streaming state entirely.
func (s *Store) ClearStreaming(conversationID string) {
	s.mu.Lock()
	delete(s.streaming, conversationID)
	s.mu.Unlock()
	s.notify(PartitionStreaming)
}

// Streaming returns a copy of a conversation's streaming state. Unknown
// conversations report an inactive zero state.
func (s *Store) Streaming(conversationID string) model.StreamingState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.streaming[conversationID]
	if !ok {
		return model.StreamingState{ConversationID: conversationID}
	}
	out := *st
	if st.ToolStatus != nil {
		ts := *st.ToolStatus
		out.ToolStatus = &ts
	}
	out.CitationMap = append([]model.CitationMapEntry(nil), st.CitationMap...)
	return out
}

// ensureStreamingLocked returns the streaming state for a conversation,
// creating an inactive one when absent. Caller holds the write lock.
func (s *Store) ensureStreamingLocked(conversationID string) *model.StreamingState {
	st, ok := s.streaming[conversationID]
	if !ok {
		st = &model.StreamingState{ConversationID: conversationID}
		s.streaming[conversationID] = st
	}
	return st
}

// =============================================================================
// ERRORS
// =============================================================================

// SetError records a per-conversation error notice.
func (s *Store) SetError(conversationID, message string) {
	s.mu.Lock()
	s.errors[conversationID] = message
	s.mu.Unlock()
	s.notify(PartitionErrors)
}

// ClearError discards the error notice for a conversation.
func (s *Store) ClearError(conversationID string) {
	s.mu.Lock()
	delete(s.errors, conversationID)
	s.mu.Unlock()
	s.notify(PartitionErrors)
}

// Error returns the current error notice for a conversation, empty when none.
func (s *Store) Error(conversationID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errors[conversationID]
}

// =============================================================================
// SELECTION
// =============================================================================

// Select makes a conversation current. Empty means nothing selected.
func (s *Store) Select(conversationID string) {
	s.mu.Lock()
	changed := s.selected != conversationID
	s.selected = conversationID
	s.mu.Unlock()
	if changed {
		s.notify(PartitionSelection)
	}
}

// Selected returns the current conversation id, empty when none.
func (s *Store) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}
