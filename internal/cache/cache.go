// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache mirrors server-side conversation state in a local SQLite
// database, so the client can show history while the backend is away.
//
// The cache is strictly a shadow of the server: writes happen after a
// successful fetch, reads only serve fallbacks. It is never the source of
// truth and never reconciled back to the server.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/morganforge/docchat-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotCached     = errors.New("conversation not cached")
	ErrDatabaseError = errors.New("cache database error")
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	conversation_id TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	created_at      TEXT,
	position        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	message_id      TEXT NOT NULL,
	conversation_id TEXT NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	metadata        TEXT,
	created_at      TEXT,
	position        INTEGER NOT NULL,
	PRIMARY KEY (conversation_id, message_id)
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation
	ON messages(conversation_id, position);
`

// =============================================================================
// CACHE
// =============================================================================

// Cache is a local mirror of conversations and their histories.
type Cache struct {
	db *sql.DB
}

// Open creates or opens the cache database at path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	// One writer at a time keeps the pure-Go driver out of SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return &Cache{db: db}, nil
}

// Close releases the database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// SaveConversations replaces the cached conversation list.
func (c *Cache) SaveConversations(convs []model.Conversation) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM conversations`); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO conversations (conversation_id, title, created_at, position)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer stmt.Close()

	for i, conv := range convs {
		if _, err := stmt.Exec(conv.ID, conv.Title, encodeTime(conv.CreatedAt), i); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}
	return tx.Commit()
}

// LoadConversations returns the cached conversation list in saved order.
func (c *Cache) LoadConversations() ([]model.Conversation, error) {
	rows, err := c.db.Query(`
		SELECT conversation_id, title, created_at
		FROM conversations ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var convs []model.Conversation
	for rows.Next() {
		var conv model.Conversation
		var createdAt sql.NullString
		if err := rows.Scan(&conv.ID, &conv.Title, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		conv.CreatedAt = decodeTime(createdAt)
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// =============================================================================
// HISTORIES
// =============================================================================

// SaveHistory replaces the cached history for one conversation. Local
// placeholder messages are skipped; only server-persisted turns are worth
// mirroring.
func (c *Cache) SaveHistory(conversationID string, msgs []model.Message) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO messages (message_id, conversation_id, role, content, metadata, created_at, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer stmt.Close()

	position := 0
	for _, msg := range msgs {
		if msg.IsLocal() {
			continue
		}
		metadata := ""
		if len(msg.Metadata) > 0 {
			metadata = string(msg.Metadata)
		}
		_, err := stmt.Exec(msg.ID, conversationID, string(msg.Role), msg.Content,
			metadata, encodeTime(msg.CreatedAt), position)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		position++
	}
	return tx.Commit()
}

// LoadHistory returns the cached history for one conversation, oldest first.
func (c *Cache) LoadHistory(conversationID string) ([]model.Message, error) {
	rows, err := c.db.Query(`
		SELECT message_id, role, content, metadata, created_at
		FROM messages WHERE conversation_id = ? ORDER BY position`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var msg model.Message
		var metadata, createdAt sql.NullString
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		msg.ConversationID = conversationID
		if metadata.Valid && metadata.String != "" {
			msg.Metadata = json.RawMessage(metadata.String)
		}
		msg.CreatedAt = decodeTime(createdAt)
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if msgs == nil {
		return nil, ErrNotCached
	}
	return msgs, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func encodeTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}
