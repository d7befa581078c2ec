// Package store is the local persistent key-value store: per-activity UI
// state, comment drafts, and the live-stream resume cursor survive across
// sessions here. It is the desktop analog of the browser's local storage.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// Store is a sqlite-backed key-value store. The caller should call Close
// when the store is no longer needed.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the store at the given path. Use
// ":memory:" for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get retrieves a value. The second return is false when the key is absent.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Put upserts a value.
func (s *Store) Put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Draft returns the pending comment draft for an activity key, or "".
func (s *Store) Draft(ctx context.Context, activityKey string) (string, error) {
	value, _, err := s.Get(ctx, "draft/"+activityKey)
	return value, err
}

// SetDraft saves the pending comment draft for an activity key. An empty
// draft removes the entry.
func (s *Store) SetDraft(ctx context.Context, activityKey, text string) error {
	if text == "" {
		return s.Delete(ctx, "draft/"+activityKey)
	}
	return s.Put(ctx, "draft/"+activityKey, text)
}

// Expanded reports whether an activity's comment thread is expanded.
func (s *Store) Expanded(ctx context.Context, activityKey string) (bool, error) {
	_, ok, err := s.Get(ctx, "expanded/"+activityKey)
	return ok, err
}

// SetExpanded records whether an activity's comment thread is expanded.
func (s *Store) SetExpanded(ctx context.Context, activityKey string, expanded bool) error {
	if !expanded {
		return s.Delete(ctx, "expanded/"+activityKey)
	}
	return s.Put(ctx, "expanded/"+activityKey, "1")
}

// Cursor retrieves the last-processed stream cursor for the given service.
// Returns 0 if no cursor has been saved.
func (s *Store) Cursor(ctx context.Context, service string) (int64, error) {
	value, ok, err := s.Get(ctx, "cursor/"+service)
	if err != nil || !ok {
		return 0, err
	}
	cursor, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cursor for %q: %w", service, err)
	}
	return cursor, nil
}

// SetCursor persists the stream cursor so the subscriber can resume on
// restart.
func (s *Store) SetCursor(ctx context.Context, service string, cursor int64) error {
	return s.Put(ctx, "cursor/"+service, strconv.FormatInt(cursor, 10))
}
