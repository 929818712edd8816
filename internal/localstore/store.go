// Package localstore is the local fallback store: a sqlite-backed,
// user-scoped key-value cache of serialized chat history and the session
// pointer. It is never the primary source of truth while the remote chat
// store is healthy; it exists for offline and degraded continuity.
package localstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"parley/internal/domain/models"
	"parley/internal/domain/repositories"
)

const (
	historyKeyPrefix = "chat_history_"
	pointerKeyPrefix = "current_chat_"
)

// Store implements repositories.FallbackStore on a single sqlite file.
//
// Access is serialized with a mutex over a single connection; every
// operation is synchronous and best-effort. Reads degrade to empty on
// any failure, including corrupt JSON.
type Store struct {
	db     *sql.DB
	mutex  sync.Mutex
	logger *slog.Logger
}

// Open opens (creating if needed) the sqlite file backing the store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create local store directory: %w", err)
		}
	}

	// WAL keeps concurrent handler reads from blocking on writes
	dsn := path + "?_journal_mode=WAL"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping local store: %w", err)
	}

	// Single connection, guarded by the mutex
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying sqlite handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(key string) (string, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		s.logger.Error("local store read failed", "key", key, "error", err)
		return "", false
	}
	return value, true
}

func (s *Store) set(key, value string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		s.logger.Error("local store write failed", "key", key, "error", err)
	}
}

func (s *Store) delete(key string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		s.logger.Error("local store delete failed", "key", key, "error", err)
	}
}

// ReadHistory returns the user's chat history array. A missing record or
// corrupt JSON degrades to an empty slice, never an error.
func (s *Store) ReadHistory(userID string) []models.Chat {
	raw, ok := s.get(historyKeyPrefix + userID)
	if !ok {
		return []models.Chat{}
	}

	var chats []models.Chat
	if err := json.Unmarshal([]byte(raw), &chats); err != nil {
		s.logger.Error("local history corrupt, treating as empty", "user_id", userID, "error", err)
		return []models.Chat{}
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	return chats
}

// WriteHistory replaces the user's chat history array. Best-effort.
func (s *Store) WriteHistory(userID string, chats []models.Chat) {
	raw, err := json.Marshal(chats)
	if err != nil {
		s.logger.Error("serialize local history failed", "user_id", userID, "error", err)
		return
	}
	s.set(historyKeyPrefix+userID, string(raw))
}

// ReadPointer returns the current chat id for the user, or "".
func (s *Store) ReadPointer(userID string) string {
	value, _ := s.get(pointerKeyPrefix + userID)
	return value
}

// WritePointer records the current chat id for the user.
func (s *Store) WritePointer(userID, chatID string) {
	s.set(pointerKeyPrefix+userID, chatID)
}

// ClearPointer removes the user's current chat pointer.
func (s *Store) ClearPointer(userID string) {
	s.delete(pointerKeyPrefix + userID)
}

// ClearAll removes the user's history array and session pointer.
func (s *Store) ClearAll(userID string) {
	s.delete(historyKeyPrefix + userID)
	s.delete(pointerKeyPrefix + userID)
}

var _ repositories.FallbackStore = (*Store)(nil)
