package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"parley/internal/domain/models"
	"parley/internal/localstore"
)

func newTestStore(t *testing.T) *localstore.Store {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := localstore.Open(filepath.Join(t.TempDir(), "fallback.db"), logger)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestFinishMigrationClearsOnFullSuccess(t *testing.T) {
	store := newTestStore(t)
	store.WriteHistory("user-1", []models.Chat{{ID: "chat-a"}})
	store.WritePointer("user-1", "chat-a")

	cleared := finishMigration(store, "user-1", &models.MigrationResult{Migrated: 1})
	if !cleared {
		t.Fatal("finishMigration() = false, want true on full success")
	}
	if got := len(store.ReadHistory("user-1")); got != 0 {
		t.Errorf("local history length = %d after clear, want 0", got)
	}
	if got := store.ReadPointer("user-1"); got != "" {
		t.Errorf("pointer = %q after clear, want empty", got)
	}
}

func TestFinishMigrationKeepsLocalOnSkips(t *testing.T) {
	store := newTestStore(t)
	store.WriteHistory("user-1", []models.Chat{{ID: "chat-a"}, {ID: "chat-b"}})

	cleared := finishMigration(store, "user-1", &models.MigrationResult{Migrated: 1, Skipped: 1})
	if cleared {
		t.Fatal("finishMigration() = true with skipped chats, want false")
	}
	if got := len(store.ReadHistory("user-1")); got != 2 {
		t.Errorf("local history length = %d, want 2 kept for retry", got)
	}
}
