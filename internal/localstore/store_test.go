package localstore

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"parley/internal/domain/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := Open(filepath.Join(t.TempDir(), "fallback.db"), logger)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestReadHistoryEmpty(t *testing.T) {
	store := newTestStore(t)

	chats := store.ReadHistory("user-1")
	if chats == nil {
		t.Fatal("ReadHistory() = nil, want empty slice")
	}
	if len(chats) != 0 {
		t.Fatalf("ReadHistory() returned %d chats, want 0", len(chats))
	}
}

func TestWriteReadHistoryRoundTrip(t *testing.T) {
	store := newTestStore(t)

	now := time.Now().Truncate(time.Second)
	store.WriteHistory("user-1", []models.Chat{
		{
			ID:        "chat-a",
			UserID:    "user-1",
			Title:     "First chat",
			Messages:  []models.Message{{Role: models.RoleUser, Text: "hello", Timestamp: "09:15"}},
			CreatedAt: now,
			UpdatedAt: now,
			IsActive:  true,
		},
		{ID: "chat-b", UserID: "user-1", Title: "Second chat", IsClosed: true},
	})

	chats := store.ReadHistory("user-1")
	if len(chats) != 2 {
		t.Fatalf("ReadHistory() returned %d chats, want 2", len(chats))
	}
	if chats[0].ID != "chat-a" || chats[1].ID != "chat-b" {
		t.Errorf("chat order = [%s, %s], want [chat-a, chat-b]", chats[0].ID, chats[1].ID)
	}
	if len(chats[0].Messages) != 1 || chats[0].Messages[0].Text != "hello" {
		t.Errorf("messages not preserved: %+v", chats[0].Messages)
	}
	if !chats[1].IsClosed {
		t.Error("IsClosed not preserved")
	}
}

func TestHistoryScopedPerUser(t *testing.T) {
	store := newTestStore(t)

	store.WriteHistory("user-1", []models.Chat{{ID: "chat-a"}})
	store.WriteHistory("user-2", []models.Chat{{ID: "chat-b"}, {ID: "chat-c"}})

	if got := len(store.ReadHistory("user-1")); got != 1 {
		t.Errorf("user-1 history length = %d, want 1", got)
	}
	if got := len(store.ReadHistory("user-2")); got != 2 {
		t.Errorf("user-2 history length = %d, want 2", got)
	}
}

func TestCorruptHistoryDegradesToEmpty(t *testing.T) {
	store := newTestStore(t)

	store.WriteHistory("user-1", []models.Chat{{ID: "chat-a"}})
	store.set(historyKeyPrefix+"user-1", "{not valid json")

	chats := store.ReadHistory("user-1")
	if chats == nil {
		t.Fatal("ReadHistory() = nil, want empty slice")
	}
	if len(chats) != 0 {
		t.Fatalf("ReadHistory() returned %d chats from corrupt record, want 0", len(chats))
	}
}

func TestPointerLifecycle(t *testing.T) {
	store := newTestStore(t)

	if got := store.ReadPointer("user-1"); got != "" {
		t.Fatalf("ReadPointer() on fresh store = %q, want empty", got)
	}

	store.WritePointer("user-1", "chat-a")
	store.WritePointer("user-2", "chat-b")

	if got := store.ReadPointer("user-1"); got != "chat-a" {
		t.Errorf("ReadPointer(user-1) = %q, want chat-a", got)
	}
	if got := store.ReadPointer("user-2"); got != "chat-b" {
		t.Errorf("ReadPointer(user-2) = %q, want chat-b", got)
	}

	// Overwrite
	store.WritePointer("user-1", "chat-c")
	if got := store.ReadPointer("user-1"); got != "chat-c" {
		t.Errorf("ReadPointer() after overwrite = %q, want chat-c", got)
	}

	store.ClearPointer("user-1")
	if got := store.ReadPointer("user-1"); got != "" {
		t.Errorf("ReadPointer() after clear = %q, want empty", got)
	}
	if got := store.ReadPointer("user-2"); got != "chat-b" {
		t.Errorf("ClearPointer(user-1) affected user-2: %q", got)
	}
}

func TestClearAll(t *testing.T) {
	store := newTestStore(t)

	store.WriteHistory("user-1", []models.Chat{{ID: "chat-a"}})
	store.WritePointer("user-1", "chat-a")
	store.WriteHistory("user-2", []models.Chat{{ID: "chat-b"}})

	store.ClearAll("user-1")

	if got := len(store.ReadHistory("user-1")); got != 0 {
		t.Errorf("history length after ClearAll = %d, want 0", got)
	}
	if got := store.ReadPointer("user-1"); got != "" {
		t.Errorf("pointer after ClearAll = %q, want empty", got)
	}
	if got := len(store.ReadHistory("user-2")); got != 1 {
		t.Errorf("ClearAll(user-1) affected user-2 history: %d chats", got)
	}
}

func TestStoreReopenPersists(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "fallback.db")

	store, err := Open(path, logger)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	store.WriteHistory("user-1", []models.Chat{{ID: "chat-a", Title: "kept"}})
	store.WritePointer("user-1", "chat-a")
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(path, logger)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	chats := reopened.ReadHistory("user-1")
	if len(chats) != 1 || chats[0].Title != "kept" {
		t.Fatalf("history not persisted across reopen: %+v", chats)
	}
	if got := reopened.ReadPointer("user-1"); got != "chat-a" {
		t.Errorf("pointer not persisted across reopen: %q", got)
	}
}
