package history

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"parley/internal/domain"
	"parley/internal/domain/models"
)

func TestMigrateEmptyLocalHistory(t *testing.T) {
	svc, _, _ := newTestService(t)

	result, err := svc.MigrateToDatabase(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("MigrateToDatabase() error = %v", err)
	}
	if result.Migrated != 0 || result.Skipped != 0 {
		t.Errorf("result = %+v, want zero counts", result)
	}
}

func TestMigrateRequiresUserID(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.MigrateToDatabase(context.Background(), "")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("MigrateToDatabase() error = %v, want ErrValidation", err)
	}
}

func TestMigrateCopiesChatsMessagesAndImages(t *testing.T) {
	svc, remote, local := newTestService(t)

	created := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	local.WriteHistory("user-1", []models.Chat{
		{
			ID:        "local-a",
			UserID:    "user-1",
			Title:     "imported chat",
			IsClosed:  true,
			CreatedAt: created,
			UpdatedAt: created.Add(time.Hour),
			Messages: []models.Message{
				{Role: models.RoleUser, Text: "question", CreatedAt: created},
				{Role: models.RoleBot, Text: "answer", CreatedAt: created.Add(time.Minute)},
			},
			Images: []models.ChatImage{
				{URL: "https://cdn.example.com/x.png", Name: "x.png"},
			},
		},
	})

	result, err := svc.MigrateToDatabase(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("MigrateToDatabase() error = %v", err)
	}
	if result.Migrated != 1 || result.Skipped != 0 {
		t.Fatalf("result = %+v, want migrated=1 skipped=0", result)
	}

	if len(remote.chats) != 1 {
		t.Fatalf("remote store has %d chats, want 1", len(remote.chats))
	}
	var migratedID string
	for id, chat := range remote.chats {
		migratedID = id
		if chat.Title != "imported chat" {
			t.Errorf("title = %q", chat.Title)
		}
		if !chat.IsClosed {
			t.Error("IsClosed not preserved")
		}
		if !chat.CreatedAt.Equal(created) {
			t.Errorf("CreatedAt = %v, want original %v", chat.CreatedAt, created)
		}
	}

	msgs := remote.messages[migratedID]
	if len(msgs) != 2 {
		t.Fatalf("migrated %d messages, want 2", len(msgs))
	}
	if msgs[0].Text != "question" || msgs[1].Text != "answer" {
		t.Errorf("message order = [%s, %s]", msgs[0].Text, msgs[1].Text)
	}
	if !msgs[0].CreatedAt.Equal(created) {
		t.Errorf("message CreatedAt = %v, want original %v", msgs[0].CreatedAt, created)
	}

	if len(remote.images[migratedID]) != 1 {
		t.Errorf("migrated %d images, want 1", len(remote.images[migratedID]))
	}
}

func TestMigratePartialProgress(t *testing.T) {
	svc, remote, local := newTestService(t)

	local.WriteHistory("user-1", []models.Chat{
		{ID: "local-a", UserID: "user-1", Title: "good chat"},
		{ID: "local-b", UserID: "user-1", Title: "bad chat"},
	})
	remote.createErrTitles = map[string]error{"bad chat": errors.New("constraint violation")}

	result, err := svc.MigrateToDatabase(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("MigrateToDatabase() error = %v, want partial progress", err)
	}
	if result.Migrated != 1 {
		t.Errorf("Migrated = %d, want 1", result.Migrated)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}
	if len(remote.chats) != 1 {
		t.Errorf("remote store has %d chats, want 1", len(remote.chats))
	}

	// Local copy stays untouched so the skipped chat can retry
	if got := len(local.ReadHistory("user-1")); got != 2 {
		t.Errorf("local history length = %d after migration, want 2", got)
	}
}

func TestMigrateRunsEachChatInTransaction(t *testing.T) {
	remote := newFakeRemote()
	local := newMemFallback()
	tx := &fakeTx{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(remote, local, tx, logger).(*Service)

	local.WriteHistory("user-1", []models.Chat{
		{ID: "local-a", UserID: "user-1", Title: "one"},
		{ID: "local-b", UserID: "user-1", Title: "two"},
	})

	if _, err := svc.MigrateToDatabase(context.Background(), "user-1"); err != nil {
		t.Fatalf("MigrateToDatabase() error = %v", err)
	}
	if tx.calls != 2 {
		t.Errorf("transaction count = %d, want one per chat", tx.calls)
	}
}
