package localstore

import (
	"errors"
	"strings"
	"testing"

	"parley/internal/config"
	"parley/internal/domain"
	"parley/internal/domain/models"
	"parley/internal/domain/repositories"
)

func TestCreateChatPrependsAndPointsSession(t *testing.T) {
	store := newTestStore(t)

	first := store.CreateChat("user-1", "older chat")
	second := store.CreateChat("user-1", "newer chat")

	history := store.ReadHistory("user-1")
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].ID != second.ID {
		t.Errorf("newest chat not first: got %s, want %s", history[0].ID, second.ID)
	}
	if history[1].ID != first.ID {
		t.Errorf("older chat not second: got %s, want %s", history[1].ID, first.ID)
	}
	if got := store.ReadPointer("user-1"); got != second.ID {
		t.Errorf("pointer = %q, want %q", got, second.ID)
	}
}

func TestCreateChatDefaultTitle(t *testing.T) {
	store := newTestStore(t)

	chat := store.CreateChat("user-1", "")
	if !strings.HasPrefix(chat.Title, "Chat ") {
		t.Errorf("default title = %q, want 'Chat M/D/YYYY' form", chat.Title)
	}
}

func TestAddMessageDerivesTitleFromFirstUserMessage(t *testing.T) {
	store := newTestStore(t)
	chat := store.CreateChat("user-1", "")

	text := "How do I configure the database connection pool for production workloads?"
	updated, err := store.AddMessage("user-1", chat.ID, models.Message{Role: models.RoleUser, Text: text})
	if err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}

	want := string([]rune(text)[:config.TitleDerivationLength]) + "..."
	if updated.Title != want {
		t.Errorf("derived title = %q, want %q", updated.Title, want)
	}

	// A second user message must not re-derive the title
	updated, err = store.AddMessage("user-1", chat.ID, models.Message{Role: models.RoleUser, Text: "unrelated follow-up"})
	if err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}
	if updated.Title != want {
		t.Errorf("title changed on second message: %q", updated.Title)
	}
}

func TestAddMessageShortTextKeptVerbatim(t *testing.T) {
	store := newTestStore(t)
	chat := store.CreateChat("user-1", "")

	updated, err := store.AddMessage("user-1", chat.ID, models.Message{Role: models.RoleUser, Text: "short question"})
	if err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}
	if updated.Title != "short question" {
		t.Errorf("title = %q, want %q", updated.Title, "short question")
	}
}

func TestAddMessageBotFirstKeepsTitle(t *testing.T) {
	store := newTestStore(t)
	chat := store.CreateChat("user-1", "greeting chat")

	updated, err := store.AddMessage("user-1", chat.ID, models.Message{Role: models.RoleBot, Text: "Hello! How can I help?"})
	if err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}
	if updated.Title != "greeting chat" {
		t.Errorf("bot message changed title to %q", updated.Title)
	}
}

func TestAddMessageClosedChatRejected(t *testing.T) {
	store := newTestStore(t)
	chat := store.CreateChat("user-1", "sealed")
	if store.CloseChat("user-1", chat.ID) == nil {
		t.Fatal("CloseChat() = nil")
	}

	_, err := store.AddMessage("user-1", chat.ID, models.Message{Role: models.RoleUser, Text: "too late"})
	if !errors.Is(err, domain.ErrChatClosed) {
		t.Fatalf("AddMessage() on closed chat error = %v, want ErrChatClosed", err)
	}

	// Nothing was appended
	got := store.GetChat("user-1", chat.ID)
	if got == nil || len(got.Messages) != 0 {
		t.Errorf("closed chat was mutated: %+v", got)
	}
}

func TestAddMessageUnknownChat(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddMessage("user-1", "no-such-chat", models.Message{Role: models.RoleUser, Text: "hello"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("AddMessage() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateChatPartial(t *testing.T) {
	store := newTestStore(t)
	chat := store.CreateChat("user-1", "before")

	title := "after"
	updated := store.UpdateChat("user-1", chat.ID, repositories.ChatUpdate{Title: &title})
	if updated == nil {
		t.Fatal("UpdateChat() = nil")
	}
	if updated.Title != "after" {
		t.Errorf("title = %q, want after", updated.Title)
	}
	if updated.IsClosed {
		t.Error("untouched IsClosed flipped")
	}
	if !updated.IsActive {
		t.Error("untouched IsActive flipped")
	}

	if got := store.UpdateChat("user-1", "no-such-chat", repositories.ChatUpdate{Title: &title}); got != nil {
		t.Errorf("UpdateChat() on unknown chat = %+v, want nil", got)
	}
}

func TestCloseChatSeals(t *testing.T) {
	store := newTestStore(t)
	chat := store.CreateChat("user-1", "open")

	closed := store.CloseChat("user-1", chat.ID)
	if closed == nil {
		t.Fatal("CloseChat() = nil")
	}
	if !closed.IsClosed {
		t.Error("IsClosed = false after close")
	}
	if closed.IsActive {
		t.Error("IsActive = true after close")
	}
}

func TestDeleteChatClearsMatchingPointer(t *testing.T) {
	store := newTestStore(t)
	kept := store.CreateChat("user-1", "kept")
	doomed := store.CreateChat("user-1", "doomed")

	// Pointer follows the most recent creation
	if got := store.ReadPointer("user-1"); got != doomed.ID {
		t.Fatalf("pointer = %q, want %q", got, doomed.ID)
	}

	store.DeleteChat("user-1", doomed.ID)

	history := store.ReadHistory("user-1")
	if len(history) != 1 || history[0].ID != kept.ID {
		t.Fatalf("history after delete = %+v, want only %s", history, kept.ID)
	}
	if got := store.ReadPointer("user-1"); got != "" {
		t.Errorf("pointer after deleting current chat = %q, want empty", got)
	}
}

func TestDeleteChatKeepsUnrelatedPointer(t *testing.T) {
	store := newTestStore(t)
	doomed := store.CreateChat("user-1", "doomed")
	current := store.CreateChat("user-1", "current")

	store.DeleteChat("user-1", doomed.ID)

	if got := store.ReadPointer("user-1"); got != current.ID {
		t.Errorf("pointer = %q, want %q", got, current.ID)
	}
}
