package localstore

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"parley/internal/domain"
	"parley/internal/domain/models"
	"parley/internal/domain/repositories"
)

// Degraded-mode history manager: these methods manipulate the serialized
// chat array directly, giving the history service a working chat session
// lifecycle while the remote store is unreachable.

// GetChat returns one chat from the history array, or nil.
func (s *Store) GetChat(userID, chatID string) *models.Chat {
	for _, chat := range s.ReadHistory(userID) {
		if chat.ID == chatID {
			return &chat
		}
	}
	return nil
}

// CreateChat prepends a new local chat to the history array and points
// the session pointer at it.
func (s *Store) CreateChat(userID, title string) *models.Chat {
	now := time.Now()
	if title == "" {
		title = models.DefaultTitle(now)
	}

	chat := models.Chat{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Messages:  []models.Message{},
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
		IsClosed:  false,
	}

	history := s.ReadHistory(userID)
	history = append([]models.Chat{chat}, history...)
	s.WriteHistory(userID, history)
	s.WritePointer(userID, chat.ID)

	return &chat
}

// AddMessage appends a message to a local chat. A sealed chat rejects
// the append; the first user message derives the chat title.
func (s *Store) AddMessage(userID, chatID string, msg models.Message) (*models.Chat, error) {
	history := s.ReadHistory(userID)
	for i := range history {
		if history[i].ID != chatID {
			continue
		}
		if history[i].IsClosed {
			return nil, fmt.Errorf("chat %s: %w", chatID, domain.ErrChatClosed)
		}

		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now()
		}
		msg.ChatID = chatID
		history[i].Messages = append(history[i].Messages, msg)
		history[i].UpdatedAt = time.Now()

		if msg.Role == models.RoleUser && countUserMessages(history[i].Messages) == 1 {
			history[i].Title = models.DeriveTitle(msg.Text)
		}

		s.WriteHistory(userID, history)
		return &history[i], nil
	}
	return nil, fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
}

// UpdateChat applies a partial update to a local chat, or returns nil.
func (s *Store) UpdateChat(userID, chatID string, upd repositories.ChatUpdate) *models.Chat {
	history := s.ReadHistory(userID)
	for i := range history {
		if history[i].ID != chatID {
			continue
		}

		if upd.Title != nil {
			history[i].Title = *upd.Title
		}
		if upd.IsClosed != nil {
			history[i].IsClosed = *upd.IsClosed
		}
		if upd.IsActive != nil {
			history[i].IsActive = *upd.IsActive
		}
		if upd.HasImage != nil {
			history[i].HasImage = *upd.HasImage
		}
		if upd.ImageURL != nil {
			history[i].ImageURL = upd.ImageURL
		}
		if upd.ImageName != nil {
			history[i].ImageName = upd.ImageName
		}
		history[i].UpdatedAt = time.Now()

		s.WriteHistory(userID, history)
		return &history[i]
	}
	return nil
}

// CloseChat seals a local chat against further appends.
func (s *Store) CloseChat(userID, chatID string) *models.Chat {
	closed := true
	inactive := false
	return s.UpdateChat(userID, chatID, repositories.ChatUpdate{
		IsClosed: &closed,
		IsActive: &inactive,
	})
}

// DeleteChat removes a chat from the history array and clears the
// session pointer when it pointed at the deleted chat.
func (s *Store) DeleteChat(userID, chatID string) {
	history := s.ReadHistory(userID)
	filtered := history[:0]
	for _, chat := range history {
		if chat.ID != chatID {
			filtered = append(filtered, chat)
		}
	}
	s.WriteHistory(userID, filtered)

	if s.ReadPointer(userID) == chatID {
		s.ClearPointer(userID)
	}
}

func countUserMessages(msgs []models.Message) int {
	n := 0
	for _, m := range msgs {
		if m.Role == models.RoleUser {
			n++
		}
	}
	return n
}
