package services

import (
	"context"

	"parley/internal/domain/models"
)

// AddMessageRequest carries one message append. CurrentChat is the
// caller's in-memory chat reference; when it marks a temporary chat the
// append promotes the chat to the remote store first.
type AddMessageRequest struct {
	UserID      string         `json:"-"`
	ChatID      string         `json:"-"`
	Message     models.Message `json:"message"`
	CurrentChat *models.Chat   `json:"current_chat,omitempty"`
}

// CreateChatRequest creates a new temporary chat.
type CreateChatRequest struct {
	UserID string `json:"-"`
	Title  string `json:"title"`
}

// UpdateChatRequest applies a partial update to a chat.
type UpdateChatRequest struct {
	Title    *string `json:"title,omitempty"`
	IsClosed *bool   `json:"is_closed,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// UploadImageRequest attaches an already-uploaded image (by public URL)
// to a chat, promoting a temporary chat first when needed.
type UploadImageRequest struct {
	UserID      string           `json:"-"`
	ChatID      string           `json:"-"`
	Image       models.ChatImage `json:"image"`
	CurrentChat *models.Chat     `json:"current_chat,omitempty"`
}

// HistoryService is the single entry point for all chat history flows.
// It decides remote-versus-fallback per call, manages the
// temporary-to-persisted promotion, and owns the session pointer.
type HistoryService interface {
	// CreateNewChat returns an in-memory temporary chat and points the
	// session pointer at it. No remote row exists until the first
	// message or image.
	CreateNewChat(ctx context.Context, req *CreateChatRequest) (*models.Chat, error)

	// AddMessageToChat appends one message, promoting a temporary chat
	// first. The result carries the possibly rewritten chat id.
	AddMessageToChat(ctx context.Context, req *AddMessageRequest) (*models.AppendResult, error)

	// GetChatHistory lists the user's chats, falling back to the local
	// store when the remote store is unavailable.
	GetChatHistory(ctx context.Context, userID string) ([]models.Chat, error)

	// GetChat retrieves one chat with messages and images populated.
	GetChat(ctx context.Context, userID, chatID string) (*models.Chat, error)

	// UpdateChat applies a partial update to a chat.
	UpdateChat(ctx context.Context, userID, chatID string, req *UpdateChatRequest) (*models.Chat, error)

	// CloseChat seals a chat; closed chats reject further appends.
	CloseChat(ctx context.Context, userID, chatID string) (*models.Chat, error)

	// DeleteChat removes a chat, clearing the session pointer when it
	// pointed at the deleted chat.
	DeleteChat(ctx context.Context, userID, chatID string) error

	// ClearAllHistory removes every chat for the user, remote and local,
	// and clears the session pointer.
	ClearAllHistory(ctx context.Context, userID string) error

	// Session pointer access.
	SetCurrentChat(userID, chatID string) error
	GetCurrentChatID(userID string) (string, error)

	// MigrateToDatabase copies local fallback history into the remote
	// store, skipping chats that fail individually.
	MigrateToDatabase(ctx context.Context, userID string) (*models.MigrationResult, error)

	// Image operations.
	UploadImage(ctx context.Context, req *UploadImageRequest) (*models.ChatImage, error)
	ListImages(ctx context.Context, userID, chatID string) ([]models.ChatImage, error)
	DeleteImage(ctx context.Context, userID, chatID string, imageID int64) error
}
