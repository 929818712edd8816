package repositories

import (
	"context"

	"parley/internal/domain/models"
)

// ChatUpdate describes a partial update to a chat row. Nil fields are
// left unchanged.
type ChatUpdate struct {
	Title     *string
	IsClosed  *bool
	IsActive  *bool
	HasImage  *bool
	ImageURL  *string
	ImageName *string
}

// ChatStore defines the interface for the remote chat store.
//
// Every operation that can fail returns an error instead of panicking so
// the history service can apply its fallback policy. Single-row lookups
// collapse "missing", "owned by another user", and "query failed" into
// domain.ErrNotFound.
type ChatStore interface {
	// CreateChat persists a new chat row. The store assigns the id when
	// chat.ID is empty and fills CreatedAt/UpdatedAt from the provided
	// timestamps (zero timestamps default to now). Used both for
	// promotion and for migration, which preserves original timestamps.
	CreateChat(ctx context.Context, chat *models.Chat) error

	// GetChat retrieves a chat with its messages (ascending by creation
	// time) and images (by upload order) populated.
	// Returns domain.ErrNotFound if absent.
	GetChat(ctx context.Context, userID, chatID string) (*models.Chat, error)

	// ListChats retrieves all chats for a user, most recently updated
	// first, with nested messages and images populated.
	ListChats(ctx context.Context, userID string) ([]models.Chat, error)

	// UpdateChat applies a partial update scoped to (chatID, userID).
	// Returns domain.ErrNotFound if the row does not belong to the user.
	UpdateChat(ctx context.Context, userID, chatID string, upd ChatUpdate) (*models.Chat, error)

	// AppendMessage inserts one message row, filling msg.ID and
	// msg.CreatedAt. On success it best-effort derives the chat title
	// from the first user message and touches the chat's updated_at;
	// failures of either side effect never fail the append.
	AppendMessage(ctx context.Context, userID, chatID string, msg *models.Message) error

	// BulkInsertMessages inserts migrated messages preserving their
	// original timestamps where available.
	BulkInsertMessages(ctx context.Context, chatID string, msgs []models.Message) error

	// DeleteChat deletes the chat row; messages and images go with it
	// via foreign-key cascade. Returns domain.ErrNotFound if absent.
	DeleteChat(ctx context.Context, userID, chatID string) error

	// DeleteAllChats deletes every chat owned by the user.
	DeleteAllChats(ctx context.Context, userID string) error

	// UploadImage inserts one image row, filling img.ID and img.CreatedAt.
	UploadImage(ctx context.Context, userID, chatID string, img *models.ChatImage) error

	// BulkInsertImages inserts migrated images.
	BulkInsertImages(ctx context.Context, userID, chatID string, imgs []models.ChatImage) error

	// ListImages retrieves all images for a chat ordered by upload order.
	ListImages(ctx context.Context, userID, chatID string) ([]models.ChatImage, error)

	// DeleteImage deletes a single image scoped to (imageID, chatID, userID).
	DeleteImage(ctx context.Context, userID, chatID string, imageID int64) error
}
