package repositories

import "parley/internal/domain/models"

// FallbackStore is the local, synchronous, best-effort store used when
// the remote chat store is unavailable. It holds each user's full chat
// history as one serialized array plus the session pointer.
//
// Reads never fail: a corrupt or missing record degrades to empty.
// Writes are best-effort; failures are logged by the implementation and
// not propagated.
type FallbackStore interface {
	// ReadHistory returns the user's chat history array, or an empty
	// slice when absent or corrupt.
	ReadHistory(userID string) []models.Chat

	// WriteHistory replaces the user's chat history array.
	WriteHistory(userID string, chats []models.Chat)

	// GetChat returns one chat from the history array, or nil.
	GetChat(userID, chatID string) *models.Chat

	// CreateChat prepends a new local chat to the history array and
	// points the session pointer at it.
	CreateChat(userID, title string) *models.Chat

	// AddMessage appends a message to a local chat, deriving the title
	// from the first user message. Returns domain.ErrChatClosed for a
	// sealed chat and domain.ErrNotFound for an unknown one.
	AddMessage(userID, chatID string, msg models.Message) (*models.Chat, error)

	// UpdateChat applies a partial update to a local chat.
	UpdateChat(userID, chatID string, upd ChatUpdate) *models.Chat

	// CloseChat seals a local chat against further appends.
	CloseChat(userID, chatID string) *models.Chat

	// DeleteChat removes a chat from the history array, clearing the
	// session pointer when it pointed at the deleted chat.
	DeleteChat(userID, chatID string)

	// Session pointer operations, scoped per user.
	ReadPointer(userID string) string
	WritePointer(userID, chatID string)
	ClearPointer(userID string)

	// ClearAll removes the user's history array and session pointer.
	ClearAll(userID string)
}
