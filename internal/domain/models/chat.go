package models

import (
	"time"

	"parley/internal/config"
)

// Message roles
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Chat represents one conversation thread owned by a user.
//
// A chat starts out temporary: it exists only in memory and in the local
// fallback store, under a client-generated UUID. The first message (or
// image) promotes it to the remote store, which assigns a new identifier.
type Chat struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id,omitempty"`
	Title     string      `json:"title"`
	Messages  []Message   `json:"messages"`
	Images    []ChatImage `json:"images,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	IsActive  bool        `json:"is_active"`
	IsClosed  bool        `json:"is_closed"`
	HasImage  bool        `json:"has_image,omitempty"`
	ImageURL  *string     `json:"image_url,omitempty"`
	ImageName *string     `json:"image_name,omitempty"`

	// IsTemporary marks a chat that has not been written to the remote
	// store yet. Never true for chats read back from the remote store.
	IsTemporary bool `json:"is_temporary,omitempty"`
}

// Message is one turn in a chat. Immutable once appended.
type Message struct {
	ID        int64     `json:"id,omitempty"`
	ChatID    string    `json:"chat_id,omitempty"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp string    `json:"timestamp,omitempty"` // client-formatted HH:MM display string
	CreatedAt time.Time `json:"created_at,omitzero"`
	ModelUsed string    `json:"model_used,omitempty"`

	// Transient UI flags, never persisted.
	IsError  bool `json:"-"`
	IsTyping bool `json:"-"`
}

// ChatImage is an uploaded image attached to a chat. Only the public URL
// is recorded here; the bytes live in object storage.
type ChatImage struct {
	ID          int64     `json:"id,omitempty"`
	ChatID      string    `json:"chat_id,omitempty"`
	URL         string    `json:"url"`
	Name        string    `json:"name"`
	FileSize    int64     `json:"file_size"`
	MimeType    string    `json:"mime_type"`
	UploadOrder int       `json:"upload_order"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// MigrationResult reports how much of the local history reached the
// remote store. Skipped chats stay in the local store untouched.
type MigrationResult struct {
	Migrated int `json:"migrated"`
	Skipped  int `json:"skipped"`
}

// AppendResult carries the persisted message together with the chat id it
// landed in, which differs from the requested id when the append promoted
// a temporary chat.
type AppendResult struct {
	Message  Message `json:"message"`
	ChatID   string  `json:"chat_id"`
	Promoted bool    `json:"promoted"`

	// Persisted reports whether the message reached the remote store.
	// False means the append landed only in the local fallback store.
	Persisted bool `json:"persisted"`
}

// DeriveTitle produces a chat title from the first user message:
// the text truncated to TitleDerivationLength characters with an
// ellipsis marker when longer.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) > config.TitleDerivationLength {
		return string(runes[:config.TitleDerivationLength]) + "..."
	}
	return text
}

// DefaultTitle is the placeholder title for a chat created without one.
func DefaultTitle(now time.Time) string {
	return "Chat " + now.Format("1/2/2006")
}
