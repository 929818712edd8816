package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"parley/internal/domain"
	"parley/internal/domain/models"
	"parley/internal/domain/repositories"
)

// PostgresChatStore implements the ChatStore interface using PostgreSQL
type PostgresChatStore struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewChatStore creates a new PostgresChatStore
func NewChatStore(config *RepositoryConfig) repositories.ChatStore {
	return &PostgresChatStore{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// CreateChat persists a new chat row. An empty chat.ID lets the store
// assign one; zero timestamps default to now. Migration passes preserved
// timestamps through unchanged.
func (s *PostgresChatStore) CreateChat(ctx context.Context, chat *models.Chat) error {
	now := time.Now()
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = now
	}
	if chat.UpdatedAt.IsZero() {
		chat.UpdatedAt = now
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, title, is_closed, is_active, has_image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, s.tables.Chats)

	executor := GetExecutor(ctx, s.pool)
	err := executor.QueryRow(ctx, query,
		chat.UserID,
		chat.Title,
		chat.IsClosed,
		chat.IsActive,
		chat.HasImage,
		chat.CreatedAt,
		chat.UpdatedAt,
	).Scan(&chat.ID, &chat.CreatedAt, &chat.UpdatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("create chat: %w", domain.ErrConflict)
		}
		return fmt.Errorf("create chat: %w", err)
	}

	chat.IsTemporary = false
	return nil
}

// GetChat retrieves a chat with its messages and images populated.
// Missing rows, rows owned by another user, and query failures all
// collapse to domain.ErrNotFound; only the logs tell them apart.
func (s *PostgresChatStore) GetChat(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, is_closed, is_active, has_image, image_url, image_name, created_at, updated_at
		FROM %s
		WHERE id = $1 AND user_id = $2
	`, s.tables.Chats)

	executor := GetExecutor(ctx, s.pool)

	var chat models.Chat
	err := executor.QueryRow(ctx, query, chatID, userID).Scan(
		&chat.ID,
		&chat.UserID,
		&chat.Title,
		&chat.IsClosed,
		&chat.IsActive,
		&chat.HasImage,
		&chat.ImageURL,
		&chat.ImageName,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			s.logger.Debug("chat not found", "chat_id", chatID, "user_id", userID)
		} else {
			s.logger.Error("get chat query failed", "chat_id", chatID, "error", err)
		}
		return nil, fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
	}

	messages, err := s.loadMessages(ctx, []string{chat.ID})
	if err != nil {
		s.logger.Error("load messages failed", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
	}
	chat.Messages = messages[chat.ID]
	if chat.Messages == nil {
		chat.Messages = []models.Message{}
	}

	images, err := s.loadImages(ctx, []string{chat.ID})
	if err != nil {
		s.logger.Error("load images failed", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
	}
	chat.Images = images[chat.ID]

	return &chat, nil
}

// ListChats retrieves all chats for a user, most recently updated first,
// with nested messages and images. Failures wrap ErrStoreUnavailable so
// the history service can fall back to the local store.
func (s *PostgresChatStore) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, is_closed, is_active, has_image, image_url, image_name, created_at, updated_at
		FROM %s
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`, s.tables.Chats)

	executor := GetExecutor(ctx, s.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %v: %w", err, domain.ErrStoreUnavailable)
	}
	defer rows.Close()

	var chats []models.Chat
	var chatIDs []string
	for rows.Next() {
		var chat models.Chat
		err := rows.Scan(
			&chat.ID,
			&chat.UserID,
			&chat.Title,
			&chat.IsClosed,
			&chat.IsActive,
			&chat.HasImage,
			&chat.ImageURL,
			&chat.ImageName,
			&chat.CreatedAt,
			&chat.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan chat: %v: %w", err, domain.ErrStoreUnavailable)
		}
		chats = append(chats, chat)
		chatIDs = append(chatIDs, chat.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %v: %w", err, domain.ErrStoreUnavailable)
	}

	if len(chats) == 0 {
		return []models.Chat{}, nil
	}

	messages, err := s.loadMessages(ctx, chatIDs)
	if err != nil {
		return nil, fmt.Errorf("list messages: %v: %w", err, domain.ErrStoreUnavailable)
	}
	images, err := s.loadImages(ctx, chatIDs)
	if err != nil {
		return nil, fmt.Errorf("list images: %v: %w", err, domain.ErrStoreUnavailable)
	}

	for i := range chats {
		chats[i].Messages = messages[chats[i].ID]
		if chats[i].Messages == nil {
			chats[i].Messages = []models.Message{}
		}
		chats[i].Images = images[chats[i].ID]
	}

	return chats, nil
}

// UpdateChat applies a partial update scoped to (chatID, userID).
func (s *PostgresChatStore) UpdateChat(ctx context.Context, userID, chatID string, upd repositories.ChatUpdate) (*models.Chat, error) {
	sets := []string{}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if upd.Title != nil {
		sets = append(sets, "title = "+arg(*upd.Title))
	}
	if upd.IsClosed != nil {
		sets = append(sets, "is_closed = "+arg(*upd.IsClosed))
	}
	if upd.IsActive != nil {
		sets = append(sets, "is_active = "+arg(*upd.IsActive))
	}
	if upd.HasImage != nil {
		sets = append(sets, "has_image = "+arg(*upd.HasImage))
	}
	if upd.ImageURL != nil {
		sets = append(sets, "image_url = "+arg(*upd.ImageURL))
	}
	if upd.ImageName != nil {
		sets = append(sets, "image_name = "+arg(*upd.ImageName))
	}
	sets = append(sets, "updated_at = "+arg(time.Now()))

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE id = %s AND user_id = %s
		RETURNING id, user_id, title, is_closed, is_active, has_image, image_url, image_name, created_at, updated_at
	`, s.tables.Chats, strings.Join(sets, ", "), arg(chatID), arg(userID))

	executor := GetExecutor(ctx, s.pool)

	var chat models.Chat
	err := executor.QueryRow(ctx, query, args...).Scan(
		&chat.ID,
		&chat.UserID,
		&chat.Title,
		&chat.IsClosed,
		&chat.IsActive,
		&chat.HasImage,
		&chat.ImageURL,
		&chat.ImageName,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			s.logger.Warn("update chat skipped, row not owned or missing", "chat_id", chatID, "user_id", userID)
		} else {
			s.logger.Error("update chat failed", "chat_id", chatID, "error", err)
		}
		return nil, fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
	}

	return &chat, nil
}

// DeleteChat deletes the chat row; messages and images cascade away.
func (s *PostgresChatStore) DeleteChat(ctx context.Context, userID, chatID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE id = $1 AND user_id = $2
	`, s.tables.Chats)

	executor := GetExecutor(ctx, s.pool)
	result, err := executor.Exec(ctx, query, chatID, userID)
	if err != nil {
		s.logger.Error("delete chat failed", "chat_id", chatID, "error", err)
		return fmt.Errorf("delete chat: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
	}

	return nil
}

// DeleteAllChats deletes every chat owned by the user.
func (s *PostgresChatStore) DeleteAllChats(ctx context.Context, userID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE user_id = $1
	`, s.tables.Chats)

	executor := GetExecutor(ctx, s.pool)
	if _, err := executor.Exec(ctx, query, userID); err != nil {
		s.logger.Error("delete all chats failed", "user_id", userID, "error", err)
		return fmt.Errorf("delete all chats: %w", err)
	}

	return nil
}
