package postgres

import (
	"context"
	"fmt"
	"time"

	"parley/internal/domain"
	"parley/internal/domain/models"
)

// AppendMessage inserts one message row, filling msg.ID and msg.CreatedAt.
//
// Two best-effort side effects follow a successful insert: if this was
// the chat's first user message, the chat title is recomputed from it;
// and the chat's updated_at is touched. Neither failure fails the append.
func (s *PostgresChatStore) AppendMessage(ctx context.Context, userID, chatID string, msg *models.Message) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (chat_id, role, content, timestamp, model_used)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, s.tables.Messages)

	executor := GetExecutor(ctx, s.pool)
	err := executor.QueryRow(ctx, query,
		chatID,
		msg.Role,
		msg.Text,
		msg.Timestamp,
		msg.ModelUsed,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		if IsPgForeignKeyError(err) {
			s.logger.Warn("append message to missing chat", "chat_id", chatID)
			return fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
		}
		s.logger.Error("append message failed", "chat_id", chatID, "error", err)
		return fmt.Errorf("append message: %w", err)
	}
	msg.ChatID = chatID

	if msg.Role == models.RoleUser {
		s.maybeDeriveTitle(ctx, userID, chatID, msg.Text)
	}
	s.touchChat(ctx, userID, chatID)

	return nil
}

// maybeDeriveTitle sets the chat title from the first user message.
// Best-effort: failures are logged and swallowed.
func (s *PostgresChatStore) maybeDeriveTitle(ctx context.Context, userID, chatID, text string) {
	countQuery := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s WHERE chat_id = $1 AND role = $2
	`, s.tables.Messages)

	executor := GetExecutor(ctx, s.pool)

	var userMessages int
	if err := executor.QueryRow(ctx, countQuery, chatID, models.RoleUser).Scan(&userMessages); err != nil {
		s.logger.Warn("title derivation count failed", "chat_id", chatID, "error", err)
		return
	}
	if userMessages != 1 {
		return
	}

	title := models.DeriveTitle(text)
	updateQuery := fmt.Sprintf(`
		UPDATE %s SET title = $1 WHERE id = $2 AND user_id = $3
	`, s.tables.Chats)
	if _, err := executor.Exec(ctx, updateQuery, title, chatID, userID); err != nil {
		s.logger.Warn("title derivation update failed", "chat_id", chatID, "error", err)
	}
}

// touchChat bumps the chat's updated_at. Best-effort.
func (s *PostgresChatStore) touchChat(ctx context.Context, userID, chatID string) {
	query := fmt.Sprintf(`
		UPDATE %s SET updated_at = $1 WHERE id = $2 AND user_id = $3
	`, s.tables.Chats)

	executor := GetExecutor(ctx, s.pool)
	if _, err := executor.Exec(ctx, query, time.Now(), chatID, userID); err != nil {
		s.logger.Warn("touch chat failed", "chat_id", chatID, "error", err)
	}
}

// BulkInsertMessages inserts migrated messages, preserving original
// creation timestamps where available.
func (s *PostgresChatStore) BulkInsertMessages(ctx context.Context, chatID string, msgs []models.Message) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (chat_id, role, content, timestamp, model_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.tables.Messages)

	executor := GetExecutor(ctx, s.pool)
	for _, msg := range msgs {
		createdAt := msg.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		if _, err := executor.Exec(ctx, query, chatID, msg.Role, msg.Text, msg.Timestamp, msg.ModelUsed, createdAt); err != nil {
			if IsPgForeignKeyError(err) {
				return fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
			}
			return fmt.Errorf("bulk insert message: %w", err)
		}
	}

	return nil
}

// loadMessages fetches the messages for a set of chats, grouped by chat
// id, ascending by creation time with insertion order breaking ties.
func (s *PostgresChatStore) loadMessages(ctx context.Context, chatIDs []string) (map[string][]models.Message, error) {
	query := fmt.Sprintf(`
		SELECT id, chat_id, role, content, timestamp, model_used, created_at
		FROM %s
		WHERE chat_id = ANY($1::uuid[])
		ORDER BY created_at ASC, id ASC
	`, s.tables.Messages)

	executor := GetExecutor(ctx, s.pool)
	rows, err := executor.Query(ctx, query, chatIDs)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	grouped := make(map[string][]models.Message)
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(
			&msg.ID,
			&msg.ChatID,
			&msg.Role,
			&msg.Text,
			&msg.Timestamp,
			&msg.ModelUsed,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		grouped[msg.ChatID] = append(grouped[msg.ChatID], msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return grouped, nil
}
