package postgres

import (
	"context"
	"fmt"
	"time"

	"parley/internal/domain"
	"parley/internal/domain/models"
)

// UploadImage inserts one image row, filling img.ID and img.CreatedAt.
// A zero UploadOrder is assigned the next slot for the chat.
func (s *PostgresChatStore) UploadImage(ctx context.Context, userID, chatID string, img *models.ChatImage) error {
	executor := GetExecutor(ctx, s.pool)

	if img.UploadOrder == 0 {
		orderQuery := fmt.Sprintf(`
			SELECT COALESCE(MAX(upload_order), 0) + 1 FROM %s WHERE chat_id = $1
		`, s.tables.ChatImages)
		if err := executor.QueryRow(ctx, orderQuery, chatID).Scan(&img.UploadOrder); err != nil {
			s.logger.Error("compute upload order failed", "chat_id", chatID, "error", err)
			return fmt.Errorf("upload image: %w", err)
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (chat_id, user_id, image_url, image_name, file_size, mime_type, upload_order)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE EXISTS (SELECT 1 FROM %s WHERE id = $1 AND user_id = $2)
		RETURNING id, created_at
	`, s.tables.ChatImages, s.tables.Chats)

	err := executor.QueryRow(ctx, query,
		chatID,
		userID,
		img.URL,
		img.Name,
		img.FileSize,
		img.MimeType,
		img.UploadOrder,
	).Scan(&img.ID, &img.CreatedAt)
	if err != nil {
		if IsPgNoRowsError(err) {
			s.logger.Warn("upload image skipped, chat not owned or missing", "chat_id", chatID, "user_id", userID)
			return fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
		}
		s.logger.Error("upload image failed", "chat_id", chatID, "error", err)
		return fmt.Errorf("upload image: %w", err)
	}
	img.ChatID = chatID

	return nil
}

// BulkInsertImages inserts migrated images.
func (s *PostgresChatStore) BulkInsertImages(ctx context.Context, userID, chatID string, imgs []models.ChatImage) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (chat_id, user_id, image_url, image_name, file_size, mime_type, upload_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.tables.ChatImages)

	executor := GetExecutor(ctx, s.pool)
	for _, img := range imgs {
		createdAt := img.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		if _, err := executor.Exec(ctx, query,
			chatID, userID, img.URL, img.Name, img.FileSize, img.MimeType, img.UploadOrder, createdAt,
		); err != nil {
			if IsPgForeignKeyError(err) {
				return fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
			}
			return fmt.Errorf("bulk insert image: %w", err)
		}
	}

	return nil
}

// ListImages retrieves all images for a chat ordered by upload order.
func (s *PostgresChatStore) ListImages(ctx context.Context, userID, chatID string) ([]models.ChatImage, error) {
	query := fmt.Sprintf(`
		SELECT id, chat_id, image_url, image_name, file_size, mime_type, upload_order, created_at
		FROM %s
		WHERE chat_id = $1 AND user_id = $2
		ORDER BY upload_order ASC
	`, s.tables.ChatImages)

	executor := GetExecutor(ctx, s.pool)
	rows, err := executor.Query(ctx, query, chatID, userID)
	if err != nil {
		s.logger.Error("list images failed", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	images := []models.ChatImage{}
	for rows.Next() {
		var img models.ChatImage
		err := rows.Scan(
			&img.ID,
			&img.ChatID,
			&img.URL,
			&img.Name,
			&img.FileSize,
			&img.MimeType,
			&img.UploadOrder,
			&img.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}

	return images, nil
}

// DeleteImage deletes a single image scoped to (imageID, chatID, userID).
func (s *PostgresChatStore) DeleteImage(ctx context.Context, userID, chatID string, imageID int64) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE id = $1 AND chat_id = $2 AND user_id = $3
	`, s.tables.ChatImages)

	executor := GetExecutor(ctx, s.pool)
	result, err := executor.Exec(ctx, query, imageID, chatID, userID)
	if err != nil {
		s.logger.Error("delete image failed", "image_id", imageID, "chat_id", chatID, "error", err)
		return fmt.Errorf("delete image: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("image %d: %w", imageID, domain.ErrNotFound)
	}

	return nil
}

// loadImages fetches the images for a set of chats grouped by chat id.
func (s *PostgresChatStore) loadImages(ctx context.Context, chatIDs []string) (map[string][]models.ChatImage, error) {
	query := fmt.Sprintf(`
		SELECT id, chat_id, image_url, image_name, file_size, mime_type, upload_order, created_at
		FROM %s
		WHERE chat_id = ANY($1::uuid[])
		ORDER BY upload_order ASC
	`, s.tables.ChatImages)

	executor := GetExecutor(ctx, s.pool)
	rows, err := executor.Query(ctx, query, chatIDs)
	if err != nil {
		return nil, fmt.Errorf("load images: %w", err)
	}
	defer rows.Close()

	grouped := make(map[string][]models.ChatImage)
	for rows.Next() {
		var img models.ChatImage
		err := rows.Scan(
			&img.ID,
			&img.ChatID,
			&img.URL,
			&img.Name,
			&img.FileSize,
			&img.MimeType,
			&img.UploadOrder,
			&img.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		grouped[img.ChatID] = append(grouped[img.ChatID], img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}

	return grouped, nil
}
