package history

import (
	"context"
	"fmt"

	"parley/internal/domain"
	"parley/internal/domain/models"
)

// MigrateToDatabase copies local fallback history into the remote store:
// one remote chat per local chat, then its messages and images in bulk,
// preserving original timestamps where available.
//
// Per-chat failures are skipped so the migration makes partial progress
// instead of aborting. No deduplication is performed beyond what the
// caller guarantees; running the migration twice duplicates chats.
func (s *Service) MigrateToDatabase(ctx context.Context, userID string) (*models.MigrationResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	localHistory := s.local.ReadHistory(userID)
	result := &models.MigrationResult{}
	if len(localHistory) == 0 {
		return result, nil
	}

	for _, chat := range localHistory {
		if err := s.migrateChat(ctx, userID, chat); err != nil {
			s.logger.Error("chat migration skipped",
				"chat_id", chat.ID,
				"user_id", userID,
				"error", err,
			)
			result.Skipped++
			continue
		}
		result.Migrated++
	}

	s.logger.Info("migration finished",
		"user_id", userID,
		"migrated", result.Migrated,
		"skipped", result.Skipped,
	)

	return result, nil
}

// migrateChat copies one local chat in a single transaction so a partial
// failure rolls the whole chat back and leaves it eligible for a retry.
func (s *Service) migrateChat(ctx context.Context, userID string, chat models.Chat) error {
	return s.tx.ExecTx(ctx, func(txCtx context.Context) error {
		remote := models.Chat{
			UserID:    userID,
			Title:     chat.Title,
			IsClosed:  chat.IsClosed,
			IsActive:  chat.IsActive,
			HasImage:  chat.HasImage,
			CreatedAt: chat.CreatedAt,
			UpdatedAt: chat.UpdatedAt,
		}
		if err := s.remote.CreateChat(txCtx, &remote); err != nil {
			return err
		}

		if len(chat.Messages) > 0 {
			if err := s.remote.BulkInsertMessages(txCtx, remote.ID, chat.Messages); err != nil {
				return err
			}
		}

		if len(chat.Images) > 0 {
			if err := s.remote.BulkInsertImages(txCtx, userID, remote.ID, chat.Images); err != nil {
				return err
			}
		}

		return nil
	})
}
