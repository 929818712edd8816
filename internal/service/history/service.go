// Package history implements the chat history service: the single entry
// point for all chat session flows. It orchestrates the remote chat
// store and the local fallback store, manages the temporary-to-persisted
// promotion, and owns the per-user session pointer.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"parley/internal/config"
	"parley/internal/domain"
	"parley/internal/domain/models"
	"parley/internal/domain/repositories"
	"parley/internal/domain/services"
)

// Service implements the HistoryService interface.
type Service struct {
	remote repositories.ChatStore
	local  repositories.FallbackStore
	tx     repositories.TransactionManager
	logger *slog.Logger
}

// NewService creates a new chat history service with its storage
// dependencies injected.
func NewService(
	remote repositories.ChatStore,
	local repositories.FallbackStore,
	tx repositories.TransactionManager,
	logger *slog.Logger,
) services.HistoryService {
	return &Service{
		remote: remote,
		local:  local,
		tx:     tx,
		logger: logger,
	}
}

// CreateNewChat returns an in-memory temporary chat and points the
// session pointer at it. No remote row is written: chats that are
// started and abandoned before any content never cost a round trip.
func (s *Service) CreateNewChat(ctx context.Context, req *services.CreateChatRequest) (*models.Chat, error) {
	if err := s.validateCreateChatRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	now := time.Now()
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = models.DefaultTitle(now)
	}

	chat := &models.Chat{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Title:       title,
		Messages:    []models.Message{},
		CreatedAt:   now,
		UpdatedAt:   now,
		IsActive:    true,
		IsClosed:    false,
		IsTemporary: true,
	}

	// Pointer first: a reload before the first message resumes this draft
	s.local.WritePointer(req.UserID, chat.ID)

	if s.local.ReadPointer(req.UserID) != chat.ID {
		// Pointer write did not stick, so an in-memory draft would be
		// unreachable after a reload. Create the chat as a durable local
		// record instead.
		fallback := s.local.CreateChat(req.UserID, title)
		fallback.IsTemporary = true
		s.logger.Warn("session pointer write failed, chat created locally",
			"id", fallback.ID,
			"user_id", req.UserID,
		)
		return fallback, nil
	}

	s.logger.Info("chat created",
		"id", chat.ID,
		"title", chat.Title,
		"user_id", req.UserID,
		"temporary", true,
	)

	return chat, nil
}

// AddMessageToChat appends one message. A temporary chat is promoted to
// the remote store first, rewriting the chat identifier; the result
// carries the id the message actually landed in.
//
// The message is mirrored into the local fallback store before the
// remote append is attempted, so a remote failure never loses it.
func (s *Service) AddMessageToChat(ctx context.Context, req *services.AddMessageRequest) (*models.AppendResult, error) {
	if err := s.validateAddMessageRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if req.CurrentChat != nil && req.CurrentChat.IsClosed {
		return nil, fmt.Errorf("chat %s: %w", req.ChatID, domain.ErrChatClosed)
	}

	chatID := req.ChatID
	promoted := false

	if req.CurrentChat != nil && req.CurrentChat.IsTemporary {
		persisted, err := s.promote(ctx, req.UserID, req.CurrentChat)
		if err != nil {
			// Keep operating against the temporary identifier so the
			// user's message is not dropped
			s.logger.Warn("promotion failed, appending to local store",
				"temp_id", req.ChatID,
				"user_id", req.UserID,
				"error", err,
			)
			return s.appendLocally(req.UserID, chatID, req.CurrentChat, req.Message, false)
		}
		chatID = persisted.ID
		promoted = true
	}

	// Write-ahead mirror into the local store
	s.mirrorMessageLocally(req.UserID, chatID, req.CurrentChat, req.Message)

	msg := req.Message
	if err := s.remote.AppendMessage(ctx, req.UserID, chatID, &msg); err != nil {
		s.logger.Warn("remote append failed, message kept in local store",
			"chat_id", chatID,
			"user_id", req.UserID,
			"error", err,
		)
		return &models.AppendResult{
			Message:   req.Message,
			ChatID:    chatID,
			Promoted:  promoted,
			Persisted: false,
		}, nil
	}

	return &models.AppendResult{
		Message:   msg,
		ChatID:    chatID,
		Promoted:  promoted,
		Persisted: true,
	}, nil
}

// promote writes a temporary chat to the remote store, re-points the
// session pointer at the store-assigned identifier, and retires the
// temporary record from the local store.
func (s *Service) promote(ctx context.Context, userID string, temp *models.Chat) (*models.Chat, error) {
	chat := &models.Chat{
		UserID:   userID,
		Title:    temp.Title,
		IsActive: true,
		IsClosed: false,
	}
	if err := s.remote.CreateChat(ctx, chat); err != nil {
		return nil, err
	}

	s.local.DeleteChat(userID, temp.ID)
	s.local.WritePointer(userID, chat.ID)

	s.logger.Info("chat promoted",
		"temp_id", temp.ID,
		"chat_id", chat.ID,
		"user_id", userID,
	)

	return chat, nil
}

// appendLocally appends a message purely in the local fallback store,
// creating the chat record there first when absent.
func (s *Service) appendLocally(userID, chatID string, ref *models.Chat, msg models.Message, persisted bool) (*models.AppendResult, error) {
	s.ensureLocalChat(userID, chatID, ref)

	if _, err := s.local.AddMessage(userID, chatID, msg); err != nil {
		return nil, err
	}

	return &models.AppendResult{
		Message:   msg,
		ChatID:    chatID,
		Promoted:  false,
		Persisted: persisted,
	}, nil
}

// mirrorMessageLocally writes the composed message into the local store
// ahead of the remote append. Best-effort: a closed or missing local
// record only logs (the remote store remains authoritative).
func (s *Service) mirrorMessageLocally(userID, chatID string, ref *models.Chat, msg models.Message) {
	s.ensureLocalChat(userID, chatID, ref)
	if _, err := s.local.AddMessage(userID, chatID, msg); err != nil {
		s.logger.Debug("local mirror append skipped", "chat_id", chatID, "error", err)
	}
}

// ensureLocalChat makes sure the local history array has a record for
// the chat so mirrored messages have somewhere to land.
func (s *Service) ensureLocalChat(userID, chatID string, ref *models.Chat) {
	if s.local.GetChat(userID, chatID) != nil {
		return
	}

	now := time.Now()
	chat := models.Chat{
		ID:        chatID,
		UserID:    userID,
		Messages:  []models.Message{},
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
	}
	if ref != nil {
		chat.Title = ref.Title
		chat.CreatedAt = ref.CreatedAt
		chat.IsClosed = ref.IsClosed
	}
	if chat.Title == "" {
		chat.Title = models.DefaultTitle(now)
	}

	history := s.local.ReadHistory(userID)
	s.local.WriteHistory(userID, append([]models.Chat{chat}, history...))
}

// GetChatHistory lists the user's chats from the remote store, degrading
// to the local fallback store on any failure. Successful remote reads
// are mirrored locally to keep the fallback from going stale.
func (s *Service) GetChatHistory(ctx context.Context, userID string) ([]models.Chat, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	chats, err := s.remote.ListChats(ctx, userID)
	if err != nil {
		s.logger.Warn("remote history unavailable, serving local fallback",
			"user_id", userID,
			"error", err,
		)
		return s.local.ReadHistory(userID), nil
	}

	s.local.WriteHistory(userID, chats)
	return chats, nil
}

// GetChat retrieves one chat with messages and images populated, trying
// the local store when the remote misses (covers temporary chats and
// degraded mode alike).
func (s *Service) GetChat(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	chat, err := s.remote.GetChat(ctx, userID, chatID)
	if err == nil {
		return chat, nil
	}

	if local := s.local.GetChat(userID, chatID); local != nil {
		return local, nil
	}
	return nil, err
}

// UpdateChat applies a partial update, degrading to the local store when
// the remote store does not know the chat.
func (s *Service) UpdateChat(ctx context.Context, userID, chatID string, req *services.UpdateChatRequest) (*models.Chat, error) {
	if err := s.validateUpdateChatRequest(userID, chatID, req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	upd := repositories.ChatUpdate{
		Title:    req.Title,
		IsClosed: req.IsClosed,
		IsActive: req.IsActive,
	}

	chat, err := s.remote.UpdateChat(ctx, userID, chatID, upd)
	if err == nil {
		// Keep any local mirror in step
		s.local.UpdateChat(userID, chatID, upd)
		return chat, nil
	}

	if local := s.local.UpdateChat(userID, chatID, upd); local != nil {
		return local, nil
	}
	return nil, err
}

// CloseChat seals a chat. Terminal: nothing un-closes a chat. When the
// remote store does not know the chat the local record is sealed alone,
// so temporary and degraded-mode chats still close.
func (s *Service) CloseChat(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	if userID == "" || chatID == "" {
		return nil, fmt.Errorf("%w: user id and chat id are required", domain.ErrValidation)
	}

	closed := true
	inactive := false
	chat, err := s.remote.UpdateChat(ctx, userID, chatID, repositories.ChatUpdate{
		IsClosed: &closed,
		IsActive: &inactive,
	})
	if err != nil {
		if local := s.local.CloseChat(userID, chatID); local != nil {
			s.logger.Info("chat closed locally", "chat_id", chatID, "user_id", userID)
			return local, nil
		}
		return nil, err
	}

	// Keep any local mirror sealed too
	s.local.CloseChat(userID, chatID)

	s.logger.Info("chat closed", "chat_id", chatID, "user_id", userID)
	return chat, nil
}

// DeleteChat removes a chat everywhere, clearing the session pointer
// when it pointed at the deleted chat.
func (s *Service) DeleteChat(ctx context.Context, userID, chatID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	hadLocal := s.local.GetChat(userID, chatID) != nil
	err := s.remote.DeleteChat(ctx, userID, chatID)

	// Local record and pointer go regardless of the remote outcome
	s.local.DeleteChat(userID, chatID)
	if s.local.ReadPointer(userID) == chatID {
		s.local.ClearPointer(userID)
	}

	if err != nil && !hadLocal {
		return err
	}

	s.logger.Info("chat deleted", "chat_id", chatID, "user_id", userID)
	return nil
}

// ClearAllHistory removes every chat for the user, remote and local, and
// clears the session pointer. Remote failure is logged, not propagated:
// the local state is cleared either way, matching the UI expectation
// that "clear history" always appears to succeed.
func (s *Service) ClearAllHistory(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	if err := s.remote.DeleteAllChats(ctx, userID); err != nil {
		s.logger.Error("remote clear failed", "user_id", userID, "error", err)
	}

	s.local.ClearAll(userID)

	s.logger.Info("history cleared", "user_id", userID)
	return nil
}

// SetCurrentChat records the user's current chat pointer.
func (s *Service) SetCurrentChat(userID, chatID string) error {
	if userID == "" || chatID == "" {
		return fmt.Errorf("%w: user id and chat id are required", domain.ErrValidation)
	}
	s.local.WritePointer(userID, chatID)
	return nil
}

// GetCurrentChatID returns the user's current chat pointer, or "".
func (s *Service) GetCurrentChatID(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	return s.local.ReadPointer(userID), nil
}

// UploadImage attaches an already-uploaded image to a chat, promoting a
// temporary chat first. The chat's has_image flag and cover image are
// refreshed best-effort.
func (s *Service) UploadImage(ctx context.Context, req *services.UploadImageRequest) (*models.ChatImage, error) {
	if err := s.validateUploadImageRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	chatID := req.ChatID
	if req.CurrentChat != nil && req.CurrentChat.IsTemporary {
		persisted, err := s.promote(ctx, req.UserID, req.CurrentChat)
		if err != nil {
			return nil, fmt.Errorf("promote chat for image: %w", err)
		}
		chatID = persisted.ID
	}

	existing, err := s.remote.ListImages(ctx, req.UserID, chatID)
	if err == nil && len(existing) >= config.MaxImagesPerChat {
		return nil, fmt.Errorf("%w: chat already has %d images", domain.ErrValidation, config.MaxImagesPerChat)
	}

	img := req.Image
	if err := s.remote.UploadImage(ctx, req.UserID, chatID, &img); err != nil {
		return nil, err
	}

	hasImage := true
	if _, err := s.remote.UpdateChat(ctx, req.UserID, chatID, repositories.ChatUpdate{
		HasImage:  &hasImage,
		ImageURL:  &img.URL,
		ImageName: &img.Name,
	}); err != nil {
		s.logger.Warn("has_image refresh failed", "chat_id", chatID, "error", err)
	}

	s.logger.Info("image uploaded",
		"chat_id", chatID,
		"image_id", img.ID,
		"user_id", req.UserID,
	)

	return &img, nil
}

// ListImages retrieves all images for a chat ordered by upload order.
func (s *Service) ListImages(ctx context.Context, userID, chatID string) ([]models.ChatImage, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	return s.remote.ListImages(ctx, userID, chatID)
}

// DeleteImage deletes a single image from a chat.
func (s *Service) DeleteImage(ctx context.Context, userID, chatID string, imageID int64) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	return s.remote.DeleteImage(ctx, userID, chatID, imageID)
}

// Validation methods

func (s *Service) validateCreateChatRequest(req *services.CreateChatRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Title, validation.Length(0, config.MaxChatTitleLength)),
	)
}

func (s *Service) validateAddMessageRequest(req *services.AddMessageRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.ChatID, validation.Required),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(&req.Message,
		validation.Field(&req.Message.Role, validation.Required, validation.In(models.RoleUser, models.RoleBot)),
		validation.Field(&req.Message.Text, validation.Required, validation.Length(1, config.MaxMessageLength)),
	)
}

func (s *Service) validateUpdateChatRequest(userID, chatID string, req *services.UpdateChatRequest) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if chatID == "" {
		return fmt.Errorf("chat id is required")
	}
	if req.Title != nil {
		return validation.Validate(*req.Title, validation.Required, validation.Length(1, config.MaxChatTitleLength))
	}
	return nil
}

func (s *Service) validateUploadImageRequest(req *services.UploadImageRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.ChatID, validation.Required),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(&req.Image,
		validation.Field(&req.Image.URL, validation.Required),
		validation.Field(&req.Image.Name, validation.Required),
	)
}
