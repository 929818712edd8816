package handler

import (
	"log/slog"
	"net/http"

	"parley/internal/domain/services"
	"parley/internal/httputil"
)

// ChatHandler handles chat HTTP requests.
// Handlers only communicate with the history service, never storage.
type ChatHandler struct {
	history services.HistoryService
	logger  *slog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(history services.HistoryService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		history: history,
		logger:  logger,
	}
}

// HealthCheck responds to liveness probes
// GET /health
func (h *ChatHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateChat creates a new temporary chat session
// POST /api/chats
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req services.CreateChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserID = userID

	chat, err := h.history.CreateNewChat(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, chat)
}

// ListChats retrieves the user's full chat history
// GET /api/chats
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	chats, err := h.history.GetChatHistory(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, chats)
}

// GetChat retrieves a single chat by ID
// GET /api/chats/{id}
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := PathParam(w, r, "id", "Chat ID")
	if !ok {
		return
	}

	userID := httputil.GetUserID(r)
	chat, err := h.history.GetChat(r.Context(), userID, chatID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, chat)
}

// UpdateChat applies a partial update to a chat
// PATCH /api/chats/{id}
func (h *ChatHandler) UpdateChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := PathParam(w, r, "id", "Chat ID")
	if !ok {
		return
	}

	userID := httputil.GetUserID(r)
	var req services.UpdateChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	chat, err := h.history.UpdateChat(r.Context(), userID, chatID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, chat)
}

// CloseChat seals a chat against further messages
// POST /api/chats/{id}/close
func (h *ChatHandler) CloseChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := PathParam(w, r, "id", "Chat ID")
	if !ok {
		return
	}

	userID := httputil.GetUserID(r)
	chat, err := h.history.CloseChat(r.Context(), userID, chatID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, chat)
}

// DeleteChat deletes a chat and everything attached to it
// DELETE /api/chats/{id}
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := PathParam(w, r, "id", "Chat ID")
	if !ok {
		return
	}

	userID := httputil.GetUserID(r)
	if err := h.history.DeleteChat(r.Context(), userID, chatID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearAllChats deletes the user's entire chat history
// DELETE /api/chats
func (h *ChatHandler) ClearAllChats(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	if err := h.history.ClearAllHistory(r.Context(), userID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddMessage appends one message to a chat
// POST /api/chats/{id}/messages
func (h *ChatHandler) AddMessage(w http.ResponseWriter, r *http.Request) {
	chatID, ok := PathParam(w, r, "id", "Chat ID")
	if !ok {
		return
	}

	userID := httputil.GetUserID(r)
	var req services.AddMessageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserID = userID
	req.ChatID = chatID

	result, err := h.history.AddMessageToChat(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, result)
}

// GetCurrentChat returns the session pointer
// GET /api/chats/current
func (h *ChatHandler) GetCurrentChat(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	chatID, err := h.history.GetCurrentChatID(userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"chat_id": chatID})
}

// SetCurrentChat updates the session pointer
// PUT /api/chats/current
func (h *ChatHandler) SetCurrentChat(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req struct {
		ChatID string `json:"chat_id"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.history.SetCurrentChat(userID, req.ChatID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Migrate copies local fallback history into the remote store
// POST /api/migrate
func (h *ChatHandler) Migrate(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	result, err := h.history.MigrateToDatabase(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}
