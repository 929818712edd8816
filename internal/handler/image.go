package handler

import (
	"net/http"
	"strconv"

	"parley/internal/domain/services"
	"parley/internal/httputil"
)

// UploadImage attaches an uploaded image (by public URL) to a chat
// POST /api/chats/{id}/images
func (h *ChatHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	chatID, ok := PathParam(w, r, "id", "Chat ID")
	if !ok {
		return
	}

	userID := httputil.GetUserID(r)
	var req services.UploadImageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserID = userID
	req.ChatID = chatID

	img, err := h.history.UploadImage(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, img)
}

// ListImages returns a chat's images ordered by upload order
// GET /api/chats/{id}/images
func (h *ChatHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	chatID, ok := PathParam(w, r, "id", "Chat ID")
	if !ok {
		return
	}

	userID := httputil.GetUserID(r)
	images, err := h.history.ListImages(r.Context(), userID, chatID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, images)
}

// DeleteImage removes one image from a chat
// DELETE /api/chats/{id}/images/{imageID}
func (h *ChatHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	chatID, ok := PathParam(w, r, "id", "Chat ID")
	if !ok {
		return
	}
	rawImageID, ok := PathParam(w, r, "imageID", "Image ID")
	if !ok {
		return
	}
	imageID, err := strconv.ParseInt(rawImageID, 10, 64)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Image ID must be numeric")
		return
	}

	userID := httputil.GetUserID(r)
	if err := h.history.DeleteImage(r.Context(), userID, chatID, imageID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
