package domain

import "errors"

// Sentinel errors - use with errors.Is()
var (
	// ErrNotFound covers missing rows, rows owned by another user, and
	// single-row query failures alike. The three cases are logged
	// distinctly inside the store but callers see one result.
	ErrNotFound = errors.New("not found")

	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("already exists")

	// ErrChatClosed is returned when a message append targets a sealed chat.
	ErrChatClosed = errors.New("chat is closed")

	// ErrStoreUnavailable signals that the remote chat store failed and
	// the caller should apply its fallback policy.
	ErrStoreUnavailable = errors.New("chat store unavailable")
)
