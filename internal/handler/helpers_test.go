package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"parley/internal/domain"
	"parley/internal/httputil"
)

func TestHandleErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"validation", domain.ErrValidation, http.StatusBadRequest, "validation failed"},
		{"chat closed", domain.ErrChatClosed, http.StatusConflict, "chat is closed"},
		{"conflict", domain.ErrConflict, http.StatusConflict, "already exists"},
		{"not found", domain.ErrNotFound, http.StatusNotFound, "not found"},
		{"wrapped not found", fmt.Errorf("chat abc: %w", domain.ErrNotFound), http.StatusNotFound, "chat abc: not found"},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"store unavailable", domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "chat store unavailable"},
		{"unknown", fmt.Errorf("pq: connection reset"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("Content-Type = %q, want application/problem+json", ct)
			}

			var problem httputil.ProblemDetail
			if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
				t.Fatalf("response body not valid JSON: %v", err)
			}
			if problem.Status != tt.wantStatus {
				t.Errorf("problem.Status = %d, want %d", problem.Status, tt.wantStatus)
			}
			if problem.Detail != tt.wantDetail {
				t.Errorf("problem.Detail = %q, want %q", problem.Detail, tt.wantDetail)
			}
		})
	}
}

func TestPathParamMissingWrites400(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/chats/", nil)

	value, ok := PathParam(rec, req, "id", "chat id")
	if ok {
		t.Fatalf("PathParam() ok = true for missing parameter, value = %q", value)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
