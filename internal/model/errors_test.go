package model

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ============================================================================
// Error() / WriteJSON Tests
// ============================================================================

func TestProblemDetails_Error_ReturnsFormattedMessage(t *testing.T) {
	t.Parallel()

	pd := NewNotFoundError("party")
	msg := pd.Error()

	for _, want := range []string{"404", "Not Found", "party not found"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message should contain %q, got: %s", want, msg)
		}
	}
}

func TestProblemDetails_WriteJSON_SetsHeadersAndBody(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	NewConflictError("party is full").WriteJSON(rr)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("expected problem+json content type, got %q", ct)
	}

	var body ProblemDetails
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Detail != "party is full" {
		t.Errorf("expected detail 'party is full', got %q", body.Detail)
	}
	if body.Code != ErrCodeConflict {
		t.Errorf("expected code %d, got %d", ErrCodeConflict, body.Code)
	}
}

// ============================================================================
// Constructor Tests
// ============================================================================

func TestConstructors_StatusAndType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		pd     *ProblemDetails
		status int
		slug   string
	}{
		{"unidentified", NewUnidentifiedError("missing X-Player-ID"), http.StatusUnauthorized, "unidentified"},
		{"forbidden", NewForbiddenError("not the party leader"), http.StatusForbidden, "forbidden"},
		{"not found", NewNotFoundError("order"), http.StatusNotFound, "not-found"},
		{"conflict", NewConflictError("already listed"), http.StatusConflict, "conflict"},
		{"bad request", NewBadRequestError("invalid body"), http.StatusBadRequest, "bad-request"},
		{"external", NewExternalServiceError("chain unavailable"), http.StatusBadGateway, "external-service"},
		{"internal", NewInternalError(""), http.StatusInternalServerError, "internal"},
		{"rate limited", NewRateLimitError(3), http.StatusTooManyRequests, "rate-limited"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.pd.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.pd.Status)
			}
			if !strings.HasSuffix(tt.pd.Type, "/errors/"+tt.slug) {
				t.Errorf("expected type ending in %q, got %q", tt.slug, tt.pd.Type)
			}
		})
	}
}

func TestNewInternalError_EmptyDetail_UsesDefault(t *testing.T) {
	t.Parallel()

	if pd := NewInternalError(""); pd.Detail == "" {
		t.Error("expected default detail")
	}
}

func TestNewValidationError_MultipleFields_SummarizesCount(t *testing.T) {
	t.Parallel()

	pd := NewValidationError([]FieldError{
		{Field: "price", Message: "must not be negative"},
		{Field: "duration", Message: "must be between 1 and 720 hours"},
	})

	if pd.Status != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", pd.Status)
	}
	if !strings.HasPrefix(pd.Detail, "price: must not be negative") {
		t.Errorf("expected detail to lead with first field, got %q", pd.Detail)
	}
	if !strings.Contains(pd.Detail, "1 more") {
		t.Errorf("expected detail to count remaining errors, got %q", pd.Detail)
	}
	if len(pd.Errors) != 2 {
		t.Errorf("expected 2 field errors, got %d", len(pd.Errors))
	}
}

func TestNewValidationError_EmptyErrors_ReturnsDefaultMessage(t *testing.T) {
	t.Parallel()

	pd := NewValidationError(nil)
	if pd.Detail != "One or more fields failed validation" {
		t.Errorf("unexpected default detail %q", pd.Detail)
	}
}
