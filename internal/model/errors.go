package model

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorCode is the numeric code carried in problem responses
type ErrorCode int

const (
	// Identity errors (1xxx)
	ErrCodeUnidentified ErrorCode = 1001

	// Authorization errors (2xxx)
	ErrCodeForbidden ErrorCode = 2001

	// Resource errors (3xxx)
	ErrCodeNotFound ErrorCode = 3001
	ErrCodeConflict ErrorCode = 3003

	// Validation errors (4xxx)
	ErrCodeValidation   ErrorCode = 4001
	ErrCodeInvalidInput ErrorCode = 4002
	ErrCodeRateLimited  ErrorCode = 4029

	// Internal errors (5xxx)
	ErrCodeInternal        ErrorCode = 5001
	ErrCodeExternalService ErrorCode = 5003
)

const problemTypeBase = "https://api.lootbound.gg/errors/"

// ProblemDetails represents RFC 9457 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
	Code     ErrorCode    `json:"code,omitempty"`
}

// FieldError represents a validation error on a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (p *ProblemDetails) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

// WriteJSON writes the problem as an application/problem+json response
func (p *ProblemDetails) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func newProblem(slug, title string, status int, code ErrorCode, detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + slug,
		Title:  title,
		Status: status,
		Detail: detail,
		Code:   code,
	}
}

func NewUnidentifiedError(detail string) *ProblemDetails {
	return newProblem("unidentified", "Unauthorized", http.StatusUnauthorized, ErrCodeUnidentified, detail)
}

func NewForbiddenError(detail string) *ProblemDetails {
	return newProblem("forbidden", "Forbidden", http.StatusForbidden, ErrCodeForbidden, detail)
}

func NewNotFoundError(resource string) *ProblemDetails {
	return newProblem("not-found", "Not Found", http.StatusNotFound, ErrCodeNotFound, resource+" not found")
}

func NewConflictError(detail string) *ProblemDetails {
	return newProblem("conflict", "Conflict", http.StatusConflict, ErrCodeConflict, detail)
}

func NewBadRequestError(detail string) *ProblemDetails {
	return newProblem("bad-request", "Bad Request", http.StatusBadRequest, ErrCodeInvalidInput, detail)
}

// NewValidationError summarises the first field error in Detail and lists all of them
func NewValidationError(errs []FieldError) *ProblemDetails {
	detail := "One or more fields failed validation"
	if len(errs) > 0 {
		detail = fmt.Sprintf("%s: %s", errs[0].Field, errs[0].Message)
		if len(errs) > 1 {
			detail = fmt.Sprintf("%s (and %d more errors)", detail, len(errs)-1)
		}
	}
	p := newProblem("validation", "Validation Error", http.StatusUnprocessableEntity, ErrCodeValidation, detail)
	p.Errors = errs
	return p
}

func NewExternalServiceError(detail string) *ProblemDetails {
	return newProblem("external-service", "External Service Error", http.StatusBadGateway, ErrCodeExternalService, detail)
}

func NewInternalError(detail string) *ProblemDetails {
	if detail == "" {
		detail = "An unexpected error occurred"
	}
	return newProblem("internal", "Internal Server Error", http.StatusInternalServerError, ErrCodeInternal, detail)
}

func NewRateLimitError(retryAfter int) *ProblemDetails {
	return newProblem("rate-limited", "Too Many Requests", http.StatusTooManyRequests, ErrCodeRateLimited,
		fmt.Sprintf("Rate limit exceeded. Retry after %d seconds", retryAfter))
}
