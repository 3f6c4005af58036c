package service

import (
	"errors"
	"strings"

	"github.com/forgo/lootbound/api/internal/model"
)

// Centralized service layer errors.
// All errors returned by service methods are defined here so handlers can map
// them with errors.Is.

// ===== Input Errors =====
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidOrderStatus = errors.New("invalid order status for this operation")
)

// ===== Player Errors =====
var (
	ErrPlayerNotFound = errors.New("player not found")
)

// ===== Party Errors =====
var (
	ErrPartyNotFound      = errors.New("party not found")
	ErrMembershipNotFound = errors.New("party membership not found")
	ErrNotPartyLeader     = errors.New("only the party leader can perform this action")
	ErrPartyFull          = errors.New("party has reached its maximum size")
	ErrAlreadyPartyMember = errors.New("player is already a member of this party")
	ErrAlreadyInParty     = errors.New("player is already in another active party")
)

// ===== Equipment Errors =====
var (
	ErrEquipmentNotFound = errors.New("equipment not found")
	ErrNotEquipmentOwner = errors.New("equipment is not owned by this player")
	ErrNotLendable       = errors.New("equipment is not lendable")
)

// ===== Lending Errors =====
var (
	ErrOrderNotFound      = errors.New("lending order not found or no longer active")
	ErrOrderExpired       = errors.New("lending order has expired")
	ErrOrderAlreadyListed = errors.New("equipment already has an active lending order")
	ErrNotOrderLender     = errors.New("only the lender can perform this action")
)

// ===== External Errors =====
var (
	ErrExternalService = errors.New("external service error")
)

// ValidationError reports field-level input problems. It matches ErrInvalidInput.
type ValidationError struct {
	Fields []model.FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// invalid returns a *ValidationError for errs, or nil when errs is empty
func invalid(errs []model.FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: errs}
}

// invalidField builds a single-field *ValidationError
func invalidField(field, message string) error {
	return &ValidationError{Fields: []model.FieldError{{Field: field, Message: message}}}
}
