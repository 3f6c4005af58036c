package handler

import (
	"errors"

	"github.com/forgo/lootbound/api/internal/model"
	"github.com/forgo/lootbound/api/internal/service"
)

// MapServiceError converts a service error to a ProblemDetails response.
// Anything not listed is an internal error; its text is not exposed.
func MapServiceError(err error) *model.ProblemDetails {
	if err == nil {
		return nil
	}

	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return model.NewValidationError(ve.Fields)
	}

	switch {
	// ===== Validation Errors → 422 =====
	case errors.Is(err, service.ErrInvalidInput):
		return model.NewValidationError([]model.FieldError{{Field: "request", Message: err.Error()}})
	case errors.Is(err, service.ErrInvalidOrderStatus):
		return model.NewValidationError([]model.FieldError{{Field: "status", Message: err.Error()}})

	// ===== Not Found Errors → 404 =====
	case errors.Is(err, service.ErrPlayerNotFound):
		return model.NewNotFoundError("player")
	case errors.Is(err, service.ErrPartyNotFound):
		return model.NewNotFoundError("party")
	case errors.Is(err, service.ErrMembershipNotFound):
		return model.NewNotFoundError("party membership")
	case errors.Is(err, service.ErrEquipmentNotFound):
		return model.NewNotFoundError("equipment")
	case errors.Is(err, service.ErrOrderNotFound):
		return model.NewNotFoundError("lending order")

	// ===== Authorization Errors → 403 =====
	case errors.Is(err, service.ErrNotPartyLeader),
		errors.Is(err, service.ErrNotEquipmentOwner),
		errors.Is(err, service.ErrNotOrderLender):
		return model.NewForbiddenError(err.Error())

	// ===== Conflict Errors → 409 =====
	case errors.Is(err, service.ErrPartyFull),
		errors.Is(err, service.ErrAlreadyPartyMember),
		errors.Is(err, service.ErrAlreadyInParty):
		return model.NewConflictError(err.Error())
	case errors.Is(err, service.ErrOrderAlreadyListed),
		errors.Is(err, service.ErrNotLendable),
		errors.Is(err, service.ErrOrderExpired):
		return model.NewConflictError(err.Error())

	// ===== External Errors → 502 =====
	case errors.Is(err, service.ErrExternalService):
		return model.NewExternalServiceError("the chain gateway could not complete the request")

	// ===== Default → 500 =====
	default:
		return model.NewInternalError("")
	}
}
