package handler

import (
	"net/http"

	"github.com/forgo/lootbound/api/internal/middleware"
	"github.com/forgo/lootbound/api/internal/model"
	"github.com/forgo/lootbound/api/internal/service"
)

// PartyHandler handles party HTTP requests
type PartyHandler struct {
	svc *service.PartyService
}

// NewPartyHandler creates a new party handler
func NewPartyHandler(svc *service.PartyService) *PartyHandler {
	return &PartyHandler{svc: svc}
}

func partyLinks(id string) map[string]string {
	return map[string]string{
		"self":  "/v1/parties/" + id,
		"join":  "/v1/parties/" + id + "/join",
		"leave": "/v1/parties/" + id + "/leave",
	}
}

// Create handles POST /v1/parties
func (h *PartyHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.CreatePartyRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	party, err := h.svc.CreateParty(ctx, middleware.GetPlayerID(ctx), &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteData(w, http.StatusCreated, party, partyLinks(party.ID))
}

// Get handles GET /v1/parties/{partyId}
func (h *PartyHandler) Get(w http.ResponseWriter, r *http.Request) {
	partyID := r.PathValue("partyId")

	party, err := h.svc.GetParty(r.Context(), partyID)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteData(w, http.StatusOK, party, partyLinks(party.ID))
}

// Update handles PATCH /v1/parties/{partyId}
func (h *PartyHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	partyID := r.PathValue("partyId")

	var req model.UpdatePartyRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	party, err := h.svc.UpdateParty(ctx, partyID, middleware.GetPlayerID(ctx), &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteData(w, http.StatusOK, party, nil)
}

// Join handles POST /v1/parties/{partyId}/join. The body is optional.
func (h *PartyHandler) Join(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	partyID := r.PathValue("partyId")

	var req model.JoinPartyRequest
	if err := DecodeOptionalJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	party, err := h.svc.JoinParty(ctx, partyID, middleware.GetPlayerID(ctx), &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteData(w, http.StatusOK, party, nil)
}

// Leave handles POST /v1/parties/{partyId}/leave
func (h *PartyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	partyID := r.PathValue("partyId")

	if err := h.svc.LeaveParty(ctx, partyID, middleware.GetPlayerID(ctx)); err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteData(w, http.StatusOK, map[string]string{"status": "left"}, nil)
}

// Disband handles POST /v1/parties/{partyId}/disband
func (h *PartyHandler) Disband(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	partyID := r.PathValue("partyId")

	if err := h.svc.DisbandParty(ctx, partyID, middleware.GetPlayerID(ctx)); err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteData(w, http.StatusOK, map[string]string{"status": "disbanded"}, nil)
}

// Mine handles GET /v1/players/me/party. No active party is data: null.
func (h *PartyHandler) Mine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	party, err := h.svc.GetPartyForPlayer(ctx, middleware.GetPlayerID(ctx))
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	if party == nil {
		WriteData(w, http.StatusOK, nil, nil)
		return
	}
	WriteData(w, http.StatusOK, party, partyLinks(party.ID))
}
