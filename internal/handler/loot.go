package handler

import (
	"net/http"

	"github.com/forgo/lootbound/api/internal/middleware"
	"github.com/forgo/lootbound/api/internal/model"
	"github.com/forgo/lootbound/api/internal/service"
)

// LootHandler handles loot and equipment HTTP requests
type LootHandler struct {
	svc *service.LootService
}

// NewLootHandler creates a new loot handler
func NewLootHandler(svc *service.LootService) *LootHandler {
	return &LootHandler{svc: svc}
}

// Generate handles POST /v1/loot/generate
func (h *LootHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.GenerateLootRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	item, err := h.svc.GenerateLoot(ctx, middleware.GetPlayerID(ctx), &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteData(w, http.StatusCreated, item, map[string]string{
		"self": "/v1/equipment/" + item.TokenID,
	})
}

// PlayerLoot handles GET /v1/players/{playerId}/loot?limit&offset
func (h *LootHandler) PlayerLoot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playerID := r.PathValue("playerId")
	if playerID == "me" {
		playerID = middleware.GetPlayerID(ctx)
	}

	var errs []model.FieldError
	limit, fe := queryInt(r, "limit", model.DefaultMarketplaceLimit)
	if fe != nil {
		errs = append(errs, *fe)
	}
	offset, fe := queryInt(r, "offset", 0)
	if fe != nil {
		errs = append(errs, *fe)
	}
	if len(errs) > 0 {
		WriteError(w, model.NewValidationError(errs))
		return
	}
	if limit <= 0 {
		limit = model.DefaultMarketplaceLimit
	}
	limit = min(limit, model.MaxMarketplaceLimit)
	offset = max(offset, 0)

	items, total, err := h.svc.PlayerLoot(ctx, playerID, limit, offset)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteCollection(w, http.StatusOK, items, &PaginationInfo{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+len(items) < total,
	}, nil)
}

// GetEquipment handles GET /v1/equipment/{tokenId}
func (h *LootHandler) GetEquipment(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.GetEquipment(r.Context(), r.PathValue("tokenId"))
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteData(w, http.StatusOK, item, nil)
}

// SetLendable handles PATCH /v1/equipment/{equipmentId}/lendable
func (h *LootHandler) SetLendable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	equipmentID := r.PathValue("equipmentId")

	var req model.SetLendableRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	item, err := h.svc.SetLendable(ctx, equipmentID, middleware.GetPlayerID(ctx), req.IsLendable)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteData(w, http.StatusOK, item, nil)
}
