package handler

import (
	"net/http"

	"github.com/forgo/lootbound/api/internal/middleware"
	"github.com/forgo/lootbound/api/internal/model"
	"github.com/forgo/lootbound/api/internal/service"
)

// PlayerHandler handles player HTTP requests
type PlayerHandler struct {
	svc *service.PlayerService
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(svc *service.PlayerService) *PlayerHandler {
	return &PlayerHandler{svc: svc}
}

// Connect handles POST /v1/players/connect. It is the only player route
// that does not need X-Player-ID: the response carries the id to use.
func (h *PlayerHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req model.ConnectPlayerRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	player, err := h.svc.ConnectPlayer(r.Context(), &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, player, map[string]string{
		"self": "/v1/players/" + player.ID,
	})
}

// Leave handles POST /v1/players/leave
func (h *PlayerHandler) Leave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.svc.LeaveGame(ctx, middleware.GetPlayerID(ctx)); err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteData(w, http.StatusOK, map[string]string{"status": "left"}, nil)
}

// Get handles GET /v1/players/{playerId}. "me" resolves to the caller.
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playerID := r.PathValue("playerId")
	if playerID == "me" {
		playerID = middleware.GetPlayerID(ctx)
		if playerID == "" {
			WriteError(w, model.NewUnidentifiedError("X-Player-ID header is required"))
			return
		}
	}

	player, err := h.svc.GetPlayer(ctx, playerID)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteData(w, http.StatusOK, player, nil)
}

// GetByWallet handles GET /v1/wallets/{wallet}
func (h *PlayerHandler) GetByWallet(w http.ResponseWriter, r *http.Request) {
	player, err := h.svc.GetPlayerByWallet(r.Context(), r.PathValue("wallet"))
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteData(w, http.StatusOK, player, nil)
}

// UpdateMe handles PATCH /v1/players/me
func (h *PlayerHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.UpdatePlayerRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	player, err := h.svc.UpdatePlayer(ctx, middleware.GetPlayerID(ctx), &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteData(w, http.StatusOK, player, nil)
}

// Leaderboard handles GET /v1/leaderboard?limit=
func (h *PlayerHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, fe := queryInt(r, "limit", model.DefaultLeaderboard)
	if fe != nil {
		WriteError(w, model.NewValidationError([]model.FieldError{*fe}))
		return
	}

	players, err := h.svc.Leaderboard(r.Context(), limit)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteCollection(w, http.StatusOK, players, nil, nil)
}
