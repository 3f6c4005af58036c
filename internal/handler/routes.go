package handler

import (
	"net/http"

	"github.com/forgo/lootbound/api/internal/middleware"
)

// Handlers groups everything RegisterRoutes mounts
type Handlers struct {
	Players   *PlayerHandler
	Parties   *PartyHandler
	Loot      *LootHandler
	Lending   *LendingHandler
	Health    *HealthHandler
	WebSocket http.HandlerFunc // Optional
}

// RegisterRoutes mounts the REST API on mux. Routes acting for a player
// require X-Player-ID.
func RegisterRoutes(mux *http.ServeMux, h Handlers) {
	auth := middleware.RequirePlayer

	// Health
	mux.HandleFunc("GET /health", h.Health.Health)
	mux.HandleFunc("GET /ready", h.Health.Ready)

	// Players
	mux.HandleFunc("POST /v1/players/connect", h.Players.Connect)
	mux.HandleFunc("POST /v1/players/leave", auth(h.Players.Leave))
	mux.HandleFunc("GET /v1/players/{playerId}", h.Players.Get)
	mux.HandleFunc("PATCH /v1/players/me", auth(h.Players.UpdateMe))
	mux.HandleFunc("GET /v1/wallets/{wallet}", h.Players.GetByWallet)
	mux.HandleFunc("GET /v1/leaderboard", h.Players.Leaderboard)

	// Parties
	mux.HandleFunc("POST /v1/parties", auth(h.Parties.Create))
	mux.HandleFunc("GET /v1/parties/{partyId}", h.Parties.Get)
	mux.HandleFunc("PATCH /v1/parties/{partyId}", auth(h.Parties.Update))
	mux.HandleFunc("POST /v1/parties/{partyId}/join", auth(h.Parties.Join))
	mux.HandleFunc("POST /v1/parties/{partyId}/leave", auth(h.Parties.Leave))
	mux.HandleFunc("POST /v1/parties/{partyId}/disband", auth(h.Parties.Disband))
	mux.HandleFunc("GET /v1/players/me/party", auth(h.Parties.Mine))

	// Loot
	mux.HandleFunc("POST /v1/loot/generate", auth(h.Loot.Generate))
	mux.HandleFunc("GET /v1/players/{playerId}/loot", h.Loot.PlayerLoot)
	mux.HandleFunc("GET /v1/equipment/{tokenId}", h.Loot.GetEquipment)
	mux.HandleFunc("PATCH /v1/equipment/{equipmentId}/lendable", auth(h.Loot.SetLendable))

	// Lending
	mux.HandleFunc("GET /v1/marketplace", h.Lending.Marketplace)
	mux.HandleFunc("POST /v1/lending/orders", auth(h.Lending.CreateOrder))
	mux.HandleFunc("GET /v1/lending/orders/{orderId}", h.Lending.GetOrder)
	mux.HandleFunc("POST /v1/lending/orders/{orderId}/borrow", auth(h.Lending.Borrow))
	mux.HandleFunc("PATCH /v1/lending/orders/{orderId}", auth(h.Lending.UpdateOrder))
	mux.HandleFunc("POST /v1/lending/orders/{orderId}/cancel", auth(h.Lending.CancelOrder))
	mux.HandleFunc("GET /v1/players/me/listings", auth(h.Lending.MyListings))
	mux.HandleFunc("GET /v1/players/me/borrowed", auth(h.Lending.MyBorrowed))

	if h.WebSocket != nil {
		mux.HandleFunc("GET /v1/ws", h.WebSocket)
	}
}
