// Package middleware provides HTTP middleware for the Lootbound API.
//
// # Available Middleware
//
//   - RequestID: assigns or propagates X-Request-ID
//   - Logger: structured request logging via slog
//   - Recovery: turns panics into a problem+json 500
//   - CORS: origin allow-list
//   - Identity: copies X-Player-ID into the request context
//   - RateLimit: token bucket per player, or per remote address
//   - Idempotency: replays keyed POST/PATCH responses
//   - Compress: gzip, skipped for WebSocket upgrades
//
// # Identity
//
// Players are identified, not authenticated. Handlers that act on behalf of
// a player are wrapped with RequirePlayer and read the caller with:
//
//	playerID := middleware.GetPlayerID(r.Context())
//
// Identity must run before RateLimit and Idempotency so both key by player.
package middleware
