package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/forgo/lootbound/api/internal/model"
)

// PlayerIDHeader names the calling player. It identifies, it does not
// authenticate.
const PlayerIDHeader = "X-Player-ID"

// Identity copies the X-Player-ID header into the request context
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		playerID := strings.TrimSpace(r.Header.Get(PlayerIDHeader))
		if playerID == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), PlayerIDKey, playerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePlayer rejects requests without a player identity with 401
func RequirePlayer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if GetPlayerID(r.Context()) == "" {
			model.NewUnidentifiedError("X-Player-ID header is required").WriteJSON(w)
			return
		}
		next(w, r)
	}
}

// GetPlayerID extracts the calling player's ID from context
func GetPlayerID(ctx context.Context) string {
	if id, ok := ctx.Value(PlayerIDKey).(string); ok {
		return id
	}
	return ""
}
