package hub

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/gorilla/websocket"
)

// ServeWS upgrades the request and runs the session until either side
// closes. It blocks for the life of the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	s := h.NewSession()
	h.OnConnect(s)

	go h.writePump(conn, s)
	h.readPump(conn, s)
}

// checkOrigin allows same-host requests, requests without an Origin header
// and the configured origins
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(h.cfg.AllowedOrigins, "*") || slices.Contains(h.cfg.AllowedOrigins, origin) {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

func (h *Hub) readPump(conn *websocket.Conn, s *Session) {
	defer func() {
		h.OnDisconnect(s)
		_ = conn.Close()
	}()

	conn.SetReadLimit(h.cfg.MaxMessageSize)
	pongWait := h.cfg.PingPeriod * 10 / 9
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) &&
				!errors.Is(err, websocket.ErrReadLimit) {
				h.logger.Debug("websocket read failed",
					slog.String("session_id", s.id),
					slog.String("error", err.Error()),
				)
			}
			return
		}
		if kind != websocket.TextMessage {
			h.reject(s, "", "text frames only")
			continue
		}
		h.Dispatch(s, frame)
	}
}

// writePump is the only writer on conn
func (h *Hub) writePump(conn *websocket.Conn, s *Session) {
	ticker := time.NewTicker(h.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame := <-s.Outbound():
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.OnDisconnect(s)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.OnDisconnect(s)
				return
			}
		case <-s.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
