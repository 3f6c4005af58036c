// Package hub keeps the live WebSocket sessions of connected players, groups
// them into party rooms and fans party, dungeon, chat and marketplace events
// out to them.
//
// All state lives in process memory. A restart drops every session and room;
// clients re-announce themselves with player:join and party:join.
//
// Locking: the registry lock guards the session, player and room maps only.
// Each room has its own lock, held while frames are queued to its members so
// every member sees room events in emission order. Lock order is room, then
// registry.
package hub

import (
	"log/slog"
	"sync"
	"time"
)

// Config holds hub settings
type Config struct {
	SendBuffer     int              // queued frames per session before it is dropped
	PingPeriod     time.Duration    // keepalive ping interval
	WriteWait      time.Duration    // deadline for one frame write
	MaxMessageSize int64            // inbound frame limit in bytes
	AllowedOrigins []string         // "*" allows any origin
	Now            func() time.Time // Optional
	Logger         *slog.Logger     // Optional
}

// Hub maps sessions to players and party rooms
type Hub struct {
	cfg    Config
	now    func() time.Time
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session // by session id
	players  map[string]*Session // by player id
	rooms    map[string]*room    // by party id
}

type room struct {
	partyID string

	mu      sync.Mutex
	members map[string]roomMember // by session id
	deleted bool
}

type roomMember struct {
	session  *Session
	playerID string
}

// New creates an empty hub
func New(cfg Config) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = 30 * time.Second
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 64 << 10
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		cfg:      cfg,
		now:      now,
		logger:   logger,
		sessions: make(map[string]*Session),
		players:  make(map[string]*Session),
		rooms:    make(map[string]*room),
	}
}

// NewSession creates a session sized by the hub's send buffer
func (h *Hub) NewSession() *Session {
	return NewSession(h.cfg.SendBuffer)
}

func (h *Hub) timestamp() time.Time {
	return h.now().UTC()
}

// OnConnect registers a session with no identity and no rooms
func (h *Hub) OnConnect(s *Session) {
	h.mu.Lock()
	h.sessions[s.id] = s
	total := len(h.sessions)
	h.mu.Unlock()

	h.logger.Debug("session connected",
		slog.String("session_id", s.id),
		slog.Int("sessions", total),
	)
}

// PlayerJoin binds a player identity to the session. Repeating it is a
// re-ack. A player bound elsewhere is re-pointed to this session.
func (h *Hub) PlayerJoin(s *Session, playerID, wallet string) {
	if playerID == "" {
		h.reject(s, EventPlayerJoin, "playerId is required")
		return
	}

	previous := s.bind(playerID, wallet)

	h.mu.Lock()
	if _, ok := h.sessions[s.id]; !ok {
		h.mu.Unlock()
		return
	}
	if previous != "" && previous != playerID && h.players[previous] == s {
		delete(h.players, previous)
	}
	h.players[playerID] = s
	h.mu.Unlock()

	h.send(s, Message{Event: EventPlayerJoined, Data: playerJoinedData{Success: true, PlayerID: playerID}})

	if previous != playerID {
		h.logger.Debug("player bound to session",
			slog.String("session_id", s.id),
			slog.String("player_id", playerID),
		)
	}
}

// PartyRoomJoin adds the session to the party's room, tells the other
// members and acknowledges the joiner. An empty playerID falls back to the
// session's bound player.
func (h *Hub) PartyRoomJoin(s *Session, partyID, playerID string) {
	playerID = h.resolvePlayer(s, EventPartyJoin, playerID)
	if playerID == "" {
		return
	}
	if partyID == "" {
		h.reject(s, EventPartyJoin, "partyId is required")
		return
	}

	notice, err := Message{Event: EventMemberJoined, Data: memberData{
		PartyID: partyID, PlayerID: playerID, Timestamp: h.timestamp(),
	}}.encode()
	if err != nil {
		h.logger.Error("failed to encode member_joined", slog.String("error", err.Error()))
		return
	}
	ack, _ := Message{Event: EventPartyJoined, Data: roomAckData{PartyID: partyID, Success: true}}.encode()

	for {
		r := h.getOrCreateRoom(partyID)
		r.mu.Lock()
		if r.deleted {
			r.mu.Unlock()
			continue
		}
		if _, already := r.members[s.id]; !already {
			// A closed session must not be added after OnDisconnect took its room list
			if !s.addRoom(partyID) {
				empty := len(r.members) == 0
				r.mu.Unlock()
				if empty {
					h.pruneRoom(r)
				}
				return
			}
			r.members[s.id] = roomMember{session: s, playerID: playerID}
			h.fanout(r, notice, s)
		}
		h.enqueue(s, ack)
		r.mu.Unlock()
		break
	}

	h.logger.Debug("session joined party room",
		slog.String("session_id", s.id),
		slog.String("party_id", partyID),
		slog.String("player_id", playerID),
	)
}

// PartyRoomLeave removes the session from the room, tells the remaining
// members and acknowledges the leaver. An emptied room is deleted.
func (h *Hub) PartyRoomLeave(s *Session, partyID, playerID string) {
	playerID = h.resolvePlayer(s, EventPartyLeave, playerID)
	if playerID == "" {
		return
	}
	if partyID == "" {
		h.reject(s, EventPartyLeave, "partyId is required")
		return
	}

	h.leaveRoom(s, partyID, EventMemberLeft)
	h.send(s, Message{Event: EventPartyLeft, Data: roomAckData{PartyID: partyID, Success: true}})
}

// DungeonAction relays an action to every other session in the room. The
// sender must be in the room and gets no echo.
func (h *Hub) DungeonAction(s *Session, partyID, action string, payload []byte) {
	playerID := h.boundPlayer(s, EventDungeonAction)
	if playerID == "" {
		return
	}

	frame, err := Message{Event: EventDungeonAction, Data: actionData{
		PartyID:   partyID,
		PlayerID:  playerID,
		Action:    action,
		Payload:   payload,
		Timestamp: h.timestamp(),
	}}.encode()
	if err != nil {
		h.reject(s, EventDungeonAction, "payload is not valid JSON")
		return
	}

	if !h.toRoomMember(s, partyID, frame, s) {
		h.reject(s, EventDungeonAction, "not in party room")
	}
}

// ChatMessage relays to the room, sender included, when partyID is set.
// Otherwise it goes to every connected session except the sender.
func (h *Hub) ChatMessage(s *Session, message, partyID string) {
	playerID := h.boundPlayer(s, EventChatMessage)
	if playerID == "" {
		return
	}

	frame, err := Message{Event: EventChatMessage, Data: chatData{
		PlayerID:  playerID,
		Message:   message,
		PartyID:   partyID,
		Timestamp: h.timestamp(),
	}}.encode()
	if err != nil {
		return
	}

	if partyID == "" {
		h.broadcast(frame, s)
		return
	}
	if !h.toRoomMember(s, partyID, frame, nil) {
		h.reject(s, EventChatMessage, "not in party room")
	}
}

// OnDisconnect removes the session from every room, tells the remaining
// members, and drops the player binding. Safe to call more than once.
func (h *Hub) OnDisconnect(s *Session) {
	h.mu.Lock()
	if _, ok := h.sessions[s.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s.id)
	playerID := s.PlayerID()
	if playerID != "" && h.players[playerID] == s {
		delete(h.players, playerID)
	}
	h.mu.Unlock()

	s.close()

	rooms := s.Rooms()
	for _, partyID := range rooms {
		h.leaveRoom(s, partyID, EventMemberDisconnected)
	}

	h.logger.Debug("session disconnected",
		slog.String("session_id", s.id),
		slog.String("player_id", playerID),
		slog.Int("rooms_left", len(rooms)),
	)
}

// EmitToPlayer queues msg for the player's session; false when offline
func (h *Hub) EmitToPlayer(playerID string, msg Message) bool {
	h.mu.RLock()
	s := h.players[playerID]
	h.mu.RUnlock()
	if s == nil {
		return false
	}
	return h.send(s, msg)
}

// EmitToParty queues msg for every session in the party's room
func (h *Hub) EmitToParty(partyID string, msg Message) {
	frame, err := msg.encode()
	if err != nil {
		h.logger.Error("failed to encode message", slog.String("event", msg.Event), slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	r := h.rooms[partyID]
	h.mu.RUnlock()
	if r == nil {
		return
	}

	r.mu.Lock()
	if !r.deleted {
		h.fanout(r, frame, nil)
	}
	r.mu.Unlock()
}

// EmitToAll queues msg for every connected session
func (h *Hub) EmitToAll(msg Message) {
	frame, err := msg.encode()
	if err != nil {
		h.logger.Error("failed to encode message", slog.String("event", msg.Event), slog.String("error", err.Error()))
		return
	}
	h.broadcast(frame, nil)
}

// ConnectedPlayers returns the number of sessions with a bound player
func (h *Hub) ConnectedPlayers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.players)
}

// ConnectedSessions returns the number of open sessions
func (h *Hub) ConnectedSessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// PartyMemberCount returns the number of sessions in the party's room
func (h *Hub) PartyMemberCount(partyID string) int {
	h.mu.RLock()
	r := h.rooms[partyID]
	h.mu.RUnlock()
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// HasRoom reports whether a room entry exists for the party
func (h *Hub) HasRoom(partyID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[partyID]
	return ok
}

func (h *Hub) getOrCreateRoom(partyID string) *room {
	h.mu.RLock()
	r := h.rooms[partyID]
	h.mu.RUnlock()
	if r != nil {
		return r
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if r = h.rooms[partyID]; r == nil {
		r = &room{partyID: partyID, members: make(map[string]roomMember)}
		h.rooms[partyID] = r
	}
	return r
}

// leaveRoom removes s from the room, sends event to the remaining members
// and deletes the room once empty
func (h *Hub) leaveRoom(s *Session, partyID, event string) {
	s.removeRoom(partyID)

	h.mu.RLock()
	r := h.rooms[partyID]
	h.mu.RUnlock()
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	member, ok := r.members[s.id]
	if !ok || r.deleted {
		return
	}
	delete(r.members, s.id)

	if len(r.members) == 0 {
		h.deleteRoomLocked(r)
		return
	}

	frame, err := Message{Event: event, Data: memberData{
		PartyID: partyID, PlayerID: member.playerID, Timestamp: h.timestamp(),
	}}.encode()
	if err == nil {
		h.fanout(r, frame, nil)
	}
}

// deleteRoomLocked unregisters an empty room. Caller holds r.mu.
func (h *Hub) deleteRoomLocked(r *room) {
	r.deleted = true
	h.mu.Lock()
	if h.rooms[r.partyID] == r {
		delete(h.rooms, r.partyID)
	}
	h.mu.Unlock()
}

// pruneRoom deletes r if it is still empty
func (h *Hub) pruneRoom(r *room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.deleted && len(r.members) == 0 {
		h.deleteRoomLocked(r)
	}
}

// toRoomMember queues frame to the room when s is a member, skipping except
func (h *Hub) toRoomMember(s *Session, partyID string, frame []byte, except *Session) bool {
	h.mu.RLock()
	r := h.rooms[partyID]
	h.mu.RUnlock()
	if r == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[s.id]; !ok || r.deleted {
		return false
	}
	h.fanout(r, frame, except)
	return true
}

// fanout queues frame to every member except one. Caller holds r.mu.
func (h *Hub) fanout(r *room, frame []byte, except *Session) {
	for _, m := range r.members {
		if m.session == except {
			continue
		}
		h.enqueue(m.session, frame)
	}
}

func (h *Hub) broadcast(frame []byte, except *Session) {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		if s != except {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		h.enqueue(s, frame)
	}
}

func (h *Hub) send(s *Session, msg Message) bool {
	frame, err := msg.encode()
	if err != nil {
		h.logger.Error("failed to encode message", slog.String("event", msg.Event), slog.String("error", err.Error()))
		return false
	}
	return h.enqueue(s, frame)
}

// enqueue queues a frame and drops a session that cannot keep up
func (h *Hub) enqueue(s *Session, frame []byte) bool {
	if s.enqueue(frame) {
		return true
	}
	if s.isClosed() {
		return false
	}

	h.logger.Warn("dropping slow session",
		slog.String("session_id", s.id),
		slog.String("player_id", s.PlayerID()),
	)
	s.close()
	// Room locks may be held here
	go h.OnDisconnect(s)
	return false
}

// resolvePlayer picks the explicit player id or the session's bound one.
// Neither being present drops the event.
func (h *Hub) resolvePlayer(s *Session, event, playerID string) string {
	if playerID != "" {
		return playerID
	}
	return h.boundPlayer(s, event)
}

// boundPlayer returns the session's player, logging and dropping the event
// when the session never announced one
func (h *Hub) boundPlayer(s *Session, event string) string {
	if id := s.PlayerID(); id != "" {
		return id
	}
	h.logger.Warn("dropping event from unbound session",
		slog.String("session_id", s.id),
		slog.String("event", event),
	)
	return ""
}

// reject answers the sender alone with an error frame
func (h *Hub) reject(s *Session, event, message string) {
	h.send(s, Message{Event: EventError, Data: errorData{Event: event, Message: message}})
}
