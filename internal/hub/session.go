package hub

import (
	"sync"

	"github.com/google/uuid"
)

// Session is one live client connection. Outbound frames are queued on a
// bounded buffer that a single writer drains; a full buffer never blocks the
// hub.
type Session struct {
	id   string
	send chan []byte
	done chan struct{}

	mu       sync.Mutex
	playerID string
	wallet   string
	rooms    map[string]struct{}
	closed   bool
}

// NewSession creates an unbound session with room for buffer queued frames
func NewSession(buffer int) *Session {
	if buffer <= 0 {
		buffer = 1
	}
	return &Session{
		id:    uuid.NewString(),
		send:  make(chan []byte, buffer),
		done:  make(chan struct{}),
		rooms: make(map[string]struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// PlayerID returns the bound player, or "" before PlayerJoin
func (s *Session) PlayerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerID
}

// Wallet returns the wallet announced with PlayerJoin
func (s *Session) Wallet() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallet
}

// Outbound is drained by the transport writer
func (s *Session) Outbound() <-chan []byte { return s.send }

// Done is closed once the session is closed
func (s *Session) Done() <-chan struct{} { return s.done }

// Rooms returns the party ids the session has joined
func (s *Session) Rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		out = append(out, id)
	}
	return out
}

func (s *Session) bind(playerID, wallet string) (previous string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous = s.playerID
	s.playerID = playerID
	if wallet != "" {
		s.wallet = wallet
	}
	return previous
}

// addRoom records a joined room; false once the session is closed
func (s *Session) addRoom(partyID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.rooms[partyID] = struct{}{}
	return true
}

func (s *Session) removeRoom(partyID string) {
	s.mu.Lock()
	delete(s.rooms, partyID)
	s.mu.Unlock()
}

// enqueue queues a frame without blocking. False means the session is
// closed or its buffer is full.
func (s *Session) enqueue(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// close marks the session closed; the first call reports true
func (s *Session) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	close(s.done)
	return true
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
