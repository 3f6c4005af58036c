package hub

import (
	"encoding/json"
	"time"
)

// Inbound event names
const (
	EventPlayerJoin    = "player:join"
	EventPartyJoin     = "party:join"
	EventPartyLeave    = "party:leave"
	EventDungeonAction = "dungeon:action"
	EventChatMessage   = "chat:message"
)

// Outbound event names
const (
	EventPlayerJoined       = "player:joined"
	EventPartyJoined        = "party:joined"
	EventPartyLeft          = "party:left"
	EventMemberJoined       = "party:member_joined" // room presence
	EventMemberLeft         = "party:member_left"   // room presence
	EventMembershipJoined   = "party:membership_joined"
	EventMembershipLeft     = "party:membership_left"
	EventMemberDisconnected = "party:member_disconnected"
	EventPartyCreated       = "party:created"
	EventLeaderChanged      = "party:leader_changed"
	EventPartyDisbanded     = "party:disbanded"
	EventOrderCreated       = "marketplace:order_created"
	EventOrderClosed        = "marketplace:order_closed"
	EventOrderBorrowed      = "lending:order_borrowed"
	EventLootMinted         = "loot:minted"
	EventError              = "error"
)

// Envelope is the frame shape in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Message is an outbound event before encoding
type Message struct {
	Event string
	Data  any
}

func (m Message) encode() ([]byte, error) {
	data, err := json.Marshal(m.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: m.Event, Data: data})
}

// Inbound payloads. Every field is optional on the wire.

type playerJoinData struct {
	PlayerID string `json:"playerId"`
	Wallet   string `json:"wallet"`
}

type partyRoomData struct {
	PartyID  string `json:"partyId"`
	PlayerID string `json:"playerId"`
}

type dungeonActionData struct {
	PartyID string          `json:"partyId"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type chatMessageData struct {
	Message string `json:"message"`
	PartyID string `json:"partyId,omitempty"`
}

// Outbound payloads

type playerJoinedData struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId"`
}

type roomAckData struct {
	PartyID string `json:"partyId"`
	Success bool   `json:"success"`
}

type memberData struct {
	PartyID   string    `json:"partyId"`
	PlayerID  string    `json:"playerId"`
	Timestamp time.Time `json:"timestamp"`
}

type actionData struct {
	PartyID   string          `json:"partyId"`
	PlayerID  string          `json:"playerId"`
	Action    string          `json:"action"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type chatData struct {
	PlayerID  string    `json:"playerId"`
	Message   string    `json:"message"`
	PartyID   string    `json:"partyId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type errorData struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}

// noticeData carries a committed domain event to clients
type noticeData struct {
	EventID   string         `json:"eventId"`
	PartyID   string         `json:"partyId,omitempty"`
	PlayerID  string         `json:"playerId,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
