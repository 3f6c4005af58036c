package model

import "time"

// EventType names a committed domain transition. The dotted form doubles as
// the broker routing key.
type EventType string

const (
	// Party events
	EventPartyCreated       EventType = "party.created"
	EventPartyMemberJoined  EventType = "party.member_joined"
	EventPartyMemberLeft    EventType = "party.member_left"
	EventPartyLeaderChanged EventType = "party.leader_changed"
	EventPartyDisbanded     EventType = "party.disbanded"

	// Lending events
	EventOrderCreated   EventType = "lending.order_created"
	EventOrderBorrowed  EventType = "lending.order_borrowed"
	EventOrderExpired   EventType = "lending.order_expired"
	EventOrderCancelled EventType = "lending.order_cancelled"
	EventOrderUpdated   EventType = "lending.order_updated"

	// Loot events
	EventLootMinted EventType = "loot.minted"
)

// DomainEvent is emitted after a state transition commits
type DomainEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	PartyID   string         `json:"party_id,omitempty"`
	PlayerID  string         `json:"player_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
