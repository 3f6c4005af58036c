package hub

import (
	"context"

	"github.com/forgo/lootbound/api/internal/model"
)

// Publish turns a committed domain event into outbound messages for the
// sessions it concerns. It never fails; offline recipients are skipped.
func (h *Hub) Publish(_ context.Context, event *model.DomainEvent) error {
	msg := func(name string) Message {
		return Message{Event: name, Data: noticeData{
			EventID:   event.ID,
			PartyID:   event.PartyID,
			PlayerID:  event.PlayerID,
			Data:      event.Data,
			Timestamp: event.Timestamp,
		}}
	}

	switch event.Type {
	case model.EventPartyCreated:
		h.EmitToPlayer(event.PlayerID, msg(EventPartyCreated))
	case model.EventPartyMemberJoined:
		h.EmitToParty(event.PartyID, msg(EventMembershipJoined))
	case model.EventPartyMemberLeft:
		h.EmitToParty(event.PartyID, msg(EventMembershipLeft))
	case model.EventPartyLeaderChanged:
		h.EmitToParty(event.PartyID, msg(EventLeaderChanged))
	case model.EventPartyDisbanded:
		h.EmitToParty(event.PartyID, msg(EventPartyDisbanded))

	case model.EventOrderCreated:
		h.EmitToAll(msg(EventOrderCreated))
	case model.EventOrderBorrowed:
		borrowed := msg(EventOrderBorrowed)
		if lender := dataString(event.Data, "lender_id"); lender != "" {
			h.EmitToPlayer(lender, borrowed)
		}
		h.EmitToPlayer(event.PlayerID, borrowed)
		h.EmitToAll(msg(EventOrderClosed))
	case model.EventOrderCancelled, model.EventOrderExpired:
		h.EmitToAll(msg(EventOrderClosed))
	case model.EventOrderUpdated:
		if dataString(event.Data, "status") != string(model.OrderStatusActive) {
			h.EmitToAll(msg(EventOrderClosed))
		}

	case model.EventLootMinted:
		h.EmitToPlayer(event.PlayerID, msg(EventLootMinted))
	}
	return nil
}

func dataString(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}
