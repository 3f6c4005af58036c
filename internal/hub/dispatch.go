package hub

import (
	"encoding/json"
	"log/slog"
)

// Dispatch decodes one inbound frame and routes it. Malformed frames are
// answered with an error frame to the sender only; missing optional fields
// are passed along as empty values.
func (h *Hub) Dispatch(s *Session, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil || env.Event == "" {
		h.reject(s, "", "malformed frame")
		return
	}

	switch env.Event {
	case EventPlayerJoin:
		var d playerJoinData
		if !h.decode(s, env, &d) {
			return
		}
		h.PlayerJoin(s, d.PlayerID, d.Wallet)

	case EventPartyJoin:
		var d partyRoomData
		if !h.decode(s, env, &d) {
			return
		}
		h.PartyRoomJoin(s, d.PartyID, d.PlayerID)

	case EventPartyLeave:
		var d partyRoomData
		if !h.decode(s, env, &d) {
			return
		}
		h.PartyRoomLeave(s, d.PartyID, d.PlayerID)

	case EventDungeonAction:
		var d dungeonActionData
		if !h.decode(s, env, &d) {
			return
		}
		h.DungeonAction(s, d.PartyID, d.Action, d.Payload)

	case EventChatMessage:
		var d chatMessageData
		if !h.decode(s, env, &d) {
			return
		}
		h.ChatMessage(s, d.Message, d.PartyID)

	default:
		h.logger.Debug("unknown event",
			slog.String("session_id", s.id),
			slog.String("event", env.Event),
		)
		h.reject(s, env.Event, "unknown event")
	}
}

// decode unmarshals env.Data into v. Absent data leaves v zeroed.
func (h *Hub) decode(s *Session, env Envelope, v any) bool {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return true
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		h.reject(s, env.Event, "malformed data")
		return false
	}
	return true
}
