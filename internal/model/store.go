package model

// Guard codes reported by stores when an atomic write is refused. They travel
// as database.GuardError codes so every store implementation reports the same
// conditions.
const (
	GuardPartyInactive  = "party_inactive"
	GuardPartyFull      = "party_full"
	GuardAlreadyMember  = "already_member"
	GuardAlreadyInParty = "already_in_party"
	GuardNotMember      = "not_member"
	GuardOrderActive    = "order_active"
)
