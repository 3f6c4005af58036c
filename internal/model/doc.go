// Package model defines the domain entities and request types for the Lootbound API.
//
// # Domain Entities
//
//   - Player: a game identity keyed by wallet address
//   - Party: a capped group of players with exactly one leader
//   - PartyMember: a player's membership row in a party
//   - Equipment: a minted loot item owned by a player
//   - LendingOrder: a time-bounded offer to lend one equipment item
//   - DomainEvent: the record of a committed state transition, fanned out to
//     live sessions and the message broker
//
// Request types carry a Validate method returning []FieldError. Errors returned
// to HTTP clients follow RFC 9457 Problem Details (see errors.go).
package model
