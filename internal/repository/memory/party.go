package memory

import (
	"context"
	"time"

	"github.com/forgo/lootbound/api/internal/model"
)

// PartyRepository stores parties and their membership rows
type PartyRepository struct {
	s *Store
}

// Create stores the party and its leader, refusing a leader already in an active party
func (r *PartyRepository) Create(ctx context.Context, party *model.Party, leader *model.PartyMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.activeMembership(leader.PlayerID) != nil {
		return guard(model.GuardAlreadyInParty)
	}

	party.ID = newID("party")
	leader.ID = newID("party_member")
	leader.PartyID = party.ID

	stored := *party
	stored.Members = nil
	r.s.parties[party.ID] = &stored
	r.s.members[leader.ID] = copyMember(leader)
	return nil
}

func (r *PartyRepository) GetByID(ctx context.Context, id string) (*model.Party, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.parties[id]
	if !ok {
		return nil, nil
	}
	party := *p
	party.Members = r.s.membersOf(id)
	return &party, nil
}

func (r *PartyRepository) GetActiveMembership(ctx context.Context, playerID string) (*model.PartyMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if m := r.s.activeMembership(playerID); m != nil {
		return copyMember(m), nil
	}
	return nil, nil
}

// AddMember inserts the membership when the party is active, below maxSize,
// and the player holds no active membership
func (r *PartyRepository) AddMember(ctx context.Context, member *model.PartyMember, maxSize int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.parties[member.PartyID]
	if !ok || !p.IsActive {
		return guard(model.GuardPartyInactive)
	}
	current := r.s.membersOf(member.PartyID)
	if len(current) >= maxSize {
		return guard(model.GuardPartyFull)
	}
	for _, m := range current {
		if m.PlayerID == member.PlayerID {
			return guard(model.GuardAlreadyMember)
		}
	}
	if r.s.activeMembership(member.PlayerID) != nil {
		return guard(model.GuardAlreadyInParty)
	}

	member.ID = newID("party_member")
	r.s.members[member.ID] = copyMember(member)
	p.UpdatedOn = member.JoinedAt
	return nil
}

// RemoveMember deletes the membership, optionally promoting a successor and
// deactivating the party, as one step
func (r *PartyRepository) RemoveMember(ctx context.Context, member *model.PartyMember, successorID string, deactivate bool, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.members[member.ID]; !ok {
		return guard(model.GuardNotMember)
	}
	var successor *model.PartyMember
	if successorID != "" {
		s, ok := r.s.members[successorID]
		if !ok || s.PartyID != member.PartyID {
			return guard(model.GuardNotMember)
		}
		successor = s
	}

	delete(r.s.members, member.ID)
	if successor != nil {
		successor.IsLeader = true
		successor.Role = model.RoleLeader
	}
	if p, ok := r.s.parties[member.PartyID]; ok {
		if deactivate {
			p.IsActive = false
		}
		p.UpdatedOn = now
	}
	return nil
}

func (r *PartyRepository) Deactivate(ctx context.Context, partyID string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if p, ok := r.s.parties[partyID]; ok {
		p.IsActive = false
		p.UpdatedOn = now
	}
	return nil
}

func (r *PartyRepository) UpdateName(ctx context.Context, partyID, name string, now time.Time) (*model.Party, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.parties[partyID]
	if !ok {
		return nil, nil
	}
	p.Name = name
	p.UpdatedOn = now
	party := *p
	party.Members = r.s.membersOf(partyID)
	return &party, nil
}

// membersOf returns copies of the party's members in join order. Caller holds mu.
func (s *Store) membersOf(partyID string) []*model.PartyMember {
	var out []*model.PartyMember
	for _, m := range s.members {
		if m.PartyID == partyID {
			out = append(out, copyMember(m))
		}
	}
	model.SortMembers(out)
	return out
}

// activeMembership finds the player's row in an active party. Caller holds mu.
func (s *Store) activeMembership(playerID string) *model.PartyMember {
	for _, m := range s.members {
		if m.PlayerID != playerID {
			continue
		}
		if p, ok := s.parties[m.PartyID]; ok && p.IsActive {
			return m
		}
	}
	return nil
}
