package model

import (
	"sort"
	"strings"
	"time"
)

const (
	RoleLeader = "leader"
	RoleMember = "member"

	DefaultPartyMaxSize = 4
	MaxPartyMaxSize     = 64
	DefaultChainID      = int64(11155111) // Sepolia
	MaxPartyNameLength  = 64
	MaxRoleLength       = 32
)

// Party is a capped group of players. While active it has at least one
// member, exactly one leader, and no more than MaxSize members.
type Party struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	MaxSize    int            `json:"max_size"`
	ChainID    int64          `json:"chain_id"`
	ExternalID string         `json:"external_id,omitempty"` // on-chain party id
	TxHash     string         `json:"tx_hash,omitempty"`
	IsActive   bool           `json:"is_active"`
	CreatedOn  time.Time      `json:"created_on"`
	UpdatedOn  time.Time      `json:"updated_on"`
	Members    []*PartyMember `json:"members,omitempty"`
}

// PartyMember is a player's membership row in a party
type PartyMember struct {
	ID       string    `json:"id"`
	PartyID  string    `json:"party_id"`
	PlayerID string    `json:"player_id"`
	Role     string    `json:"role"`
	IsLeader bool      `json:"is_leader"`
	JoinedAt time.Time `json:"joined_at"`
}

// Leader returns the member flagged as leader, or nil
func (p *Party) Leader() *PartyMember {
	for _, m := range p.Members {
		if m.IsLeader {
			return m
		}
	}
	return nil
}

// Member returns the membership of playerID, or nil
func (p *Party) Member(playerID string) *PartyMember {
	for _, m := range p.Members {
		if m.PlayerID == playerID {
			return m
		}
	}
	return nil
}

// IsFull reports whether the party has no free slot
func (p *Party) IsFull() bool {
	return len(p.Members) >= p.MaxSize
}

// SortMembers orders members by join time, then by id
func SortMembers(members []*PartyMember) {
	sort.SliceStable(members, func(i, j int) bool {
		if !members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].JoinedAt.Before(members[j].JoinedAt)
		}
		return members[i].ID < members[j].ID
	})
}

// Successor picks the member who takes over when the leader leaves:
// the earliest joiner among everyone except departingID, ties broken by id.
func Successor(members []*PartyMember, departingID string) *PartyMember {
	var next *PartyMember
	for _, m := range members {
		if m.ID == departingID {
			continue
		}
		if next == nil ||
			m.JoinedAt.Before(next.JoinedAt) ||
			(m.JoinedAt.Equal(next.JoinedAt) && m.ID < next.ID) {
			next = m
		}
	}
	return next
}

// NormalizeRole maps an empty or reserved role to the default member role
func NormalizeRole(role string) string {
	role = strings.TrimSpace(role)
	if role == "" || strings.EqualFold(role, RoleLeader) {
		return RoleMember
	}
	return role
}

// CreatePartyRequest creates a party with the caller as leader
type CreatePartyRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	MaxSize *int   `json:"max_size,omitempty"`
	ChainID *int64 `json:"chain_id,omitempty"`
}

// EffectiveMaxSize returns the requested max size or the default
func (r *CreatePartyRequest) EffectiveMaxSize() int {
	if r.MaxSize == nil {
		return DefaultPartyMaxSize
	}
	return *r.MaxSize
}

// EffectiveChainID returns the requested chain id or the default
func (r *CreatePartyRequest) EffectiveChainID() int64 {
	if r.ChainID == nil {
		return DefaultChainID
	}
	return *r.ChainID
}

func (r *CreatePartyRequest) Validate() []FieldError {
	var errs []FieldError
	name := strings.TrimSpace(r.Name)
	if name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	} else if len(name) > MaxPartyNameLength {
		errs = append(errs, FieldError{Field: "name", Message: "must be at most 64 characters"})
	}
	if size := r.EffectiveMaxSize(); size < 1 || size > MaxPartyMaxSize {
		errs = append(errs, FieldError{Field: "max_size", Message: "must be between 1 and 64"})
	}
	if !IsWalletAddress(strings.TrimSpace(r.Address)) {
		errs = append(errs, FieldError{Field: "address", Message: "must be a 0x-prefixed 40 hex character address"})
	}
	if r.ChainID != nil && *r.ChainID <= 0 {
		errs = append(errs, FieldError{Field: "chain_id", Message: "must be positive"})
	}
	return errs
}

// JoinPartyRequest joins an active party
type JoinPartyRequest struct {
	Role string `json:"role,omitempty"`
}

func (r *JoinPartyRequest) Validate() []FieldError {
	if len(r.Role) > MaxRoleLength {
		return []FieldError{{Field: "role", Message: "must be at most 32 characters"}}
	}
	return nil
}

// UpdatePartyRequest is a leader-only partial update
type UpdatePartyRequest struct {
	Name *string `json:"name,omitempty"`
}

func (r *UpdatePartyRequest) Validate() []FieldError {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if name == "" || len(name) > MaxPartyNameLength {
			return []FieldError{{Field: "name", Message: "must be 1 to 64 characters"}}
		}
	}
	return nil
}
