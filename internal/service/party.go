package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/forgo/lootbound/api/internal/database"
	"github.com/forgo/lootbound/api/internal/model"
)

// PartyRepository defines the interface for party storage. Every write is
// atomic; refused writes report a database.GuardError with a model.Guard* code.
type PartyRepository interface {
	// Create stores the party and its leader membership together
	Create(ctx context.Context, party *model.Party, leader *model.PartyMember) error
	// GetByID returns the party with members ordered by join time, or nil
	GetByID(ctx context.Context, id string) (*model.Party, error)
	// GetActiveMembership returns the player's membership in an active party, or nil
	GetActiveMembership(ctx context.Context, playerID string) (*model.PartyMember, error)
	// AddMember inserts the membership if the party is active and below maxSize
	AddMember(ctx context.Context, member *model.PartyMember, maxSize int) error
	// RemoveMember deletes the membership, promotes successorID when set and
	// deactivates the party when deactivate is true
	RemoveMember(ctx context.Context, member *model.PartyMember, successorID string, deactivate bool, now time.Time) error
	Deactivate(ctx context.Context, partyID string, now time.Time) error
	UpdateName(ctx context.Context, partyID, name string, now time.Time) (*model.Party, error)
}

// PartyService handles the party lifecycle
type PartyService struct {
	repo       PartyRepository
	playerRepo PlayerRepository
	chain      ChainGateway
	publisher  EventPublisher
	locks      *KeyedMutex
	now        func() time.Time
	logger     *slog.Logger
}

// PartyServiceConfig holds configuration for the party service
type PartyServiceConfig struct {
	Repo       PartyRepository
	PlayerRepo PlayerRepository
	Chain      ChainGateway
	Publisher  EventPublisher   // Optional
	Locks      *KeyedMutex      // Optional, shared across services when set
	Now        func() time.Time // Optional
	Logger     *slog.Logger     // Optional
}

// NewPartyService creates a new party service
func NewPartyService(cfg PartyServiceConfig) *PartyService {
	locks := cfg.Locks
	if locks == nil {
		locks = NewKeyedMutex()
	}
	return &PartyService{
		repo:       cfg.Repo,
		playerRepo: cfg.PlayerRepo,
		chain:      cfg.Chain,
		publisher:  defaultPublisher(cfg.Publisher),
		locks:      locks,
		now:        defaultClock(cfg.Now),
		logger:     defaultLogger(cfg.Logger),
	}
}

func partyKey(id string) string { return "party:" + id }

// CreateParty registers a party on chain and stores it with the caller as leader
func (s *PartyService) CreateParty(ctx context.Context, playerID string, req *model.CreatePartyRequest) (*model.Party, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}

	existing, err := s.repo.GetActiveMembership(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyInParty
	}

	address := strings.TrimSpace(req.Address)
	maxSize := req.EffectiveMaxSize()

	// Registration fails when the address is already known on chain
	if _, err := s.chain.RegisterPlayer(ctx, address); err != nil {
		s.logger.WarnContext(ctx, "chain player registration failed",
			slog.String("player_id", playerID),
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
	}

	receipt, err := s.chain.CreateParty(ctx, maxSize)
	if err != nil {
		return nil, fmt.Errorf("%w: create party: %w", ErrExternalService, err)
	}

	now := s.now()
	party := &model.Party{
		Name:       strings.TrimSpace(req.Name),
		MaxSize:    maxSize,
		ChainID:    req.EffectiveChainID(),
		ExternalID: receipt.ExternalID,
		TxHash:     receipt.TxHash,
		IsActive:   true,
		CreatedOn:  now,
		UpdatedOn:  now,
	}
	leader := &model.PartyMember{
		PlayerID: playerID,
		Role:     model.RoleLeader,
		IsLeader: true,
		JoinedAt: now,
	}
	if err := s.repo.Create(ctx, party, leader); err != nil {
		if mapped := partyGuardError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to create party: %w", err)
	}
	party.Members = []*model.PartyMember{leader}

	emit(ctx, s.publisher, s.logger, newEvent(model.EventPartyCreated, party.ID, playerID, map[string]any{
		"name":        party.Name,
		"max_size":    party.MaxSize,
		"leader_id":   playerID,
		"external_id": party.ExternalID,
		"tx_hash":     party.TxHash,
	}, now))

	return party, nil
}

// GetParty returns a party with its members
func (s *PartyService) GetParty(ctx context.Context, partyID string) (*model.Party, error) {
	party, err := s.repo.GetByID(ctx, partyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get party: %w", err)
	}
	if party == nil {
		return nil, ErrPartyNotFound
	}
	return party, nil
}

// GetPartyForPlayer returns the player's active party, or nil when they have none
func (s *PartyService) GetPartyForPlayer(ctx context.Context, playerID string) (*model.Party, error) {
	membership, err := s.repo.GetActiveMembership(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	if membership == nil {
		return nil, nil
	}
	party, err := s.repo.GetByID(ctx, membership.PartyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get party: %w", err)
	}
	if party == nil || !party.IsActive {
		return nil, nil
	}
	return party, nil
}

// JoinParty adds the player as a regular member
func (s *PartyService) JoinParty(ctx context.Context, partyID, playerID string, req *model.JoinPartyRequest) (*model.Party, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}

	unlock := s.locks.Lock(partyKey(partyID))
	defer unlock()

	party, err := s.repo.GetByID(ctx, partyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get party: %w", err)
	}
	if party == nil || !party.IsActive {
		return nil, ErrPartyNotFound
	}
	if party.IsFull() {
		return nil, ErrPartyFull
	}
	if party.Member(playerID) != nil {
		return nil, ErrAlreadyPartyMember
	}

	now := s.now()
	member := &model.PartyMember{
		PartyID:  partyID,
		PlayerID: playerID,
		Role:     model.NormalizeRole(req.Role),
		IsLeader: false,
		JoinedAt: now,
	}
	if err := s.repo.AddMember(ctx, member, party.MaxSize); err != nil {
		if mapped := partyGuardError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	party.Members = append(party.Members, member)

	emit(ctx, s.publisher, s.logger, newEvent(model.EventPartyMemberJoined, partyID, playerID, map[string]any{
		"member_id": member.ID,
		"role":      member.Role,
	}, now))

	return party, nil
}

// LeaveParty removes the player. The last member leaving deactivates the
// party; a departing leader hands over to the earliest remaining joiner.
func (s *PartyService) LeaveParty(ctx context.Context, partyID, playerID string) error {
	unlock := s.locks.Lock(partyKey(partyID))
	defer unlock()

	party, err := s.repo.GetByID(ctx, partyID)
	if err != nil {
		return fmt.Errorf("failed to get party: %w", err)
	}
	if party == nil || !party.IsActive {
		return ErrMembershipNotFound
	}
	member := party.Member(playerID)
	if member == nil {
		return ErrMembershipNotFound
	}

	var successor *model.PartyMember
	deactivate := len(party.Members) == 1
	if !deactivate && member.IsLeader {
		successor = model.Successor(party.Members, member.ID)
	}
	successorID := ""
	if successor != nil {
		successorID = successor.ID
	}

	now := s.now()
	if err := s.repo.RemoveMember(ctx, member, successorID, deactivate, now); err != nil {
		if mapped := partyGuardError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to remove member: %w", err)
	}

	emit(ctx, s.publisher, s.logger, newEvent(model.EventPartyMemberLeft, partyID, playerID, map[string]any{
		"member_id": member.ID,
	}, now))

	switch {
	case deactivate:
		emit(ctx, s.publisher, s.logger, newEvent(model.EventPartyDisbanded, partyID, playerID, map[string]any{
			"reason": "last_member_left",
		}, now))
	case successor != nil:
		emit(ctx, s.publisher, s.logger, newEvent(model.EventPartyLeaderChanged, partyID, successor.PlayerID, map[string]any{
			"leader_id":          successor.PlayerID,
			"previous_leader_id": playerID,
		}, now))
	}

	return nil
}

// DisbandParty deactivates the party. Only the leader may disband; member
// rows are kept.
func (s *PartyService) DisbandParty(ctx context.Context, partyID, playerID string) error {
	unlock := s.locks.Lock(partyKey(partyID))
	defer unlock()

	party, err := s.repo.GetByID(ctx, partyID)
	if err != nil {
		return fmt.Errorf("failed to get party: %w", err)
	}
	if party == nil || !party.IsActive {
		return ErrPartyNotFound
	}
	if leader := party.Leader(); leader == nil || leader.PlayerID != playerID {
		return ErrNotPartyLeader
	}

	now := s.now()
	if err := s.repo.Deactivate(ctx, partyID, now); err != nil {
		return fmt.Errorf("failed to disband party: %w", err)
	}

	emit(ctx, s.publisher, s.logger, newEvent(model.EventPartyDisbanded, partyID, playerID, map[string]any{
		"reason": "leader_disbanded",
	}, now))

	return nil
}

// UpdateParty renames an active party. Leader only.
func (s *PartyService) UpdateParty(ctx context.Context, partyID, playerID string, req *model.UpdatePartyRequest) (*model.Party, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(partyKey(partyID))
	defer unlock()

	party, err := s.repo.GetByID(ctx, partyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get party: %w", err)
	}
	if party == nil || !party.IsActive {
		return nil, ErrPartyNotFound
	}
	if leader := party.Leader(); leader == nil || leader.PlayerID != playerID {
		return nil, ErrNotPartyLeader
	}
	if req.Name == nil {
		return party, nil
	}

	updated, err := s.repo.UpdateName(ctx, partyID, strings.TrimSpace(*req.Name), s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to update party: %w", err)
	}
	if updated == nil {
		return nil, ErrPartyNotFound
	}
	return updated, nil
}

// partyGuardError maps a refused store write to its service error, or nil
func partyGuardError(err error) error {
	if !errors.Is(err, database.ErrGuard) {
		return nil
	}
	switch database.GuardCode(err) {
	case model.GuardPartyInactive:
		return ErrPartyNotFound
	case model.GuardPartyFull:
		return ErrPartyFull
	case model.GuardAlreadyMember:
		return ErrAlreadyPartyMember
	case model.GuardAlreadyInParty:
		return ErrAlreadyInParty
	case model.GuardNotMember:
		return ErrMembershipNotFound
	}
	return nil
}
