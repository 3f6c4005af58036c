// Package fixtures provides test data factories for SurrealDB integration tests.
//
// Each factory method inserts an entity through the real repositories with
// sensible defaults, allowing customization via option functions.
//
//	f := fixtures.New(tdb.DB)
//	lender := f.CreatePlayer(t)
//	sword := f.CreateEquipment(t, lender)
//	order := f.CreateOrder(t, sword, func(o *fixtures.OrderOpts) { o.Price = 5 })
package fixtures

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/forgo/lootbound/api/internal/database"
	"github.com/forgo/lootbound/api/internal/model"
	"github.com/forgo/lootbound/api/internal/repository"
)

// Factory creates test entities in the database
type Factory struct {
	Players   *repository.PlayerRepository
	Parties   *repository.PartyRepository
	Equipment *repository.EquipmentRepository
	Lending   *repository.LendingRepository
	Now       time.Time
}

// New creates a new fixture factory. Timestamps are truncated to the
// millisecond so they survive a round trip.
func New(db database.Database) *Factory {
	return &Factory{
		Players:   repository.NewPlayerRepository(db),
		Parties:   repository.NewPartyRepository(db),
		Equipment: repository.NewEquipmentRepository(db),
		Lending:   repository.NewLendingRepository(db),
		Now:       time.Now().UTC().Truncate(time.Millisecond),
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

// ============================================================================
// Players
// ============================================================================

// PlayerOpts customizes player creation
type PlayerOpts struct {
	Wallet     string
	Username   string
	Level      int
	Experience int
}

// CreatePlayer stores an active player with a random wallet
func (f *Factory) CreatePlayer(t *testing.T, opts ...func(*PlayerOpts)) *model.Player {
	t.Helper()

	o := &PlayerOpts{
		Wallet:   "0x" + randomHex(20),
		Username: "player_" + randomHex(4),
		Level:    1,
	}
	for _, fn := range opts {
		fn(o)
	}

	p := &model.Player{
		Wallet:     o.Wallet,
		Username:   o.Username,
		Level:      o.Level,
		Experience: o.Experience,
		IsActive:   true,
		CreatedOn:  f.Now,
		UpdatedOn:  f.Now,
	}
	if err := f.Players.Create(ctx(t), p); err != nil {
		t.Fatalf("fixtures: create player: %v", err)
	}
	return p
}

// ============================================================================
// Parties
// ============================================================================

// CreateParty stores an active party led by leader
func (f *Factory) CreateParty(t *testing.T, leader *model.Player, maxSize int) *model.Party {
	t.Helper()

	party := &model.Party{
		Name:      "party_" + randomHex(4),
		MaxSize:   maxSize,
		ChainID:   1,
		IsActive:  true,
		CreatedOn: f.Now,
		UpdatedOn: f.Now,
	}
	member := &model.PartyMember{PlayerID: leader.ID, Role: "leader", IsLeader: true, JoinedAt: f.Now}
	if err := f.Parties.Create(ctx(t), party, member); err != nil {
		t.Fatalf("fixtures: create party: %v", err)
	}
	party.Members = []*model.PartyMember{member}
	return party
}

// ============================================================================
// Equipment
// ============================================================================

// EquipmentOpts customizes equipment creation
type EquipmentOpts struct {
	Type       model.EquipmentType
	Rarity     model.Rarity
	IsLendable bool
}

// CreateEquipment stores a lendable common weapon owned by owner
func (f *Factory) CreateEquipment(t *testing.T, owner *model.Player, opts ...func(*EquipmentOpts)) *model.Equipment {
	t.Helper()

	o := &EquipmentOpts{Type: model.EquipmentWeapon, Rarity: model.RarityCommon, IsLendable: true}
	for _, fn := range opts {
		fn(o)
	}

	e := &model.Equipment{
		TokenID:       fmt.Sprint(time.Now().UnixNano()),
		OwnerID:       owner.ID,
		Name:          "Test " + o.Type.DisplayName(),
		EquipmentType: o.Type,
		Rarity:        o.Rarity,
		AttackPower:   10,
		IsLendable:    o.IsLendable,
		ChainID:       1,
		CreatedOn:     f.Now,
	}
	if err := f.Equipment.Create(ctx(t), e); err != nil {
		t.Fatalf("fixtures: create equipment: %v", err)
	}
	return e
}

// ============================================================================
// Lending orders
// ============================================================================

// OrderOpts customizes order creation
type OrderOpts struct {
	Price      float64
	Collateral float64
	Duration   int // hours
	CreatedAt  time.Time
}

// CreateOrder lists equipment for its owner
func (f *Factory) CreateOrder(t *testing.T, equipment *model.Equipment, opts ...func(*OrderOpts)) *model.LendingOrder {
	t.Helper()

	o := &OrderOpts{Price: 1, Collateral: 10, Duration: model.DefaultOrderDurationHours, CreatedAt: f.Now}
	for _, fn := range opts {
		fn(o)
	}

	order := &model.LendingOrder{
		EquipmentID: equipment.ID,
		LenderID:    equipment.OwnerID,
		Price:       o.Price,
		Collateral:  o.Collateral,
		Duration:    o.Duration,
		Status:      model.OrderStatusActive,
		ExpiresAt:   o.CreatedAt.Add(time.Duration(o.Duration) * time.Hour),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.CreatedAt,
	}
	if err := f.Lending.Create(ctx(t), order, o.CreatedAt); err != nil {
		t.Fatalf("fixtures: create order: %v", err)
	}
	return order
}
