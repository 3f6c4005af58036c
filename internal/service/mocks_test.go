package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/forgo/lootbound/api/internal/model"
	"github.com/forgo/lootbound/api/internal/repository/memory"
)

// ============================================================================
// Mock Chain Gateway
// ============================================================================

type mockChain struct {
	registerPlayerFunc func(ctx context.Context, address string) (string, error)
	createPartyFunc    func(ctx context.Context, maxSize int) (*model.ChainReceipt, error)
	mintLootFunc       func(ctx context.Context, req model.MintRequest) (*model.ChainReceipt, error)
	seq                atomic.Int64
}

func (m *mockChain) RegisterPlayer(ctx context.Context, address string) (string, error) {
	if m.registerPlayerFunc != nil {
		return m.registerPlayerFunc(ctx, address)
	}
	return "0xregister", nil
}

func (m *mockChain) CreateParty(ctx context.Context, maxSize int) (*model.ChainReceipt, error) {
	if m.createPartyFunc != nil {
		return m.createPartyFunc(ctx, maxSize)
	}
	n := m.seq.Add(1)
	return &model.ChainReceipt{ExternalID: fmt.Sprint(n), TxHash: fmt.Sprintf("0xparty%d", n)}, nil
}

func (m *mockChain) MintLoot(ctx context.Context, req model.MintRequest) (*model.ChainReceipt, error) {
	if m.mintLootFunc != nil {
		return m.mintLootFunc(ctx, req)
	}
	n := m.seq.Add(1)
	return &model.ChainReceipt{ExternalID: fmt.Sprint(n), TxHash: fmt.Sprintf("0xmint%d", n)}, nil
}

// ============================================================================
// Recording Publisher
// ============================================================================

type recordingPublisher struct {
	mu     sync.Mutex
	events []*model.DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event *model.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []model.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func (p *recordingPublisher) last() *model.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

// ============================================================================
// Clock
// ============================================================================

// fakeClock advances only when told to
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Tick advances by d and returns the new time
func (c *fakeClock) Tick(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// ============================================================================
// Fixture
// ============================================================================

type fixture struct {
	store     *memory.Store
	chain     *mockChain
	publisher *recordingPublisher
	clock     *fakeClock
	locks     *KeyedMutex

	players *PlayerService
	parties *PartyService
	lending *LendingService
	loot    *LootService
}

func newFixture() *fixture {
	f := &fixture{
		store:     memory.New(),
		chain:     &mockChain{},
		publisher: &recordingPublisher{},
		clock:     newFakeClock(),
		locks:     NewKeyedMutex(),
	}
	f.players = NewPlayerService(PlayerServiceConfig{
		Repo: f.store.Players(),
		Now:  f.clock.Now,
	})
	f.parties = NewPartyService(PartyServiceConfig{
		Repo:       f.store.Parties(),
		PlayerRepo: f.store.Players(),
		Chain:      f.chain,
		Publisher:  f.publisher,
		Locks:      f.locks,
		Now:        f.clock.Now,
	})
	f.lending = NewLendingService(LendingServiceConfig{
		Repo:          f.store.Lending(),
		EquipmentRepo: f.store.Equipment(),
		Publisher:     f.publisher,
		Locks:         f.locks,
		Now:           f.clock.Now,
	})
	f.loot = NewLootService(LootServiceConfig{
		Repo:        f.store.Equipment(),
		PlayerRepo:  f.store.Players(),
		LendingRepo: f.store.Lending(),
		Chain:       f.chain,
		Publisher:   f.publisher,
		Locks:       f.locks,
		Now:         f.clock.Now,
	})
	return f
}

var walletSeq atomic.Int64

// player registers a fresh player and returns its id
func (f *fixture) player(name string) string {
	wallet := fmt.Sprintf("0x%040x", walletSeq.Add(1))
	p, err := f.players.ConnectPlayer(context.Background(), &model.ConnectPlayerRequest{Wallet: wallet, Username: name})
	if err != nil {
		panic(err)
	}
	return p.ID
}

// item stores a lendable item owned by ownerID without touching the chain
func (f *fixture) item(ownerID string, rarity model.Rarity, typ model.EquipmentType) *model.Equipment {
	e := &model.Equipment{
		TokenID:       fmt.Sprintf("tok-%d", walletSeq.Add(1)),
		OwnerID:       ownerID,
		Name:          rarity.Prefix() + " " + typ.DisplayName(),
		EquipmentType: typ,
		Rarity:        rarity,
		IsLendable:    true,
		CreatedOn:     f.clock.Now(),
	}
	if err := f.store.Equipment().Create(context.Background(), e); err != nil {
		panic(err)
	}
	return e
}

func intPtr(i int) *int                      { return &i }
func strPtr(s string) *string                { return &s }
func floatPtr(f float64) *float64            { return &f }
func rarityPtr(r model.Rarity) *model.Rarity { return &r }
