package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/forgo/lootbound/api/internal/model"
)

// Random supplies uniform integers in [0, n). *rand.Rand satisfies it.
type Random interface {
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int { return rand.IntN(n) }

var specialAbilities = [...]string{"Fire Damage", "Ice Damage", "Lightning Damage"}

// Rarity thresholds for roll = rand[0,100) + level*2, highest first
var rarityThresholds = [...]struct {
	min    int
	rarity model.Rarity
}{
	{95, model.RarityMythic},
	{85, model.RarityLegendary},
	{70, model.RarityEpic},
	{50, model.RarityRare},
	{25, model.RarityUncommon},
}

// RollLoot generates an unminted item for a dungeon level. A nil typ picks
// one at random.
func RollLoot(rnd Random, level int, typ *model.EquipmentType) *model.Equipment {
	var equipmentType model.EquipmentType
	if typ != nil {
		equipmentType = *typ
	} else {
		equipmentType = model.EquipmentTypes[rnd.IntN(len(model.EquipmentTypes))]
	}

	rarity := rollRarity(rnd.IntN(100) + level*2)
	idx := rarity.Index()

	basePower := (idx+1)*10 + level*5
	attack := basePower + rnd.IntN(20)

	var ability *string
	if idx >= 2 {
		a := specialAbilities[rnd.IntN(len(specialAbilities))]
		ability = &a
	}

	return &model.Equipment{
		Name:           rarity.Prefix() + " " + equipmentType.DisplayName(),
		EquipmentType:  equipmentType,
		Rarity:         rarity,
		AttackPower:    attack,
		DefensePower:   attack * 8 / 10,
		MagicPower:     attack * 6 / 10,
		SpecialAbility: ability,
		Attributes:     []string{fmt.Sprintf("%s +%d", equipmentType, attack)},
		IsLendable:     true,
	}
}

func rollRarity(roll int) model.Rarity {
	for _, t := range rarityThresholds {
		if roll >= t.min {
			return t.rarity
		}
	}
	return model.RarityCommon
}

// LootService handles loot generation, minting and equipment reads
type LootService struct {
	repo        EquipmentRepository
	playerRepo  PlayerRepository
	lendingRepo LendingRepository
	chain       ChainGateway
	publisher   EventPublisher
	locks       *KeyedMutex
	rnd         Random
	now         func() time.Time
	logger      *slog.Logger
}

// LootServiceConfig holds configuration for the loot service
type LootServiceConfig struct {
	Repo        EquipmentRepository
	PlayerRepo  PlayerRepository
	LendingRepo LendingRepository // Optional, populates active orders on detail reads
	Chain       ChainGateway
	Publisher   EventPublisher   // Optional
	Locks       *KeyedMutex      // Optional
	Rand        Random           // Optional, defaults to math/rand/v2
	Now         func() time.Time // Optional
	Logger      *slog.Logger     // Optional
}

// NewLootService creates a new loot service
func NewLootService(cfg LootServiceConfig) *LootService {
	locks := cfg.Locks
	if locks == nil {
		locks = NewKeyedMutex()
	}
	rnd := cfg.Rand
	if rnd == nil {
		rnd = globalRandom{}
	}
	return &LootService{
		repo:        cfg.Repo,
		playerRepo:  cfg.PlayerRepo,
		lendingRepo: cfg.LendingRepo,
		chain:       cfg.Chain,
		publisher:   defaultPublisher(cfg.Publisher),
		locks:       locks,
		rnd:         rnd,
		now:         defaultClock(cfg.Now),
		logger:      defaultLogger(cfg.Logger),
	}
}

// GenerateLoot rolls an item, mints it to the address and stores it for the player
func (s *LootService) GenerateLoot(ctx context.Context, playerID string, req *model.GenerateLootRequest) (*model.Equipment, error) {
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

	var typ *model.EquipmentType
	if req.EquipmentType != nil {
		t, _ := model.ParseEquipmentType(*req.EquipmentType)
		typ = &t
	}
	item := RollLoot(s.rnd, req.Level, typ)

	receipt, err := s.chain.MintLoot(ctx, model.MintRequest{
		Address:     strings.TrimSpace(req.Address),
		Name:        item.Name,
		LootType:    item.EquipmentType,
		RarityIndex: item.Rarity.Index(),
		Power:       item.AttackPower,
		Attributes:  item.Attributes,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: mint loot: %w", ErrExternalService, err)
	}

	item.TokenID = receipt.ExternalID
	item.TxHash = receipt.TxHash
	item.OwnerID = playerID
	item.ChainID = model.DefaultChainID
	if req.ChainID != nil {
		item.ChainID = *req.ChainID
	}
	item.CreatedOn = s.now()

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to store equipment: %w", err)
	}

	s.logger.InfoContext(ctx, "loot minted",
		slog.String("player_id", playerID),
		slog.String("token_id", item.TokenID),
		slog.String("rarity", string(item.Rarity)),
	)

	emit(ctx, s.publisher, s.logger, newEvent(model.EventLootMinted, "", playerID, map[string]any{
		"equipment_id":   item.ID,
		"token_id":       item.TokenID,
		"name":           item.Name,
		"rarity":         string(item.Rarity),
		"equipment_type": string(item.EquipmentType),
		"tx_hash":        item.TxHash,
	}, item.CreatedOn))

	return item, nil
}

// GetEquipment returns an item by token id with its active orders
func (s *LootService) GetEquipment(ctx context.Context, tokenID string) (*model.Equipment, error) {
	item, err := s.repo.GetByTokenID(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to get equipment: %w", err)
	}
	if item == nil {
		return nil, ErrEquipmentNotFound
	}
	if s.lendingRepo != nil {
		orders, err := s.lendingRepo.ListActiveByEquipment(ctx, item.ID, s.now())
		if err != nil {
			return nil, fmt.Errorf("failed to get active orders: %w", err)
		}
		item.ActiveOrders = orders
	}
	return item, nil
}

// PlayerLoot returns one page of the player's items, newest first, and the total
func (s *LootService) PlayerLoot(ctx context.Context, playerID string, limit, offset int) ([]*model.Equipment, int, error) {
	if limit <= 0 {
		limit = model.DefaultMarketplaceLimit
	}
	if limit > model.MaxMarketplaceLimit {
		limit = model.MaxMarketplaceLimit
	}
	if offset < 0 {
		offset = 0
	}
	items, total, err := s.repo.ListByOwner(ctx, playerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list equipment: %w", err)
	}
	return items, total, nil
}

// SetLendable toggles whether the owner allows the item to be listed
func (s *LootService) SetLendable(ctx context.Context, equipmentID, playerID string, lendable bool) (*model.Equipment, error) {
	unlock := s.locks.Lock(equipmentKey(equipmentID))
	defer unlock()

	item, err := s.repo.GetByID(ctx, equipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get equipment: %w", err)
	}
	if item == nil {
		return nil, ErrEquipmentNotFound
	}
	if item.OwnerID != playerID {
		return nil, ErrNotEquipmentOwner
	}
	if item.IsLendable == lendable {
		return item, nil
	}

	updated, err := s.repo.SetLendable(ctx, equipmentID, lendable)
	if err != nil {
		return nil, fmt.Errorf("failed to update equipment: %w", err)
	}
	if updated == nil {
		return nil, ErrEquipmentNotFound
	}
	return updated, nil
}
