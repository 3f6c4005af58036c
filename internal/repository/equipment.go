package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/forgo/lootbound/api/internal/database"
	"github.com/forgo/lootbound/api/internal/model"
)

// EquipmentRepository handles equipment data access
type EquipmentRepository struct {
	db database.Database
}

// NewEquipmentRepository creates a new equipment repository
func NewEquipmentRepository(db database.Database) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

// Create stores a minted item. The token id index is unique.
func (r *EquipmentRepository) Create(ctx context.Context, equipment *model.Equipment) error {
	// Build query dynamically to avoid NULL values
	fields := []string{
		"token_id: $token_id",
		"owner: type::record($owner)",
		"name: $name",
		"equipment_type: $equipment_type",
		"rarity: $rarity",
		"attack_power: $attack_power",
		"defense_power: $defense_power",
		"magic_power: $magic_power",
		"attributes: $attributes",
		"is_lendable: $is_lendable",
		"chain_id: $chain_id",
		"created_on: <datetime> $created_on",
	}
	attributes := equipment.Attributes
	if attributes == nil {
		attributes = []string{}
	}
	vars := map[string]interface{}{
		"token_id":       equipment.TokenID,
		"owner":          equipment.OwnerID,
		"name":           equipment.Name,
		"equipment_type": string(equipment.EquipmentType),
		"rarity":         string(equipment.Rarity),
		"attack_power":   equipment.AttackPower,
		"defense_power":  equipment.DefensePower,
		"magic_power":    equipment.MagicPower,
		"attributes":     attributes,
		"is_lendable":    equipment.IsLendable,
		"chain_id":       equipment.ChainID,
		"created_on":     formatTime(equipment.CreatedOn),
	}
	if equipment.SpecialAbility != nil {
		fields = append(fields, "special_ability: $special_ability")
		vars["special_ability"] = *equipment.SpecialAbility
	}
	if equipment.TxHash != "" {
		fields = append(fields, "tx_hash: $tx_hash")
		vars["tx_hash"] = equipment.TxHash
	}

	query := fmt.Sprintf("CREATE equipment CONTENT { %s }", strings.Join(fields, ", "))

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return fmt.Errorf("%w: token id already stored", database.ErrDuplicate)
		}
		return fmt.Errorf("failed to create equipment: %w", err)
	}

	created, err := extractCreatedRecord(result)
	if err != nil {
		return fmt.Errorf("failed to extract created equipment: %w", err)
	}
	equipment.ID = created.ID
	return nil
}

// GetByID retrieves an item by ID
func (r *EquipmentRepository) GetByID(ctx context.Context, id string) (*model.Equipment, error) {
	if !isRecordOf(id, "equipment") {
		return nil, nil
	}
	return r.getOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
}

// GetByTokenID retrieves an item by its on-chain token id
func (r *EquipmentRepository) GetByTokenID(ctx context.Context, tokenID string) (*model.Equipment, error) {
	query := `SELECT * FROM equipment WHERE token_id = $token_id LIMIT 1`
	return r.getOne(ctx, query, map[string]interface{}{"token_id": tokenID})
}

// ListByOwner returns one page of the owner's items, newest first, and the total
func (r *EquipmentRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*model.Equipment, int, error) {
	if !isRecordOf(ownerID, "player") {
		return []*model.Equipment{}, 0, nil
	}
	query := `
		SELECT * FROM equipment WHERE owner = type::record($owner)
			ORDER BY created_on DESC LIMIT $limit START $offset;
		SELECT count() AS count FROM equipment WHERE owner = type::record($owner) GROUP ALL;
	`
	vars := map[string]interface{}{"owner": ownerID, "limit": limit, "offset": offset}

	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, 0, err
	}

	records := statementRecords(results, 0)
	items := make([]*model.Equipment, 0, len(records))
	for _, rec := range records {
		items = append(items, parseEquipment(rec))
	}
	return items, extractCount(results, 1), nil
}

// SetLendable toggles the lendable flag and returns the item, or nil if missing
func (r *EquipmentRepository) SetLendable(ctx context.Context, id string, lendable bool) (*model.Equipment, error) {
	if !isRecordOf(id, "equipment") {
		return nil, nil
	}
	query := `UPDATE type::record($id) SET is_lendable = $lendable RETURN AFTER`
	return r.getOne(ctx, query, map[string]interface{}{"id": id, "lendable": lendable})
}

func (r *EquipmentRepository) getOne(ctx context.Context, query string, vars map[string]interface{}) (*model.Equipment, error) {
	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	data, err := firstRecord(result)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return parseEquipment(data), nil
}

func parseEquipment(data map[string]interface{}) *model.Equipment {
	return &model.Equipment{
		ID:             convertSurrealID(data["id"]),
		TokenID:        getString(data, "token_id"),
		OwnerID:        getRecordID(data, "owner"),
		Name:           getString(data, "name"),
		EquipmentType:  model.EquipmentType(getString(data, "equipment_type")),
		Rarity:         model.Rarity(getString(data, "rarity")),
		AttackPower:    getInt(data, "attack_power"),
		DefensePower:   getInt(data, "defense_power"),
		MagicPower:     getInt(data, "magic_power"),
		SpecialAbility: getStringPtr(data, "special_ability"),
		Attributes:     getStringSlice(data, "attributes"),
		IsLendable:     getBool(data, "is_lendable"),
		ChainID:        getInt64(data, "chain_id"),
		TxHash:         getString(data, "tx_hash"),
		CreatedOn:      parseTime(data["created_on"]),
	}
}
