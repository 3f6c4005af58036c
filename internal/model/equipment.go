package model

import (
	"fmt"
	"strings"
	"time"
)

// EquipmentType is the slot an item occupies
type EquipmentType string

const (
	EquipmentWeapon     EquipmentType = "weapon"
	EquipmentArmor      EquipmentType = "armor"
	EquipmentAccessory  EquipmentType = "accessory"
	EquipmentConsumable EquipmentType = "consumable"
)

// EquipmentTypes lists every equipment type in a stable order
var EquipmentTypes = []EquipmentType{EquipmentWeapon, EquipmentArmor, EquipmentAccessory, EquipmentConsumable}

// IsValid reports whether t is a known equipment type
func (t EquipmentType) IsValid() bool {
	for _, known := range EquipmentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// DisplayName is the noun used in generated item names
func (t EquipmentType) DisplayName() string {
	switch t {
	case EquipmentWeapon:
		return "Sword"
	case EquipmentArmor:
		return "Armor"
	case EquipmentAccessory:
		return "Ring"
	case EquipmentConsumable:
		return "Potion"
	}
	return "Item"
}

// Rarity is an ordered quality tier: common < uncommon < rare < epic < legendary < mythic
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
	RarityMythic    Rarity = "mythic"
)

// Rarities lists every rarity from lowest to highest
var Rarities = []Rarity{RarityCommon, RarityUncommon, RarityRare, RarityEpic, RarityLegendary, RarityMythic}

var rarityPrefixes = [...]string{"Basic", "Enhanced", "Superior", "Heroic", "Legendary", "Mythic"}

// Index returns the position of r in Rarities, or -1 when unknown
func (r Rarity) Index() int {
	for i, known := range Rarities {
		if r == known {
			return i
		}
	}
	return -1
}

func (r Rarity) IsValid() bool {
	return r.Index() >= 0
}

// Less reports whether r ranks below other
func (r Rarity) Less(other Rarity) bool {
	return r.Index() < other.Index()
}

// Prefix is the adjective used in generated item names
func (r Rarity) Prefix() string {
	if i := r.Index(); i >= 0 {
		return rarityPrefixes[i]
	}
	return ""
}

// RarityFromIndex maps 0..5 to a rarity
func RarityFromIndex(i int) (Rarity, error) {
	if i < 0 || i >= len(Rarities) {
		return "", fmt.Errorf("rarity index %d out of range", i)
	}
	return Rarities[i], nil
}

// ParseRarity accepts a rarity name in any case
func ParseRarity(s string) (Rarity, bool) {
	r := Rarity(strings.ToLower(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// ParseEquipmentType accepts an equipment type name in any case
func ParseEquipmentType(s string) (EquipmentType, bool) {
	t := EquipmentType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.IsValid()
}

// Equipment is a minted loot item
type Equipment struct {
	ID             string        `json:"id"`
	TokenID        string        `json:"token_id"`
	OwnerID        string        `json:"owner_id"`
	Name           string        `json:"name"`
	EquipmentType  EquipmentType `json:"equipment_type"`
	Rarity         Rarity        `json:"rarity"`
	AttackPower    int           `json:"attack_power"`
	DefensePower   int           `json:"defense_power"`
	MagicPower     int           `json:"magic_power"`
	SpecialAbility *string       `json:"special_ability,omitempty"`
	Attributes     []string      `json:"attributes,omitempty"`
	IsLendable     bool          `json:"is_lendable"`
	ChainID        int64         `json:"chain_id"`
	TxHash         string        `json:"tx_hash,omitempty"`
	CreatedOn      time.Time     `json:"created_on"`
	// Populated on detail reads
	ActiveOrders []*LendingOrder `json:"active_orders,omitempty"`
}

const (
	MinLootLevel = 1
	MaxLootLevel = 100
)

// GenerateLootRequest rolls and mints an item for the caller
type GenerateLootRequest struct {
	Address       string  `json:"address"`
	Level         int     `json:"level"`
	EquipmentType *string `json:"equipment_type,omitempty"`
	ChainID       *int64  `json:"chain_id,omitempty"`
}

func (r *GenerateLootRequest) Validate() []FieldError {
	var errs []FieldError
	if !IsWalletAddress(strings.TrimSpace(r.Address)) {
		errs = append(errs, FieldError{Field: "address", Message: "must be a 0x-prefixed 40 hex character address"})
	}
	if r.Level < MinLootLevel || r.Level > MaxLootLevel {
		errs = append(errs, FieldError{Field: "level", Message: "must be between 1 and 100"})
	}
	if r.EquipmentType != nil {
		if _, ok := ParseEquipmentType(*r.EquipmentType); !ok {
			errs = append(errs, FieldError{Field: "equipment_type", Message: "must be weapon, armor, accessory or consumable"})
		}
	}
	return errs
}

// SetLendableRequest toggles whether an item may be listed
type SetLendableRequest struct {
	IsLendable bool `json:"is_lendable"`
}
