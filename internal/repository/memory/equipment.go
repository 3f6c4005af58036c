package memory

import (
	"context"
	"sort"

	"github.com/forgo/lootbound/api/internal/database"
	"github.com/forgo/lootbound/api/internal/model"
)

// EquipmentRepository stores items with a unique token id index
type EquipmentRepository struct {
	s *Store
}

func (r *EquipmentRepository) Create(ctx context.Context, equipment *model.Equipment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.tokens[equipment.TokenID]; exists {
		return database.ErrDuplicate
	}
	equipment.ID = newID("equipment")
	r.s.equipment[equipment.ID] = copyEquipment(equipment)
	r.s.tokens[equipment.TokenID] = equipment.ID
	return nil
}

func (r *EquipmentRepository) GetByID(ctx context.Context, id string) (*model.Equipment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.equipment[id]
	if !ok {
		return nil, nil
	}
	return copyEquipment(e), nil
}

func (r *EquipmentRepository) GetByTokenID(ctx context.Context, tokenID string) (*model.Equipment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.tokens[tokenID]
	if !ok {
		return nil, nil
	}
	return copyEquipment(r.s.equipment[id]), nil
}

// ListByOwner returns one page of the owner's items, newest first, and the total
func (r *EquipmentRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*model.Equipment, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var items []*model.Equipment
	for _, e := range r.s.equipment {
		if e.OwnerID == ownerID {
			items = append(items, copyEquipment(e))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedOn.Equal(items[j].CreatedOn) {
			return items[i].CreatedOn.After(items[j].CreatedOn)
		}
		return items[i].ID > items[j].ID
	})

	total := len(items)
	if offset >= total {
		return []*model.Equipment{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return items[offset:end], total, nil
}

func (r *EquipmentRepository) SetLendable(ctx context.Context, id string, lendable bool) (*model.Equipment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.equipment[id]
	if !ok {
		return nil, nil
	}
	e.IsLendable = lendable
	return copyEquipment(e), nil
}
