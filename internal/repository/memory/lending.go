package memory

import (
	"context"
	"time"

	"github.com/forgo/lootbound/api/internal/model"
)

// LendingRepository stores lending orders
type LendingRepository struct {
	s *Store
}

// Create expires overdue active orders for the equipment, then inserts the
// order unless an unexpired active one remains
func (r *LendingRepository) Create(ctx context.Context, order *model.LendingOrder, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, o := range r.s.orders {
		if o.EquipmentID != order.EquipmentID || o.Status != model.OrderStatusActive {
			continue
		}
		if !o.IsExpired(now) {
			return guard(model.GuardOrderActive)
		}
	}
	for _, o := range r.s.orders {
		if o.EquipmentID == order.EquipmentID && o.Status == model.OrderStatusActive {
			o.Status = model.OrderStatusExpired
			o.UpdatedAt = now
		}
	}

	order.ID = newID("lending_order")
	r.s.orders[order.ID] = copyOrder(order)
	return nil
}

func (r *LendingRepository) GetByID(ctx context.Context, id string) (*model.LendingOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	return r.s.withEquipment(o), nil
}

// Borrow completes the order only while it is active and expires after now
func (r *LendingRepository) Borrow(ctx context.Context, id, borrowerID string, now time.Time) (*model.LendingOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok || !o.IsBorrowable(now) {
		return nil, nil
	}
	b := borrowerID
	o.BorrowerID = &b
	o.Status = model.OrderStatusCompleted
	o.UpdatedAt = now
	return r.s.withEquipment(o), nil
}

func (r *LendingRepository) MarkExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok || o.Status != model.OrderStatusActive {
		return false, nil
	}
	o.Status = model.OrderStatusExpired
	o.UpdatedAt = now
	return true, nil
}

func (r *LendingRepository) Cancel(ctx context.Context, id string, now time.Time) (*model.LendingOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok || o.Status != model.OrderStatusActive {
		return nil, nil
	}
	o.Status = model.OrderStatusCancelled
	o.UpdatedAt = now
	return r.s.withEquipment(o), nil
}

func (r *LendingRepository) UpdateStatus(ctx context.Context, id string, from, to model.OrderStatus, borrowerID *string, now time.Time) (*model.LendingOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok || o.Status != from {
		return nil, nil
	}
	o.Status = to
	if borrowerID != nil {
		b := *borrowerID
		o.BorrowerID = &b
	}
	o.UpdatedAt = now
	return r.s.withEquipment(o), nil
}

// ListActive returns one page of borrowable orders matching the filter, newest first
func (r *LendingRepository) ListActive(ctx context.Context, filter model.MarketplaceFilter, now time.Time) ([]*model.LendingOrder, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []*model.LendingOrder
	for _, o := range r.s.orders {
		if !o.IsBorrowable(now) {
			continue
		}
		if !filter.Matches(o, r.s.equipment[o.EquipmentID]) {
			continue
		}
		matched = append(matched, r.s.withEquipment(o))
	}
	sortNewest(matched)

	total := len(matched)
	if filter.Offset >= total {
		return []*model.LendingOrder{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if filter.Limit <= 0 || end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (r *LendingRepository) ListByLender(ctx context.Context, lenderID string) ([]*model.LendingOrder, error) {
	return r.list(func(o *model.LendingOrder) bool { return o.LenderID == lenderID }), nil
}

func (r *LendingRepository) ListByBorrower(ctx context.Context, borrowerID string) ([]*model.LendingOrder, error) {
	return r.list(func(o *model.LendingOrder) bool {
		return o.BorrowerID != nil && *o.BorrowerID == borrowerID
	}), nil
}

func (r *LendingRepository) ListActiveByEquipment(ctx context.Context, equipmentID string, now time.Time) ([]*model.LendingOrder, error) {
	return r.list(func(o *model.LendingOrder) bool {
		return o.EquipmentID == equipmentID && o.IsBorrowable(now)
	}), nil
}

// ExpireStale marks every overdue active order expired and returns them
func (r *LendingRepository) ExpireStale(ctx context.Context, now time.Time) ([]*model.LendingOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var expired []*model.LendingOrder
	for _, o := range r.s.orders {
		if o.Status == model.OrderStatusActive && o.IsExpired(now) {
			o.Status = model.OrderStatusExpired
			o.UpdatedAt = now
			expired = append(expired, copyOrder(o))
		}
	}
	sortNewest(expired)
	return expired, nil
}

func (r *LendingRepository) list(keep func(*model.LendingOrder) bool) []*model.LendingOrder {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*model.LendingOrder{}
	for _, o := range r.s.orders {
		if keep(o) {
			out = append(out, r.s.withEquipment(o))
		}
	}
	sortNewest(out)
	return out
}

// withEquipment copies the order and attaches its item. Caller holds mu.
func (s *Store) withEquipment(o *model.LendingOrder) *model.LendingOrder {
	c := copyOrder(o)
	if e, ok := s.equipment[o.EquipmentID]; ok {
		c.Equipment = copyEquipment(e)
	}
	return c
}
