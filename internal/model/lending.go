package model

import "time"

// OrderStatus is the lifecycle stage of a lending order
type OrderStatus string

const (
	OrderStatusActive    OrderStatus = "active"    // Listed and borrowable until expires_at
	OrderStatusCompleted OrderStatus = "completed" // Borrowed
	OrderStatusExpired   OrderStatus = "expired"   // Listing lifetime elapsed
	OrderStatusCancelled OrderStatus = "cancelled" // Withdrawn by the lender
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusActive, OrderStatusCompleted, OrderStatusExpired, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusExpired || s == OrderStatusCancelled
}

const (
	DefaultOrderDurationHours = 24
	MaxOrderDurationHours     = 24 * 30

	DefaultMarketplaceLimit = 20
	MaxMarketplaceLimit     = 100
)

// LendingOrder offers one equipment item for a price against collateral.
// Duration is the listing lifetime in hours; ExpiresAt = CreatedAt + Duration.
type LendingOrder struct {
	ID          string      `json:"id"`
	EquipmentID string      `json:"equipment_id"`
	LenderID    string      `json:"lender_id"`
	BorrowerID  *string     `json:"borrower_id,omitempty"`
	Price       float64     `json:"price"`
	Collateral  float64     `json:"collateral"`
	Duration    int         `json:"duration"`
	Status      OrderStatus `json:"status"`
	ExpiresAt   time.Time   `json:"expires_at"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	// Populated on marketplace and listing reads
	Equipment *Equipment `json:"equipment,omitempty"`
}

// IsExpired reports whether the listing lifetime has elapsed at now
func (o *LendingOrder) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// IsBorrowable reports whether the order is active and unexpired at now
func (o *LendingOrder) IsBorrowable(now time.Time) bool {
	return o.Status == OrderStatusActive && !o.IsExpired(now)
}

// CreateOrderRequest lists an owned item
type CreateOrderRequest struct {
	EquipmentID string  `json:"equipment_id"`
	Price       float64 `json:"price"`
	Collateral  float64 `json:"collateral"`
	Duration    *int    `json:"duration,omitempty"`
}

// EffectiveDuration returns the requested duration in hours or the default
func (r *CreateOrderRequest) EffectiveDuration() int {
	if r.Duration == nil {
		return DefaultOrderDurationHours
	}
	return *r.Duration
}

func (r *CreateOrderRequest) Validate() []FieldError {
	var errs []FieldError
	if r.EquipmentID == "" {
		errs = append(errs, FieldError{Field: "equipment_id", Message: "equipment_id is required"})
	}
	if r.Price < 0 {
		errs = append(errs, FieldError{Field: "price", Message: "must not be negative"})
	}
	if r.Collateral < 0 {
		errs = append(errs, FieldError{Field: "collateral", Message: "must not be negative"})
	}
	if d := r.EffectiveDuration(); d <= 0 || d > MaxOrderDurationHours {
		errs = append(errs, FieldError{Field: "duration", Message: "must be between 1 and 720 hours"})
	}
	return errs
}

// UpdateOrderRequest is an administrative status change
type UpdateOrderRequest struct {
	Status     OrderStatus `json:"status"`
	BorrowerID *string     `json:"borrower_id,omitempty"`
}

func (r *UpdateOrderRequest) Validate() []FieldError {
	if !r.Status.IsValid() {
		return []FieldError{{Field: "status", Message: "must be active, completed, expired or cancelled"}}
	}
	return nil
}

// MarketplaceFilter narrows the marketplace listing. Nil fields do not filter.
type MarketplaceFilter struct {
	Rarity        *Rarity
	EquipmentType *EquipmentType
	MinPrice      *float64
	MaxPrice      *float64
	Limit         int
	Offset        int
}

// Normalize applies the default limit, caps it, and clamps a negative offset
func (f *MarketplaceFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultMarketplaceLimit
	}
	if f.Limit > MaxMarketplaceLimit {
		f.Limit = MaxMarketplaceLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

func (f *MarketplaceFilter) Validate() []FieldError {
	var errs []FieldError
	if f.Rarity != nil && !f.Rarity.IsValid() {
		errs = append(errs, FieldError{Field: "rarity", Message: "unknown rarity"})
	}
	if f.EquipmentType != nil && !f.EquipmentType.IsValid() {
		errs = append(errs, FieldError{Field: "type", Message: "unknown equipment type"})
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		errs = append(errs, FieldError{Field: "minPrice", Message: "must not exceed maxPrice"})
	}
	return errs
}

// Matches reports whether an order with its equipment passes the filter.
// Status and expiry are checked by the caller.
func (f *MarketplaceFilter) Matches(o *LendingOrder, e *Equipment) bool {
	if f.MinPrice != nil && o.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && o.Price > *f.MaxPrice {
		return false
	}
	if f.Rarity != nil && (e == nil || e.Rarity != *f.Rarity) {
		return false
	}
	if f.EquipmentType != nil && (e == nil || e.EquipmentType != *f.EquipmentType) {
		return false
	}
	return true
}

// MarketplacePage is one page of marketplace results
type MarketplacePage struct {
	Orders  []*LendingOrder `json:"orders"`
	Total   int             `json:"total"`
	HasMore bool            `json:"has_more"`
}
