package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/forgo/lootbound/api/internal/database"
	"github.com/forgo/lootbound/api/internal/model"
)

const tracerName = "github.com/forgo/lootbound/api/internal/service"

// EquipmentRepository defines the interface for equipment storage
type EquipmentRepository interface {
	Create(ctx context.Context, equipment *model.Equipment) error
	GetByID(ctx context.Context, id string) (*model.Equipment, error)
	GetByTokenID(ctx context.Context, tokenID string) (*model.Equipment, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*model.Equipment, int, error)
	SetLendable(ctx context.Context, id string, lendable bool) (*model.Equipment, error)
}

// LendingRepository defines the interface for lending-order storage
type LendingRepository interface {
	// Create marks overdue active orders for the equipment expired, then
	// inserts the order unless an unexpired active one remains
	Create(ctx context.Context, order *model.LendingOrder, now time.Time) error
	// GetByID returns the order with its equipment, or nil
	GetByID(ctx context.Context, id string) (*model.LendingOrder, error)
	// Borrow completes the order only while it is active and unexpired at now.
	// Returns nil when the condition no longer holds.
	Borrow(ctx context.Context, id, borrowerID string, now time.Time) (*model.LendingOrder, error)
	// MarkExpired moves an active order to expired; false when it was not active
	MarkExpired(ctx context.Context, id string, now time.Time) (bool, error)
	// Cancel moves an active order to cancelled. Returns nil when it was not active.
	Cancel(ctx context.Context, id string, now time.Time) (*model.LendingOrder, error)
	// UpdateStatus moves the order only while it is still in from. Returns nil otherwise.
	UpdateStatus(ctx context.Context, id string, from, to model.OrderStatus, borrowerID *string, now time.Time) (*model.LendingOrder, error)
	// ListActive returns one page of unexpired active orders, newest first, and the total
	ListActive(ctx context.Context, filter model.MarketplaceFilter, now time.Time) ([]*model.LendingOrder, int, error)
	ListByLender(ctx context.Context, lenderID string) ([]*model.LendingOrder, error)
	ListByBorrower(ctx context.Context, borrowerID string) ([]*model.LendingOrder, error)
	ListActiveByEquipment(ctx context.Context, equipmentID string, now time.Time) ([]*model.LendingOrder, error)
	// ExpireStale marks every overdue active order expired and returns them
	ExpireStale(ctx context.Context, now time.Time) ([]*model.LendingOrder, error)
}

// LendingService handles the lending-order lifecycle and the marketplace
type LendingService struct {
	repo          LendingRepository
	equipmentRepo EquipmentRepository
	publisher     EventPublisher
	locks         *KeyedMutex
	now           func() time.Time
	logger        *slog.Logger
	tracer        trace.Tracer
}

// LendingServiceConfig holds configuration for the lending service
type LendingServiceConfig struct {
	Repo          LendingRepository
	EquipmentRepo EquipmentRepository
	Publisher     EventPublisher   // Optional
	Locks         *KeyedMutex      // Optional
	Now           func() time.Time // Optional
	Logger        *slog.Logger     // Optional
}

// NewLendingService creates a new lending service
func NewLendingService(cfg LendingServiceConfig) *LendingService {
	locks := cfg.Locks
	if locks == nil {
		locks = NewKeyedMutex()
	}
	return &LendingService{
		repo:          cfg.Repo,
		equipmentRepo: cfg.EquipmentRepo,
		publisher:     defaultPublisher(cfg.Publisher),
		locks:         locks,
		now:           defaultClock(cfg.Now),
		logger:        defaultLogger(cfg.Logger),
		tracer:        otel.Tracer(tracerName),
	}
}

func equipmentKey(id string) string { return "equipment:" + id }
func orderKey(id string) string     { return "order:" + id }

// CreateOrder lists an owned, lendable item
func (s *LendingService) CreateOrder(ctx context.Context, lenderID string, req *model.CreateOrderRequest) (*model.LendingOrder, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(equipmentKey(req.EquipmentID))
	defer unlock()

	equipment, err := s.equipmentRepo.GetByID(ctx, req.EquipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get equipment: %w", err)
	}
	if equipment == nil {
		return nil, ErrEquipmentNotFound
	}
	if equipment.OwnerID != lenderID {
		return nil, ErrNotEquipmentOwner
	}
	if !equipment.IsLendable {
		return nil, ErrNotLendable
	}

	now := s.now()
	duration := req.EffectiveDuration()
	order := &model.LendingOrder{
		EquipmentID: equipment.ID,
		LenderID:    lenderID,
		Price:       req.Price,
		Collateral:  req.Collateral,
		Duration:    duration,
		Status:      model.OrderStatusActive,
		ExpiresAt:   now.Add(time.Duration(duration) * time.Hour),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, order, now); err != nil {
		if database.GuardCode(err) == model.GuardOrderActive {
			return nil, ErrOrderAlreadyListed
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	order.Equipment = equipment

	emit(ctx, s.publisher, s.logger, newEvent(model.EventOrderCreated, "", lenderID, map[string]any{
		"order_id":       order.ID,
		"equipment_id":   equipment.ID,
		"lender_id":      lenderID,
		"price":          order.Price,
		"collateral":     order.Collateral,
		"rarity":         string(equipment.Rarity),
		"equipment_type": string(equipment.EquipmentType),
		"expires_at":     order.ExpiresAt.UTC(),
	}, now))

	return order, nil
}

// GetOrder returns an order with its equipment
func (s *LendingService) GetOrder(ctx context.Context, orderID string) (*model.LendingOrder, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// BorrowEquipment completes an active order for the borrower. An overdue
// order is marked expired instead.
func (s *LendingService) BorrowEquipment(ctx context.Context, orderID, borrowerID string) (*model.LendingOrder, error) {
	ctx, span := s.tracer.Start(ctx, "LendingService.BorrowEquipment", trace.WithAttributes(
		attribute.String("lending.order_id", orderID),
		attribute.String("lending.borrower_id", borrowerID),
	))
	defer span.End()

	order, err := s.borrow(ctx, orderID, borrowerID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return order, nil
}

func (s *LendingService) borrow(ctx context.Context, orderID, borrowerID string) (*model.LendingOrder, error) {
	unlock := s.locks.Lock(orderKey(orderID))
	defer unlock()

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil || order.Status != model.OrderStatusActive {
		return nil, ErrOrderNotFound
	}
	if order.LenderID == borrowerID {
		return nil, invalidField("borrower_id", "cannot borrow your own listing")
	}

	now := s.now()
	if order.IsExpired(now) {
		s.expire(ctx, order, now)
		return nil, ErrOrderExpired
	}

	updated, err := s.repo.Borrow(ctx, orderID, borrowerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to borrow: %w", err)
	}
	if updated == nil {
		return nil, ErrOrderNotFound
	}
	if updated.Equipment == nil {
		updated.Equipment = order.Equipment
	}

	emit(ctx, s.publisher, s.logger, newEvent(model.EventOrderBorrowed, "", borrowerID, map[string]any{
		"order_id":     updated.ID,
		"equipment_id": updated.EquipmentID,
		"lender_id":    updated.LenderID,
		"borrower_id":  borrowerID,
		"price":        updated.Price,
		"collateral":   updated.Collateral,
	}, now))

	return updated, nil
}

// expire marks one overdue order expired and announces it
func (s *LendingService) expire(ctx context.Context, order *model.LendingOrder, now time.Time) {
	changed, err := s.repo.MarkExpired(ctx, order.ID, now)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to mark order expired",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if changed {
		s.emitClosed(ctx, model.EventOrderExpired, order, now)
	}
}

func (s *LendingService) emitClosed(ctx context.Context, typ model.EventType, order *model.LendingOrder, now time.Time) {
	emit(ctx, s.publisher, s.logger, newEvent(typ, "", order.LenderID, map[string]any{
		"order_id":     order.ID,
		"equipment_id": order.EquipmentID,
		"lender_id":    order.LenderID,
	}, now))
}

// ListMarketplace returns one page of borrowable orders, newest first
func (s *LendingService) ListMarketplace(ctx context.Context, filter model.MarketplaceFilter) (*model.MarketplacePage, error) {
	filter.Normalize()
	if err := invalid(filter.Validate()); err != nil {
		return nil, err
	}

	orders, total, err := s.repo.ListActive(ctx, filter, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list marketplace: %w", err)
	}
	if orders == nil {
		orders = []*model.LendingOrder{}
	}
	return &model.MarketplacePage{
		Orders:  orders,
		Total:   total,
		HasMore: filter.Offset+filter.Limit < total,
	}, nil
}

// UpdateOrder applies an administrative status change. Terminal orders
// cannot move and nothing returns to active.
func (s *LendingService) UpdateOrder(ctx context.Context, orderID string, req *model.UpdateOrderRequest) (*model.LendingOrder, error) {
	if len(req.Validate()) > 0 {
		return nil, ErrInvalidOrderStatus
	}

	unlock := s.locks.Lock(orderKey(orderID))
	defer unlock()

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status == req.Status {
		return order, nil
	}
	if order.Status.IsTerminal() || req.Status == model.OrderStatusActive {
		return nil, ErrInvalidOrderStatus
	}

	now := s.now()
	updated, err := s.repo.UpdateStatus(ctx, orderID, order.Status, req.Status, req.BorrowerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	if updated == nil {
		// moved by another writer since the read
		return nil, ErrInvalidOrderStatus
	}

	emit(ctx, s.publisher, s.logger, newEvent(model.EventOrderUpdated, "", order.LenderID, map[string]any{
		"order_id":        updated.ID,
		"equipment_id":    updated.EquipmentID,
		"lender_id":       updated.LenderID,
		"status":          string(updated.Status),
		"previous_status": string(order.Status),
	}, now))

	return updated, nil
}

// CancelOrder withdraws an active listing. Lender only.
func (s *LendingService) CancelOrder(ctx context.Context, orderID, lenderID string) (*model.LendingOrder, error) {
	unlock := s.locks.Lock(orderKey(orderID))
	defer unlock()

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.LenderID != lenderID {
		return nil, ErrNotOrderLender
	}
	if order.Status != model.OrderStatusActive {
		return nil, ErrInvalidOrderStatus
	}

	now := s.now()
	cancelled, err := s.repo.Cancel(ctx, orderID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	if cancelled == nil {
		return nil, ErrInvalidOrderStatus
	}

	s.emitClosed(ctx, model.EventOrderCancelled, cancelled, now)
	return cancelled, nil
}

// ListByLender returns every order the player has listed, newest first
func (s *LendingService) ListByLender(ctx context.Context, lenderID string) ([]*model.LendingOrder, error) {
	orders, err := s.repo.ListByLender(ctx, lenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ListBorrowed returns the orders the player has borrowed, newest first
func (s *LendingService) ListBorrowed(ctx context.Context, borrowerID string) ([]*model.LendingOrder, error) {
	orders, err := s.repo.ListByBorrower(ctx, borrowerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list borrowed orders: %w", err)
	}
	return orders, nil
}

// ExpireStale marks every overdue active order expired and reports how many
// changed
func (s *LendingService) ExpireStale(ctx context.Context) (int, error) {
	now := s.now()
	expired, err := s.repo.ExpireStale(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire orders: %w", err)
	}
	for _, order := range expired {
		s.emitClosed(ctx, model.EventOrderExpired, order, now)
	}
	return len(expired), nil
}
