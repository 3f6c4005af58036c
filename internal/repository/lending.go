package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/forgo/lootbound/api/internal/database"
	"github.com/forgo/lootbound/api/internal/model"
)

// LendingRepository handles lending-order data access
type LendingRepository struct {
	db database.Database
}

// NewLendingRepository creates a new lending repository
func NewLendingRepository(db database.Database) *LendingRepository {
	return &LendingRepository{db: db}
}

const borrowableCond = `status = "active" AND expires_at > <datetime> $now`

// Create expires overdue active orders for the equipment, then inserts the
// order unless an unexpired active one remains
func (r *LendingRepository) Create(ctx context.Context, order *model.LendingOrder, now time.Time) error {
	tx := database.NewTxBuilder().
		Var("equipment", order.EquipmentID).
		Var("lender", order.LenderID).
		Var("price", order.Price).
		Var("collateral", order.Collateral).
		Var("duration", order.Duration).
		Var("expires_at", formatTime(order.ExpiresAt)).
		Var("created_at", formatTime(order.CreatedAt)).
		Var("now", formatTime(now))

	tx.Add(`UPDATE lending_order SET status = "expired", updated_at = <datetime> $now
			WHERE equipment = type::record($equipment) AND status = "active" AND expires_at <= <datetime> $now`).
		Let("active", `(SELECT VALUE id FROM lending_order WHERE equipment = type::record($equipment) AND status = "active")`).
		Guard("array::len($active) > 0", model.GuardOrderActive).
		Let("order", `(CREATE ONLY lending_order CONTENT {
			equipment: type::record($equipment),
			lender: type::record($lender),
			price: $price,
			collateral: $collateral,
			duration: $duration,
			status: "active",
			expires_at: <datetime> $expires_at,
			created_at: <datetime> $created_at,
			updated_at: <datetime> $created_at
		})`).
		Add("RETURN [$order.id]")

	results, err := tx.Execute(ctx, r.db)
	if err != nil {
		return err
	}
	ids := extractIDs(lastStatement(results))
	if len(ids) != 1 {
		return errors.New("unexpected result format")
	}
	order.ID = ids[0]
	return nil
}

// GetByID returns the order with its equipment fetched, or nil
func (r *LendingRepository) GetByID(ctx context.Context, id string) (*model.LendingOrder, error) {
	if !isRecordOf(id, "lending_order") {
		return nil, nil
	}
	return r.one(ctx, `SELECT * FROM type::record($id) FETCH equipment`, map[string]interface{}{"id": id})
}

// Borrow completes the order only while it is active and unexpired at now
func (r *LendingRepository) Borrow(ctx context.Context, id, borrowerID string, now time.Time) (*model.LendingOrder, error) {
	if !isRecordOf(id, "lending_order") {
		return nil, nil
	}
	query := `
		UPDATE type::record($id) SET
			borrower = type::record($borrower),
			status = "completed",
			updated_at = <datetime> $now
		WHERE ` + borrowableCond + `
		RETURN AFTER
	`
	return r.one(ctx, query, map[string]interface{}{"id": id, "borrower": borrowerID, "now": formatTime(now)})
}

// MarkExpired moves an active order to expired
func (r *LendingRepository) MarkExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	order, err := r.transition(ctx, id, model.OrderStatusExpired, now)
	return order != nil, err
}

// Cancel moves an active order to cancelled
func (r *LendingRepository) Cancel(ctx context.Context, id string, now time.Time) (*model.LendingOrder, error) {
	return r.transition(ctx, id, model.OrderStatusCancelled, now)
}

func (r *LendingRepository) transition(ctx context.Context, id string, to model.OrderStatus, now time.Time) (*model.LendingOrder, error) {
	if !isRecordOf(id, "lending_order") {
		return nil, nil
	}
	query := `UPDATE type::record($id) SET status = $status, updated_at = <datetime> $now WHERE status = "active" RETURN AFTER`
	return r.one(ctx, query, map[string]interface{}{"id": id, "status": string(to), "now": formatTime(now)})
}

// UpdateStatus moves the order from one status to another and, when given,
// sets the borrower. Returns nil when the order is no longer in from.
func (r *LendingRepository) UpdateStatus(ctx context.Context, id string, from, to model.OrderStatus, borrowerID *string, now time.Time) (*model.LendingOrder, error) {
	if !isRecordOf(id, "lending_order") {
		return nil, nil
	}
	sets := []string{"status = $status", "updated_at = <datetime> $now"}
	vars := map[string]interface{}{"id": id, "from": string(from), "status": string(to), "now": formatTime(now)}
	if borrowerID != nil {
		sets = append(sets, "borrower = type::record($borrower)")
		vars["borrower"] = *borrowerID
	}
	query := "UPDATE type::record($id) SET " + strings.Join(sets, ", ") + " WHERE status = $from RETURN AFTER"
	return r.one(ctx, query, vars)
}

// ListActive returns one page of borrowable orders matching filter, newest first, and the total
func (r *LendingRepository) ListActive(ctx context.Context, filter model.MarketplaceFilter, now time.Time) ([]*model.LendingOrder, int, error) {
	conds := []string{borrowableCond}
	vars := map[string]interface{}{
		"now":    formatTime(now),
		"limit":  filter.Limit,
		"offset": filter.Offset,
	}
	if filter.Rarity != nil {
		conds = append(conds, "equipment.rarity = $rarity")
		vars["rarity"] = string(*filter.Rarity)
	}
	if filter.EquipmentType != nil {
		conds = append(conds, "equipment.equipment_type = $equipment_type")
		vars["equipment_type"] = string(*filter.EquipmentType)
	}
	if filter.MinPrice != nil {
		conds = append(conds, "price >= $min_price")
		vars["min_price"] = *filter.MinPrice
	}
	if filter.MaxPrice != nil {
		conds = append(conds, "price <= $max_price")
		vars["max_price"] = *filter.MaxPrice
	}
	where := strings.Join(conds, " AND ")

	query := "SELECT * FROM lending_order WHERE " + where +
		" ORDER BY created_at DESC LIMIT $limit START $offset FETCH equipment;\n" +
		"SELECT count() AS count FROM lending_order WHERE " + where + " GROUP ALL;"

	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, 0, err
	}
	return parseOrders(statementRecords(results, 0)), extractCount(results, 1), nil
}

// ListByLender returns the lender's orders, newest first
func (r *LendingRepository) ListByLender(ctx context.Context, lenderID string) ([]*model.LendingOrder, error) {
	if !isRecordOf(lenderID, "player") {
		return []*model.LendingOrder{}, nil
	}
	query := `SELECT * FROM lending_order WHERE lender = type::record($player) ORDER BY created_at DESC FETCH equipment`
	return r.many(ctx, query, map[string]interface{}{"player": lenderID})
}

// ListByBorrower returns the orders the player borrowed, newest first
func (r *LendingRepository) ListByBorrower(ctx context.Context, borrowerID string) ([]*model.LendingOrder, error) {
	if !isRecordOf(borrowerID, "player") {
		return []*model.LendingOrder{}, nil
	}
	query := `SELECT * FROM lending_order WHERE borrower = type::record($player) ORDER BY created_at DESC FETCH equipment`
	return r.many(ctx, query, map[string]interface{}{"player": borrowerID})
}

// ListActiveByEquipment returns the item's borrowable orders
func (r *LendingRepository) ListActiveByEquipment(ctx context.Context, equipmentID string, now time.Time) ([]*model.LendingOrder, error) {
	if !isRecordOf(equipmentID, "equipment") {
		return []*model.LendingOrder{}, nil
	}
	query := `SELECT * FROM lending_order WHERE equipment = type::record($equipment) AND ` + borrowableCond + ` ORDER BY created_at DESC`
	return r.many(ctx, query, map[string]interface{}{"equipment": equipmentID, "now": formatTime(now)})
}

// ExpireStale marks every overdue active order expired and returns them
func (r *LendingRepository) ExpireStale(ctx context.Context, now time.Time) ([]*model.LendingOrder, error) {
	query := `
		UPDATE lending_order SET status = "expired", updated_at = <datetime> $now
		WHERE status = "active" AND expires_at <= <datetime> $now
		RETURN AFTER
	`
	return r.many(ctx, query, map[string]interface{}{"now": formatTime(now)})
}

func (r *LendingRepository) one(ctx context.Context, query string, vars map[string]interface{}) (*model.LendingOrder, error) {
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
	return parseOrder(data), nil
}

func (r *LendingRepository) many(ctx context.Context, query string, vars map[string]interface{}) ([]*model.LendingOrder, error) {
	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return parseOrders(statementRecords(results, 0)), nil
}

func parseOrders(records []map[string]interface{}) []*model.LendingOrder {
	orders := make([]*model.LendingOrder, 0, len(records))
	for _, rec := range records {
		orders = append(orders, parseOrder(rec))
	}
	return orders
}

// parseOrder reads an order; a fetched equipment link is parsed into the item
func parseOrder(data map[string]interface{}) *model.LendingOrder {
	order := &model.LendingOrder{
		ID:          convertSurrealID(data["id"]),
		EquipmentID: getRecordID(data, "equipment"),
		LenderID:    getRecordID(data, "lender"),
		Price:       getFloat(data, "price"),
		Collateral:  getFloat(data, "collateral"),
		Duration:    getInt(data, "duration"),
		Status:      model.OrderStatus(getString(data, "status")),
		ExpiresAt:   parseTime(data["expires_at"]),
		CreatedAt:   parseTime(data["created_at"]),
		UpdatedAt:   parseTime(data["updated_at"]),
	}
	if b := getRecordID(data, "borrower"); b != "" {
		order.BorrowerID = &b
	}
	if eq, ok := data["equipment"].(map[string]interface{}); ok {
		order.Equipment = parseEquipment(eq)
	}
	return order
}
