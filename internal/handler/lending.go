package handler

import (
	"net/http"

	"github.com/forgo/lootbound/api/internal/middleware"
	"github.com/forgo/lootbound/api/internal/model"
	"github.com/forgo/lootbound/api/internal/service"
)

// LendingHandler handles marketplace and lending-order HTTP requests
type LendingHandler struct {
	svc *service.LendingService
}

// NewLendingHandler creates a new lending handler
func NewLendingHandler(svc *service.LendingService) *LendingHandler {
	return &LendingHandler{svc: svc}
}

func orderLinks(id string) map[string]string {
	return map[string]string{
		"self":   "/v1/lending/orders/" + id,
		"borrow": "/v1/lending/orders/" + id + "/borrow",
	}
}

// parseMarketplaceFilter reads rarity, type, minPrice, maxPrice, limit and offset
func parseMarketplaceFilter(r *http.Request) (model.MarketplaceFilter, []model.FieldError) {
	var (
		filter model.MarketplaceFilter
		errs   []model.FieldError
	)
	q := r.URL.Query()

	if raw := q.Get("rarity"); raw != "" {
		rarity, ok := model.ParseRarity(raw)
		if !ok {
			errs = append(errs, model.FieldError{Field: "rarity", Message: "unknown rarity"})
		}
		filter.Rarity = &rarity
	}
	if raw := q.Get("type"); raw != "" {
		typ, ok := model.ParseEquipmentType(raw)
		if !ok {
			errs = append(errs, model.FieldError{Field: "type", Message: "unknown equipment type"})
		}
		filter.EquipmentType = &typ
	}

	var fe *model.FieldError
	if filter.MinPrice, fe = queryFloat(r, "minPrice"); fe != nil {
		errs = append(errs, *fe)
	}
	if filter.MaxPrice, fe = queryFloat(r, "maxPrice"); fe != nil {
		errs = append(errs, *fe)
	}
	if filter.Limit, fe = queryInt(r, "limit", model.DefaultMarketplaceLimit); fe != nil {
		errs = append(errs, *fe)
	}
	if filter.Offset, fe = queryInt(r, "offset", 0); fe != nil {
		errs = append(errs, *fe)
	}
	return filter, errs
}

// Marketplace handles GET /v1/marketplace
func (h *LendingHandler) Marketplace(w http.ResponseWriter, r *http.Request) {
	filter, errs := parseMarketplaceFilter(r)
	if len(errs) > 0 {
		WriteError(w, model.NewValidationError(errs))
		return
	}

	page, err := h.svc.ListMarketplace(r.Context(), filter)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	filter.Normalize()
	WriteCollection(w, http.StatusOK, page.Orders, &PaginationInfo{
		Total:   page.Total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		HasMore: page.HasMore,
	}, nil)
}

// CreateOrder handles POST /v1/lending/orders
func (h *LendingHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.CreateOrderRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	order, err := h.svc.CreateOrder(ctx, middleware.GetPlayerID(ctx), &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteData(w, http.StatusCreated, order, orderLinks(order.ID))
}

// GetOrder handles GET /v1/lending/orders/{orderId}
func (h *LendingHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.GetOrder(r.Context(), r.PathValue("orderId"))
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteData(w, http.StatusOK, order, orderLinks(order.ID))
}

// Borrow handles POST /v1/lending/orders/{orderId}/borrow
func (h *LendingHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	order, err := h.svc.BorrowEquipment(ctx, r.PathValue("orderId"), middleware.GetPlayerID(ctx))
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteData(w, http.StatusOK, order, nil)
}

// UpdateOrder handles PATCH /v1/lending/orders/{orderId}
func (h *LendingHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateOrderRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	order, err := h.svc.UpdateOrder(r.Context(), r.PathValue("orderId"), &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteData(w, http.StatusOK, order, nil)
}

// CancelOrder handles POST /v1/lending/orders/{orderId}/cancel
func (h *LendingHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	order, err := h.svc.CancelOrder(ctx, r.PathValue("orderId"), middleware.GetPlayerID(ctx))
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteData(w, http.StatusOK, order, nil)
}

// MyListings handles GET /v1/players/me/listings
func (h *LendingHandler) MyListings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orders, err := h.svc.ListByLender(ctx, middleware.GetPlayerID(ctx))
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteCollection(w, http.StatusOK, orders, nil, nil)
}

// MyBorrowed handles GET /v1/players/me/borrowed
func (h *LendingHandler) MyBorrowed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orders, err := h.svc.ListBorrowed(ctx, middleware.GetPlayerID(ctx))
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	WriteCollection(w, http.StatusOK, orders, nil, nil)
}
