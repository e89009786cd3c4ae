package handler

import (
	"context"
	"net/http"

	"ku-isoko/internal/model"
	"ku-isoko/internal/service"

	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders. The order is built from the caller's cart.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.CreateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// GetByID handles GET /api/orders/{id}.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	orderID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	order, err := h.service.Get(r.Context(), actor, orderID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// ListMine handles GET /api/orders/my-orders.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	h.listFor(w, r, h.service.ListMine)
}

// ListForSeller handles GET /api/orders/seller-orders.
func (h *OrderHandler) ListForSeller(w http.ResponseWriter, r *http.Request) {
	h.listFor(w, r, h.service.ListForSeller)
}

type actorLister func(ctx context.Context, actor model.Actor, page model.PageRequest) (*model.OrderList, error)

func (h *OrderHandler) listFor(w http.ResponseWriter, r *http.Request, list actorLister) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	page, err := pageFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	orders, err := list(r.Context(), actor, page)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// ListAll handles GET /api/orders with optional orderStatus and paymentStatus filters.
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	q := r.URL.Query()
	filter := model.OrderFilter{
		OrderStatus:   model.OrderStatus(q.Get("orderStatus")),
		PaymentStatus: model.PaymentStatus(q.Get("paymentStatus")),
		Page:          page,
	}

	orders, err := h.service.ListAll(r.Context(), filter)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// UpdateStatus handles PUT /api/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.UpdateOrderStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	order, err := h.service.UpdateStatuses(r.Context(), orderID, req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
