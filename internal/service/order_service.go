package service

import (
	"context"
	"fmt"
	"time"

	"ku-isoko/internal/config"
	"ku-isoko/internal/events"
	"ku-isoko/internal/model"
	"ku-isoko/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// OrderEvent is the payload of order lifecycle events.
type OrderEvent struct {
	OrderID       uuid.UUID           `json:"orderId"`
	UserID        uuid.UUID           `json:"userId"`
	SellerIDs     []uuid.UUID         `json:"sellerIds"`
	GrandTotal    decimal.Decimal     `json:"grandTotal"`
	PaymentMethod model.PaymentMethod `json:"paymentMethod"`
	Reason        string              `json:"reason,omitempty"`
}

func newOrderEvent(order *model.Order) OrderEvent {
	return OrderEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		SellerIDs:     order.SellerIDs(),
		GrandTotal:    order.GrandTotal,
		PaymentMethod: order.PaymentMethod,
	}
}

// orderService implements OrderService.
type orderService struct {
	txr       repository.Transactor
	orders    repository.OrderRepository
	carts     repository.CartRepository
	products  repository.ProductRepository
	publisher events.Publisher
	shop      config.ShopConfig
	logger    zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	txr repository.Transactor,
	orders repository.OrderRepository,
	carts repository.CartRepository,
	products repository.ProductRepository,
	publisher events.Publisher,
	shop config.ShopConfig,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		txr:       txr,
		orders:    orders,
		carts:     carts,
		products:  products,
		publisher: publisher,
		shop:      shop,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// CreateOrder builds an order from the actor's cart using current product
// data. Stock is checked here but only taken when the payment reconciles.
func (s *orderService) CreateOrder(ctx context.Context, actor model.Actor, req model.CreateOrderRequest) (*model.Order, error) {
	if !req.PaymentMethod.Valid() {
		return nil, model.ValidationError("Invalid payment method %q", req.PaymentMethod)
	}
	if req.ShippingAddress == nil || !req.ShippingAddress.Complete() {
		return nil, model.ValidationError("Shipping address requires full name, phone, city and address line")
	}

	cart, err := s.carts.GetByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, model.ErrEmptyCart
	}

	items := make([]model.OrderItem, 0, len(cart.Items))
	total := decimal.Zero
	for _, line := range cart.Items {
		product, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to get product: %w", err)
		}
		if product == nil {
			return nil, model.ErrProductNotFound
		}
		if !product.InStock(line.Quantity) {
			s.logger.Warn().
				Str("product_id", product.ID.String()).
				Int("requested", line.Quantity).
				Int("stock", product.Stock).
				Msg("checkout rejected, insufficient stock")
			return nil, model.OutOfStockError(product.Name, product.Stock)
		}

		item := model.OrderItem{
			ProductID: product.ID,
			SellerID:  product.SellerID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  line.Quantity,
			ImageURL:  product.ImageURL,
		}
		total = total.Add(item.Subtotal())
		items = append(items, item)
	}

	fee := model.ShippingFee(total, s.shop.FreeShippingThreshold, s.shop.FlatShippingFee)
	now := time.Now().UTC()
	order := &model.Order{
		ID:              uuid.New(),
		UserID:          actor.UserID,
		Items:           items,
		TotalPrice:      total,
		ShippingFee:     fee,
		GrandTotal:      total.Add(fee),
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   model.PaymentPending,
		OrderStatus:     model.OrderPending,
		ShippingStatus:  model.ShippingNotShipped,
		ShippingAddress: *req.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = inTx(ctx, s.txr, s.logger, func(tx pgx.Tx) error {
		if err := s.orders.Create(ctx, tx, order); err != nil {
			return err
		}
		return s.carts.Clear(ctx, tx, cart.ID)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("user_id", actor.UserID.String()).
		Int("item_count", len(items)).
		Str("grand_total", order.GrandTotal.String()).
		Msg("order created")

	publish(ctx, s.publisher, s.logger, events.New(events.OrderCreated, newOrderEvent(order)))
	return order, nil
}

func (s *orderService) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	switch {
	case actor.IsAdmin(), actor.Owns(order.UserID):
		return order, nil
	case order.HasSeller(actor.UserID):
		return order.ForSeller(actor.UserID), nil
	}

	s.logger.Warn().
		Str("order_id", id.String()).
		Str("user_id", actor.UserID.String()).
		Msg("order access denied")
	return nil, model.ErrAccessDenied
}

func (s *orderService) ListMine(ctx context.Context, actor model.Actor, page model.PageRequest) (*model.OrderList, error) {
	orders, total, err := s.orders.ListByUser(ctx, actor.UserID, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return &model.OrderList{Orders: orders, Pagination: model.NewPage(page, total)}, nil
}

// ListForSeller lists orders containing the actor's products, trimmed to
// their own lines. Admins see whole orders.
func (s *orderService) ListForSeller(ctx context.Context, actor model.Actor, page model.PageRequest) (*model.OrderList, error) {
	orders, total, err := s.orders.ListBySeller(ctx, actor.UserID, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list seller orders: %w", err)
	}
	if !actor.IsAdmin() {
		for i := range orders {
			orders[i] = *orders[i].ForSeller(actor.UserID)
		}
	}
	return &model.OrderList{Orders: orders, Pagination: model.NewPage(page, total)}, nil
}

func (s *orderService) ListAll(ctx context.Context, filter model.OrderFilter) (*model.OrderList, error) {
	if filter.OrderStatus != "" && !filter.OrderStatus.Valid() {
		return nil, model.ValidationError("Invalid order status %q", filter.OrderStatus)
	}
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return nil, model.ValidationError("Invalid payment status %q", filter.PaymentStatus)
	}

	orders, total, err := s.orders.ListAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return &model.OrderList{Orders: orders, Pagination: model.NewPage(filter.Page, total)}, nil
}

func (s *orderService) UpdateStatuses(ctx context.Context, id uuid.UUID, req model.UpdateOrderStatusRequest) (*model.Order, error) {
	if req.Empty() {
		return nil, model.ValidationError("At least one status is required")
	}
	if req.OrderStatus != nil && !req.OrderStatus.Valid() {
		return nil, model.ValidationError("Invalid order status %q", *req.OrderStatus)
	}
	if req.PaymentStatus != nil && !req.PaymentStatus.Valid() {
		return nil, model.ValidationError("Invalid payment status %q", *req.PaymentStatus)
	}
	if req.ShippingStatus != nil && !req.ShippingStatus.Valid() {
		return nil, model.ValidationError("Invalid shipping status %q", *req.ShippingStatus)
	}

	order, err := s.orders.UpdateStatuses(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	s.logger.Info().
		Str("order_id", id.String()).
		Str("order_status", string(order.OrderStatus)).
		Str("payment_status", string(order.PaymentStatus)).
		Str("shipping_status", string(order.ShippingStatus)).
		Msg("order statuses updated by admin")
	return order, nil
}
