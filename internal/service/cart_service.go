package service

import (
	"context"
	"fmt"

	"ku-isoko/internal/model"
	"ku-isoko/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// cartService implements CartService.
type cartService struct {
	txr      repository.Transactor
	carts    repository.CartRepository
	products repository.ProductRepository
	logger   zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	txr repository.Transactor,
	carts repository.CartRepository,
	products repository.ProductRepository,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		txr:      txr,
		carts:    carts,
		products: products,
		logger:   logger.With().Str("service", "cart").Logger(),
	}
}

func (s *cartService) Get(ctx context.Context, userID uuid.UUID) (*model.CartView, error) {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &model.CartView{Cart: cart, Total: cart.Total()}, nil
}

func (s *cartService) AddItem(ctx context.Context, userID uuid.UUID, req model.AddToCartRequest) (*model.CartView, error) {
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, model.ValidationError("Quantity must be at least 1")
	}

	product, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}

	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	// the line is merged, so the stock check covers what is already in the cart
	requested := quantity
	for _, item := range cart.Items {
		if item.ProductID == product.ID {
			requested += item.Quantity
		}
	}
	if !product.InStock(requested) {
		s.logger.Debug().
			Str("product_id", product.ID.String()).
			Int("requested", requested).
			Int("stock", product.Stock).
			Msg("add to cart rejected")
		return nil, model.OutOfStockError(product.Name, product.Stock)
	}

	err = s.carts.UpsertItem(ctx, cart.ID, model.CartItem{
		ProductID: product.ID,
		SellerID:  product.SellerID,
		Quantity:  quantity,
		Price:     product.Price,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add item: %w", err)
	}

	return s.reload(ctx, userID)
}

func (s *cartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*model.CartView, error) {
	if quantity < 0 {
		return nil, model.ValidationError("Quantity cannot be negative")
	}

	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart == nil {
		return nil, model.ErrCartNotFound
	}

	item, ok := cart.Item(itemID)
	if !ok {
		return nil, model.ErrCartItemNotFound
	}

	if quantity > item.Quantity {
		product, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to get product: %w", err)
		}
		if product == nil || !product.InStock(quantity) {
			return nil, model.ErrOutOfStock
		}
	}

	found, err := s.carts.UpdateItemQuantity(ctx, cart.ID, itemID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	if !found {
		return nil, model.ErrCartItemNotFound
	}

	return s.reload(ctx, userID)
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*model.CartView, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart == nil {
		return nil, model.ErrCartNotFound
	}

	if _, err := s.carts.RemoveItem(ctx, cart.ID, itemID); err != nil {
		return nil, fmt.Errorf("failed to remove item: %w", err)
	}

	return s.reload(ctx, userID)
}

func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) (*model.CartView, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart == nil {
		return nil, model.ErrCartNotFound
	}

	err = inTx(ctx, s.txr, s.logger, func(tx pgx.Tx) error {
		return s.carts.Clear(ctx, tx, cart.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	cart.Items = []model.CartItem{}
	return &model.CartView{Cart: cart, Total: cart.Total()}, nil
}

func (s *cartService) reload(ctx context.Context, userID uuid.UUID) (*model.CartView, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload cart: %w", err)
	}
	if cart == nil {
		return nil, model.ErrCartNotFound
	}
	return &model.CartView{Cart: cart, Total: cart.Total()}, nil
}
