package repository

import (
	"context"

	"ku-isoko/internal/model"

	"github.com/google/uuid"
)

// Read methods return (nil, nil) when the row does not exist.

// ProductRepository defines data access for the catalogue.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// List returns one page of matching products and the total match count.
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int, error)

	// ListRelated returns products sharing p's category or seller, best rated first.
	ListRelated(ctx context.Context, p *model.Product, limit int) ([]model.Product, error)

	Update(ctx context.Context, id uuid.UUID, changes model.UpdateProductRequest) (*model.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// DecrementStock atomically takes quantity units from stock. It reports
	// false, leaving stock untouched, when fewer than quantity remain.
	DecrementStock(ctx context.Context, q Querier, id uuid.UUID, quantity int) (bool, error)

	// UpdateRating recomputes average rating and review count from reviews.
	UpdateRating(ctx context.Context, q Querier, productID uuid.UUID) error
}

// CartRepository defines data access for shopping carts.
type CartRepository interface {
	// GetByUserID loads the user's cart with its items and their current products.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Cart, error)

	// GetOrCreate returns the user's cart, creating an empty one on first use.
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*model.Cart, error)

	// UpsertItem adds a line, or adds to the quantity of an existing line for
	// the same product and refreshes its price snapshot.
	UpsertItem(ctx context.Context, cartID uuid.UUID, item model.CartItem) error

	// UpdateItemQuantity sets a line's quantity. Zero removes the line.
	// Reports false when the line does not exist.
	UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) (bool, error)

	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error)

	// Clear empties the cart and keeps the cart record.
	Clear(ctx context.Context, q Querier, cartID uuid.UUID) error
}

// OrderRepository defines data access for orders.
type OrderRepository interface {
	Create(ctx context.Context, q Querier, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByIDForUpdate loads the order and locks its row until q's transaction ends.
	GetByIDForUpdate(ctx context.Context, q Querier, id uuid.UUID) (*model.Order, error)

	ListByUser(ctx context.Context, userID uuid.UUID, page model.PageRequest) ([]model.Order, int, error)

	// ListBySeller returns orders containing at least one item sold by sellerID.
	ListBySeller(ctx context.Context, sellerID uuid.UUID, page model.PageRequest) ([]model.Order, int, error)

	ListAll(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error)

	// UpdateStatuses applies the non-nil statuses and returns the updated order.
	UpdateStatuses(ctx context.Context, id uuid.UUID, req model.UpdateOrderStatusRequest) (*model.Order, error)

	// SetPaymentReference switches the order to method and stores the provider
	// reference, overwriting any previous one.
	SetPaymentReference(ctx context.Context, id uuid.UUID, method model.PaymentMethod, ref string) error

	// MarkPaid sets payment and order status to paid. It reports false when
	// the order was no longer pending payment.
	MarkPaid(ctx context.Context, q Querier, id uuid.UUID) (bool, error)

	// HasPaidPurchase reports whether the user has a paid order containing the product.
	HasPaidPurchase(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

// UserRepository defines data access for accounts.
type UserRepository interface {
	// Create inserts a user. A duplicate email yields model.ErrEmailTaken.
	Create(ctx context.Context, q Querier, u *model.User) error

	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	List(ctx context.Context, filter model.UserFilter) ([]model.User, int, error)

	UpdateRole(ctx context.Context, q Querier, id uuid.UUID, role model.Role) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SetVerified(ctx context.Context, id uuid.UUID) error
	SetPassword(ctx context.Context, id uuid.UUID, hash string) error

	// LinkGoogle attaches a Google identity, marks the user verified and sets the avatar.
	LinkGoogle(ctx context.Context, id uuid.UUID, googleID, avatar string) error
	UpdateAvatar(ctx context.Context, id uuid.UUID, avatar string) error
}

// SellerRepository defines data access for seller profiles.
type SellerRepository interface {
	// Create inserts a profile. A second profile for the same user yields
	// model.ErrSellerRequestOpen.
	Create(ctx context.Context, q Querier, p *model.SellerProfile) error

	GetByID(ctx context.Context, id uuid.UUID) (*model.SellerProfile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.SellerProfile, error)
	List(ctx context.Context, filter model.SellerFilter) ([]model.SellerProfile, int, error)

	UpdateStatus(ctx context.Context, q Querier, id uuid.UUID, status model.SellerStatus) error
	UpdateProfile(ctx context.Context, id uuid.UUID, update model.SellerProfileUpdate) (*model.SellerProfile, error)
}

// ReviewRepository defines data access for product reviews.
type ReviewRepository interface {
	// Create inserts a review. A second review by the same user yields model.ErrReviewExists.
	Create(ctx context.Context, q Querier, r *model.Review) error

	GetByID(ctx context.Context, id uuid.UUID) (*model.Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, page model.PageRequest) ([]model.Review, int, error)
	Update(ctx context.Context, q Querier, r *model.Review) error
	Delete(ctx context.Context, q Querier, id uuid.UUID) error
}
