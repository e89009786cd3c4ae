package service

import (
	"context"

	"ku-isoko/internal/model"

	"github.com/google/uuid"
)

// CartService manages a customer's shopping cart.
type CartService interface {
	// Get returns the user's cart, creating an empty one on first use.
	Get(ctx context.Context, userID uuid.UUID) (*model.CartView, error)

	// AddItem adds quantity units of a product, merging with an existing line.
	AddItem(ctx context.Context, userID uuid.UUID, req model.AddToCartRequest) (*model.CartView, error)

	// UpdateItem sets a line's quantity. Zero removes the line.
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*model.CartView, error)

	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*model.CartView, error)
	Clear(ctx context.Context, userID uuid.UUID) (*model.CartView, error)
}

// OrderService creates and reads orders.
type OrderService interface {
	// CreateOrder turns the actor's cart into a pending order and empties the cart.
	CreateOrder(ctx context.Context, actor model.Actor, req model.CreateOrderRequest) (*model.Order, error)

	// Get returns the order for its owner or an admin. A seller sees only
	// their own lines.
	Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Order, error)

	ListMine(ctx context.Context, actor model.Actor, page model.PageRequest) (*model.OrderList, error)
	ListForSeller(ctx context.Context, actor model.Actor, page model.PageRequest) (*model.OrderList, error)
	ListAll(ctx context.Context, filter model.OrderFilter) (*model.OrderList, error)

	// UpdateStatuses is the admin override of the three order statuses.
	UpdateStatuses(ctx context.Context, id uuid.UUID, req model.UpdateOrderStatusRequest) (*model.Order, error)
}

// PaymentService starts, confirms and reconciles order payments.
type PaymentService interface {
	InitiateMoMo(ctx context.Context, actor model.Actor, req model.MoMoInitiateRequest) (*model.PaymentInitiation, error)
	InitiateStripe(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.PaymentInitiation, error)
	VerifyMoMo(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.PaymentVerification, error)
	VerifyStripe(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.PaymentVerification, error)

	// HandleStripeWebhook verifies and processes a Stripe event. Only a bad
	// signature is reported; processing failures are logged.
	HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error

	// Reconcile takes stock for every line and marks the order paid, or
	// changes nothing. Calling it on a paid order is a no-op.
	Reconcile(ctx context.Context, orderID uuid.UUID) (*model.Order, error)

	Status(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.PaymentStatusView, error)
}

// ProductService manages the catalogue.
type ProductService interface {
	Create(ctx context.Context, actor model.Actor, req model.CreateProductRequest) (*model.Product, error)
	List(ctx context.Context, filter model.ProductFilter) (*model.ProductList, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Product, error)
	Related(ctx context.Context, id uuid.UUID) ([]model.Product, error)
	ListMine(ctx context.Context, actor model.Actor, page model.PageRequest) (*model.ProductList, error)
	Update(ctx context.Context, actor model.Actor, id uuid.UUID, req model.UpdateProductRequest) (*model.Product, error)
	Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error
}

// ReviewService manages product reviews and keeps product ratings current.
type ReviewService interface {
	Create(ctx context.Context, actor model.Actor, productID uuid.UUID, req model.ReviewRequest) (*model.Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, page model.PageRequest) (*model.ProductReviews, error)
	Update(ctx context.Context, actor model.Actor, id uuid.UUID, req model.ReviewRequest) (*model.Review, error)
	Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error
}

// SellerService manages seller profiles and their approval.
type SellerService interface {
	List(ctx context.Context, filter model.SellerFilter) (*model.SellerList, error)
	Get(ctx context.Context, id uuid.UUID) (*model.SellerProfile, error)

	// GetMine returns the actor's profile, or nil when they have none.
	GetMine(ctx context.Context, actor model.Actor) (*model.SellerProfile, error)

	UpdateMine(ctx context.Context, actor model.Actor, update model.SellerProfileUpdate) (*model.SellerProfile, error)
	RequestUpgrade(ctx context.Context, actor model.Actor, req model.SellerUpgradeRequest) (*model.SellerProfile, error)

	// UpdateStatus changes the profile status and mirrors it onto the owner's role.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.SellerStatus) (*model.SellerProfile, error)
}

// UserService is the admin view of accounts.
type UserService interface {
	List(ctx context.Context, filter model.UserFilter) (*model.UserList, error)
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)

	// UpdateRole changes the role and brings the seller profile in line with it.
	UpdateRole(ctx context.Context, actor model.Actor, id uuid.UUID, role model.Role) (*model.User, error)

	ToggleActive(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.User, error)
}

// AuthService handles signup, two-step login and account recovery.
type AuthService interface {
	Signup(ctx context.Context, req model.SignupRequest) (*model.LoginChallenge, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.LoginChallenge, error)
	VerifyOTP(ctx context.Context, req model.VerifyOTPRequest) (*model.AuthResult, error)
	ResendOTP(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req model.ResetPasswordRequest) error
	Me(ctx context.Context, actor model.Actor) (*model.User, error)

	// GoogleLogin signs in with a Google identity. requestedRole applies only
	// when a new account is created.
	GoogleLogin(ctx context.Context, profile model.GoogleProfile, requestedRole model.Role) (*model.GoogleLoginResult, error)
}
