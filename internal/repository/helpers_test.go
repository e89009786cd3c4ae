package repository

import (
	"context"
	"testing"
	"time"

	"ku-isoko/internal/database/dbtest"
	"ku-isoko/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// repos bundles every repository over one migrated test database.
type repos struct {
	pool     *pgxpool.Pool
	tx       Transactor
	products ProductRepository
	carts    CartRepository
	orders   OrderRepository
	users    UserRepository
	sellers  SellerRepository
	reviews  ReviewRepository
}

func setupRepos(t *testing.T) *repos {
	t.Helper()

	pool := dbtest.NewPool(t)
	logger := zerolog.Nop()

	return &repos{
		pool:     pool,
		tx:       NewTransactor(pool, logger),
		products: NewProductRepository(pool, logger),
		carts:    NewCartRepository(pool, logger),
		orders:   NewOrderRepository(pool, logger),
		users:    NewUserRepository(pool, logger),
		sellers:  NewSellerRepository(pool, logger),
		reviews:  NewReviewRepository(pool, logger),
	}
}

func seedUser(t *testing.T, r *repos, name, email string, role model.Role) *model.User {
	t.Helper()

	now := time.Now().UTC()
	hash := "$2a$10$hash"
	u := &model.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: &hash,
		Phone:        "0788000000",
		Role:         role,
		IsActive:     true,
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, r.users.Create(context.Background(), r.pool, u))
	return u
}

func seedProduct(t *testing.T, r *repos, seller *model.User, name, category string, price int64, stock int) *model.Product {
	t.Helper()

	now := time.Now().UTC()
	p := &model.Product{
		ID:          uuid.New(),
		Name:        name,
		Description: "A product called " + name,
		Price:       decimal.NewFromInt(price),
		Stock:       stock,
		Category:    category,
		ImageURL:    "https://img.example.com/" + name + ".png",
		SellerID:    seller.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, r.products.Create(context.Background(), p))
	return p
}

func newOrder(buyer *model.User, paid bool, products ...*model.Product) *model.Order {
	now := time.Now().UTC()
	o := &model.Order{
		ID:             uuid.New(),
		UserID:         buyer.ID,
		PaymentMethod:  model.PaymentMoMo,
		PaymentStatus:  model.PaymentPending,
		OrderStatus:    model.OrderPending,
		ShippingStatus: model.ShippingNotShipped,
		ShippingAddress: model.ShippingAddress{
			FullName: buyer.Name, Phone: "0788000000", City: "Kigali", AddressLine: "KG 11 Ave",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if paid {
		o.PaymentStatus = model.PaymentPaid
		o.OrderStatus = model.OrderPaid
	}

	total := decimal.Zero
	for _, p := range products {
		item := model.OrderItem{
			ProductID: p.ID, SellerID: p.SellerID, Name: p.Name, Price: p.Price, Quantity: 1, ImageURL: p.ImageURL,
		}
		o.Items = append(o.Items, item)
		total = total.Add(item.Subtotal())
	}
	o.TotalPrice = total
	o.ShippingFee = decimal.NewFromInt(2000)
	o.GrandTotal = total.Add(o.ShippingFee)
	return o
}

func seedOrder(t *testing.T, r *repos, buyer *model.User, paid bool, products ...*model.Product) *model.Order {
	t.Helper()

	o := newOrder(buyer, paid, products...)
	require.NoError(t, r.orders.Create(context.Background(), r.pool, o))
	return o
}
