package service

import (
	"context"
	"errors"
	"testing"

	"ku-isoko/internal/config"
	"ku-isoko/internal/events"
	"ku-isoko/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testShop = config.ShopConfig{
	FreeShippingThreshold: decimal.NewFromInt(50000),
	FlatShippingFee:       decimal.NewFromInt(2000),
	Currency:              "rwf",
}

var testAddress = &model.ShippingAddress{
	FullName:    "Aline Uwase",
	Phone:       "0788000000",
	City:        "Kigali",
	AddressLine: "KN 5 Rd",
}

type orderFixture struct {
	txr       *MockTransactor
	tx        *MockTx
	orders    *MockOrderRepository
	carts     *MockCartRepository
	products  *MockProductRepository
	publisher *MockPublisher
	svc       OrderService
}

func newOrderFixture(txr *MockTransactor, tx *MockTx) *orderFixture {
	f := &orderFixture{
		txr:       txr,
		tx:        tx,
		orders:    new(MockOrderRepository),
		carts:     new(MockCartRepository),
		products:  new(MockProductRepository),
		publisher: new(MockPublisher),
	}
	f.svc = NewOrderService(f.txr, f.orders, f.carts, f.products, f.publisher, testShop, zerolog.Nop())
	return f
}

func newProduct(name string, price int64, stock int) *model.Product {
	return &model.Product{
		ID:       uuid.New(),
		Name:     name,
		Price:    decimal.NewFromInt(price),
		Stock:    stock,
		SellerID: uuid.New(),
		ImageURL: "/uploads/" + name + ".jpg",
	}
}

func cartWith(userID uuid.UUID, lines ...model.CartItem) *model.Cart {
	return &model.Cart{ID: uuid.New(), UserID: userID, Items: lines}
}

func TestOrderService_CreateOrder_FromCart(t *testing.T) {
	ctx := context.Background()
	actor := model.Actor{UserID: uuid.New(), Role: model.RoleCustomer}

	f := newOrderFixture(committingTx())
	p1 := newProduct("Kitenge", 1000, 5)
	cart := cartWith(actor.UserID, model.CartItem{ID: uuid.New(), ProductID: p1.ID, Quantity: 2, Price: p1.Price})

	f.carts.On("GetByUserID", ctx, actor.UserID).Return(cart, nil)
	f.products.On("GetByID", ctx, p1.ID).Return(p1, nil)
	f.orders.On("Create", ctx, f.tx, mock.AnythingOfType("*model.Order")).Return(nil)
	f.carts.On("Clear", ctx, f.tx, cart.ID).Return(nil)
	f.publisher.On("Publish", ctx, eventOfType(events.OrderCreated)).Return(nil)

	order, err := f.svc.CreateOrder(ctx, actor, model.CreateOrderRequest{
		ShippingAddress: testAddress,
		PaymentMethod:   model.PaymentMoMo,
	})
	require.NoError(t, err)

	assert.True(t, order.TotalPrice.Equal(decimal.NewFromInt(2000)))
	assert.True(t, order.ShippingFee.Equal(decimal.NewFromInt(2000)))
	assert.True(t, order.GrandTotal.Equal(decimal.NewFromInt(4000)))
	assert.Equal(t, model.PaymentPending, order.PaymentStatus)
	assert.Equal(t, model.OrderPending, order.OrderStatus)
	assert.Equal(t, model.ShippingNotShipped, order.ShippingStatus)

	want := []model.OrderItem{{
		ProductID: p1.ID,
		SellerID:  p1.SellerID,
		Name:      "Kitenge",
		Price:     decimal.NewFromInt(1000),
		Quantity:  2,
		ImageURL:  p1.ImageURL,
	}}
	opt := cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })
	if diff := cmp.Diff(want, order.Items, opt); diff != "" {
		t.Errorf("order items mismatch (-want +got):\n%s", diff)
	}

	assert.True(t, f.tx.committed)
	f.carts.AssertExpectations(t)
	f.orders.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
	f.products.AssertNotCalled(t, "DecrementStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrder_Totals(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		lines     [][2]int64 // price, quantity
		wantTotal int64
		wantFee   int64
	}{
		{name: "below threshold pays flat fee", lines: [][2]int64{{1000, 2}}, wantTotal: 2000, wantFee: 2000},
		{name: "exactly at threshold ships free", lines: [][2]int64{{25000, 2}}, wantTotal: 50000, wantFee: 0},
		{name: "several lines above threshold", lines: [][2]int64{{30000, 1}, {15000, 2}, {999, 3}}, wantTotal: 62997, wantFee: 0},
		{name: "just under threshold", lines: [][2]int64{{49999, 1}}, wantTotal: 49999, wantFee: 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := model.Actor{UserID: uuid.New(), Role: model.RoleCustomer}
			f := newOrderFixture(committingTx())

			cart := cartWith(actor.UserID)
			for _, l := range tt.lines {
				p := newProduct("item", l[0], 100)
				cart.Items = append(cart.Items, model.CartItem{ID: uuid.New(), ProductID: p.ID, Quantity: int(l[1]), Price: p.Price})
				f.products.On("GetByID", ctx, p.ID).Return(p, nil)
			}

			f.carts.On("GetByUserID", ctx, actor.UserID).Return(cart, nil)
			f.orders.On("Create", ctx, f.tx, mock.Anything).Return(nil)
			f.carts.On("Clear", ctx, f.tx, cart.ID).Return(nil)
			f.publisher.On("Publish", ctx, mock.Anything).Return(nil)

			order, err := f.svc.CreateOrder(ctx, actor, model.CreateOrderRequest{ShippingAddress: testAddress, PaymentMethod: model.PaymentStripe})
			require.NoError(t, err)

			sum := decimal.Zero
			for _, item := range order.Items {
				sum = sum.Add(item.Subtotal())
			}
			assert.True(t, order.TotalPrice.Equal(sum), "totalPrice is the sum of line subtotals")
			assert.True(t, order.GrandTotal.Equal(order.TotalPrice.Add(order.ShippingFee)), "grandTotal is total plus fee")
			assert.True(t, order.TotalPrice.Equal(decimal.NewFromInt(tt.wantTotal)), "total %s", order.TotalPrice)
			assert.True(t, order.ShippingFee.Equal(decimal.NewFromInt(tt.wantFee)), "fee %s", order.ShippingFee)
		})
	}
}

func TestOrderService_CreateOrder_UsesCurrentPrice(t *testing.T) {
	ctx := context.Background()
	actor := model.Actor{UserID: uuid.New(), Role: model.RoleCustomer}
	f := newOrderFixture(committingTx())

	p := newProduct("Basket", 3000, 4)
	// price changed after the item went into the cart
	cart := cartWith(actor.UserID, model.CartItem{ID: uuid.New(), ProductID: p.ID, Quantity: 1, Price: decimal.NewFromInt(2500)})

	f.carts.On("GetByUserID", ctx, actor.UserID).Return(cart, nil)
	f.products.On("GetByID", ctx, p.ID).Return(p, nil)
	f.orders.On("Create", ctx, f.tx, mock.Anything).Return(nil)
	f.carts.On("Clear", ctx, f.tx, cart.ID).Return(nil)
	f.publisher.On("Publish", ctx, mock.Anything).Return(nil)

	order, err := f.svc.CreateOrder(ctx, actor, model.CreateOrderRequest{ShippingAddress: testAddress, PaymentMethod: model.PaymentMoMo})
	require.NoError(t, err)
	assert.True(t, order.Items[0].Price.Equal(decimal.NewFromInt(3000)))
}

func TestOrderService_CreateOrder_Rejected(t *testing.T) {
	ctx := context.Background()
	actor := model.Actor{UserID: uuid.New(), Role: model.RoleCustomer}
	p := newProduct("Coffee", 8000, 1)

	tests := []struct {
		name     string
		req      model.CreateOrderRequest
		setup    func(f *orderFixture)
		wantErr  error
		wantText string
	}{
		{
			name:    "unknown payment method",
			req:     model.CreateOrderRequest{ShippingAddress: testAddress, PaymentMethod: "cash"},
			wantErr: model.ErrValidation,
		},
		{
			name:    "missing address",
			req:     model.CreateOrderRequest{PaymentMethod: model.PaymentMoMo},
			wantErr: model.ErrValidation,
		},
		{
			name: "incomplete address",
			req: model.CreateOrderRequest{
				ShippingAddress: &model.ShippingAddress{FullName: "A", Phone: "1", City: " "},
				PaymentMethod:   model.PaymentMoMo,
			},
			wantErr: model.ErrValidation,
		},
		{
			name: "no cart",
			req:  model.CreateOrderRequest{ShippingAddress: testAddress, PaymentMethod: model.PaymentMoMo},
			setup: func(f *orderFixture) {
				f.carts.On("GetByUserID", mock.Anything, actor.UserID).Return(nil, nil)
			},
			wantErr: model.ErrEmptyCart,
		},
		{
			name: "empty cart",
			req:  model.CreateOrderRequest{ShippingAddress: testAddress, PaymentMethod: model.PaymentMoMo},
			setup: func(f *orderFixture) {
				f.carts.On("GetByUserID", mock.Anything, actor.UserID).Return(cartWith(actor.UserID), nil)
			},
			wantErr: model.ErrEmptyCart,
		},
		{
			name: "product removed",
			req:  model.CreateOrderRequest{ShippingAddress: testAddress, PaymentMethod: model.PaymentMoMo},
			setup: func(f *orderFixture) {
				f.carts.On("GetByUserID", mock.Anything, actor.UserID).
					Return(cartWith(actor.UserID, model.CartItem{ProductID: p.ID, Quantity: 1}), nil)
				f.products.On("GetByID", mock.Anything, p.ID).Return(nil, nil)
			},
			wantErr: model.ErrProductNotFound,
		},
		{
			name: "out of stock names the product",
			req:  model.CreateOrderRequest{ShippingAddress: testAddress, PaymentMethod: model.PaymentMoMo},
			setup: func(f *orderFixture) {
				f.carts.On("GetByUserID", mock.Anything, actor.UserID).
					Return(cartWith(actor.UserID, model.CartItem{ProductID: p.ID, Quantity: 3}), nil)
				f.products.On("GetByID", mock.Anything, p.ID).Return(p, nil)
			},
			wantErr:  model.ErrOutOfStock,
			wantText: "Coffee - Only 1 items available",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(new(MockTransactor), new(MockTx))
			if tt.setup != nil {
				tt.setup(f)
			}

			order, err := f.svc.CreateOrder(ctx, actor, tt.req)
			require.Error(t, err)
			assert.Nil(t, order)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantText != "" {
				assert.Equal(t, tt.wantText, err.Error())
			}
			f.txr.AssertNotCalled(t, "BeginTx", mock.Anything)
			f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
		})
	}
}

func TestOrderService_CreateOrder_ClearFailsRollsBack(t *testing.T) {
	ctx := context.Background()
	actor := model.Actor{UserID: uuid.New(), Role: model.RoleCustomer}
	f := newOrderFixture(rollingBackTx())

	p := newProduct("Mat", 5000, 3)
	cart := cartWith(actor.UserID, model.CartItem{ProductID: p.ID, Quantity: 1})

	f.carts.On("GetByUserID", ctx, actor.UserID).Return(cart, nil)
	f.products.On("GetByID", ctx, p.ID).Return(p, nil)
	f.orders.On("Create", ctx, f.tx, mock.Anything).Return(nil)
	f.carts.On("Clear", ctx, f.tx, cart.ID).Return(errors.New("connection reset"))

	order, err := f.svc.CreateOrder(ctx, actor, model.CreateOrderRequest{ShippingAddress: testAddress, PaymentMethod: model.PaymentMoMo})
	require.Error(t, err)
	assert.Nil(t, order)
	assert.True(t, f.tx.rolledBack)
	assert.False(t, f.tx.committed)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrder_PublishFailureIgnored(t *testing.T) {
	ctx := context.Background()
	actor := model.Actor{UserID: uuid.New(), Role: model.RoleCustomer}
	f := newOrderFixture(committingTx())

	p := newProduct("Mat", 5000, 3)
	cart := cartWith(actor.UserID, model.CartItem{ProductID: p.ID, Quantity: 1})

	f.carts.On("GetByUserID", ctx, actor.UserID).Return(cart, nil)
	f.products.On("GetByID", ctx, p.ID).Return(p, nil)
	f.orders.On("Create", ctx, f.tx, mock.Anything).Return(nil)
	f.carts.On("Clear", ctx, f.tx, cart.ID).Return(nil)
	f.publisher.On("Publish", ctx, mock.Anything).Return(errors.New("broker down"))

	order, err := f.svc.CreateOrder(ctx, actor, model.CreateOrderRequest{ShippingAddress: testAddress, PaymentMethod: model.PaymentMoMo})
	require.NoError(t, err)
	assert.NotNil(t, order)
}

func TestOrderService_Get(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	sellerA := uuid.New()
	sellerB := uuid.New()

	order := &model.Order{
		ID:     uuid.New(),
		UserID: owner,
		Items: []model.OrderItem{
			{ProductID: uuid.New(), SellerID: sellerA, Name: "a", Quantity: 1},
			{ProductID: uuid.New(), SellerID: sellerB, Name: "b", Quantity: 2},
		},
	}

	tests := []struct {
		name      string
		actor     model.Actor
		wantErr   error
		wantItems int
	}{
		{name: "owner sees all lines", actor: model.Actor{UserID: owner, Role: model.RoleCustomer}, wantItems: 2},
		{name: "admin sees all lines", actor: model.Actor{UserID: uuid.New(), Role: model.RoleAdmin}, wantItems: 2},
		{name: "seller sees own lines", actor: model.Actor{UserID: sellerA, Role: model.RoleSeller}, wantItems: 1},
		{name: "unrelated seller denied", actor: model.Actor{UserID: uuid.New(), Role: model.RoleSeller}, wantErr: model.ErrAccessDenied},
		{name: "other customer denied", actor: model.Actor{UserID: uuid.New(), Role: model.RoleCustomer}, wantErr: model.ErrAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(new(MockTransactor), new(MockTx))
			f.orders.On("GetByID", ctx, order.ID).Return(order, nil)

			got, err := f.svc.Get(ctx, tt.actor, order.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got.Items, tt.wantItems)
		})
	}

	t.Run("missing order", func(t *testing.T) {
		f := newOrderFixture(new(MockTransactor), new(MockTx))
		id := uuid.New()
		f.orders.On("GetByID", ctx, id).Return(nil, nil)

		_, err := f.svc.Get(ctx, model.Actor{UserID: owner}, id)
		assert.ErrorIs(t, err, model.ErrOrderNotFound)
	})
}

func TestOrderService_ListForSeller_TrimsLines(t *testing.T) {
	ctx := context.Background()
	seller := uuid.New()
	page := model.PageRequest{Page: 1, Limit: 10}

	orders := []model.Order{{
		ID: uuid.New(),
		Items: []model.OrderItem{
			{SellerID: seller, Name: "mine"},
			{SellerID: uuid.New(), Name: "theirs"},
		},
	}}

	f := newOrderFixture(new(MockTransactor), new(MockTx))
	f.orders.On("ListBySeller", ctx, seller, page).Return(orders, 1, nil)

	list, err := f.svc.ListForSeller(ctx, model.Actor{UserID: seller, Role: model.RoleSeller}, page)
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	require.Len(t, list.Orders[0].Items, 1)
	assert.Equal(t, "mine", list.Orders[0].Items[0].Name)
	assert.Equal(t, model.Page{Page: 1, Limit: 10, Total: 1, Pages: 1}, list.Pagination)
}

func TestOrderService_ListAll_ValidatesFilter(t *testing.T) {
	f := newOrderFixture(new(MockTransactor), new(MockTx))

	_, err := f.svc.ListAll(context.Background(), model.OrderFilter{OrderStatus: "lost"})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.svc.ListAll(context.Background(), model.OrderFilter{PaymentStatus: "refunded"})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestOrderService_UpdateStatuses(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	shipped := model.OrderShipped
	bogus := model.ShippingStatus("teleported")

	tests := []struct {
		name    string
		req     model.UpdateOrderStatusRequest
		setup   func(f *orderFixture)
		wantErr error
	}{
		{name: "nothing to update", req: model.UpdateOrderStatusRequest{}, wantErr: model.ErrValidation},
		{name: "invalid shipping status", req: model.UpdateOrderStatusRequest{ShippingStatus: &bogus}, wantErr: model.ErrValidation},
		{
			name: "missing order",
			req:  model.UpdateOrderStatusRequest{OrderStatus: &shipped},
			setup: func(f *orderFixture) {
				f.orders.On("UpdateStatuses", ctx, id, mock.Anything).Return(nil, nil)
			},
			wantErr: model.ErrOrderNotFound,
		},
		{
			name: "applies",
			req:  model.UpdateOrderStatusRequest{OrderStatus: &shipped},
			setup: func(f *orderFixture) {
				f.orders.On("UpdateStatuses", ctx, id, mock.Anything).Return(&model.Order{ID: id, OrderStatus: shipped}, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(new(MockTransactor), new(MockTx))
			if tt.setup != nil {
				tt.setup(f)
			}
			order, err := f.svc.UpdateStatuses(ctx, id, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.OrderShipped, order.OrderStatus)
		})
	}
}
