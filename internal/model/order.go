package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentMoMo   PaymentMethod = "momo"
	PaymentStripe PaymentMethod = "stripe"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMoMo || m == PaymentStripe
}

// PaymentStatus tracks settlement with the payment provider.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return true
	}
	return false
}

// OrderStatus is the fulfilment lifecycle of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// ShippingStatus is the delivery state of an order.
type ShippingStatus string

const (
	ShippingNotShipped ShippingStatus = "not_shipped"
	ShippingInTransit  ShippingStatus = "in_transit"
	ShippingDelivered  ShippingStatus = "delivered"
)

func (s ShippingStatus) Valid() bool {
	switch s {
	case ShippingNotShipped, ShippingInTransit, ShippingDelivered:
		return true
	}
	return false
}

// OrderItem is an immutable snapshot of a product line at checkout.
type OrderItem struct {
	ProductID uuid.UUID       `json:"productId"`
	SellerID  uuid.UUID       `json:"sellerId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"imageUrl"`
}

// Subtotal is price times quantity for the line.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ShippingAddress is where an order is delivered.
type ShippingAddress struct {
	FullName    string `json:"fullName" validate:"required,max=100"`
	Phone       string `json:"phone" validate:"required,max=20"`
	City        string `json:"city" validate:"required,max=100"`
	AddressLine string `json:"addressLine" validate:"required,max=300"`
}

// Complete reports whether every address field is filled in.
func (a ShippingAddress) Complete() bool {
	for _, f := range []string{a.FullName, a.Phone, a.City, a.AddressLine} {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	return true
}

// Order is a placed checkout. Items and totals never change after creation.
type Order struct {
	ID                uuid.UUID       `json:"id"`
	UserID            uuid.UUID       `json:"userId"`
	Items             []OrderItem     `json:"items"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	ShippingFee       decimal.Decimal `json:"shippingFee"`
	GrandTotal        decimal.Decimal `json:"grandTotal"`
	PaymentMethod     PaymentMethod   `json:"paymentMethod"`
	PaymentStatus     PaymentStatus   `json:"paymentStatus"`
	OrderStatus       OrderStatus     `json:"orderStatus"`
	ShippingStatus    ShippingStatus  `json:"shippingStatus"`
	ShippingAddress   ShippingAddress `json:"shippingAddress"`
	MoMoTransactionID *string         `json:"momoTransactionId,omitempty"`
	StripePaymentID   *string         `json:"stripePaymentId,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// IsPaid reports whether the order has been reconciled.
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentPaid
}

// SellerIDs returns the distinct sellers of the order's items.
func (o *Order) SellerIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(o.Items))
	ids := make([]uuid.UUID, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.SellerID]; ok {
			continue
		}
		seen[item.SellerID] = struct{}{}
		ids = append(ids, item.SellerID)
	}
	return ids
}

// HasSeller reports whether any item was sold by sellerID.
func (o *Order) HasSeller(sellerID uuid.UUID) bool {
	for _, item := range o.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}

// ItemsBySeller returns the items sold by sellerID.
func (o *Order) ItemsBySeller(sellerID uuid.UUID) []OrderItem {
	var items []OrderItem
	for _, item := range o.Items {
		if item.SellerID == sellerID {
			items = append(items, item)
		}
	}
	return items
}

// ForSeller returns a copy of the order restricted to sellerID's items.
// Totals are left as placed.
func (o *Order) ForSeller(sellerID uuid.UUID) *Order {
	c := *o
	c.Items = o.ItemsBySeller(sellerID)
	return &c
}

// PaymentReference returns the stored provider reference for method, if any.
func (o *Order) PaymentReference(method PaymentMethod) (string, bool) {
	var ref *string
	switch method {
	case PaymentMoMo:
		ref = o.MoMoTransactionID
	case PaymentStripe:
		ref = o.StripePaymentID
	}
	if ref == nil || *ref == "" {
		return "", false
	}
	return *ref, true
}

// CreateOrderRequest is the payload for POST /orders.
type CreateOrderRequest struct {
	ShippingAddress *ShippingAddress `json:"shippingAddress" validate:"required"`
	PaymentMethod   PaymentMethod    `json:"paymentMethod" validate:"required"`
}

// UpdateOrderStatusRequest is the admin override payload. Nil fields are left unchanged.
type UpdateOrderStatusRequest struct {
	OrderStatus    *OrderStatus    `json:"orderStatus"`
	PaymentStatus  *PaymentStatus  `json:"paymentStatus"`
	ShippingStatus *ShippingStatus `json:"shippingStatus"`
}

// Empty reports whether no status was supplied.
func (r UpdateOrderStatusRequest) Empty() bool {
	return r.OrderStatus == nil && r.PaymentStatus == nil && r.ShippingStatus == nil
}

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	OrderStatus   OrderStatus
	PaymentStatus PaymentStatus
	Page          PageRequest
}

// PaymentStatusView is the read-only payment summary of an order.
type PaymentStatusView struct {
	OrderID       uuid.UUID       `json:"orderId"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	OrderStatus   OrderStatus     `json:"orderStatus"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
}

// MoMoInitiateRequest is the payload for POST /payments/momo/initiate.
type MoMoInitiateRequest struct {
	OrderID uuid.UUID `json:"orderId" validate:"required"`
	Phone   string    `json:"phone" validate:"required,max=20"`
}

// PaymentOrderRequest carries the order id for verify and Stripe initiate.
type PaymentOrderRequest struct {
	OrderID uuid.UUID `json:"orderId" validate:"required"`
}

// PaymentInitiation is returned after a provider charge has been started.
type PaymentInitiation struct {
	OrderID      uuid.UUID     `json:"orderId"`
	Method       PaymentMethod `json:"paymentMethod"`
	Reference    string        `json:"transactionReference"`
	ClientSecret string        `json:"clientSecret,omitempty"`
	Status       string        `json:"status"`
}

// PaymentVerification is the outcome of polling the provider.
type PaymentVerification struct {
	Paid           bool   `json:"paid"`
	ProviderStatus string `json:"status"`
	Order          *Order `json:"order,omitempty"`
}
