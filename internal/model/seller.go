package model

import (
	"time"

	"github.com/google/uuid"
)

// SellerStatus is the approval state of a storefront.
type SellerStatus string

const (
	SellerPending SellerStatus = "pending"
	SellerActive  SellerStatus = "active"
	SellerBlocked SellerStatus = "blocked"
)

// Valid reports whether s is a known seller status.
func (s SellerStatus) Valid() bool {
	switch s {
	case SellerPending, SellerActive, SellerBlocked:
		return true
	}
	return false
}

// PlaceholderPhone is stored on admin-created profiles when the user has no phone.
const PlaceholderPhone = "07XXXXXXXX"

// SellerProfile is a seller's storefront.
type SellerProfile struct {
	ID               uuid.UUID    `json:"id"`
	UserID           uuid.UUID    `json:"userId"`
	StoreName        string       `json:"storeName"`
	StoreDescription string       `json:"storeDescription"`
	Phone            string       `json:"phone"`
	LogoURL          string       `json:"logoUrl,omitempty"`
	SellerStatus     SellerStatus `json:"sellerStatus"`
	OwnerName        string       `json:"ownerName,omitempty"`
	OwnerEmail       string       `json:"ownerEmail,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// DefaultStoreName is the store name given to profiles created without one.
func DefaultStoreName(ownerName string) string {
	return ownerName + "'s Store"
}

// SellerFilter narrows seller listings.
type SellerFilter struct {
	Status SellerStatus
	Page   PageRequest
}

// SellerStatusRequest is the payload for PUT /sellers/{id}/status.
type SellerStatusRequest struct {
	Status SellerStatus `json:"status" validate:"required"`
}

// SellerUpgradeRequest is the payload for POST /sellers/request-upgrade.
type SellerUpgradeRequest struct {
	StoreName        string `json:"storeName" validate:"required,min=2,max=100"`
	StoreDescription string `json:"storeDescription" validate:"omitempty,max=1000"`
	Phone            string `json:"phone" validate:"required,max=20"`
}

// SellerProfileUpdate is the payload for PUT /sellers/profile. Nil fields are left unchanged.
type SellerProfileUpdate struct {
	StoreName        *string `json:"storeName" validate:"omitempty,min=2,max=100"`
	StoreDescription *string `json:"storeDescription" validate:"omitempty,max=1000"`
	Phone            *string `json:"phone" validate:"omitempty,max=20"`
	LogoURL          *string `json:"logoUrl" validate:"omitempty,max=500"`
}
