// Package payment adapts the external payment providers to one
// initiate/verify contract.
package payment

import (
	"context"
	"fmt"

	"ku-isoko/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InitiateRequest describes the charge to start for an order.
type InitiateRequest struct {
	OrderID uuid.UUID
	Amount  decimal.Decimal
	// Phone is the payer MSISDN for mobile money.
	Phone string
	// Email receives the card receipt.
	Email string
}

// Initiation is the provider's answer to a new charge.
type Initiation struct {
	Reference    string
	ClientSecret string
	Status       string
}

// Verification is the provider-side state of a charge.
type Verification struct {
	Paid   bool
	Status string
}

// Gateway starts and polls charges with one payment provider.
type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (*Initiation, error)
	Verify(ctx context.Context, reference string) (*Verification, error)
}

// providerError wraps a provider failure so it maps to PROVIDER_ERROR.
func providerError(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, model.ErrProvider, err)
}
