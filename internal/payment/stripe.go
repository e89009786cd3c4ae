package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"ku-isoko/internal/config"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

// EventPaymentSucceeded is the webhook event that triggers reconciliation.
const EventPaymentSucceeded = "payment_intent.succeeded"

// WebhookEvent is the verified subset of a Stripe event.
type WebhookEvent struct {
	Type            string
	PaymentIntentID string
	OrderID         uuid.UUID
}

// StripeGateway creates and polls Stripe PaymentIntents.
type StripeGateway struct {
	api           *client.API
	currency      string
	webhookSecret string
	logger        zerolog.Logger
}

// NewStripeGateway creates a Stripe gateway. A nil backends uses Stripe's
// default API endpoints.
func NewStripeGateway(cfg config.StripeConfig, currency string, backends *stripe.Backends, logger zerolog.Logger) *StripeGateway {
	return &StripeGateway{
		api:           client.New(cfg.SecretKey, backends),
		currency:      currency,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger.With().Str("component", "stripe").Logger(),
	}
}

// Initiate creates a PaymentIntent for the order. RWF is a zero-decimal
// currency, so the amount is sent in whole units.
func (g *StripeGateway) Initiate(ctx context.Context, req InitiateRequest) (*Initiation, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.Amount.Round(0).IntPart()),
		Currency:    stripe.String(g.currency),
		Description: stripe.String(fmt.Sprintf("Order #%s - Ku-isoko", req.OrderID)),
	}
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}
	params.AddMetadata("orderId", req.OrderID.String())
	params.Context = ctx

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		g.logger.Error().Err(err).Str("order_id", req.OrderID.String()).Msg("failed to create payment intent")
		return nil, providerError("stripe payment intent", err)
	}

	g.logger.Info().
		Str("order_id", req.OrderID.String()).
		Str("payment_intent", pi.ID).
		Msg("stripe payment intent created")

	return &Initiation{
		Reference:    pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

// Verify retrieves the PaymentIntent. Only "succeeded" counts as paid.
func (g *StripeGateway) Verify(ctx context.Context, reference string) (*Verification, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Get(reference, params)
	if err != nil {
		g.logger.Error().Err(err).Str("payment_intent", reference).Msg("failed to retrieve payment intent")
		return nil, providerError("stripe retrieve", err)
	}

	return &Verification{
		Paid:   pi.Status == stripe.PaymentIntentStatusSucceeded,
		Status: string(pi.Status),
	}, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
// OrderID is set only for succeeded payment intents carrying orderId metadata.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		g.logger.Warn().Err(err).Msg("webhook signature verification failed")
		return nil, err
	}

	out := &WebhookEvent{Type: string(event.Type)}
	if out.Type != EventPaymentSucceeded || event.Data == nil {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("failed to decode payment intent: %w", err)
	}
	out.PaymentIntentID = pi.ID

	if raw, ok := pi.Metadata["orderId"]; ok {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid orderId metadata %q: %w", raw, err)
		}
		out.OrderID = id
	}
	return out, nil
}
