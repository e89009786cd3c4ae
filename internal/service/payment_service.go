package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"ku-isoko/internal/events"
	"ku-isoko/internal/model"
	"ku-isoko/internal/payment"
	"ku-isoko/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// StripeGateway is a card gateway that also receives signed webhooks.
type StripeGateway interface {
	payment.Gateway
	ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error)
}

var errNotPending = model.NewDomainError(model.ErrCodeConflict, "Order is no longer awaiting payment")

// paymentService implements PaymentService.
type paymentService struct {
	txr       repository.Transactor
	orders    repository.OrderRepository
	products  repository.ProductRepository
	users     repository.UserRepository
	momo      payment.Gateway
	stripe    StripeGateway
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	txr repository.Transactor,
	orders repository.OrderRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
	momo payment.Gateway,
	stripe StripeGateway,
	publisher events.Publisher,
	logger zerolog.Logger,
) PaymentService {
	return &paymentService{
		txr:       txr,
		orders:    orders,
		products:  products,
		users:     users,
		momo:      momo,
		stripe:    stripe,
		publisher: publisher,
		logger:    logger.With().Str("service", "payment").Logger(),
	}
}

func (s *paymentService) InitiateMoMo(ctx context.Context, actor model.Actor, req model.MoMoInitiateRequest) (*model.PaymentInitiation, error) {
	order, err := s.prepare(ctx, actor, req.OrderID, model.PaymentMoMo)
	if err != nil {
		return nil, err
	}

	init, err := s.momo.Initiate(ctx, payment.InitiateRequest{
		OrderID: order.ID,
		Amount:  order.GrandTotal,
		Phone:   req.Phone,
	})
	if err != nil {
		return nil, err
	}

	return s.record(ctx, order, model.PaymentMoMo, init)
}

func (s *paymentService) InitiateStripe(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.PaymentInitiation, error) {
	order, err := s.prepare(ctx, actor, orderID, model.PaymentStripe)
	if err != nil {
		return nil, err
	}

	var email string
	user, err := s.users.GetByID(ctx, order.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order owner: %w", err)
	}
	if user != nil {
		email = user.Email
	}

	init, err := s.stripe.Initiate(ctx, payment.InitiateRequest{
		OrderID: order.ID,
		Amount:  order.GrandTotal,
		Email:   email,
	})
	if err != nil {
		return nil, err
	}

	return s.record(ctx, order, model.PaymentStripe, init)
}

// prepare loads an order the actor owns and checks it may be charged with method.
func (s *paymentService) prepare(ctx context.Context, actor model.Actor, orderID uuid.UUID, method model.PaymentMethod) (*model.Order, error) {
	order, err := s.ownedOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != method && order.IsPaid() {
		return nil, model.ErrAlreadyPaid
	}
	return order, nil
}

// record stores the provider reference, switching the order's method if needed.
func (s *paymentService) record(ctx context.Context, order *model.Order, method model.PaymentMethod, init *payment.Initiation) (*model.PaymentInitiation, error) {
	if err := s.orders.SetPaymentReference(ctx, order.ID, method, init.Reference); err != nil {
		return nil, fmt.Errorf("failed to store payment reference: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("method", string(method)).
		Str("reference", init.Reference).
		Msg("payment initiated")

	return &model.PaymentInitiation{
		OrderID:      order.ID,
		Method:       method,
		Reference:    init.Reference,
		ClientSecret: init.ClientSecret,
		Status:       init.Status,
	}, nil
}

func (s *paymentService) VerifyMoMo(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.PaymentVerification, error) {
	return s.verify(ctx, actor, orderID, model.PaymentMoMo, s.momo)
}

func (s *paymentService) VerifyStripe(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.PaymentVerification, error) {
	return s.verify(ctx, actor, orderID, model.PaymentStripe, s.stripe)
}

func (s *paymentService) verify(ctx context.Context, actor model.Actor, orderID uuid.UUID, method model.PaymentMethod, gw payment.Gateway) (*model.PaymentVerification, error) {
	order, err := s.ownedOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	ref, ok := order.PaymentReference(method)
	if !ok {
		return nil, model.ErrNoTransaction
	}

	v, err := gw.Verify(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !v.Paid {
		s.logger.Debug().
			Str("order_id", order.ID.String()).
			Str("provider_status", v.Status).
			Msg("payment not completed")
		return &model.PaymentVerification{Paid: false, ProviderStatus: v.Status}, nil
	}

	paid, err := s.Reconcile(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &model.PaymentVerification{Paid: true, ProviderStatus: v.Status, Order: paid}, nil
}

func (s *paymentService) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.stripe.ParseWebhook(payload, signature)
	if err != nil {
		return model.ErrInvalidWebhook
	}

	if ev.Type != payment.EventPaymentSucceeded {
		s.logger.Debug().Str("event_type", ev.Type).Msg("ignoring stripe event")
		return nil
	}
	if ev.OrderID == uuid.Nil {
		s.logger.Warn().Str("payment_intent", ev.PaymentIntentID).Msg("payment intent has no order metadata")
		return nil
	}

	if _, err := s.reconcile(ctx, ev.OrderID, ev.PaymentIntentID); err != nil {
		var de *model.DomainError
		if !errors.As(err, &de) {
			// Stripe retries non-2xx deliveries.
			return err
		}
		s.logger.Error().
			Err(err).
			Str("order_id", ev.OrderID.String()).
			Str("payment_intent", ev.PaymentIntentID).
			Msg("webhook reconciliation failed")
	}
	return nil
}

// Reconcile locks the order, takes stock for each line with a conditional
// decrement and marks the order paid, all in one transaction. If any line
// cannot be covered nothing is changed and FULFILLMENT_FAILED is returned.
func (s *paymentService) Reconcile(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	return s.reconcile(ctx, orderID, "")
}

// reconcile settles orderID. A non-empty intentID is the Stripe payment
// intent that reported success.
func (s *paymentService) reconcile(ctx context.Context, orderID uuid.UUID, intentID string) (*model.Order, error) {
	var (
		order       *model.Order
		alreadyPaid bool
	)

	err := inTx(ctx, s.txr, s.logger, func(tx pgx.Tx) error {
		var err error
		order, err = s.orders.GetByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return model.ErrOrderNotFound
		}
		if order.IsPaid() {
			alreadyPaid = true
			return nil
		}
		if intentID != "" && (order.StripePaymentID == nil || *order.StripePaymentID != intentID) {
			s.logger.Warn().
				Str("order_id", order.ID.String()).
				Str("payment_intent", intentID).
				Str("stored_reference", deref(order.StripePaymentID)).
				Msg("settling order from a payment intent other than the stored reference")
		}

		for _, item := range lockOrder(order.Items) {
			ok, err := s.products.DecrementStock(ctx, tx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return model.FulfillmentError(item.Name)
			}
		}

		marked, err := s.orders.MarkPaid(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if !marked {
			return errNotPending
		}

		order.PaymentStatus = model.PaymentPaid
		order.OrderStatus = model.OrderPaid
		return nil
	})

	if err != nil {
		if errors.Is(err, model.ErrFulfillmentFailed) {
			s.logger.Error().
				Err(err).
				Str("order_id", orderID.String()).
				Msg("payment confirmed but order cannot be fulfilled, operator follow-up required")

			ev := newOrderEvent(order)
			ev.Reason = err.Error()
			publish(ctx, s.publisher, s.logger, events.New(events.OrderFulfillmentFailed, ev))
			return nil, err
		}
		var de *model.DomainError
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to reconcile payment: %w", err)
	}

	if alreadyPaid {
		s.logger.Debug().Str("order_id", orderID.String()).Msg("order already paid, nothing to reconcile")
		return order, nil
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Int("item_count", len(order.Items)).
		Msg("payment reconciled, stock deducted")

	publish(ctx, s.publisher, s.logger, events.New(events.OrderPaid, newOrderEvent(order)))
	return order, nil
}

func (s *paymentService) Status(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.PaymentStatusView, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if !actor.Owns(order.UserID) && !actor.IsAdmin() {
		return nil, model.ErrAccessDenied
	}

	return &model.PaymentStatusView{
		OrderID:       order.ID,
		PaymentMethod: order.PaymentMethod,
		PaymentStatus: order.PaymentStatus,
		OrderStatus:   order.OrderStatus,
		GrandTotal:    order.GrandTotal,
	}, nil
}

func (s *paymentService) ownedOrder(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if !actor.Owns(order.UserID) {
		s.logger.Warn().
			Str("order_id", orderID.String()).
			Str("user_id", actor.UserID.String()).
			Msg("payment access denied")
		return nil, model.ErrAccessDenied
	}
	return order, nil
}

// lockOrder returns items sorted by product id. Concurrent reconciliations
// take product row locks in this order so they cannot deadlock.
func lockOrder(items []model.OrderItem) []model.OrderItem {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b model.OrderItem) int {
		return bytes.Compare(a.ProductID[:], b.ProductID[:])
	})
	return sorted
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
