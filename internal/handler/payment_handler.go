package handler

import (
	"errors"
	"io"
	"net/http"

	"ku-isoko/internal/model"
	"ku-isoko/internal/service"

	"github.com/rs/zerolog"
)

// PaymentHandler handles MoMo and Stripe payment requests.
type PaymentHandler struct {
	service service.PaymentService
	logger  zerolog.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(service service.PaymentService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger.With().Str("handler", "payment").Logger(),
	}
}

// InitiateMoMo handles POST /api/payments/momo/initiate.
func (h *PaymentHandler) InitiateMoMo(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.MoMoInitiateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	initiation, err := h.service.InitiateMoMo(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, initiation)
}

// VerifyMoMo handles POST /api/payments/momo/verify.
func (h *PaymentHandler) VerifyMoMo(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, model.PaymentMoMo)
}

// InitiateStripe handles POST /api/payments/stripe/initiate.
func (h *PaymentHandler) InitiateStripe(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.PaymentOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	initiation, err := h.service.InitiateStripe(r.Context(), actor, req.OrderID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, initiation)
}

// VerifyStripe handles POST /api/payments/stripe/verify.
func (h *PaymentHandler) VerifyStripe(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, model.PaymentStripe)
}

func (h *PaymentHandler) verify(w http.ResponseWriter, r *http.Request, method model.PaymentMethod) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.PaymentOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var result *model.PaymentVerification
	if method == model.PaymentMoMo {
		result, err = h.service.VerifyMoMo(r.Context(), actor, req.OrderID)
	} else {
		result, err = h.service.VerifyStripe(r.Context(), actor, req.OrderID)
	}
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// StripeWebhook handles POST /api/payments/stripe/webhook. The body must be
// read unparsed for the signature check.
func (h *PaymentHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, model.NewDomainError(model.ErrCodePayloadTooLarge, "Request body too large"), h.logger)
			return
		}
		writeError(w, r, model.NewDomainError(model.ErrCodeInvalidJSON, "Failed to read request body"), h.logger)
		return
	}

	if err := h.service.HandleStripeWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// Status handles GET /api/payments/{orderId}/status.
func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	orderID, err := uuidParam(r, "orderId")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	status, err := h.service.Status(r.Context(), actor, orderID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, status)
}
