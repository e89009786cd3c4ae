package handler

import (
	"net/http"

	"ku-isoko/internal/model"
	"ku-isoko/internal/service"

	"github.com/rs/zerolog"
)

// SellerHandler handles seller profiles and their approval.
type SellerHandler struct {
	service service.SellerService
	logger  zerolog.Logger
}

// NewSellerHandler creates a new seller handler.
func NewSellerHandler(service service.SellerService, logger zerolog.Logger) *SellerHandler {
	return &SellerHandler{
		service: service,
		logger:  logger.With().Str("handler", "seller").Logger(),
	}
}

// List handles GET /api/sellers with an optional status filter.
func (h *SellerHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	filter := model.SellerFilter{
		Status: model.SellerStatus(r.URL.Query().Get("status")),
		Page:   page,
	}

	sellers, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, sellers)
}

// GetByID handles GET /api/sellers/{id}.
func (h *SellerHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	profile, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// GetMine handles GET /api/sellers/profile/me.
func (h *SellerHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	profile, err := h.service.GetMine(r.Context(), actor)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if profile == nil {
		writeError(w, r, model.ErrSellerNotFound, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// UpdateMine handles PUT /api/sellers/profile.
func (h *SellerHandler) UpdateMine(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.SellerProfileUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	profile, err := h.service.UpdateMine(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// RequestUpgrade handles POST /api/sellers/request-upgrade.
func (h *SellerHandler) RequestUpgrade(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.SellerUpgradeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	profile, err := h.service.RequestUpgrade(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, profile)
}

// UpdateStatus handles PUT /api/sellers/{id}/status.
func (h *SellerHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.SellerStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	profile, err := h.service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
