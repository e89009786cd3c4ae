package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ku-isoko/internal/events"
	"ku-isoko/internal/model"
	"ku-isoko/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// SellerStatusEvent is the payload of seller.status_changed.
type SellerStatusEvent struct {
	SellerID uuid.UUID          `json:"sellerId"`
	UserID   uuid.UUID          `json:"userId"`
	Status   model.SellerStatus `json:"status"`
	Role     model.Role         `json:"role"`
}

// roleForStatus is the role a user should hold while their profile has
// status. Admins keep their role.
func roleForStatus(current model.Role, status model.SellerStatus) model.Role {
	if current == model.RoleAdmin {
		return model.RoleAdmin
	}
	if status == model.SellerActive {
		return model.RoleSeller
	}
	return model.RoleCustomer
}

// syncFailure marks a failed second write of a role/status pair. The
// transaction has been rolled back, so neither write is applied.
func syncFailure(err error) error {
	return fmt.Errorf("%w: %v", model.ErrSyncPartialFailure, err)
}

// sellerService implements SellerService.
type sellerService struct {
	txr       repository.Transactor
	sellers   repository.SellerRepository
	users     repository.UserRepository
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewSellerService creates a new seller service.
func NewSellerService(
	txr repository.Transactor,
	sellers repository.SellerRepository,
	users repository.UserRepository,
	publisher events.Publisher,
	logger zerolog.Logger,
) SellerService {
	return &sellerService{
		txr:       txr,
		sellers:   sellers,
		users:     users,
		publisher: publisher,
		logger:    logger.With().Str("service", "seller").Logger(),
	}
}

func (s *sellerService) List(ctx context.Context, filter model.SellerFilter) (*model.SellerList, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, model.ValidationError("Invalid seller status %q", filter.Status)
	}

	sellers, total, err := s.sellers.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list sellers: %w", err)
	}
	return &model.SellerList{Sellers: sellers, Pagination: model.NewPage(filter.Page, total)}, nil
}

func (s *sellerService) Get(ctx context.Context, id uuid.UUID) (*model.SellerProfile, error) {
	profile, err := s.sellers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get seller: %w", err)
	}
	if profile == nil {
		return nil, model.ErrSellerNotFound
	}
	return profile, nil
}

func (s *sellerService) GetMine(ctx context.Context, actor model.Actor) (*model.SellerProfile, error) {
	profile, err := s.sellers.GetByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get seller profile: %w", err)
	}
	return profile, nil
}

func (s *sellerService) UpdateMine(ctx context.Context, actor model.Actor, update model.SellerProfileUpdate) (*model.SellerProfile, error) {
	// blank name or phone leave the stored value alone
	if update.StoreName != nil && strings.TrimSpace(*update.StoreName) == "" {
		update.StoreName = nil
	}
	if update.Phone != nil && strings.TrimSpace(*update.Phone) == "" {
		update.Phone = nil
	}

	profile, err := s.sellers.GetByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get seller profile: %w", err)
	}
	if profile == nil {
		return nil, model.ErrSellerNotFound
	}

	updated, err := s.sellers.UpdateProfile(ctx, profile.ID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update seller profile: %w", err)
	}
	if updated == nil {
		return nil, model.ErrSellerNotFound
	}
	return updated, nil
}

func (s *sellerService) RequestUpgrade(ctx context.Context, actor model.Actor, req model.SellerUpgradeRequest) (*model.SellerProfile, error) {
	existing, err := s.sellers.GetByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get seller profile: %w", err)
	}
	if existing != nil {
		if existing.SellerStatus == model.SellerActive {
			return nil, model.ErrAlreadySeller
		}
		return nil, model.ErrSellerRequestOpen
	}

	now := time.Now().UTC()
	profile := &model.SellerProfile{
		ID:               uuid.New(),
		UserID:           actor.UserID,
		StoreName:        strings.TrimSpace(req.StoreName),
		StoreDescription: req.StoreDescription,
		Phone:            req.Phone,
		SellerStatus:     model.SellerPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = inTx(ctx, s.txr, s.logger, func(tx pgx.Tx) error {
		return s.sellers.Create(ctx, tx, profile)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", actor.UserID.String()).
		Str("seller_id", profile.ID.String()).
		Msg("seller upgrade requested")
	return profile, nil
}

// UpdateStatus writes the profile status and the owner's role in one
// transaction, so the pair never diverges.
func (s *sellerService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SellerStatus) (*model.SellerProfile, error) {
	if !status.Valid() {
		return nil, model.ValidationError("Invalid status. Must be pending, active, or blocked.")
	}

	profile, err := s.sellers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get seller: %w", err)
	}
	if profile == nil {
		return nil, model.ErrSellerNotFound
	}

	user, err := s.users.GetByID(ctx, profile.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get seller owner: %w", err)
	}
	if user == nil {
		return nil, model.ErrUserNotFound
	}

	role := roleForStatus(user.Role, status)
	err = inTx(ctx, s.txr, s.logger, func(tx pgx.Tx) error {
		if err := s.sellers.UpdateStatus(ctx, tx, profile.ID, status); err != nil {
			return err
		}
		if role == user.Role {
			return nil
		}
		if err := s.users.UpdateRole(ctx, tx, user.ID, role); err != nil {
			return syncFailure(err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("seller_id", id.String()).Msg("failed to update seller status")
		return nil, err
	}

	profile.SellerStatus = status
	s.logger.Info().
		Str("seller_id", id.String()).
		Str("status", string(status)).
		Str("role", string(role)).
		Msg("seller status updated")

	publish(ctx, s.publisher, s.logger, events.New(events.SellerStatusChanged, SellerStatusEvent{
		SellerID: profile.ID,
		UserID:   user.ID,
		Status:   status,
		Role:     role,
	}))
	return profile, nil
}
