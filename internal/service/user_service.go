package service

import (
	"context"
	"fmt"
	"time"

	"ku-isoko/internal/events"
	"ku-isoko/internal/model"
	"ku-isoko/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// userService implements UserService.
type userService struct {
	txr       repository.Transactor
	users     repository.UserRepository
	sellers   repository.SellerRepository
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewUserService creates a new user administration service.
func NewUserService(
	txr repository.Transactor,
	users repository.UserRepository,
	sellers repository.SellerRepository,
	publisher events.Publisher,
	logger zerolog.Logger,
) UserService {
	return &userService{
		txr:       txr,
		users:     users,
		sellers:   sellers,
		publisher: publisher,
		logger:    logger.With().Str("service", "user").Logger(),
	}
}

func (s *userService) List(ctx context.Context, filter model.UserFilter) (*model.UserList, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, model.ValidationError("Invalid role %q", filter.Role)
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return &model.UserList{Users: users, Pagination: model.NewPage(filter.Page, total)}, nil
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, model.ErrUserNotFound
	}

	profile, err := s.sellers.GetByUserID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get seller profile: %w", err)
	}
	user.SellerProfile = profile
	return user, nil
}

// UpdateRole sets the user's role. Promotion to seller activates (or
// creates) the seller profile and demotion from seller blocks it, both in the
// same transaction as the role change.
func (s *userService) UpdateRole(ctx context.Context, actor model.Actor, id uuid.UUID, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, model.ValidationError("Invalid role. Must be customer, seller, or admin.")
	}
	if actor.Owns(id) && role != model.RoleAdmin {
		return nil, model.ValidationError("You cannot remove your own admin role")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, model.ErrUserNotFound
	}

	profile, err := s.sellers.GetByUserID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get seller profile: %w", err)
	}

	oldRole := user.Role
	var event *SellerStatusEvent

	err = inTx(ctx, s.txr, s.logger, func(tx pgx.Tx) error {
		if err := s.users.UpdateRole(ctx, tx, id, role); err != nil {
			return err
		}

		switch {
		case role == model.RoleSeller && profile == nil:
			now := time.Now().UTC()
			phone := user.Phone
			if phone == "" {
				phone = model.PlaceholderPhone
			}
			profile = &model.SellerProfile{
				ID:           uuid.New(),
				UserID:       id,
				StoreName:    model.DefaultStoreName(user.Name),
				Phone:        phone,
				SellerStatus: model.SellerActive,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := s.sellers.Create(ctx, tx, profile); err != nil {
				return syncFailure(err)
			}
			event = &SellerStatusEvent{SellerID: profile.ID, UserID: id, Status: model.SellerActive, Role: role}

		case role == model.RoleSeller && profile.SellerStatus != model.SellerActive:
			if err := s.sellers.UpdateStatus(ctx, tx, profile.ID, model.SellerActive); err != nil {
				return syncFailure(err)
			}
			profile.SellerStatus = model.SellerActive
			event = &SellerStatusEvent{SellerID: profile.ID, UserID: id, Status: model.SellerActive, Role: role}

		case oldRole == model.RoleSeller && role != model.RoleSeller && profile != nil:
			if err := s.sellers.UpdateStatus(ctx, tx, profile.ID, model.SellerBlocked); err != nil {
				return syncFailure(err)
			}
			profile.SellerStatus = model.SellerBlocked
			event = &SellerStatusEvent{SellerID: profile.ID, UserID: id, Status: model.SellerBlocked, Role: role}
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", id.String()).Msg("failed to update user role")
		return nil, err
	}

	user.Role = role
	user.SellerProfile = profile

	s.logger.Info().
		Str("user_id", id.String()).
		Str("old_role", string(oldRole)).
		Str("new_role", string(role)).
		Msg("user role updated")

	if event != nil {
		publish(ctx, s.publisher, s.logger, events.New(events.SellerStatusChanged, *event))
	}
	return user, nil
}

func (s *userService) ToggleActive(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.User, error) {
	if actor.Owns(id) {
		return nil, model.ValidationError("You cannot deactivate your own account")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, model.ErrUserNotFound
	}

	user.IsActive = !user.IsActive
	if err := s.users.SetActive(ctx, id, user.IsActive); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info().
		Str("user_id", id.String()).
		Bool("active", user.IsActive).
		Msg("user active flag toggled")
	return user, nil
}
