package repository

import (
	"context"
	"errors"
	"fmt"

	"ku-isoko/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const sellerColumns = `
	s.id, s.user_id, s.store_name, s.store_description, s.phone, s.logo_url, s.seller_status,
	COALESCE(u.name, ''), COALESCE(u.email, ''), s.created_at, s.updated_at`

const sellerFrom = `FROM seller_profiles s LEFT JOIN users u ON u.id = s.user_id`

// sellerRepository implements the SellerRepository interface using PostgreSQL.
type sellerRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewSellerRepository creates a new PostgreSQL-backed seller profile repository.
func NewSellerRepository(pool *pgxpool.Pool, logger zerolog.Logger) SellerRepository {
	return &sellerRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "seller").Logger(),
	}
}

func scanSeller(row pgx.Row) (*model.SellerProfile, error) {
	var s model.SellerProfile
	err := row.Scan(
		&s.ID, &s.UserID, &s.StoreName, &s.StoreDescription, &s.Phone, &s.LogoURL, &s.SellerStatus,
		&s.OwnerName, &s.OwnerEmail, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new seller profile.
func (r *sellerRepository) Create(ctx context.Context, q Querier, p *model.SellerProfile) error {
	query := `
		INSERT INTO seller_profiles (id, user_id, store_name, store_description, phone, logo_url, seller_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := q.Exec(ctx, query,
		p.ID, p.UserID, p.StoreName, p.StoreDescription, p.Phone, p.LogoURL, p.SellerStatus, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "user_id") {
			return model.ErrSellerRequestOpen
		}
		r.logger.Error().Err(err).Str("user_id", p.UserID.String()).Msg("failed to create seller profile")
		return fmt.Errorf("failed to create seller profile: %w", err)
	}

	return nil
}

// GetByID retrieves a seller profile by its ID.
func (r *sellerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SellerProfile, error) {
	return r.getOne(ctx, "s.id = $1", id)
}

// GetByUserID retrieves the seller profile owned by a user.
func (r *sellerRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.SellerProfile, error) {
	return r.getOne(ctx, "s.user_id = $1", userID)
}

func (r *sellerRepository) getOne(ctx context.Context, where string, id uuid.UUID) (*model.SellerProfile, error) {
	s, err := scanSeller(r.pool.QueryRow(ctx, `SELECT `+sellerColumns+` `+sellerFrom+` WHERE `+where, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("id", id.String()).Msg("failed to query seller profile")
		return nil, fmt.Errorf("failed to query seller profile: %w", err)
	}
	return s, nil
}

// List retrieves one page of seller profiles, newest first.
func (r *sellerRepository) List(ctx context.Context, filter model.SellerFilter) ([]model.SellerProfile, int, error) {
	where := ""
	var args []any
	if filter.Status != "" {
		where = "WHERE s.seller_status = $1"
		args = append(args, filter.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM seller_profiles s `+where, args...).Scan(&total); err != nil {
		r.logger.Error().Err(err).Msg("failed to count seller profiles")
		return nil, 0, fmt.Errorf("failed to count seller profiles: %w", err)
	}

	n := filter.Page.Normalize()
	query := fmt.Sprintf(`SELECT %s %s %s ORDER BY s.created_at DESC, s.id LIMIT $%d OFFSET $%d`,
		sellerColumns, sellerFrom, where, len(args)+1, len(args)+2)

	rows, err := r.pool.Query(ctx, query, append(args, n.Limit, filter.Page.Offset())...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query seller profiles")
		return nil, 0, fmt.Errorf("failed to query seller profiles: %w", err)
	}
	defer rows.Close()

	sellers := []model.SellerProfile{}
	for rows.Next() {
		s, err := scanSeller(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan seller profile row")
			return nil, 0, fmt.Errorf("failed to scan seller profile: %w", err)
		}
		sellers = append(sellers, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating seller profiles: %w", err)
	}

	return sellers, total, nil
}

// UpdateStatus changes a profile's approval status.
func (r *sellerRepository) UpdateStatus(ctx context.Context, q Querier, id uuid.UUID, status model.SellerStatus) error {
	tag, err := q.Exec(ctx,
		`UPDATE seller_profiles SET seller_status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		r.logger.Error().Err(err).Str("seller_id", id.String()).Msg("failed to update seller status")
		return fmt.Errorf("failed to update seller status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrSellerNotFound
	}
	return nil
}

// UpdateProfile applies the non-nil storefront fields.
func (r *sellerRepository) UpdateProfile(ctx context.Context, id uuid.UUID, update model.SellerProfileUpdate) (*model.SellerProfile, error) {
	query := `
		UPDATE seller_profiles SET
			store_name = COALESCE($2, store_name),
			store_description = COALESCE($3, store_description),
			phone = COALESCE($4, phone),
			logo_url = COALESCE($5, logo_url),
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, update.StoreName, update.StoreDescription, update.Phone, update.LogoURL)
	if err != nil {
		r.logger.Error().Err(err).Str("seller_id", id.String()).Msg("failed to update seller profile")
		return nil, fmt.Errorf("failed to update seller profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, model.ErrSellerNotFound
	}

	return r.GetByID(ctx, id)
}
