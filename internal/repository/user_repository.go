package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ku-isoko/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const userColumns = `
	id, name, email, password_hash, phone, role, is_active, is_verified,
	google_id, avatar, created_at, updated_at`

// userRepository implements the UserRepository interface using PostgreSQL.
type userRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool, logger zerolog.Logger) UserRepository {
	return &userRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "user").Logger(),
	}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.Role, &u.IsActive, &u.IsVerified,
		&u.GoogleID, &u.Avatar, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user. Emails are stored lower-cased.
func (r *userRepository) Create(ctx context.Context, q Querier, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	query := `
		INSERT INTO users (id, name, email, password_hash, phone, role, is_active, is_verified, google_id, avatar, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := q.Exec(ctx, query,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Phone, u.Role, u.IsActive, u.IsVerified,
		u.GoogleID, u.Avatar, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "email") {
			return model.ErrEmailTaken
		}
		if isUniqueViolation(err, "") {
			return model.ErrConflict
		}
		r.logger.Error().Err(err).Str("user_id", u.ID.String()).Msg("failed to create user")
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID.
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "email = $1", strings.ToLower(strings.TrimSpace(email)))
}

// GetByGoogleID retrieves the user linked to a Google account.
func (r *userRepository) GetByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return r.getOne(ctx, "google_id = $1", googleID)
}

func (r *userRepository) getOne(ctx context.Context, where string, arg any) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("where", where).Msg("failed to query user")
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// List retrieves one page of users, newest first.
func (r *userRepository) List(ctx context.Context, filter model.UserFilter) ([]model.User, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Role != "" {
		args = append(args, filter.Role)
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conds = append(conds, fmt.Sprintf("is_active = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users `+where, args...).Scan(&total); err != nil {
		r.logger.Error().Err(err).Msg("failed to count users")
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	n := filter.Page.Normalize()
	query := fmt.Sprintf(`SELECT %s FROM users %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)+1, len(args)+2)

	rows, err := r.pool.Query(ctx, query, append(args, n.Limit, filter.Page.Offset())...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query users")
		return nil, 0, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan user row")
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating users: %w", err)
	}

	return users, total, nil
}

// UpdateRole changes a user's role.
func (r *userRepository) UpdateRole(ctx context.Context, q Querier, id uuid.UUID, role model.Role) error {
	return r.update(ctx, q, "role = $2", id, role)
}

// SetActive enables or disables an account.
func (r *userRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.update(ctx, r.pool, "is_active = $2", id, active)
}

// SetVerified marks an account's email as verified.
func (r *userRepository) SetVerified(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, r.pool, "is_verified = TRUE", id)
}

// SetPassword replaces the password hash.
func (r *userRepository) SetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.update(ctx, r.pool, "password_hash = $2", id, hash)
}

// LinkGoogle attaches a Google identity to an existing account.
func (r *userRepository) LinkGoogle(ctx context.Context, id uuid.UUID, googleID, avatar string) error {
	err := r.update(ctx, r.pool, "google_id = $2, is_verified = TRUE, avatar = COALESCE(NULLIF($3, ''), avatar)", id, googleID, avatar)
	if isUniqueViolation(err, "google_id") {
		return model.ErrConflict
	}
	return err
}

// UpdateAvatar refreshes the profile picture.
func (r *userRepository) UpdateAvatar(ctx context.Context, id uuid.UUID, avatar string) error {
	return r.update(ctx, r.pool, "avatar = $2", id, avatar)
}

func (r *userRepository) update(ctx context.Context, q Querier, set string, id uuid.UUID, args ...any) error {
	query := `UPDATE users SET ` + set + `, updated_at = NOW() WHERE id = $1`

	tag, err := q.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", id.String()).Str("set", set).Msg("failed to update user")
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}
