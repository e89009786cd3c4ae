// Command createadmin creates an administrator account, or promotes an
// existing account to admin and resets its password.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"ku-isoko/internal/auth"
	"ku-isoko/internal/config"
	"ku-isoko/internal/database"
	"ku-isoko/internal/model"
	"ku-isoko/internal/repository"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type settings struct {
	Database config.DatabaseConfig
	Logger   config.LoggerConfig
}

type adminRequest struct {
	Email    string `validate:"required,email"`
	Name     string `validate:"required,min=2,max=100"`
	Password string `validate:"required,min=8"`
}

// adminAccounts is the part of the user repository createadmin needs.
type adminAccounts interface {
	Create(ctx context.Context, q repository.Querier, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateRole(ctx context.Context, q repository.Querier, id uuid.UUID, role model.Role) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SetVerified(ctx context.Context, id uuid.UUID) error
	SetPassword(ctx context.Context, id uuid.UUID, hash string) error
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var req adminRequest
	flag.StringVar(&req.Email, "email", "", "admin email address")
	flag.StringVar(&req.Name, "name", "", "admin display name")
	flag.StringVar(&req.Password, "password", "", "admin password (min 8 characters)")
	flag.Parse()

	if err := validator.New().Struct(req); err != nil {
		flag.Usage()
		return fmt.Errorf("invalid arguments: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}
	var cfg settings
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(pool, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	created, err := ensureAdmin(ctx, repository.NewUserRepository(pool, logger), pool, req, logger)
	if err != nil {
		return err
	}

	if created {
		fmt.Printf("Admin user %s created\n", req.Email)
	} else {
		fmt.Printf("Admin user %s updated\n", req.Email)
	}
	return nil
}

// ensureAdmin leaves an active, verified admin behind for req.Email with
// req.Password as its password. It reports whether a new account was created.
func ensureAdmin(ctx context.Context, users adminAccounts, q repository.Querier, req adminRequest, logger zerolog.Logger) (bool, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return false, err
	}

	existing, err := users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return false, fmt.Errorf("failed to look up user: %w", err)
	}

	if existing == nil {
		now := time.Now().UTC()
		user := &model.User{
			ID:           uuid.New(),
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: &hash,
			Role:         model.RoleAdmin,
			IsActive:     true,
			IsVerified:   true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := users.Create(ctx, q, user); err != nil {
			return false, fmt.Errorf("failed to create admin: %w", err)
		}
		logger.Info().Str("user_id", user.ID.String()).Msg("admin created")
		return true, nil
	}

	if err := users.SetPassword(ctx, existing.ID, hash); err != nil {
		return false, fmt.Errorf("failed to reset password: %w", err)
	}
	if existing.Role != model.RoleAdmin {
		if err := users.UpdateRole(ctx, q, existing.ID, model.RoleAdmin); err != nil {
			return false, fmt.Errorf("failed to promote user: %w", err)
		}
	}
	if !existing.IsActive {
		if err := users.SetActive(ctx, existing.ID, true); err != nil {
			return false, fmt.Errorf("failed to activate user: %w", err)
		}
	}
	if !existing.IsVerified {
		if err := users.SetVerified(ctx, existing.ID); err != nil {
			return false, fmt.Errorf("failed to verify user: %w", err)
		}
	}

	logger.Info().
		Str("user_id", existing.ID.String()).
		Str("previous_role", string(existing.Role)).
		Msg("admin updated")
	return false, nil
}
