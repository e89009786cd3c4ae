package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ku-isoko/internal/auth"
	"ku-isoko/internal/mail"
	"ku-isoko/internal/model"
	"ku-isoko/internal/otp"
	"ku-isoko/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(userID uuid.UUID, role model.Role) (string, error)
}

// authService implements AuthService.
type authService struct {
	txr     repository.Transactor
	users   repository.UserRepository
	sellers repository.SellerRepository
	codes   otp.Store
	mailer  mail.Mailer
	tokens  TokenIssuer
	logger  zerolog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	txr repository.Transactor,
	users repository.UserRepository,
	sellers repository.SellerRepository,
	codes otp.Store,
	mailer mail.Mailer,
	tokens TokenIssuer,
	logger zerolog.Logger,
) AuthService {
	return &authService{
		txr:     txr,
		users:   users,
		sellers: sellers,
		codes:   codes,
		mailer:  mailer,
		tokens:  tokens,
		logger:  logger.With().Str("service", "auth").Logger(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// sendCode issues a fresh OTP for email and mails it.
func (s *authService) sendCode(ctx context.Context, email, subject string) error {
	code, err := s.codes.Issue(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to issue otp: %w", err)
	}
	if err := s.mailer.SendOTP(ctx, email, code, subject); err != nil {
		return fmt.Errorf("failed to send otp: %w", err)
	}
	return nil
}

// Signup creates an unverified account and mails the verification code.
// Sellers start with a pending storefront awaiting admin approval.
func (s *authService) Signup(ctx context.Context, req model.SignupRequest) (*model.LoginChallenge, error) {
	role := req.Role
	if role == "" {
		role = model.RoleCustomer
	}
	if role != model.RoleCustomer && role != model.RoleSeller {
		return nil, model.ValidationError("Role must be customer or seller")
	}

	email := normalizeEmail(req.Email)
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if existing != nil {
		return nil, model.ErrEmailTaken
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	name := strings.TrimSpace(req.Name)
	user := &model.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: &hash,
		Phone:        strings.TrimSpace(req.Phone),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = inTx(ctx, s.txr, s.logger, func(tx pgx.Tx) error {
		if err := s.users.Create(ctx, tx, user); err != nil {
			return err
		}
		if role != model.RoleSeller {
			return nil
		}

		storeName := strings.TrimSpace(req.StoreName)
		if storeName == "" {
			storeName = model.DefaultStoreName(name)
		}
		return s.sellers.Create(ctx, tx, &model.SellerProfile{
			ID:               uuid.New(),
			UserID:           user.ID,
			StoreName:        storeName,
			StoreDescription: req.StoreDescription,
			Phone:            user.Phone,
			SellerStatus:     model.SellerPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("role", string(role)).
		Msg("user signed up")

	// the account exists either way; the user can ask for a new code
	if err := s.sendCode(ctx, email, mail.SubjectVerify); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to send verification code")
	}

	return &model.LoginChallenge{NeedsOTP: true, Email: email}, nil
}

// Login checks the password and mails a second-factor code. No token is
// issued until VerifyOTP.
func (s *authService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginChallenge, error) {
	email := normalizeEmail(req.Email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, model.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, model.ErrAccountDisabled
	}
	if !user.IsVerified {
		return nil, model.ErrAccountUnverified
	}
	if !user.HasPassword() || !auth.CheckPassword(*user.PasswordHash, req.Password) {
		s.logger.Warn().Str("user_id", user.ID.String()).Msg("invalid password")
		return nil, model.ErrInvalidCredentials
	}

	if err := s.sendCode(ctx, email, mail.SubjectLogin); err != nil {
		return nil, err
	}
	return &model.LoginChallenge{NeedsOTP: true, Email: email}, nil
}

// VerifyOTP consumes the code, marks the account verified and signs the
// user in.
func (s *authService) VerifyOTP(ctx context.Context, req model.VerifyOTPRequest) (*model.AuthResult, error) {
	email := normalizeEmail(req.Email)
	ok, err := s.codes.Verify(ctx, email, req.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to verify otp: %w", err)
	}
	if !ok {
		return nil, model.ErrInvalidOTP
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, model.ErrUserNotFound
	}
	if !user.IsActive {
		return nil, model.ErrAccountDisabled
	}

	if !user.IsVerified {
		if err := s.users.SetVerified(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("failed to verify user: %w", err)
		}
		user.IsVerified = true

		if err := s.mailer.SendWelcome(ctx, user.Email, user.Name); err != nil {
			s.logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to send welcome email")
		}
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("user signed in")
	return &model.AuthResult{User: user.Summary(), Token: token}, nil
}

func (s *authService) ResendOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return model.ErrUserNotFound
	}
	if user.IsVerified {
		return model.ErrAlreadyVerified
	}
	return s.sendCode(ctx, email, mail.SubjectVerify)
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return model.ErrUserNotFound
	}
	return s.sendCode(ctx, email, mail.SubjectReset)
}

func (s *authService) ResetPassword(ctx context.Context, req model.ResetPasswordRequest) error {
	email := normalizeEmail(req.Email)
	ok, err := s.codes.Verify(ctx, email, req.Code)
	if err != nil {
		return fmt.Errorf("failed to verify otp: %w", err)
	}
	if !ok {
		return model.ErrInvalidOTP
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return model.ErrUserNotFound
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.SetPassword(ctx, user.ID, hash); err != nil {
		return err
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("password reset")
	return nil
}

// Me returns the actor's account with any seller profile attached.
func (s *authService) Me(ctx context.Context, actor model.Actor) (*model.User, error) {
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, model.ErrUserNotFound
	}

	profile, err := s.sellers.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get seller profile: %w", err)
	}
	user.SellerProfile = profile
	return user, nil
}

// GoogleLogin resolves a Google identity to an account in order: an account
// already linked to the Google id, then an account with the same email
// (which gets linked), then a new verified account.
func (s *authService) GoogleLogin(ctx context.Context, profile model.GoogleProfile, requestedRole model.Role) (*model.GoogleLoginResult, error) {
	if profile.ID == "" || profile.Email == "" {
		return nil, model.ValidationError("Google profile is missing an id or email")
	}

	user, outcome, err := s.resolveGoogle(ctx, profile, requestedRole)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, model.ErrAccountDisabled
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("outcome", outcome.String()).
		Msg("google sign-in")
	return &model.GoogleLoginResult{User: user, Outcome: outcome, Token: token}, nil
}

func (s *authService) resolveGoogle(ctx context.Context, profile model.GoogleProfile, requestedRole model.Role) (*model.User, model.GoogleOutcome, error) {
	user, err := s.users.GetByGoogleID(ctx, profile.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to look up google account: %w", err)
	}
	if user != nil {
		if profile.Avatar != "" && profile.Avatar != user.Avatar {
			if err := s.users.UpdateAvatar(ctx, user.ID, profile.Avatar); err != nil {
				return nil, 0, err
			}
			user.Avatar = profile.Avatar
		}
		return user, model.GoogleExistingMatch, nil
	}

	email := normalizeEmail(profile.Email)
	user, err = s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to look up user: %w", err)
	}
	if user != nil {
		if err := s.users.LinkGoogle(ctx, user.ID, profile.ID, profile.Avatar); err != nil {
			return nil, 0, err
		}
		googleID := profile.ID
		user.GoogleID = &googleID
		user.IsVerified = true
		if profile.Avatar != "" {
			user.Avatar = profile.Avatar
		}
		return user, model.GoogleLinkedExisting, nil
	}

	role := model.RoleCustomer
	if requestedRole == model.RoleSeller {
		role = model.RoleSeller
	}

	now := time.Now().UTC()
	googleID := profile.ID
	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = email
	}
	user = &model.User{
		ID:         uuid.New(),
		Name:       name,
		Email:      email,
		Role:       role,
		IsActive:   true,
		IsVerified: true,
		GoogleID:   &googleID,
		Avatar:     profile.Avatar,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = inTx(ctx, s.txr, s.logger, func(tx pgx.Tx) error {
		if err := s.users.Create(ctx, tx, user); err != nil {
			return err
		}
		if role != model.RoleSeller {
			return nil
		}
		return s.sellers.Create(ctx, tx, &model.SellerProfile{
			ID:           uuid.New(),
			UserID:       user.ID,
			StoreName:    model.DefaultStoreName(name),
			SellerStatus: model.SellerActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	})
	if err != nil {
		return nil, 0, err
	}
	return user, model.GoogleNewAccount, nil
}
