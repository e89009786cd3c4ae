package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"ku-isoko/internal/auth"
	"ku-isoko/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type actorKey struct{}

// TokenParser validates bearer tokens.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// UserLookup loads the account a token was issued to.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the authenticated caller stored by Authenticate.
func ActorFrom(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(model.Actor)
	return actor, ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// Authenticator resolves bearer tokens to actors. The role is read from the
// stored account, so a role change applies to tokens already issued.
type Authenticator struct {
	tokens TokenParser
	users  UserLookup
	logger zerolog.Logger
}

// NewAuthenticator creates a bearer token authenticator.
func NewAuthenticator(tokens TokenParser, users UserLookup, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		tokens: tokens,
		users:  users,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// resolve returns the actor for r. status is non-zero when the request must be rejected.
func (a *Authenticator) resolve(r *http.Request) (actor model.Actor, status int, message string) {
	token := bearerToken(r)
	if token == "" {
		return actor, http.StatusUnauthorized, "Not authorized, no token"
	}

	claims, err := a.tokens.Parse(token)
	if err != nil {
		a.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("rejected bearer token")
		return actor, http.StatusUnauthorized, "Not authorized, token failed"
	}

	user, err := a.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		a.logger.Error().Err(err).Str("user_id", claims.UserID.String()).Msg("failed to load token user")
		return actor, http.StatusInternalServerError, "Internal server error"
	}
	if user == nil {
		return actor, http.StatusUnauthorized, "User not found"
	}
	if !user.IsActive {
		return actor, http.StatusForbidden, model.ErrAccountDisabled.Message
	}

	return model.Actor{UserID: user.ID, Role: user.Role}, 0, ""
}

// Authenticate rejects requests without a valid bearer token for an active account.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, status, message := a.resolve(r)
		if status != 0 {
			writeError(w, r, status, codeFor(status), message)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// OptionalAuth attaches the actor when a valid token is present and lets
// anonymous requests through otherwise.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearerToken(r) != "" {
			if actor, status, _ := a.resolve(r); status == 0 {
				r = r.WithContext(WithActor(r.Context(), actor))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole allows only actors holding one of roles. It must run after Authenticate.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "Not authorized")
				return
			}
			if !slices.Contains(roles, actor.Role) {
				writeError(w, r, http.StatusForbidden, model.ErrCodeAccessDenied,
					"Role "+string(actor.Role)+" is not authorized to access this route")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func codeFor(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return model.ErrCodeUnauthorised
	case http.StatusForbidden:
		return model.ErrCodeAccessDenied
	}
	return model.ErrCodeInternalError
}
