package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ku-isoko/internal/model"
	"ku-isoko/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const googleStateCookie = "ku_isoko_oauth_state"

// GoogleProvider runs the Google OAuth code flow.
type GoogleProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*model.GoogleProfile, error)
}

type messageResponse struct {
	Message string `json:"message"`
}

// AuthHandler handles signup, login and account recovery requests.
type AuthHandler struct {
	service     service.AuthService
	google      GoogleProvider
	frontendURL string
	logger      zerolog.Logger
}

// NewAuthHandler creates a new auth handler. google may be nil when Google
// sign-in is not configured.
func NewAuthHandler(service service.AuthService, google GoogleProvider, frontendURL string, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service:     service,
		google:      google,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger.With().Str("handler", "auth").Logger(),
	}
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	challenge, err := h.service.Signup(r.Context(), req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, challenge)
}

// Login handles POST /api/auth/login. Valid credentials only trigger an OTP.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	challenge, err := h.service.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, challenge)
}

// VerifyOTP handles POST /api/auth/verify-otp.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req model.VerifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	result, err := h.service.VerifyOTP(r.Context(), req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ResendOTP handles POST /api/auth/resend-otp.
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req model.EmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	if err := h.service.ResendOTP(r.Context(), req.Email); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Verification code sent"})
}

// ForgotPassword handles POST /api/auth/forgot-password.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req model.EmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Password reset code sent to your email"})
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req model.ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Password reset successful"})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	user, err := h.service.Me(r.Context(), actor)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// GoogleRedirect handles GET /api/auth/google. The optional role query
// parameter is carried through the OAuth state.
func (h *AuthHandler) GoogleRedirect(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		writeError(w, r, model.ErrGoogleDisabled, h.logger)
		return
	}

	role := model.Role(r.URL.Query().Get("role"))
	if role != model.RoleSeller {
		role = model.RoleCustomer
	}
	state := uuid.NewString() + "." + string(role)

	http.SetCookie(w, &http.Cookie{
		Name:     googleStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback handles GET /api/auth/google/callback and redirects to the
// frontend with the issued token.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		writeError(w, r, model.ErrGoogleDisabled, h.logger)
		return
	}

	failure := h.frontendURL + "/login?error=google_auth_failed"

	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(googleStateCookie)
	if err != nil || state == "" || cookie.Value != state {
		h.logger.Warn().Msg("google callback state mismatch")
		http.Redirect(w, r, failure, http.StatusTemporaryRedirect)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: googleStateCookie, Value: "", Path: "/", MaxAge: -1})

	_, requested, _ := strings.Cut(state, ".")

	profile, err := h.google.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.logger.Warn().Err(err).Msg("google exchange failed")
		http.Redirect(w, r, failure, http.StatusTemporaryRedirect)
		return
	}

	result, err := h.service.GoogleLogin(r.Context(), *profile, model.Role(requested))
	if err != nil {
		h.logger.Warn().Err(err).Str("email", profile.Email).Msg("google login rejected")
		http.Redirect(w, r, failure, http.StatusTemporaryRedirect)
		return
	}

	h.logger.Info().
		Str("user_id", result.User.ID.String()).
		Str("outcome", result.Outcome.String()).
		Msg("google sign-in")

	q := url.Values{}
	q.Set("token", result.Token)
	q.Set("role", string(result.User.Role))
	http.Redirect(w, r, h.frontendURL+"/auth/google/success?"+q.Encode(), http.StatusTemporaryRedirect)
}
