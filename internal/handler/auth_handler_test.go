package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ku-isoko/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const frontend = "http://shop.test"

func TestAuthHandler_Signup(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Success",
			body:           map[string]string{"name": "Aline", "email": "aline@example.rw", "password": "password123"},
			expectedStatus: http.StatusCreated,
			expectService:  true,
		},
		{
			name:           "Email taken",
			body:           map[string]string{"name": "Aline", "email": "aline@example.rw", "password": "password123"},
			mockError:      model.ErrEmailTaken,
			expectedStatus: http.StatusConflict,
			expectService:  true,
		},
		{
			name:           "Short password",
			body:           map[string]string{"name": "Aline", "email": "aline@example.rw", "password": "short"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Admin role rejected",
			body:           map[string]string{"name": "Aline", "email": "aline@example.rw", "password": "password123", "role": "admin"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAuthService)
			if tt.expectService {
				var challenge *model.LoginChallenge
				if tt.mockError == nil {
					challenge = &model.LoginChallenge{NeedsOTP: true, Email: "aline@example.rw"}
				}
				mockService.On("Signup", mock.Anything, mock.AnythingOfType("model.SignupRequest")).Return(challenge, tt.mockError)
			}

			w := httptest.NewRecorder()
			NewAuthHandler(mockService, nil, frontend, zerolog.Nop()).Signup(w,
				newRequest(t, http.MethodPost, "/api/auth/signup", tt.body, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_LoginAndVerify(t *testing.T) {
	t.Run("login returns challenge", func(t *testing.T) {
		mockService := new(MockAuthService)
		req := model.LoginRequest{Email: "aline@example.rw", Password: "password123"}
		mockService.On("Login", mock.Anything, req).Return(&model.LoginChallenge{NeedsOTP: true, Email: req.Email}, nil)

		w := httptest.NewRecorder()
		NewAuthHandler(mockService, nil, frontend, zerolog.Nop()).Login(w, newRequest(t, http.MethodPost, "/api/auth/login", req, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var got model.LoginChallenge
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.True(t, got.NeedsOTP)
	})

	t.Run("login unverified", func(t *testing.T) {
		mockService := new(MockAuthService)
		mockService.On("Login", mock.Anything, mock.Anything).Return(nil, model.ErrAccountUnverified)

		w := httptest.NewRecorder()
		NewAuthHandler(mockService, nil, frontend, zerolog.Nop()).Login(w,
			newRequest(t, http.MethodPost, "/api/auth/login", model.LoginRequest{Email: "a@b.rw", Password: "x"}, nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("verify issues token", func(t *testing.T) {
		mockService := new(MockAuthService)
		req := model.VerifyOTPRequest{Email: "aline@example.rw", Code: "123456"}
		mockService.On("VerifyOTP", mock.Anything, req).
			Return(&model.AuthResult{User: model.UserSummary{ID: uuid.New(), Role: model.RoleCustomer}, Token: "jwt"}, nil)

		w := httptest.NewRecorder()
		NewAuthHandler(mockService, nil, frontend, zerolog.Nop()).VerifyOTP(w, newRequest(t, http.MethodPost, "/api/auth/verify-otp", req, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"token":"jwt"`)
	})

	t.Run("verify rejects malformed code", func(t *testing.T) {
		mockService := new(MockAuthService)
		w := httptest.NewRecorder()
		NewAuthHandler(mockService, nil, frontend, zerolog.Nop()).VerifyOTP(w,
			newRequest(t, http.MethodPost, "/api/auth/verify-otp", model.VerifyOTPRequest{Email: "a@b.rw", Code: "12ab"}, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "VerifyOTP")
	})

	t.Run("wrong code", func(t *testing.T) {
		mockService := new(MockAuthService)
		mockService.On("VerifyOTP", mock.Anything, mock.Anything).Return(nil, model.ErrInvalidOTP)

		w := httptest.NewRecorder()
		NewAuthHandler(mockService, nil, frontend, zerolog.Nop()).VerifyOTP(w,
			newRequest(t, http.MethodPost, "/api/auth/verify-otp", model.VerifyOTPRequest{Email: "a@b.rw", Code: "000000"}, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, model.ErrInvalidOTP.Message, decodeError(t, w).Message)
	})
}

func TestAuthHandler_Recovery(t *testing.T) {
	mockService := new(MockAuthService)
	mockService.On("ResendOTP", mock.Anything, "a@b.rw").Return(model.ErrAlreadyVerified)
	mockService.On("ForgotPassword", mock.Anything, "a@b.rw").Return(nil)
	mockService.On("ResetPassword", mock.Anything, model.ResetPasswordRequest{Email: "a@b.rw", Code: "123456", NewPassword: "newpassword"}).Return(nil)
	h := NewAuthHandler(mockService, nil, frontend, zerolog.Nop())

	w := httptest.NewRecorder()
	h.ResendOTP(w, newRequest(t, http.MethodPost, "/api/auth/resend-otp", model.EmailRequest{Email: "a@b.rw"}, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.ForgotPassword(w, newRequest(t, http.MethodPost, "/api/auth/forgot-password", model.EmailRequest{Email: "a@b.rw"}, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ResetPassword(w, newRequest(t, http.MethodPost, "/api/auth/reset-password",
		model.ResetPasswordRequest{Email: "a@b.rw", Code: "123456", NewPassword: "newpassword"}, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	mockService.AssertExpectations(t)
}

func TestAuthHandler_Me(t *testing.T) {
	actor := customer()
	mockService := new(MockAuthService)
	mockService.On("Me", mock.Anything, *actor).Return(&model.User{ID: actor.UserID, Role: model.RoleCustomer}, nil)
	h := NewAuthHandler(mockService, nil, frontend, zerolog.Nop())

	w := httptest.NewRecorder()
	h.Me(w, newRequest(t, http.MethodGet, "/api/auth/me", nil, actor))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.Me(w, newRequest(t, http.MethodGet, "/api/auth/me", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_GoogleDisabled(t *testing.T) {
	h := NewAuthHandler(new(MockAuthService), nil, frontend, zerolog.Nop())

	w := httptest.NewRecorder()
	h.GoogleRedirect(w, newRequest(t, http.MethodGet, "/api/auth/google", nil, nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	h.GoogleCallback(w, newRequest(t, http.MethodGet, "/api/auth/google/callback", nil, nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAuthHandler_GoogleFlow(t *testing.T) {
	google := new(MockGoogleProvider)
	google.On("AuthCodeURL", mock.MatchedBy(func(state string) bool {
		return strings.HasSuffix(state, ".seller")
	})).Return("https://accounts.google.com/o/oauth2/auth?state=x")

	mockService := new(MockAuthService)
	h := NewAuthHandler(mockService, google, frontend+"/", zerolog.Nop())

	w := httptest.NewRecorder()
	h.GoogleRedirect(w, newRequest(t, http.MethodGet, "/api/auth/google?role=seller", nil, nil))
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "accounts.google.com")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	state := cookies[0].Value

	profile := &model.GoogleProfile{ID: "g-1", Email: "aline@gmail.com", Name: "Aline"}
	user := &model.User{ID: uuid.New(), Role: model.RoleSeller}
	google.On("Exchange", mock.Anything, "auth-code").Return(profile, nil)
	mockService.On("GoogleLogin", mock.Anything, *profile, model.RoleSeller).
		Return(&model.GoogleLoginResult{User: user, Outcome: model.GoogleNewAccount, Token: "jwt"}, nil)

	t.Run("success redirects with token", func(t *testing.T) {
		req := newRequest(t, http.MethodGet, "/api/auth/google/callback?code=auth-code&state="+url.QueryEscape(state), nil, nil)
		req.AddCookie(cookies[0])
		w := httptest.NewRecorder()

		h.GoogleCallback(w, req)

		require.Equal(t, http.StatusTemporaryRedirect, w.Code)
		loc, err := url.Parse(w.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "/auth/google/success", loc.Path)
		assert.Equal(t, "jwt", loc.Query().Get("token"))
		assert.Equal(t, "seller", loc.Query().Get("role"))
	})

	t.Run("state mismatch", func(t *testing.T) {
		req := newRequest(t, http.MethodGet, "/api/auth/google/callback?code=auth-code&state=forged", nil, nil)
		req.AddCookie(cookies[0])
		w := httptest.NewRecorder()

		h.GoogleCallback(w, req)

		assert.Equal(t, frontend+"/login?error=google_auth_failed", w.Header().Get("Location"))
	})

	t.Run("login rejected", func(t *testing.T) {
		g := new(MockGoogleProvider)
		g.On("Exchange", mock.Anything, "auth-code").Return(profile, nil)
		svc := new(MockAuthService)
		svc.On("GoogleLogin", mock.Anything, *profile, model.RoleSeller).Return(nil, model.ErrAccountDisabled)

		req := newRequest(t, http.MethodGet, "/api/auth/google/callback?code=auth-code&state="+url.QueryEscape(state), nil, nil)
		req.AddCookie(cookies[0])
		w := httptest.NewRecorder()

		NewAuthHandler(svc, g, frontend, zerolog.Nop()).GoogleCallback(w, req)

		assert.Equal(t, frontend+"/login?error=google_auth_failed", w.Header().Get("Location"))
	})

	t.Run("exchange fails", func(t *testing.T) {
		g := new(MockGoogleProvider)
		g.On("Exchange", mock.Anything, "auth-code").Return(nil, errors.New("bad code"))

		req := newRequest(t, http.MethodGet, "/api/auth/google/callback?code=auth-code&state="+url.QueryEscape(state), nil, nil)
		req.AddCookie(cookies[0])
		w := httptest.NewRecorder()

		NewAuthHandler(new(MockAuthService), g, frontend, zerolog.Nop()).GoogleCallback(w, req)

		assert.Equal(t, frontend+"/login?error=google_auth_failed", w.Header().Get("Location"))
	})
}
