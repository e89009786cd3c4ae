package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"ku-isoko/internal/config"
	"ku-isoko/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleProvider runs the OAuth authorisation code flow against Google.
type GoogleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
	logger      zerolog.Logger
}

// NewGoogleProvider creates a Google OAuth client from cfg.
func NewGoogleProvider(cfg config.GoogleConfig, logger zerolog.Logger) *GoogleProvider {
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     endpoints.Google,
		},
		userInfoURL: googleUserInfoURL,
		logger:      logger.With().Str("component", "google-oauth").Logger(),
	}
}

// AuthCodeURL returns the consent page URL carrying state.
func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type googleUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Exchange trades the callback code for a token and fetches the profile.
func (g *GoogleProvider) Exchange(ctx context.Context, code string) (*model.GoogleProfile, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		g.logger.Warn().Err(err).Msg("google code exchange failed")
		return nil, fmt.Errorf("failed to exchange google code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}

	resp, err := g.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("google userinfo returned %d: %s", resp.StatusCode, body)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode google profile: %w", err)
	}
	if info.Sub == "" || info.Email == "" {
		return nil, fmt.Errorf("google profile is missing id or email")
	}

	return &model.GoogleProfile{
		ID:     info.Sub,
		Email:  info.Email,
		Name:   info.Name,
		Avatar: info.Picture,
	}, nil
}
