package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ku-isoko/internal/config"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MoMoGateway talks to the MTN MoMo collection API.
type MoMoGateway struct {
	cfg    config.MoMoConfig
	client *http.Client
	logger zerolog.Logger
}

// NewMoMoGateway creates a MoMo collection client.
func NewMoMoGateway(cfg config.MoMoConfig, logger zerolog.Logger) *MoMoGateway {
	return &MoMoGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "momo").Logger(),
	}
}

type momoParty struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

type requestToPay struct {
	Amount       string    `json:"amount"`
	Currency     string    `json:"currency"`
	ExternalID   string    `json:"externalId"`
	Payer        momoParty `json:"payer"`
	PayerMessage string    `json:"payerMessage"`
	PayeeNote    string    `json:"payeeNote"`
}

// Initiate submits a request-to-pay. The generated X-Reference-Id is the
// transaction reference.
func (g *MoMoGateway) Initiate(ctx context.Context, req InitiateRequest) (*Initiation, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	referenceID := uuid.NewString()
	body, err := json.Marshal(requestToPay{
		Amount:       req.Amount.String(),
		Currency:     g.cfg.Currency,
		ExternalID:   req.OrderID.String(),
		Payer:        momoParty{PartyIDType: "MSISDN", PartyID: req.Phone},
		PayerMessage: fmt.Sprintf("Payment for order %s", req.OrderID),
		PayeeNote:    "Ku-isoko Order Payment",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request-to-pay: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.cfg.BaseURL+"/collection/v1_0/requesttopay", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request-to-pay: %w", err)
	}
	g.setCommonHeaders(httpReq, token)
	httpReq.Header.Set("X-Reference-Id", referenceID)
	httpReq.Header.Set("Content-Type", "application/json")

	if _, err := g.do(httpReq); err != nil {
		g.logger.Error().Err(err).Str("order_id", req.OrderID.String()).Msg("request-to-pay failed")
		return nil, providerError("momo request-to-pay", err)
	}

	g.logger.Info().
		Str("order_id", req.OrderID.String()).
		Str("reference", referenceID).
		Msg("momo payment initiated")

	return &Initiation{Reference: referenceID, Status: "pending"}, nil
}

// Verify polls the request-to-pay status. Only SUCCESSFUL counts as paid.
func (g *MoMoGateway) Verify(ctx context.Context, reference string) (*Verification, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.cfg.BaseURL+"/collection/v1_0/requesttopay/"+reference, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	g.setCommonHeaders(httpReq, token)

	body, err := g.do(httpReq)
	if err != nil {
		g.logger.Error().Err(err).Str("reference", reference).Msg("request-to-pay status failed")
		return nil, providerError("momo status", err)
	}

	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, providerError("momo status", err)
	}

	return &Verification{
		Paid:   status.Status == "SUCCESSFUL",
		Status: strings.ToLower(status.Status),
	}, nil
}

func (g *MoMoGateway) accessToken(ctx context.Context) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/collection/token/", http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	httpReq.SetBasicAuth(g.cfg.APIUser, g.cfg.APIKey)
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", g.cfg.SubscriptionKey)

	body, err := g.do(httpReq)
	if err != nil {
		g.logger.Error().Err(err).Msg("momo token exchange failed")
		return "", providerError("momo token", err)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &token); err != nil || token.AccessToken == "" {
		return "", providerError("momo token", fmt.Errorf("no access token in response"))
	}
	return token.AccessToken, nil
}

func (g *MoMoGateway) setCommonHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Target-Environment", g.cfg.TargetEnvironment)
	req.Header.Set("Ocp-Apim-Subscription-Key", g.cfg.SubscriptionKey)
}

// do sends req and returns the body of a 2xx response.
func (g *MoMoGateway) do(req *http.Request) ([]byte, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
