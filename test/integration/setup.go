package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ku-isoko/internal/auth"
	"ku-isoko/internal/config"
	"ku-isoko/internal/database/dbtest"
	"ku-isoko/internal/events"
	"ku-isoko/internal/handler"
	"ku-isoko/internal/mail"
	"ku-isoko/internal/middleware"
	"ku-isoko/internal/payment"
	"ku-isoko/internal/repository"
	"ku-isoko/internal/router"
	"ku-isoko/internal/service"
	"ku-isoko/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	testCode          = "123456"
	testWebhookSecret = "whsec_integration"
	frontendURL       = "http://localhost:5173"
)

// fixedCodes issues the same one-time code to everyone and consumes it on use.
type fixedCodes struct {
	mu     sync.Mutex
	issued map[string]bool
}

func (c *fixedCodes) Issue(_ context.Context, email string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued[email] = true
	return testCode, nil
}

func (c *fixedCodes) Verify(_ context.Context, email, code string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.issued[email] || code != testCode {
		return false, nil
	}
	delete(c.issued, email)
	return true, nil
}

// approvingMoMo accepts every charge and reports it paid on the first poll.
type approvingMoMo struct{}

func (approvingMoMo) Initiate(_ context.Context, req payment.InitiateRequest) (*payment.Initiation, error) {
	return &payment.Initiation{Reference: "momo-" + req.OrderID.String(), Status: "PENDING"}, nil
}

func (approvingMoMo) Verify(context.Context, string) (*payment.Verification, error) {
	return &payment.Verification{Paid: true, Status: "SUCCESSFUL"}, nil
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) count(t events.Type) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

// App is the full HTTP stack over a migrated test database.
type App struct {
	Pool      *pgxpool.Pool
	Handler   http.Handler
	Tokens    *auth.TokenIssuer
	Users     repository.UserRepository
	Products  repository.ProductRepository
	Payments  service.PaymentService
	Publisher *recordingPublisher
}

// NewApp wires repositories, services and the router the way cmd/api does,
// with in-process fakes for Redis, SMTP and MoMo.
func NewApp(t *testing.T) *App {
	t.Helper()

	pool := dbtest.NewPool(t)
	logger := zerolog.Nop()

	txr := repository.NewTransactor(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)
	sellerRepo := repository.NewSellerRepository(pool, logger)
	productRepo := repository.NewProductRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	reviewRepo := repository.NewReviewRepository(pool, logger)

	tokens := auth.NewTokenIssuer("integration-secret", time.Hour)
	publisher := &recordingPublisher{}
	shop := config.ShopConfig{
		FreeShippingThreshold: decimal.NewFromInt(50000),
		FlatShippingFee:       decimal.NewFromInt(2000),
		Currency:              "rwf",
		OTPTTL:                10 * time.Minute,
	}

	stripeGateway := payment.NewStripeGateway(config.StripeConfig{
		SecretKey:     "sk_test_integration",
		WebhookSecret: testWebhookSecret,
	}, shop.Currency, nil, logger)

	authService := service.NewAuthService(txr, userRepo, sellerRepo,
		&fixedCodes{issued: map[string]bool{}}, mail.NewLogMailer(logger), tokens, logger)
	paymentService := service.NewPaymentService(txr, orderRepo, productRepo, userRepo,
		approvingMoMo{}, stripeGateway, publisher, logger)

	uploadDir := t.TempDir()
	handlers := router.Handlers{
		Auth:    handler.NewAuthHandler(authService, nil, frontendURL, logger),
		Cart:    handler.NewCartHandler(service.NewCartService(txr, cartRepo, productRepo, logger), logger),
		Order:   handler.NewOrderHandler(service.NewOrderService(txr, orderRepo, cartRepo, productRepo, publisher, shop, logger), logger),
		Payment: handler.NewPaymentHandler(paymentService, logger),
		Product: handler.NewProductHandler(service.NewProductService(productRepo, sellerRepo, logger), logger),
		Review:  handler.NewReviewHandler(service.NewReviewService(txr, reviewRepo, productRepo, orderRepo, logger), logger),
		Seller:  handler.NewSellerHandler(service.NewSellerService(txr, sellerRepo, userRepo, publisher, logger), logger),
		User:    handler.NewUserHandler(service.NewUserService(txr, userRepo, sellerRepo, publisher, logger), logger),
		Upload:  handler.NewUploadHandler(storage.NewFileStore(uploadDir, "/uploads", logger), logger),
		Health: handler.NewHealthHandler(map[string]handler.Check{
			"postgres": pool.Ping,
		}, logger),
	}

	return &App{
		Pool: pool,
		Handler: router.New(handlers, middleware.NewAuthenticator(tokens, userRepo, logger), router.Options{
			AllowedOrigin: frontendURL,
			UploadDir:     uploadDir,
			UploadPath:    "/uploads",
		}, logger),
		Tokens:    tokens,
		Users:     userRepo,
		Products:  productRepo,
		Payments:  paymentService,
		Publisher: publisher,
	}
}

// Reset empties every table and forgets recorded events.
func (a *App) Reset(t *testing.T) {
	t.Helper()

	dbtest.Truncate(t, a.Pool)
	a.Publisher.mu.Lock()
	a.Publisher.events = nil
	a.Publisher.mu.Unlock()
}

// Do sends a JSON request through the router and returns the recorder.
func (a *App) Do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.Handler.ServeHTTP(w, req)
	return w
}

// Decode unmarshals the recorder body into dst.
func Decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}
