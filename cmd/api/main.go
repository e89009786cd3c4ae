package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ku-isoko/internal/auth"
	"ku-isoko/internal/config"
	"ku-isoko/internal/database"
	"ku-isoko/internal/events"
	"ku-isoko/internal/handler"
	"ku-isoko/internal/mail"
	"ku-isoko/internal/middleware"
	"ku-isoko/internal/otp"
	"ku-isoko/internal/payment"
	"ku-isoko/internal/repository"
	"ku-isoko/internal/router"
	"ku-isoko/internal/service"
	"ku-isoko/internal/storage"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting ku-isoko API server")

	ctx, cancel := context.WithCancel(context.Background())
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

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	checks := map[string]handler.Check{
		"postgres": pool.Ping,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}

	publisher, closeEvents, err := newPublisher(cfg.Events, checks, logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	// Repositories
	txr := repository.NewTransactor(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)
	sellerRepo := repository.NewSellerRepository(pool, logger)
	productRepo := repository.NewProductRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	reviewRepo := repository.NewReviewRepository(pool, logger)

	tokens := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL)
	codes := otp.NewRedisStore(redisClient, cfg.Shop.OTPTTL, logger)
	mailer := mail.New(cfg.Mail, cfg.Shop.OTPTTL, logger)

	momo := payment.NewMoMoGateway(cfg.MoMo, logger)
	stripeGateway := payment.NewStripeGateway(cfg.Stripe, cfg.Shop.Currency, nil, logger)

	// Uploads go to S3 when enabled and fall back to the local directory.
	fileStore := storage.NewFileStore(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL, logger)
	var store storage.Store = fileStore
	if cfg.Storage.S3Enabled {
		s3Store, err := storage.NewS3Store(ctx, cfg.Storage.S3Bucket, cfg.Storage.S3Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 store, falling back to local file system only")
		} else {
			store = storage.NewFallbackStore(s3Store, fileStore, cfg.Storage.S3Prefix, true, logger)
		}
	} else {
		logger.Info().Str("dir", fileStore.Dir()).Msg("using local file system for uploads (S3 disabled)")
	}

	// Services
	authService := service.NewAuthService(txr, userRepo, sellerRepo, codes, mailer, tokens, logger)
	cartService := service.NewCartService(txr, cartRepo, productRepo, logger)
	orderService := service.NewOrderService(txr, orderRepo, cartRepo, productRepo, publisher, cfg.Shop, logger)
	paymentService := service.NewPaymentService(txr, orderRepo, productRepo, userRepo, momo, stripeGateway, publisher, logger)
	productService := service.NewProductService(productRepo, sellerRepo, logger)
	reviewService := service.NewReviewService(txr, reviewRepo, productRepo, orderRepo, logger)
	sellerService := service.NewSellerService(txr, sellerRepo, userRepo, publisher, logger)
	userService := service.NewUserService(txr, userRepo, sellerRepo, publisher, logger)

	var google handler.GoogleProvider
	if cfg.Google.GoogleEnabled() {
		google = auth.NewGoogleProvider(cfg.Google, logger)
	} else {
		logger.Info().Msg("google sign-in disabled")
	}

	handlers := router.Handlers{
		Auth:    handler.NewAuthHandler(authService, google, cfg.Server.FrontendURL, logger),
		Cart:    handler.NewCartHandler(cartService, logger),
		Order:   handler.NewOrderHandler(orderService, logger),
		Payment: handler.NewPaymentHandler(paymentService, logger),
		Product: handler.NewProductHandler(productService, logger),
		Review:  handler.NewReviewHandler(reviewService, logger),
		Seller:  handler.NewSellerHandler(sellerService, logger),
		User:    handler.NewUserHandler(userService, logger),
		Upload:  handler.NewUploadHandler(store, logger),
		Health:  handler.NewHealthHandler(checks, logger),
	}

	mux := router.New(handlers, middleware.NewAuthenticator(tokens, userRepo, logger), router.Options{
		AllowedOrigin: cfg.Server.FrontendURL,
		UploadDir:     fileStore.Dir(),
		UploadPath:    cfg.Storage.PublicBaseURL,
	}, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newPublisher connects to RabbitMQ when events are enabled and registers a
// readiness check for the connection. The returned func releases the broker.
func newPublisher(cfg config.EventsConfig, checks map[string]handler.Check, logger zerolog.Logger) (events.Publisher, func(), error) {
	if !cfg.Enabled {
		logger.Info().Msg("event publishing disabled")
		return events.NopPublisher{}, func() {}, nil
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	publisher, err := events.NewAMQPPublisher(ch, cfg.Exchange, logger)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, err
	}

	checks["rabbitmq"] = func(context.Context) error {
		if conn.IsClosed() {
			return errors.New("connection closed")
		}
		return nil
	}

	return publisher, func() {
		if err := ch.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close rabbitmq channel")
		}
		if err := conn.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close rabbitmq connection")
		}
	}, nil
}
