package router

import (
	"net/http"
	"strings"

	"ku-isoko/internal/handler"
	"ku-isoko/internal/middleware"
	"ku-isoko/internal/model"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Auth    *handler.AuthHandler
	Cart    *handler.CartHandler
	Order   *handler.OrderHandler
	Payment *handler.PaymentHandler
	Product *handler.ProductHandler
	Review  *handler.ReviewHandler
	Seller  *handler.SellerHandler
	User    *handler.UserHandler
	Upload  *handler.UploadHandler
	Health  *handler.HealthHandler
}

// Options holds router settings that do not come from handlers.
type Options struct {
	AllowedOrigin string
	// UploadDir is served read-only under UploadPath, and again under
	// /api+UploadPath, when both are set.
	UploadDir  string
	UploadPath string
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, authn *middleware.Authenticator, opts Options, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(opts.AllowedOrigin))

	r.Get("/health", h.Health.Live)
	r.Get("/health/ready", h.Health.Ready)

	uploads := strings.TrimRight(opts.UploadPath, "/")
	serveUploads := opts.UploadDir != "" && strings.HasPrefix(uploads, "/")
	files := http.FileServer(http.Dir(opts.UploadDir))
	if serveUploads {
		r.Handle(uploads+"/*", http.StripPrefix(uploads, files))
	}

	customer := middleware.RequireRole(model.RoleCustomer)
	sellerOrAdmin := middleware.RequireRole(model.RoleSeller, model.RoleAdmin)
	seller := middleware.RequireRole(model.RoleSeller)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.Auth.Signup)
			r.Post("/login", h.Auth.Login)
			r.Post("/verify-otp", h.Auth.VerifyOTP)
			r.Post("/resend-otp", h.Auth.ResendOTP)
			r.Post("/forgot-password", h.Auth.ForgotPassword)
			r.Post("/reset-password", h.Auth.ResetPassword)
			r.Get("/google", h.Auth.GoogleRedirect)
			r.Get("/google/callback", h.Auth.GoogleCallback)
			r.With(authn.Authenticate).Get("/me", h.Auth.Me)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(authn.Authenticate, customer)
			r.Get("/", h.Cart.Get)
			r.Post("/", h.Cart.AddItem)
			r.Delete("/", h.Cart.Clear)
			r.Put("/{itemId}", h.Cart.UpdateItem)
			r.Delete("/{itemId}", h.Cart.RemoveItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(authn.Authenticate)
			r.With(customer).Post("/", h.Order.Create)
			r.With(adminOnly).Get("/", h.Order.ListAll)
			r.Get("/my-orders", h.Order.ListMine)
			r.With(sellerOrAdmin).Get("/seller-orders", h.Order.ListForSeller)
			r.Get("/{id}", h.Order.GetByID)
			r.With(adminOnly).Put("/{id}/status", h.Order.UpdateStatus)
		})

		r.Route("/payments", func(r chi.Router) {
			// Stripe authenticates the webhook by signature, not bearer token.
			r.Post("/stripe/webhook", h.Payment.StripeWebhook)

			r.Group(func(r chi.Router) {
				r.Use(authn.Authenticate)
				r.Post("/momo/initiate", h.Payment.InitiateMoMo)
				r.Post("/momo/verify", h.Payment.VerifyMoMo)
				r.Post("/stripe/initiate", h.Payment.InitiateStripe)
				r.Post("/stripe/verify", h.Payment.VerifyStripe)
				r.Get("/{orderId}/status", h.Payment.Status)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.With(authn.OptionalAuth).Get("/", h.Product.GetAll)
			r.With(authn.Authenticate, sellerOrAdmin).Get("/my-products", h.Product.ListMine)
			r.Get("/{id}", h.Product.GetByID)
			r.Get("/{id}/related", h.Product.Related)

			r.Group(func(r chi.Router) {
				r.Use(authn.Authenticate, sellerOrAdmin)
				r.Post("/", h.Product.Create)
				r.Put("/{id}", h.Product.Update)
				r.Delete("/{id}", h.Product.Delete)
			})
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/products/{productId}", h.Review.ListByProduct)

			r.Group(func(r chi.Router) {
				r.Use(authn.Authenticate)
				r.Post("/products/{productId}", h.Review.Create)
				r.Put("/{id}", h.Review.Update)
				r.Delete("/{id}", h.Review.Delete)
			})
		})

		r.Route("/sellers", func(r chi.Router) {
			r.With(authn.OptionalAuth).Get("/", h.Seller.List)
			r.Get("/{id}", h.Seller.GetByID)

			r.Group(func(r chi.Router) {
				r.Use(authn.Authenticate)
				r.Get("/profile/me", h.Seller.GetMine)
				r.With(seller).Put("/profile", h.Seller.UpdateMine)
				r.Post("/request-upgrade", h.Seller.RequestUpgrade)
				r.With(adminOnly).Put("/{id}/status", h.Seller.UpdateStatus)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authn.Authenticate, adminOnly)
			r.Get("/", h.User.List)
			r.Get("/{id}", h.User.GetByID)
			r.Put("/{id}/role", h.User.UpdateRole)
			r.Put("/{id}/toggle-active", h.User.ToggleActive)
		})

		r.With(authn.Authenticate, sellerOrAdmin).Post("/upload", h.Upload.Upload)
		if serveUploads {
			r.Handle(uploads+"/*", http.StripPrefix("/api"+uploads, files))
		}
	})

	return r
}
