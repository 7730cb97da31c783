package entitlementservice

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/preplyhq/entitlement-service/internal/config"
	"github.com/preplyhq/entitlement-service/internal/http/handlers/auth/login"
	"github.com/preplyhq/entitlement-service/internal/http/handlers/auth/register"
	"github.com/preplyhq/entitlement-service/internal/http/handlers/payment/ordercreate"
	"github.com/preplyhq/entitlement-service/internal/http/handlers/payment/verify"
	"github.com/preplyhq/entitlement-service/internal/http/handlers/payment/webhook"
	"github.com/preplyhq/entitlement-service/internal/http/handlers/subscription/status"
	"github.com/preplyhq/entitlement-service/internal/http/middlewarectx"
	authservice "github.com/preplyhq/entitlement-service/internal/services/auth"
	entitlementsvc "github.com/preplyhq/entitlement-service/internal/services/entitlement"
	orderservice "github.com/preplyhq/entitlement-service/internal/services/order"
)

// RegisterRoutes registers every route of the service. The webhook stays
// outside the JWT group: the provider authenticates with its body signature,
// not a bearer token.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config,
	authService *authservice.Service,
	orderService *orderservice.Service,
	entitlementService *entitlementsvc.Service,
) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", register.New(logger, authService).ServeHTTP)
		r.Post("/auth/login", login.New(logger, authService).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/payments/order", ordercreate.New(logger, orderService).ServeHTTP)
			r.Post("/payments/verify", verify.New(logger, entitlementService, cfg.Razorpay.KeySecret).ServeHTTP)
			r.Get("/subscriptions/status", status.New(logger, entitlementService).ServeHTTP)
		})

		r.Post("/payments/webhook", webhook.New(logger, entitlementService, cfg.Razorpay.WebhookSecret).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
