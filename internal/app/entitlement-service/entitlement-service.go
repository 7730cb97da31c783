// Package entitlementservice wires the service together: storage, cache,
// broker, payment provider client and the HTTP server.
package entitlementservice

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/preplyhq/entitlement-service/internal/cache"
	"github.com/preplyhq/entitlement-service/internal/config"
	"github.com/preplyhq/entitlement-service/internal/lib/jwt"
	"github.com/preplyhq/entitlement-service/internal/lib/rabbitmq"
	"github.com/preplyhq/entitlement-service/internal/lib/sl"
	"github.com/preplyhq/entitlement-service/internal/migrations"
	"github.com/preplyhq/entitlement-service/internal/paymentprovider"
	authservice "github.com/preplyhq/entitlement-service/internal/services/auth"
	entitlementsvc "github.com/preplyhq/entitlement-service/internal/services/entitlement"
	orderservice "github.com/preplyhq/entitlement-service/internal/services/order"
	"github.com/preplyhq/entitlement-service/internal/storage"
)

// App holds the running service and its long-lived connections.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	closer func()
}

// New builds the App from configuration: it opens the database, applies
// migrations, connects the cache and, when configured, the broker.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	var publisher entitlementsvc.Publisher
	closer := func() { cacheRedis.Db.Close() }
	if cfg.RabbitConnection.AmqpURI != "" {
		conn, ch, err := rabbitmq.Connect(cfg.RabbitConnection.AmqpURI)
		if err != nil {
			return nil, err
		}
		if err := rabbitmq.SetupQueues(ch, rabbitmq.GetNotificationQueues()); err != nil {
			return nil, err
		}
		publisher = rabbitmq.NewPublisher(ch, rabbitmq.NotificationExchange)
		closer = func() {
			cacheRedis.Db.Close()
			ch.Close()
			conn.Close()
		}
	} else {
		logger.Warn("amqp uri not set, entitlement events disabled")
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL)
	authService := authservice.New(db, jwtMaker)

	providerClient := paymentprovider.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
	orderService := orderservice.New(db, providerClient, cfg.Razorpay.Currency, logger)
	entitlementService := entitlementsvc.New(db, cacheRedis, publisher, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, authService, orderService, entitlementService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		closer: closer,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if cerr := a.db.DB.Close(); cerr != nil {
			a.logger.Error("failed to close database", sl.Err(cerr))
		}
		a.closer()
		return err
	}
}
