// Package main runs the registration service HTTP server with graceful shutdown.
//
// @title Registration Service API
// @version 1.0
// @description Creates event registrations with ticket tokens and lets owners cancel them.
// @BasePath /
// @securityDefinitions.apikey UserIDHeader
// @in header
// @name X-User-Id
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventregistration/config"
	_ "eventregistration/docs"
	"eventregistration/internal/adapters/auth"
	"eventregistration/internal/adapters/eventservice"
	"eventregistration/internal/adapters/ticket"
	deliveryhttp "eventregistration/internal/delivery/http"
	"eventregistration/internal/delivery/http/controllers"
	"eventregistration/internal/delivery/http/middleware"
	"eventregistration/internal/domain"
	"eventregistration/internal/repository/memory"
	"eventregistration/internal/repository/postgres"
	"eventregistration/internal/repository/redis"
	"eventregistration/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(os.Stdout, cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	events, err := eventservice.NewHTTPExistenceClient(nil, eventservice.Config{
		BaseURL:     cfg.EventService.URL,
		Timeout:     cfg.EventService.Timeout,
		MaxAttempts: cfg.EventService.MaxAttempts,
	}, logger)
	if err != nil {
		logger.Error("event service client", "err", err)
		os.Exit(1)
	}

	svc := services.NewRegistrationService(repo, events, ticket.NewUUIDGenerator(), logger)
	registrationController := controllers.NewRegistrationController(logger, svc)

	var verifier domain.TokenVerifier
	if cfg.JWTSecret != "" {
		verifier = auth.NewJWTVerifier(cfg.JWTSecret)
		logger.Info("caller identity from bearer tokens")
	}
	router := deliveryhttp.NewRouter(registrationController, middleware.RequireCaller(verifier, logger))

	var handler http.Handler = router
	handler = middleware.LoggingMiddleware(logger, handler)
	handler = middleware.CORS(cfg.CORSAllowedOrigins, handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		// Covers the existence check with all its retries.
		WriteTimeout: cfg.EventService.Timeout*time.Duration(cfg.EventService.MaxAttempts) + 10*time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port, "store", cfg.StoreDriver, "event_service", cfg.EventService.URL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("server", "err", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}

// openStore returns the repository selected by STORE_DRIVER and a function that releases it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.RegistrationRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory store; registrations are lost on restart")
		return memory.NewRegistrationRepository(), func() {}, nil

	case config.StoreDriverRedis:
		rdb, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewRegistrationRepository(rdb, redis.DefaultKeyPrefix), closer(logger, "redis", rdb), nil

	default:
		db, err := postgres.Open(ctx, cfg.DBUrl, cfg.DBMaxOpenConns)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return postgres.NewRegistrationRepository(db), closer(logger, "postgres", db), nil
	}
}

func closer(logger *slog.Logger, name string, c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			logger.Error("close store", "driver", name, "err", err)
		}
	}
}
