package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/walletvault/walletvault/pkg/api"
	"github.com/walletvault/walletvault/pkg/auth"
	"github.com/walletvault/walletvault/pkg/config"
	"github.com/walletvault/walletvault/pkg/httputil"
	"github.com/walletvault/walletvault/pkg/observability"
	"github.com/walletvault/walletvault/pkg/storage/postgres"
	redisstore "github.com/walletvault/walletvault/pkg/storage/redis"
	"github.com/walletvault/walletvault/pkg/storage/sqlite"
	"github.com/walletvault/walletvault/pkg/wallet"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "walletvault: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	// Storage backend. Both backends serve users, revocations, and
	// wallets from the same database.
	var (
		users       auth.UserDirectory
		revocations auth.RevocationStore
		wallets     wallet.Store
		db          *sql.DB
	)

	switch cfg.Storage.Type {
	case "postgres":
		db, err = postgres.Connect(cfg.Storage)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(context.Background(), db); err != nil {
			return err
		}
		var opts []postgres.StoreOption
		if metrics != nil {
			opts = append(opts, postgres.WithMetrics(metrics))
		}
		store := postgres.NewStore(db, opts...)
		users, revocations, wallets = store, store, store
	case "sqlite":
		var opts []sqlite.StoreOption
		if metrics != nil {
			opts = append(opts, sqlite.WithMetrics(metrics))
		}
		store, err := sqlite.Open(cfg.Storage.SQLitePath, opts...)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		defer store.Close()
		db = store.DB()
		users, revocations, wallets = store, store, store
	}

	// Optional Redis revocation store. When configured it replaces the
	// SQL-backed one; TTLs make the periodic sweep unnecessary.
	var redisClient *goredis.Client
	if cfg.Storage.RedisURL != "" {
		redisClient, err = redisstore.Connect(context.Background(), cfg.Storage)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		var opts []redisstore.StoreOption
		if metrics != nil {
			opts = append(opts, redisstore.WithMetrics(metrics))
		}
		revocations = redisstore.NewRevocationStore(redisClient, opts...)
		logger.Info("using redis revocation store")
	}

	authService := auth.NewService(
		users,
		revocations,
		auth.NewBcryptHasher(auth.WithCost(cfg.Auth.BcryptCost)),
		auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		auth.WithLogger(logger),
		auth.WithMetrics(metrics),
		auth.WithHashConcurrency(cfg.Auth.HashConcurrency),
	)

	serverOpts := []api.ServerOption{api.WithLogger(logger)}
	if metrics != nil {
		serverOpts = append(serverOpts, api.WithMetrics(metrics))
	}
	apiServer := api.NewServer(authService, wallets, serverOpts...)

	handler := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.RecoveryMiddleware(logger),
		httputil.LoggingMiddleware(logger, metrics),
		httputil.CORSMiddleware([]string{"*"}),
		httputil.MaxBytesMiddleware(1<<20),
	)(apiServer)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port for probes.
	healthChecker := observability.NewHealthChecker(db, redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", healthChecker.Liveness)
	healthMux.HandleFunc("/readyz", healthChecker.Readiness)
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", observability.Handler(registry))
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	// Periodic sweep of expired revocation entries. With Redis the TTLs
	// already take care of it and the sweep is a cheap no-op.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Auth.RevocationSweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		purged, err := authService.PurgeExpiredTokens(ctx)
		if err != nil {
			logger.WithError(err).Error("revocation sweep failed")
			return
		}
		if purged > 0 {
			logger.WithField("purged", purged).Info("revocation sweep completed")
		}
	}); err != nil {
		return fmt.Errorf("schedule revocation sweep: %w", err)
	}
	scheduler.Start()

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		select {
		case <-scheduler.Stop().Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	go func() {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	go func() {
		logger.WithFields(map[string]interface{}{
			"addr":    server.Addr,
			"storage": cfg.Storage.Type,
		}).Info("walletvault listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("server failed")
		}
	}()

	return shutdown.WaitForShutdown()
}
