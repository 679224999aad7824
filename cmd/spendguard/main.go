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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/spendguard/internal/config"
	"github.com/kailas-cloud/spendguard/internal/db"
	"github.com/kailas-cloud/spendguard/internal/db/memory"
	dbRedis "github.com/kailas-cloud/spendguard/internal/db/redis"
	"github.com/kailas-cloud/spendguard/internal/keylock"
	logpkg "github.com/kailas-cloud/spendguard/internal/logger"
	"github.com/kailas-cloud/spendguard/internal/metrics"
	activityrepo "github.com/kailas-cloud/spendguard/internal/repository/activity"
	ledgerrepo "github.com/kailas-cloud/spendguard/internal/repository/ledger"
	chiTransport "github.com/kailas-cloud/spendguard/internal/transport/chi"
	accountuc "github.com/kailas-cloud/spendguard/internal/usecase/account"
	activityuc "github.com/kailas-cloud/spendguard/internal/usecase/activity"
	healthuc "github.com/kailas-cloud/spendguard/internal/usecase/health"
	ledgeruc "github.com/kailas-cloud/spendguard/internal/usecase/ledger"
	transferuc "github.com/kailas-cloud/spendguard/internal/usecase/transfer"
	"github.com/kailas-cloud/spendguard/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	ledgerCfg := cfg.Ledger.Domain()
	logger.Info("Starting spendguard API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Duration("period", ledgerCfg.Period),
		zap.String("update_mode", cfg.Ledger.UpdateMode),
		zap.Uint64("chain_id", ledgerCfg.ChainID),
	)

	store, err := openStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Registered explicitly, no init().
	metrics.RegisterLedgerMetrics()

	// One locker for every service that writes account state.
	locker := keylock.New()
	repo := ledgerrepo.New(store, cfg.Storage.KeyPrefix)

	activitySvc := activityuc.New(
		activityrepo.New(store, cfg.Storage.KeyPrefix, cfg.Activity.TTL()),
		logger.Named("activity"),
		cfg.Activity.Buffer,
	)
	activitySvc.Start()

	ledgerSvc := ledgeruc.New(repo, locker, ledgerCfg).
		WithUpdateMode(cfg.Ledger.Mode()).
		WithLogger(logger).
		WithEventSink(ledgeruc.MultiSink{
			ledgeruc.NewLogSink(logger.Named("ledger")),
			ledgeruc.MetricsSink{},
			activitySvc,
		})
	accountSvc := accountuc.New(repo, locker, ledgerCfg.Factory)
	transferSvc := transferuc.New(repo, ledgerSvc)
	healthSvc := healthuc.New(store).With("activity", activitySvc)

	server := chiTransport.NewServer(accountSvc, ledgerSvc, transferSvc, activitySvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Mount(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	// Handlers still running after a shutdown timeout have their counters dropped.
	activitySvc.Close()

	logger.Info("Server stopped gracefully")
}

// openStore creates the store for the configured driver. Valkey and Redis share the rueidis client.
func openStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case "valkey", "redis":
		return dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
	case "memory":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
