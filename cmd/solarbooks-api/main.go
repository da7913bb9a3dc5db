package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"solarbooks/internal/cache"
	"solarbooks/internal/cli"
	apphttp "solarbooks/internal/http"
	"solarbooks/internal/log"
	"solarbooks/internal/obs"
	"solarbooks/internal/services"
	"solarbooks/internal/statement"
	"solarbooks/internal/storage"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(nil, "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentApp)

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	res, bc, err := cli.OpenBackend(startCtx, logger, cfg, true)
	startCancel()
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}

	metrics := obs.New()
	metrics.SetBuildInfo(version, commit)

	catalogs := &services.FileCatalog{Path: cfg.CatalogFile, TTL: cfg.CatalogReload}
	if _, err := catalogs.Catalog(context.Background()); err != nil {
		cli.Fatal(logger, "Failed to load catalog", err, "path", cfg.CatalogFile)
	}

	ledger := services.NewLedgerService(res.Store, catalogs, res.Publisher, services.WithRecorder(metrics))

	statementCache := cache.NewLRU[statement.Statement](cfg.StatementCacheSize, cfg.StatementCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(statementCache)
	cacheManager.StartCleanup(cfg.StatementCacheTTL)

	srv := apphttp.NewServer(":"+cfg.Port, ledger, services.NewStatementCache(ledger, statementCache), apphttp.Options{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Logger:         logger,
		Metrics:        metrics,
		Ready: func(ctx context.Context) error {
			if _, err := res.Store.Get(ctx, "readiness-probe"); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			return nil
		},
	})

	ctx, cancel, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if err := ledger.Close(); err != nil {
			logger.Error("Failed to close ledger resources", log.FieldError, err)
		}
	})

	logger.Info("Starting solarbooks API",
		"port", cfg.Port,
		"store", bc.Store,
		"events", bc.Events,
		"version", version)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		cancel()
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
