// Package cli holds the start-up steps shared by the solarbooks binaries.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"solarbooks/internal/backend"
	"solarbooks/internal/config"
	"solarbooks/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and runs Validate plus any extra
// checks, reporting every failure at once.
func LoadAndValidateConfig(checks ...func(*config.Config) error) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	errs := []error{cfg.Validate()}
	for _, check := range checks {
		errs = append(errs, check(cfg))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the JSON logger for a binary and makes it the default.
func SetupLogger(level, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: component,
		JSON:      true,
	})
	log.SetDefault(logger)
	return logger
}

// Fatal logs msg with err and exits. It is meant for start-up failures only.
func Fatal(logger *log.Logger, msg string, err error, args ...any) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger.Error(msg, append([]any{log.FieldError, err}, args...)...)
	os.Exit(1)
}

// OpenBackend opens the configured store. The publisher is only opened when
// withEvents is set; otherwise Result.Publisher is a no-op.
func OpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config, withEvents bool) (*backend.Result, backend.Config, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, bc, fmt.Errorf("backend config: %w", err)
	}
	if !withEvents {
		bc.Events = backend.NoEvents
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).Create(ctx, bc)
	if err != nil {
		return nil, bc, fmt.Errorf("open %s backend: %w", bc.Store, err)
	}
	return res, bc, nil
}

// GracefulShutdown returns a context cancelled on SIGINT/SIGTERM. cleanup runs
// with a deadline of timeout before the context is cancelled; done is closed
// once cleanup has returned.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, context.CancelFunc, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
			logger.Info("Shutdown requested")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()

		if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
	}()

	return ctx, cancel, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
