// Package main implements the storefront service: catalog browsing, the
// persisted cart and favorites, the admin gate and order submission.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "net/http/pprof"

	"github.com/saddiabu4/telegram-market/internal/app"
	"github.com/saddiabu4/telegram-market/internal/config"
	"github.com/saddiabu4/telegram-market/pkg/bootstrap"
	"github.com/saddiabu4/telegram-market/pkg/config/configloader"
	"github.com/saddiabu4/telegram-market/pkg/telemetry"
	"golang.org/x/sync/errgroup"
)

const serviceName = "storefront"

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run initializes the application, restores persisted state, and starts the
// HTTP and pprof servers.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to set up tracer provider: %w", err)
	}

	slots, closeStorage, err := app.SetupStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to set up state storage: %w", err)
	}
	defer closeStorage()

	submitter, closeSubmitter, err := app.SetupSubmitter(cfg.Bridge, logger)
	if err != nil {
		return fmt.Errorf("failed to set up order submitter: %w", err)
	}
	defer closeSubmitter()

	deps := app.SetupDependencies(ctx, cfg, slots, submitter, logger)
	httpServer := app.SetupHttpServer(deps, cfg)
	pprofServer := &http.Server{
		Addr: cfg.PProf.Addr,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	// gracefully shutdown tracer provider on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down tracer provider")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown tracer provider: %v", err)
		}
		return nil
	})

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		// gracefully shutdown pprof server on context cancellation
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}
