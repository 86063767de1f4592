// Package app contains the application setup for the storefront service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/saddiabu4/telegram-market/internal/cart"
	"github.com/saddiabu4/telegram-market/internal/catalog"
	"github.com/saddiabu4/telegram-market/internal/config"
	"github.com/saddiabu4/telegram-market/internal/favorites"
	"github.com/saddiabu4/telegram-market/internal/order"
	"github.com/saddiabu4/telegram-market/internal/session"
	"github.com/saddiabu4/telegram-market/internal/storage"
	"github.com/saddiabu4/telegram-market/internal/transport/rest"
	"github.com/saddiabu4/telegram-market/pkg/bootstrap"
	pkgconfig "github.com/saddiabu4/telegram-market/pkg/config"
	pkgnats "github.com/saddiabu4/telegram-market/pkg/nats"
	"github.com/saddiabu4/telegram-market/pkg/server"
)

type Dependencies struct {
	Catalog    catalog.Catalog
	Cart       *cart.Store
	Favorites  *favorites.Set
	Gate       *session.Gate
	Submitter  order.Submitter
	UploadsURL string
	Logger     *slog.Logger
}

// SetupStorage builds the slot store for the configured driver.
// The returned cleanup releases the driver's resources and is safe to defer.
func SetupStorage(ctx context.Context, cfg pkgconfig.StorageConfig, logger *slog.Logger) (storage.Store, func(), error) {
	switch cfg.Driver {
	case pkgconfig.StorageDriverFile:
		store, err := storage.NewFileStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case pkgconfig.StorageDriverPostgres:
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Successfully connected to the database")
		return storage.NewPgStore(dbPool), dbPool.Close, nil
	case pkgconfig.StorageDriverRedis:
		store, err := storage.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}

// SetupSubmitter selects the order submission strategy once at startup:
// the host bridge channel when configured, the local mock otherwise.
func SetupSubmitter(cfg config.BridgeConfig, logger *slog.Logger) (order.Submitter, func(), error) {
	if !cfg.Enabled {
		logger.Warn("No order bridge configured, using mock submitter (non-production)")
		return order.NewMockSubmitter(logger), func() {}, nil
	}
	nc, err := pkgnats.NewClient(cfg.NATS.Url, cfg.NATS.Timeout)
	if err != nil {
		return nil, nil, err
	}
	js, err := pkgnats.NewJetStreamContext(nc)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Connected to order bridge", slog.String("url", cfg.NATS.Url))
	return order.NewBridgeSubmitter(pkgnats.NewNatsPublisher(js), logger), nc.Close, nil
}

// SetupDependencies restores persisted state and wires the storefront services.
func SetupDependencies(ctx context.Context, cfg *config.Config, slots storage.Store, submitter order.Submitter, logger *slog.Logger) *Dependencies {
	gateway := catalog.NewHTTPGateway(cfg.Backend.APIURL, cfg.Backend.Timeout, cfg.Backend.Breaker, logger)

	return &Dependencies{
		Catalog:    catalog.NewService(gateway, logger),
		Cart:       cart.NewStore(ctx, slots, logger),
		Favorites:  favorites.NewSet(ctx, slots, logger),
		Gate:       session.NewGate(ctx, cfg.Backend.APIURL, cfg.Backend.Timeout, slots, logger),
		Submitter:  submitter,
		UploadsURL: cfg.Backend.UploadsURL,
		Logger:     logger,
	}
}

// SetupHttpHandler initializes the HTTP routes for the storefront.
// Used by handler tests to run the full middleware chain in-process.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the storefront.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(deps.Catalog, deps.Cart, deps.Favorites, deps.Gate, deps.Submitter, deps.UploadsURL, deps.Logger)
	handler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures an HTTP server for the storefront.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}
