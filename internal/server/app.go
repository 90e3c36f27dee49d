// Package server assembles the application: it opens the database, runs
// migrations, wires the services together and serves the HTTP API until a
// shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/p2pvps/marketd/internal/logging"
	"github.com/p2pvps/marketd/internal/server/config"
	"github.com/p2pvps/marketd/internal/server/httpapi"
	"github.com/p2pvps/marketd/internal/server/marketplace"
	"github.com/p2pvps/marketd/internal/server/repositories/repomanager"
	"github.com/p2pvps/marketd/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	api    *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	market := marketplace.NewOpenBazaarClient(cfg.MarketplaceURL, cfg.MarketplaceUser, cfg.MarketplacePassword, logger)
	images := services.NewImageStore(cfg)

	pool := services.NewPortPool(db, repos, cfg, logger)
	rotator := services.NewCredentialRotator(db, repos, pool, logger)
	listings := services.NewListingManager(db, repos, market, images, cfg, logger)
	registry := services.NewLeaseRegistry(db, repos, logger)
	orch := services.NewLeaseOrchestrator(db, repos, pool, rotator, listings, registry, cfg, logger)
	users := services.NewUserService(db, repos, cfg, logger)
	catalog := services.NewDeviceCatalog(db, repos, logger)

	api := httpapi.NewServer(users, catalog, orch, pool, registry, listings, images, logger)

	return &App{config: cfg, logger: logger, db: db, api: api}, nil
}

// Run serves the HTTP API until the context is cancelled or a SIGINT/SIGTERM
// arrives, then shuts down gracefully.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sigs
		cancel()
	}()

	e := app.api.Router(app.config)

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "starting HTTP server", "addr", app.config.EndpointAddrHTTP)
		errCh <- e.Start(app.config.EndpointAddrHTTP)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "shutdown error", "error", err)
	}

	return app.db.Close()
}
