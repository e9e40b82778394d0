// Package app initializes and orchestrates the main components of the Bounty Warden application.
// It wires together the configuration, stores, pipeline and server.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sevigo/bounty-warden/internal/config"
	"github.com/sevigo/bounty-warden/internal/core"
	"github.com/sevigo/bounty-warden/internal/db"
	"github.com/sevigo/bounty-warden/internal/jobs"
	"github.com/sevigo/bounty-warden/internal/server"
	"github.com/sevigo/bounty-warden/internal/storage"
)

// Stores bundles the lifecycle and account mapping stores of one backend.
type Stores struct {
	PRs      core.Store
	Mappings core.MappingStore
}

// NewStores opens the backend selected by STORE_BACKEND.
func NewStores(cfg *config.Config, logger *slog.Logger) (*Stores, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		conn, cleanup, err := db.NewDatabase(&cfg.Database, logger)
		if err != nil {
			return nil, func() {}, err
		}
		return &Stores{
			PRs:      storage.NewPostgresStore(conn.DB),
			Mappings: storage.NewPostgresMappingStore(conn.DB),
		}, cleanup, nil
	default:
		logger.Warn("using in-memory store; records are lost on restart")
		return &Stores{
			PRs:      storage.NewMemoryStore(),
			Mappings: storage.NewMemoryMappingStore(),
		}, func() {}, nil
	}
}

// App holds the main application components.
type App struct {
	cfg        *config.Config
	server     *server.Server
	stores     *Stores
	dispatcher core.JobDispatcher
	sweeper    *jobs.Sweeper
	logger     *slog.Logger
}

// NewApp sets up the application with all its dependencies.
func NewApp(
	cfg *config.Config,
	stores *Stores,
	dispatcher core.JobDispatcher,
	sweeper *jobs.Sweeper,
	srv *server.Server,
	logger *slog.Logger,
) *App {
	return &App{
		cfg:        cfg,
		server:     srv,
		stores:     stores,
		dispatcher: dispatcher,
		sweeper:    sweeper,
		logger:     logger,
	}
}

// Start seeds configured mappings, starts the poll sweeper and runs the HTTP
// server until it stops.
func (a *App) Start(ctx context.Context) error {
	a.logger.Info("starting Bounty Warden",
		"environment", a.cfg.Environment,
		"server_port", a.cfg.Server.Port,
		"store", a.cfg.StoreBackend,
		"auto_credit", a.cfg.Credit.Auto,
		"max_workers", a.cfg.MaxWorkers)

	if a.cfg.MappingsFile != "" {
		mappings, err := config.LoadMappings(a.cfg.MappingsFile)
		if err != nil {
			return err
		}
		n, err := storage.SeedMappings(ctx, a.stores.Mappings, mappings)
		if err != nil {
			return fmt.Errorf("failed to seed account mappings: %w", err)
		}
		a.logger.Info("seeded account mappings", "count", n, "file", a.cfg.MappingsFile)
	}

	go a.sweeper.Run(ctx)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly.
func (a *App) Stop(ctx context.Context) error {
	a.logger.Info("shutting down Bounty Warden services")

	// Stop the HTTP server first to prevent new incoming requests.
	serverErr := a.server.Stop(ctx)
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	// In-flight polls finish before the stores are closed by the caller's cleanup.
	a.dispatcher.Stop()

	if serverErr != nil {
		return serverErr
	}
	a.logger.Info("Bounty Warden stopped successfully")
	return nil
}
