// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"
	"fmt"

	"github.com/sevigo/bounty-warden/internal/app"
	"github.com/sevigo/bounty-warden/internal/cache"
	"github.com/sevigo/bounty-warden/internal/config"
	"github.com/sevigo/bounty-warden/internal/credit"
	"github.com/sevigo/bounty-warden/internal/gateway"
	"github.com/sevigo/bounty-warden/internal/server"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	slogLogger := provideSlogLogger(cfg)

	// Review service cache
	cacheConfig := provideCacheConfig(cfg)
	reviewCache, cacheCleanup, err := cache.New(cacheConfig, slogLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cache: %w", err)
	}

	// Stores
	stores, storesCleanup, err := app.NewStores(cfg, slogLogger)
	if err != nil {
		cacheCleanup()
		return nil, nil, fmt.Errorf("failed to open stores: %w", err)
	}
	store := provideStore(stores)
	mappingStore := provideMappingStore(stores)

	// Upstream clients
	githubClient, err := provideGitHubClient(ctx, cfg, slogLogger)
	if err != nil {
		storesCleanup()
		cacheCleanup()
		return nil, nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	reviewClient := provideReviewClient(cfg, reviewCache, slogLogger)
	paymentsProvider := providePaymentsProvider(cfg, slogLogger)

	// Pipeline
	coordinator := credit.NewCoordinator(cfg, store, mappingStore, paymentsProvider, slogLogger)
	gw := gateway.New(cfg, store, githubClient, reviewClient, coordinator, slogLogger)

	// Background polling
	dispatcher := provideDispatcher(cfg, gw, slogLogger)
	sweeper := provideSweeper(cfg, store, dispatcher, slogLogger)

	// Server
	srv := server.NewServer(cfg, gw, mappingStore, slogLogger)

	// App
	application := app.NewApp(cfg, stores, dispatcher, sweeper, srv, slogLogger)

	cleanup := func() {
		storesCleanup()
		cacheCleanup()
	}

	return application, cleanup, nil
}
