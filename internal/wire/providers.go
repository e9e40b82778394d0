package wire

import (
	"context"
	"log/slog"

	"github.com/google/wire"

	"github.com/sevigo/bounty-warden/internal/app"
	"github.com/sevigo/bounty-warden/internal/cache"
	"github.com/sevigo/bounty-warden/internal/config"
	"github.com/sevigo/bounty-warden/internal/core"
	"github.com/sevigo/bounty-warden/internal/credit"
	"github.com/sevigo/bounty-warden/internal/gateway"
	ghclient "github.com/sevigo/bounty-warden/internal/github"
	"github.com/sevigo/bounty-warden/internal/greptile"
	"github.com/sevigo/bounty-warden/internal/jobs"
	"github.com/sevigo/bounty-warden/internal/logger"
	"github.com/sevigo/bounty-warden/internal/payments"
	"github.com/sevigo/bounty-warden/internal/server"
	"github.com/sevigo/bounty-warden/internal/server/handler"
)

// AppSet provides every component of the server application.
var AppSet = wire.NewSet(
	config.LoadConfig,
	provideSlogLogger,
	provideCacheConfig,
	cache.New,
	app.NewStores,
	provideStore,
	provideMappingStore,
	provideGitHubClient,
	provideReviewClient,
	providePaymentsProvider,
	credit.NewCoordinator,
	gateway.New,
	wire.Bind(new(handler.PRService), new(*gateway.Gateway)),
	provideDispatcher,
	provideSweeper,
	server.NewServer,
	app.NewApp,
)

func provideSlogLogger(cfg *config.Config) *slog.Logger {
	l := logger.NewLogger(cfg.Logging, nil)
	slog.SetDefault(l)
	return l
}

func provideCacheConfig(cfg *config.Config) *config.CacheConfig {
	return &cfg.Cache
}

func provideStore(stores *app.Stores) core.Store {
	return stores.PRs
}

func provideMappingStore(stores *app.Stores) core.MappingStore {
	return stores.Mappings
}

func provideGitHubClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ghclient.Client, error) {
	return ghclient.NewClientFromConfig(ctx, cfg, logger)
}

// provideReviewClient returns nil when no review service key is configured;
// polls then rely on GitHub content alone.
func provideReviewClient(cfg *config.Config, c cache.Cache, logger *slog.Logger) greptile.Client {
	if cfg.Greptile.APIKey == "" {
		logger.Info("no GREPTILE_API_KEY configured, review service disabled")
		return nil
	}
	return greptile.NewClient(cfg, c, logger)
}

func providePaymentsProvider(cfg *config.Config, logger *slog.Logger) payments.Provider {
	return payments.NewStripeProvider(cfg.Payments.SecretKey, nil, logger)
}

func provideDispatcher(cfg *config.Config, gw *gateway.Gateway, logger *slog.Logger) core.JobDispatcher {
	return jobs.NewDispatcher(jobs.NewPollJob(gw, cfg.UpstreamTimeout, logger), cfg.MaxWorkers, logger)
}

func provideSweeper(cfg *config.Config, store core.Store, dispatcher core.JobDispatcher, logger *slog.Logger) *jobs.Sweeper {
	return jobs.NewSweeper(store, dispatcher, cfg.PollInterval, logger)
}
