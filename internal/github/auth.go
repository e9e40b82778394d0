package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/sevigo/bounty-warden/internal/config"
)

// NewClientFromConfig picks an authentication mode from cfg: a GitHub App
// installation when an app and installation id are configured, a personal
// access token otherwise, and anonymous access as a last resort.
func NewClientFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Client, error) {
	var (
		client *github.Client
		err    error
	)
	switch {
	case cfg.GitHub.AppID != 0 && cfg.GitHub.InstallationID != 0:
		client, err = newInstallationClient(cfg.GitHub, logger)
		if err != nil {
			return nil, err
		}
	case cfg.GitHub.Token != "":
		logger.Info("using GitHub personal access token")
		client = newPATClient(ctx, cfg.GitHub.Token)
	default:
		logger.Warn("no GitHub credentials configured, using unauthenticated client")
		client = github.NewClient(nil)
	}

	if cfg.GitHub.APIBaseURL != "" {
		client, err = client.WithEnterpriseURLs(cfg.GitHub.APIBaseURL, cfg.GitHub.APIBaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GITHUB_API_URL: %w", err)
		}
	}
	return NewGitHubClient(client, logger), nil
}

// NewPATClient creates a new GitHub client authenticated with a Personal Access Token (PAT).
// This is useful for CLI tools or local development where an App installation is not available.
func NewPATClient(ctx context.Context, token string, logger *slog.Logger) Client {
	return NewGitHubClient(newPATClient(ctx, token), logger)
}

func newPATClient(ctx context.Context, token string) *github.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(oauth2.NewClient(ctx, ts))
}

// newInstallationClient authenticates as a GitHub App installation. The
// transport refreshes installation tokens on its own.
func newInstallationClient(cfg config.GitHubConfig, logger *slog.Logger) (*github.Client, error) {
	logger.Info("creating GitHub installation client", "app_id", cfg.AppID, "installation_id", cfg.InstallationID)

	privateKey, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key from %s: %w", cfg.PrivateKeyPath, err)
	}

	tr, err := ghinstallation.New(http.DefaultTransport, cfg.AppID, cfg.InstallationID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub App installation transport: %w", err)
	}
	return github.NewClient(&http.Client{Transport: tr}), nil
}
