package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/bounty-warden/internal/logger"
)

// Execution environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds the application's configuration values.
type Config struct {
	Environment     string
	Server          ServerConfig
	Logging         logger.Config
	GitHub          GitHubConfig
	Greptile        GreptileConfig
	Payments        PaymentsConfig
	Credit          CreditConfig
	Database        DBConfig
	Cache           CacheConfig
	StoreBackend    string
	MappingsFile    string
	PendingTimeout  time.Duration
	PollInterval    time.Duration
	MaxWorkers      int
	UpstreamTimeout time.Duration
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port string
}

// GitHubConfig configures webhook verification and API access.
type GitHubConfig struct {
	WebhookSecret  string
	Token          string
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
	BotLogin       string
	APIBaseURL     string
}

// GreptileConfig configures the external review service.
type GreptileConfig struct {
	APIKey         string
	APIURL         string
	RequestReviews bool
	Branch         string
}

// PaymentsConfig configures the payments provider.
type PaymentsConfig struct {
	SecretKey           string
	Currency            string
	FallbackEmailDomain string
}

// CreditConfig configures the crediting policy.
type CreditConfig struct {
	Amount int64
	Auto   bool
}

// DBConfig configures the postgres connection.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// CacheConfig configures the review-service response cache.
type CacheConfig struct {
	Backend   string
	TTL       time.Duration
	RedisAddr string
	RedisPass string
	RedisDB   int
}

// Strict reports whether webhook signatures must verify.
func (c *Config) Strict() bool {
	return c.Environment == EnvProduction
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates required fields.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			slog.Error("failed to read config file", "error", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_OUTPUT", "stdout")
	v.SetDefault("GITHUB_PRIVATE_KEY_PATH", "keys/bounty-warden.private-key.pem")
	v.SetDefault("REVIEW_BOT_LOGIN", "greptile-apps[bot]")
	v.SetDefault("GREPTILE_API_URL", "https://api.greptile.com/v2")
	v.SetDefault("GREPTILE_REQUEST_REVIEWS", false)
	v.SetDefault("GREPTILE_BRANCH", "main")
	v.SetDefault("CREDIT_AMOUNT", 500)
	v.SetDefault("CREDIT_CURRENCY", "usd")
	v.SetDefault("AUTO_CREDIT", true)
	v.SetDefault("FALLBACK_EMAIL_DOMAIN", "example.dev")
	v.SetDefault("STORE_BACKEND", "memory")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "warden")
	v.SetDefault("DB_NAME", "bounty_warden")
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")
	v.SetDefault("CACHE_BACKEND", "memory")
	v.SetDefault("CACHE_TTL", "1h")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("PENDING_TIMEOUT", "0s")
	v.SetDefault("POLL_INTERVAL", "0s")
	v.SetDefault("MAX_WORKERS", 5)
	v.SetDefault("UPSTREAM_TIMEOUT", "30s")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Environment: strings.ToLower(v.GetString("ENVIRONMENT")),
		Server:      ServerConfig{Port: v.GetString("SERVER_PORT")},
		Logging: logger.Config{
			Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
			Format: v.GetString("LOG_FORMAT"),
			Output: v.GetString("LOG_OUTPUT"),
		},
		GitHub: GitHubConfig{
			WebhookSecret:  v.GetString("GITHUB_WEBHOOK_SECRET"),
			Token:          v.GetString("GITHUB_TOKEN"),
			AppID:          v.GetInt64("GITHUB_APP_ID"),
			InstallationID: v.GetInt64("GITHUB_INSTALLATION_ID"),
			PrivateKeyPath: v.GetString("GITHUB_PRIVATE_KEY_PATH"),
			BotLogin:       v.GetString("REVIEW_BOT_LOGIN"),
			APIBaseURL:     v.GetString("GITHUB_API_URL"),
		},
		Greptile: GreptileConfig{
			APIKey:         v.GetString("GREPTILE_API_KEY"),
			APIURL:         strings.TrimRight(v.GetString("GREPTILE_API_URL"), "/"),
			RequestReviews: v.GetBool("GREPTILE_REQUEST_REVIEWS"),
			Branch:         v.GetString("GREPTILE_BRANCH"),
		},
		Payments: PaymentsConfig{
			SecretKey:           v.GetString("STRIPE_SECRET_KEY"),
			Currency:            strings.ToLower(v.GetString("CREDIT_CURRENCY")),
			FallbackEmailDomain: v.GetString("FALLBACK_EMAIL_DOMAIN"),
		},
		Credit: CreditConfig{
			Amount: v.GetInt64("CREDIT_AMOUNT"),
			Auto:   v.GetBool("AUTO_CREDIT"),
		},
		Database: DBConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			Username:        v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Database:        v.GetString("DB_NAME"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
		Cache: CacheConfig{
			Backend:   strings.ToLower(v.GetString("CACHE_BACKEND")),
			TTL:       v.GetDuration("CACHE_TTL"),
			RedisAddr: v.GetString("REDIS_ADDR"),
			RedisPass: v.GetString("REDIS_PASSWORD"),
			RedisDB:   v.GetInt("REDIS_DB"),
		},
		StoreBackend:    strings.ToLower(v.GetString("STORE_BACKEND")),
		MappingsFile:    v.GetString("MAPPINGS_FILE"),
		PendingTimeout:  v.GetDuration("PENDING_TIMEOUT"),
		PollInterval:    v.GetDuration("POLL_INTERVAL"),
		MaxWorkers:      v.GetInt("MAX_WORKERS"),
		UpstreamTimeout: v.GetDuration("UPSTREAM_TIMEOUT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and enumerations.
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("ENVIRONMENT must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Environment)
	}
	if c.Strict() && c.GitHub.WebhookSecret == "" {
		return fmt.Errorf("GITHUB_WEBHOOK_SECRET must be set in production")
	}
	if c.GitHub.BotLogin == "" {
		return fmt.Errorf("REVIEW_BOT_LOGIN must be set")
	}
	if c.Credit.Amount <= 0 {
		return fmt.Errorf("CREDIT_AMOUNT must be positive, got %d", c.Credit.Amount)
	}
	switch c.StoreBackend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unsupported STORE_BACKEND: %s", c.StoreBackend)
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported CACHE_BACKEND: %s", c.Cache.Backend)
	}
	if c.PendingTimeout < 0 || c.PollInterval < 0 {
		return fmt.Errorf("PENDING_TIMEOUT and POLL_INTERVAL must not be negative")
	}
	if c.Greptile.RequestReviews && c.Greptile.APIKey == "" {
		return fmt.Errorf("GREPTILE_API_KEY must be set when GREPTILE_REQUEST_REVIEWS is enabled")
	}
	return nil
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory") ||
		strings.Contains(err.Error(), "cannot find the file")
}
