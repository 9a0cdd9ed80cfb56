package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"huddle/pkg/errors"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	Telegram      TelegramConfig
	Store         StoreConfig
	Provider      ProviderConfig
	Cache         CacheConfig
	Refresh       RefreshConfig
	Live          LiveConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"huddle"`
	Version  string `envconfig:"APP_VERSION" default:"0.1.0"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type HTTPConfig struct {
	Port int `envconfig:"HTTP_PORT" default:"8080"`
}

type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	Debug    bool   `envconfig:"TELEGRAM_DEBUG" default:"false"`
}

type StoreConfig struct {
	Path string `envconfig:"REGISTRY_STORE_PATH" default:"leagues.json"`
	// When set, provider cookies are sealed with AES-256-GCM before
	// they touch disk. 32 bytes for AES-256; empty keeps the registry
	// plaintext.
	EncryptionKey string `envconfig:"REGISTRY_ENCRYPTION_KEY"`
}

// ProviderConfig configures the ESPN fantasy API client and the
// connection factory retry policy
type ProviderConfig struct {
	BaseURL     string        `envconfig:"ESPN_BASE_URL" default:"https://lm-api-reads.fantasy.espn.com/apis/v3/games/ffl"`
	HTTPTimeout time.Duration `envconfig:"ESPN_HTTP_TIMEOUT" default:"10s"`
	Retries     int           `envconfig:"ESPN_CONNECT_RETRIES" default:"3"`
	RetryDelay  time.Duration `envconfig:"ESPN_CONNECT_RETRY_DELAY" default:"2s"`
	// Requests per minute against the provider, shared by all callers
	RateLimit int `envconfig:"ESPN_RATE_LIMIT_PER_MINUTE" default:"60"`
}

type CacheConfig struct {
	// One bot-wide TTL; remote reads are far more expensive than a
	// slightly stale scoreboard
	TTL time.Duration `envconfig:"CACHE_TTL" default:"300s"`
}

// RefreshConfig tunes the background cache warmer
type RefreshConfig struct {
	Enabled  bool          `envconfig:"REFRESH_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"REFRESH_INTERVAL" default:"180s"`
	// Delay between per-league fetches within one pass
	Pacing time.Duration `envconfig:"REFRESH_PACING" default:"2s"`
	// Sleep after a failed pass before the loop resumes
	Cooldown time.Duration `envconfig:"REFRESH_COOLDOWN" default:"300s"`
}

// LiveConfig tunes live scoreboard poll sessions
type LiveConfig struct {
	PollInterval    time.Duration `envconfig:"LIVE_POLL_INTERVAL" default:"30s"`
	MaxConsecutive  int           `envconfig:"LIVE_MAX_CONSECUTIVE_ERRORS" default:"10"`
	IdleTimeout     time.Duration `envconfig:"LIVE_IDLE_TIMEOUT" default:"30m"`
	MatchupsPerPage int           `envconfig:"LIVE_MATCHUPS_PER_PAGE" default:"4"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
