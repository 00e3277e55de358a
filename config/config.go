package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// HTTP surface
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`

	// Redis; the coefficient display cache is skipped when empty
	RedisAddr    string        `envconfig:"REDIS_ADDR"`
	OddsCacheTTL time.Duration `envconfig:"ODDS_CACHE_TTL" default:"30s"`

	// Ledger settings
	StartingBalance decimal.Decimal `envconfig:"STARTING_BALANCE" default:"1000.00"`
	BetLimit        decimal.Decimal `envconfig:"BET_LIMIT" default:"1000"`

	// Odds settings
	OddsSmoothing decimal.Decimal `envconfig:"ODDS_SMOOTHING" default:"200"`
	OddsMin       decimal.Decimal `envconfig:"ODDS_MIN" default:"1.10"`
	OddsMax       decimal.Decimal `envconfig:"ODDS_MAX" default:"3.00"`

	// Settlement sweep schedule (cron spec)
	SettleSweepSpec string `envconfig:"SETTLE_SWEEP_SPEC" default:"*/5 * * * *"`

	// Environment: "development", "production" or "test"
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if cfg.Environment != "test" {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	if cfg.OddsMin.GreaterThan(cfg.OddsMax) {
		return nil, fmt.Errorf("ODDS_MIN %s exceeds ODDS_MAX %s", cfg.OddsMin, cfg.OddsMax)
	}
	if !cfg.OddsSmoothing.IsPositive() {
		return nil, fmt.Errorf("ODDS_SMOOTHING must be positive")
	}

	return &cfg, nil
}
