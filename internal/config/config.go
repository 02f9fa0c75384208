package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	Port            string        `env:"PORT" default:"8080"`
	DatabaseDriver  string        `env:"DATABASE_DRIVER" default:"sqlite"`
	DatabaseURL     string        `env:"DATABASE_URL" default:"physiovr.db"`
	CatalogPath     string        `env:"CATALOG_PATH"`
	StaticDir       string        `env:"STATIC_DIR" default:"./static"`
	LogLevel        string        `env:"LOG_LEVEL" default:"info"`
	LogFormat       string        `env:"LOG_FORMAT" default:"text"`
	DevUser         string        `env:"DEV_USER"`
	CountdownSecs   int           `env:"COUNTDOWN_SECONDS" default:"5"`
	StepUnit        time.Duration `env:"STEP_UNIT" default:"1s"`
	IdleTTL         time.Duration `env:"IDLE_TTL" default:"1h"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" default:"5m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for driver %s", c.DatabaseDriver)
		}
	case "memory":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite, postgres or memory, got %q", c.DatabaseDriver)
	}

	if c.CountdownSecs < 0 {
		return fmt.Errorf("COUNTDOWN_SECONDS must not be negative, got %d", c.CountdownSecs)
	}
	if c.StepUnit <= 0 {
		return fmt.Errorf("STEP_UNIT must be positive, got %s", c.StepUnit)
	}
	if c.IdleTTL <= 0 {
		return fmt.Errorf("IDLE_TTL must be positive, got %s", c.IdleTTL)
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL must be positive, got %s", c.CleanupInterval)
	}

	return nil
}

// Countdown converts the configured seconds to the runner convention, where
// zero selects the default and a negative value disables the countdown.
func (c *Config) Countdown() int {
	if c.CountdownSecs == 0 {
		return -1
	}
	return c.CountdownSecs
}
