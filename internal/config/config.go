package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the connect relay.
type Config struct {
	BindAddr         string        `env:"APP_BIND_ADDR" envDefault:":3000"`
	ShutdownTimeout  time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	MetricsNamespace string        `env:"APP_METRICS_NAMESPACE" envDefault:"relay"`
	// Empty disables the metrics listener.
	MetricsAddr string `env:"APP_METRICS_ADDR"`
	LogLevel    string `env:"APP_LOG_LEVEL" envDefault:"info"`

	DailyBotsURL    string `env:"DAILY_BOTS_URL"`
	DailyBotsAPIKey string `env:"DAILY_BOTS_API_KEY"`
}

// Load reads environment variables and applies safe defaults.
// A missing DAILY_BOTS_URL is not an error here; the relay rejects
// every connect request instead.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.BindAddr = strings.TrimSpace(cfg.BindAddr)
	cfg.MetricsAddr = strings.TrimSpace(cfg.MetricsAddr)
	cfg.DailyBotsURL = strings.TrimSpace(cfg.DailyBotsURL)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if cfg.BindAddr == "" {
		return Config{}, fmt.Errorf("APP_BIND_ADDR must not be empty")
	}
	if cfg.ShutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be positive")
	}
	if cfg.MetricsAddr != "" && cfg.MetricsAddr == cfg.BindAddr {
		return Config{}, fmt.Errorf("APP_METRICS_ADDR must differ from APP_BIND_ADDR")
	}

	return cfg, nil
}

// DefaultEnvFile is read before Load unless APP_ENV_FILE points elsewhere.
const DefaultEnvFile = ".env.local"

// EnvFilePath returns the env file to apply before Load.
func EnvFilePath() string {
	if v := strings.TrimSpace(os.Getenv("APP_ENV_FILE")); v != "" {
		return v
	}
	return DefaultEnvFile
}

// LoadEnvFile applies key/value pairs from path on top of the process
// environment, overriding existing values. A missing file is ignored.
func LoadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Overload(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
