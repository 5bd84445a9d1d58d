package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime settings, loaded from the environment.
type Config struct {
	Port         string        `env:"LOYALTY_PORT" envDefault:"8080"`
	DBPath       string        `env:"LOYALTY_DB_PATH" envDefault:"loyalty.db"`
	LogLevel     string        `env:"LOYALTY_LOG_LEVEL" envDefault:"info"`
	StoreTimeout time.Duration `env:"LOYALTY_STORE_TIMEOUT" envDefault:"5s"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
