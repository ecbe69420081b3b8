// Package config provides a minimal config loader for the foodbridge server.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds service configuration.
type Config struct {
	Port         string        `env:"FOODBRIDGE_PORT" envDefault:"8080"`
	DBPath       string        `env:"FOODBRIDGE_DB_PATH" envDefault:"data/foodbridge.db"`
	QueryTimeout time.Duration `env:"FOODBRIDGE_QUERY_TIMEOUT" envDefault:"5s"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
