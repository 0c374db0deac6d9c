package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the engine process configuration, loaded from the
// environment with an optional .env overlay for local development
type Config struct {
	// RedisAddr is the address of the replicated store
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	// RedisPassword authenticates against the store
	RedisPassword string `env:"REDIS_PASSWORD"`

	// RedisDB selects the store database
	RedisDB int `env:"REDIS_DB" envDefault:"0"`

	// ListenAddr is where the websocket bridge listens
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// AllowedOrigins restricts which origins may open the bridge
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// LogLevel sets the zerolog level
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// RandomSeed pins the shuffle seed, for reproducing sessions. Zero
	// means seed from the wall clock.
	RandomSeed int64 `env:"RANDOM_SEED" envDefault:"0"`
}

// Load reads the configuration from the environment
func Load() (*Config, error) {
	// Missing .env is the normal case outside local development
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg, nil
}
