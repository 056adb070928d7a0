// Package config loads all process configuration from the environment in one
// place. Nothing else in the codebase reads os.Getenv — main loads a Config
// once and injects the relevant pieces into each component, which keeps the
// dependencies visible and lets tests substitute values directly.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable the service reads at startup.
//
// Both signing secrets are required: a missing secret is a deployment
// mistake, and the process must refuse to start rather than fail on the
// first request that needs a token.
type Config struct {
	Port   int    `env:"PORT" envDefault:"3001"`
	DBPath string `env:"DB_PATH" envDefault:"data/users.db"`

	// The access and refresh secrets must differ so a leaked access-signing
	// key cannot be used to forge refresh tokens. TokenService enforces this.
	JWTAccessSecret  string `env:"JWT_SECRET,required,notEmpty"`
	JWTRefreshSecret string `env:"JWT_REFRESH_SECRET,required,notEmpty"`

	AccessTokenTTL  time.Duration `env:"JWT_EXPIRES_IN" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"JWT_REFRESH_EXPIRES_IN" envDefault:"168h"`

	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	return &cfg, nil
}
