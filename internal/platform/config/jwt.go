package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// JWTConfig configures JWT verification against a JWKS endpoint. Used when AUTH_MODE=jwt.
type JWTConfig struct {
	Issuer   string `env:"JWT_ISSUER,required,notEmpty"`
	Audience string `env:"JWT_AUDIENCE,required,notEmpty"`
	JWKSURL  string `env:"JWT_JWKS_URL,required,notEmpty"`

	ClockSkew time.Duration `env:"JWT_CLOCK_SKEW" envDefault:"30s"`
	// Refresh periodically to pick up key rotation even if an old key is still cached.
	JWKSRefreshInterval time.Duration `env:"JWT_JWKS_REFRESH_INTERVAL" envDefault:"5m"`
	// Bounds refresh frequency when a token presents an unknown kid.
	JWKSMinRefreshInterval time.Duration `env:"JWT_JWKS_MIN_REFRESH_INTERVAL" envDefault:"10s"`

	HTTPTimeout time.Duration `env:"JWT_HTTP_TIMEOUT" envDefault:"5s"`
}

func LoadJWTConfigFromEnv() (JWTConfig, error) {
	var cfg JWTConfig
	if err := env.Parse(&cfg); err != nil {
		return JWTConfig{}, fmt.Errorf("jwt config: %w", err)
	}
	return cfg, nil
}
