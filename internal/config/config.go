// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every runtime setting of the service.
type Config struct {
	Addr            string        `env:"COMMUNITY_AUTH_ADDR" envDefault:":8080"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	CommunityName   string        `env:"COMMUNITY_NAME" envDefault:"Community"`
	JWTSecret       string        `env:"JWT_SECRET_KEY"`
	AccessTokenTTL  time.Duration `env:"JWT_ACCESS_TTL" envDefault:"168h"`
	ServiceToken    string        `env:"SERVICE_TOKEN"`
	AdminEmails     []string      `env:"ADMIN_EMAILS" envSeparator:","`
	IDPBaseURL      string        `env:"IDP_BASE_URL"`
	IDPSecretKey    string        `env:"IDP_SECRET_KEY"`
	IDPTimeout      time.Duration `env:"IDP_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.AdminEmails = trimNonEmpty(cfg.AdminEmails)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("config: JWT_SECRET_KEY is required")
	}
	if c.AccessTokenTTL <= 0 {
		return errors.New("config: JWT_ACCESS_TTL must be positive")
	}
	return nil
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
