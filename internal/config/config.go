// Package config loads application configuration from environment variables.
//
// WHY A CONFIG LIBRARY?
// Hand-rolled os.Getenv parsing grows defaults, type conversions, and error
// handling in every main.go that needs them. go-envconfig keeps all of that
// declarative: each field carries an `env:` tag naming the variable and an
// optional default, and envconfig.Process fills the struct in one call.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds every runtime setting of the application.
//
// The GitHub fields are optional — when ClientID or ClientSecret is empty,
// the OAuth routes are simply not registered (same behaviour for JWTSecret
// and the token API).
type Config struct {
	Port     int    `env:"PORT, default=8080"`
	Env      string `env:"ENV, default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// DBPath is the SQLite database file. ":memory:" gives an in-memory
	// database that disappears on shutdown — handy for local experiments.
	DBPath string `env:"DB_PATH, default=data/skeleton.db"`

	TemplateDir string `env:"TEMPLATE_DIR, default=web/templates"`
	StaticDir   string `env:"STATIC_DIR, default=web/static"`

	// SessionTTL bounds how long a login survives without activity.
	SessionTTL time.Duration `env:"SESSION_TTL, default=24h"`

	// JWTSecret signs API access tokens. Unset disables the token API.
	JWTSecret string `env:"JWT_SECRET"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `env:"GITHUB_CALLBACK_URL"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: reading environment: %w", err)
	}

	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	return &cfg, nil
}

// GitHubEnabled reports whether the optional GitHub sign-in is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}
