package config

import (
	"fmt"
	"time"

	"github.com/bloomforlungs/bloom/db"
	"github.com/bloomforlungs/bloom/internal/types"
	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port string `env:"PORT" envDefault:"3000"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`

	JWTSecret    string        `env:"JWT_SECRET"`
	TokenTTL     time.Duration `env:"TOKEN_TTL"     envDefault:"168h"`
	CookieDomain string        `env:"COOKIE_DOMAIN"`

	ClientURL      string   `env:"CLIENT_URL"      envDefault:"http://localhost:5173"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	PublicBaseURL  string   `env:"PUBLIC_BASE_URL"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL" envDefault:"http://localhost:3000/api/auth/google/callback"`

	CountdownSeconds int `env:"PLEDGE_COUNTDOWN_SECONDS" envDefault:"30"`
	CodeAttempts     int `env:"REFERRAL_CODE_ATTEMPTS"   envDefault:"3"`

	DiscordWebhookURL string `env:"DISCORD_WEBHOOK_URL"`
	SlackWebhookURL   string `env:"SLACK_WEBHOOK_URL"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment. Call godotenv first to pick up a .env file.
// The database driver comes back normalized, so it can be compared against the
// db driver constants.
func Load() (Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.DatabaseDriver = db.NormalizeDriver(cfg.DatabaseDriver)

	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = cfg.ClientURL
	}

	return cfg, nil
}

// Validate checks what the server cannot start without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	if c.CountdownSeconds < 0 {
		return fmt.Errorf("PLEDGE_COUNTDOWN_SECONDS must not be negative, got %d", c.CountdownSeconds)
	}
	return nil
}

// Origins returns the CORS and websocket origins: the development defaults,
// the client URL and ALLOWED_ORIGINS.
func (c Config) Origins() []string {
	return types.MergeOrigins(append([]string{c.ClientURL}, c.AllowedOrigins...)...)
}
