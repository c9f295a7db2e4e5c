// Package config loads runtime settings and builds the process logger.
package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. KERMES_PORT.
const EnvPrefix = "KERMES"

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	// Server
	Port            int           `mapstructure:"PORT"`
	Env             string        `mapstructure:"APP_ENV"` // development | production
	AllowedOrigins  []string      `mapstructure:"ALLOWED_ORIGINS"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	// Storage
	DBPath string `mapstructure:"DB_PATH"`

	// Logging
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Business
	TopProducts int `mapstructure:"TOP_PRODUCTS"`
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads configuration from KERMES_* environment variables and an
// optional .env file in dir (skipped when dir is empty).
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	// Sensible defaults for development
	v.SetDefault("PORT", 8080)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("SHUTDOWN_TIMEOUT", 30*time.Second)
	v.SetDefault("DB_PATH", "kermes.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TOP_PRODUCTS", 5)

	// Optional .env file for local development - does not fail if missing
	if dir != "" {
		v.SetConfigName(".env")
		v.SetConfigType("env")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLogger builds the process logger: human-readable console output in
// development, JSON lines in production.
func NewLogger(cfg *Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if !cfg.IsProduction() {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
