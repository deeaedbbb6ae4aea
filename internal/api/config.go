// Package api provides the HTTP server for trialbase. The JSON endpoints
// live in the v2 subpackage.
package api

import (
	"fmt"
	"time"

	"github.com/regenpgc/trialbase/internal/conf"
	"github.com/regenpgc/trialbase/internal/errors"
	"github.com/regenpgc/trialbase/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBodyLimit       = "2M"
)

// Config holds the HTTP server configuration.
type Config struct {
	Listen         string   // host:port, host may be empty
	AllowedOrigins []string // CORS allowed origins

	// Timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BodyLimit string // maximum request body size, e.g. "2M"
	Debug     bool
}

// DefaultConfig returns a Config with the default timeouts listening on
// :8080.
func DefaultConfig() *Config {
	return &Config{
		Listen:          ":8080",
		AllowedOrigins:  []string{"*"},
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       DefaultBodyLimit,
	}
}

// ConfigFromSettings creates a Config from the application settings.
// Unset values keep their defaults.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()
	ws := settings.WebServer

	if ws.Listen != "" {
		cfg.Listen = ws.Listen
	}
	if len(ws.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = ws.AllowedOrigins
	}
	if ws.BodyLimit != "" {
		cfg.BodyLimit = ws.BodyLimit
	}
	cfg.Debug = settings.Debug

	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.FieldError("listen", "listen address is required")
	}
	if c.ReadTimeout <= 0 {
		return errors.FieldError("readTimeout", "read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return errors.FieldError("writeTimeout", "write timeout must be positive")
	}
	return nil
}

// String returns a human-readable representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf("Server Config: address=%s, body_limit=%s, debug=%v",
		c.Listen, c.BodyLimit, c.Debug)
}
