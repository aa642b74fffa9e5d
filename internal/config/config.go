// Package config provides the configuration schema and loading for the
// canopy server: listener settings, session backend, user backend, and
// the CORS rule list.
package config

import (
	"log/slog"
	"time"

	"github.com/canopy-web/canopy/internal/domain/cors"
)

// Config is the top-level server configuration.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Session configures the session store and cookie.
	Session SessionConfig `yaml:"session" mapstructure:"session"`

	// Users configures the account backend.
	Users UsersConfig `yaml:"users" mapstructure:"users"`

	// CORS is the ordered cross-origin rule list. When several rules
	// match a path, the last one wins.
	CORS []cors.RuleConfig `yaml:"cors" mapstructure:"cors" validate:"omitempty,dive"`

	// DevMode includes error causes in responses and lowers log level.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address, host:port.
	Addr string `yaml:"addr" mapstructure:"addr" validate:"required,hostname_port"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// HandlerTimeout bounds handler execution; zero disables the bound.
	HandlerTimeout time.Duration `yaml:"handler_timeout" mapstructure:"handler_timeout"`

	// TLSCert and TLSKey enable TLS when both are set.
	TLSCert string `yaml:"tls_cert" mapstructure:"tls_cert"`
	TLSKey  string `yaml:"tls_key" mapstructure:"tls_key"`
}

// SessionConfig configures the session store and cookie.
type SessionConfig struct {
	// CookieName is the session cookie name.
	CookieName string `yaml:"cookie_name" mapstructure:"cookie_name"`

	// TTL is the session lifetime.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`

	// Backend selects the store: memory or redis.
	Backend string `yaml:"backend" mapstructure:"backend" validate:"oneof=memory redis"`

	// Redis configures the redis backend.
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig configures the redis session backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`

	// KeyPrefix namespaces session keys in a shared instance.
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// UsersConfig configures the account backend.
type UsersConfig struct {
	// Backend selects the store: memory or sqlite.
	Backend string `yaml:"backend" mapstructure:"backend" validate:"oneof=memory sqlite"`

	// Path is the sqlite database file. Required for the sqlite backend.
	Path string `yaml:"path" mapstructure:"path" validate:"required_if=Backend sqlite"`

	// Seed lists accounts created at startup if absent. Intended for
	// development and first-run bootstrap.
	Seed []SeedUser `yaml:"seed" mapstructure:"seed" validate:"omitempty,dive"`
}

// SeedUser is an account created at startup.
type SeedUser struct {
	Username string            `yaml:"username" mapstructure:"username" validate:"required"`
	Password string            `yaml:"password" mapstructure:"password" validate:"required"`
	Roles    []string          `yaml:"roles" mapstructure:"roles"`
	Extra    map[string]string `yaml:"extra" mapstructure:"extra"`
}

// Default values applied by SetDefaults.
const (
	DefaultAddr       = "127.0.0.1:8080"
	DefaultLogLevel   = "info"
	DefaultCookieName = "session_id"
	DefaultSessionTTL = 30 * 24 * time.Hour
	DefaultTimeout    = 30 * time.Second
)

// SetDefaults fills unset optional fields.
func (c *Config) SetDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = DefaultLogLevel
	}
	if c.Server.HandlerTimeout == 0 {
		c.Server.HandlerTimeout = DefaultTimeout
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = DefaultCookieName
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = DefaultSessionTTL
	}
	if c.Session.Backend == "" {
		c.Session.Backend = "memory"
	}
	if c.Users.Backend == "" {
		c.Users.Backend = "memory"
	}
}

// SetDevDefaults applies development-mode overrides. Call after CLI
// flags may have flipped DevMode.
func (c *Config) SetDevDefaults() {
	if c.DevMode && c.Server.LogLevel == DefaultLogLevel {
		c.Server.LogLevel = "debug"
	}
}

// SlogLevel maps the configured log level to a slog.Level.
func (c *ServerConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
