// Package config provides centralized configuration management for the
// application. It loads configuration from environment variables with sensible
// defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Sync     SyncConfig
	Rate     RateLimitConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response. The sync
	// result endpoint blocks until the run finishes, so this defaults to 0.
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Migrate controls whether schema migrations run on startup (default: true)
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

// SyncConfig holds Torgsoft export sync settings.
type SyncConfig struct {
	// FilePath is the export file ingested by a sync run (default: torgsoft/TSGoods.csv)
	FilePath string `env:"SYNC_FILE_PATH" default:"torgsoft/TSGoods.csv"`

	// DropDir is the directory export files are uploaded into (default: torgsoft)
	DropDir string `env:"SYNC_DROP_DIR" default:"torgsoft"`

	// BatchSize is the number of rows committed per transaction (default: 100)
	BatchSize int `env:"SYNC_BATCH_SIZE" default:"100"`

	// Encoding is the export file encoding: utf-8 or windows-1251 (default: utf-8)
	Encoding string `env:"SYNC_ENCODING" default:"utf-8"`

	// SettingsFile is an optional YAML file with per-deployment sync settings
	// (excluded categories, identifier column aliases)
	SettingsFile string `env:"SYNC_SETTINGS_FILE"`

	// ExcludedRootCategories are top-level category names whose rows are
	// skipped entirely (default: Одежда)
	ExcludedRootCategories []string `env:"SYNC_EXCLUDED_ROOT_CATEGORIES" default:"Одежда"`

	// GoodIDAliases are extra identifier column names tried before heuristic
	// detection
	GoodIDAliases []string `env:"SYNC_GOODID_ALIASES"`

	// MaxFileSize is the maximum accepted upload size in bytes (default: 100MB)
	MaxFileSize int64 `env:"SYNC_MAX_FILE_SIZE" default:"104857600"`

	// Timeout is the maximum duration for a single sync run (default: 30m)
	Timeout time.Duration `env:"SYNC_TIMEOUT" default:"30m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// SyncLimit is requests per minute for the sync trigger endpoint (default: 10)
	SyncLimit int `env:"RATE_LIMIT_SYNC" default:"10"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
