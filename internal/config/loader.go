package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/bluetech/invoice-desk/internal/logging"
)

// Environment variables read by Load.
const (
	EnvName           = "INVOICE_DESK_ENV"
	EnvHTTPPort       = "INVOICE_DESK_HTTP_PORT"
	EnvSQLiteDSN      = "INVOICE_DESK_SQLITE_DSN"
	EnvLogLevel       = "INVOICE_DESK_LOG_LEVEL"
	EnvStatusReset    = "INVOICE_DESK_STATUS_RESET"
	EnvWebhookTimeout = "INVOICE_DESK_WEBHOOK_TIMEOUT"
	EnvDotenv         = "INVOICE_DESK_DOTENV"
)

// DefaultDotenvPath is read when INVOICE_DESK_DOTENV is unset.
const DefaultDotenvPath = ".env"

// Config captures environment driven configuration values for the invoice desk.
type Config struct {
	Env              string
	HTTPPort         int
	SQLiteDSN        string
	LogLevel         slog.Level
	StatusResetDelay time.Duration
	// WebhookTimeout of zero leaves webhook posts without a client timeout.
	WebhookTimeout time.Duration
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	return Config{
		Env:              "development",
		HTTPPort:         8080,
		SQLiteDSN:        "file:invoice-desk.db",
		LogLevel:         slog.LevelInfo,
		StatusResetDelay: 5 * time.Second,
	}
}

// LoadDotenv merges a dotenv file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotenv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv(EnvDotenv))
	}
	if path == "" {
		path = DefaultDotenvPath
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load parses configuration values from the current process environment.
//
// Every invalid variable is reported at once; the returned Config is zero
// when any value is rejected.
func Load() (Config, error) {
	cfg := Default()
	invalid := make([]string, 0, 2)

	if env := strings.TrimSpace(os.Getenv(EnvName)); env != "" {
		cfg.Env = strings.ToLower(env)
	}

	if portValue := strings.TrimSpace(os.Getenv(EnvHTTPPort)); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, EnvHTTPPort)
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv(EnvSQLiteDSN)); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		if !knownLevel(level) {
			invalid = append(invalid, EnvLogLevel)
		} else {
			cfg.LogLevel = logging.ParseLevel(level)
		}
	}

	if delayValue := strings.TrimSpace(os.Getenv(EnvStatusReset)); delayValue != "" {
		delay, err := time.ParseDuration(delayValue)
		if err != nil || delay <= 0 {
			invalid = append(invalid, EnvStatusReset)
		} else {
			cfg.StatusResetDelay = delay
		}
	}

	if timeoutValue := strings.TrimSpace(os.Getenv(EnvWebhookTimeout)); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout < 0 {
			invalid = append(invalid, EnvWebhookTimeout)
		} else {
			cfg.WebhookTimeout = timeout
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

// Production reports whether the desk runs with production logging.
func (c Config) Production() bool {
	return c.Env == logging.EnvProduction
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func knownLevel(s string) bool {
	switch strings.ToLower(s) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}
