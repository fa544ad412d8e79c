// Package config loads propledger settings from an optional YAML file,
// a .env file and PROPLEDGER_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/simonvc/propledger/internal/ledger"
)

const envPrefix = "PROPLEDGER_"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// URL is where client commands reach a running server.
	URL string `yaml:"url"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LedgerConfig struct {
	Currency string `yaml:"currency"`
	// Timezone decides which calendar day "today" is for due dates.
	Timezone string `yaml:"timezone"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

func Default() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":8888", URL: "http://localhost:8888"},
		Database: DatabaseConfig{Path: "propledger.db"},
		Ledger:   LedgerConfig{Currency: ledger.DefaultCurrency, Timezone: "Local"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then .env and the process environment. A missing
// .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		key string
		dst *string
	}{
		{"ADDR", &c.Server.Addr},
		{"SERVER", &c.Server.URL},
		{"DB", &c.Database.Path},
		{"CURRENCY", &c.Ledger.Currency},
		{"TIMEZONE", &c.Ledger.Timezone},
		{"LOG_LEVEL", &c.Log.Level},
		{"LOG_FORMAT", &c.Log.Format},
	}
	for _, o := range overrides {
		if v := os.Getenv(envPrefix + o.key); v != "" {
			*o.dst = v
		}
	}
}

func (c *Config) Validate() error {
	c.Ledger.Currency = strings.ToUpper(c.Ledger.Currency)
	if !ledger.ValidCurrency(c.Ledger.Currency) {
		return fmt.Errorf("unsupported currency %q (supported: %s)", c.Ledger.Currency, strings.Join(ledger.CurrencyCodes(), ", "))
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	return nil
}

// Location resolves the ledger timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Ledger.Timezone == "" || c.Ledger.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Ledger.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Ledger.Timezone, err)
	}
	return loc, nil
}

// Clock returns the clock that decides the current business day.
func (c *Config) Clock() ledger.Clock {
	loc, err := c.Location()
	if err != nil {
		loc = time.Local
	}
	return ledger.SystemClock{Location: loc}
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// Save writes cfg as YAML, e.g. to bootstrap a config file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
