package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ramonehamilton/mtg-binder/internal/apperr"
	"github.com/ramonehamilton/mtg-binder/internal/pagination"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
)

// MaxPricingBatch is the largest batch the Scryfall collection endpoint accepts.
const MaxPricingBatch = 75

// Config represents the application configuration.
type Config struct {
	// Card store configuration
	Store StoreConfig `toml:"store"`

	// Page sizes
	Pagination PaginationConfig `toml:"pagination"`

	// HTTP API configuration
	API APIConfig `toml:"api"`

	// Price refresh configuration
	Pricing PricingConfig `toml:"pricing"`

	// Application configuration
	App AppConfig `toml:"app"`
}

// StoreConfig selects and locates the card store.
type StoreConfig struct {
	Driver        string `toml:"driver"`         // "sqlite" or "file"
	DatabasePath  string `toml:"database_path"`  // SQLite database (decks and wishlists always live here)
	SnapshotPath  string `toml:"snapshot_path"`  // JSON card snapshot for the file driver
	WatchSnapshot bool   `toml:"watch_snapshot"` // Announce snapshot rewrites to clients
	BusyTimeout   string `toml:"busy_timeout"`   // SQLite busy timeout (e.g., "5s")
}

// PaginationConfig contains page sizes.
type PaginationConfig struct {
	PageSize     int `toml:"page_size"`     // Default page size
	InitialCount int `toml:"initial_count"` // Cards loaded for first paint
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port           int      `toml:"port"`            // Listen port
	AllowedOrigins []string `toml:"allowed_origins"` // CORS origins
}

// PricingConfig contains Scryfall price refresh settings.
type PricingConfig struct {
	Enabled   bool   `toml:"enabled"`    // Refresh prices in the background
	BaseURL   string `toml:"base_url"`   // Scryfall API base URL
	RateLimit string `toml:"rate_limit"` // Minimum gap between requests (e.g., "100ms")
	BatchSize int    `toml:"batch_size"` // Cards per collection request
	Interval  string `toml:"interval"`   // Time between refreshes (e.g., "24h")
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool   `toml:"debug_mode"` // Enable debug logging
	LogFormat string `toml:"log_format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:        DriverSQLite,
			DatabasePath:  "data/binder.db",
			SnapshotPath:  "",
			WatchSnapshot: true,
			BusyTimeout:   "5s",
		},
		Pagination: PaginationConfig{
			PageSize:     60,
			InitialCount: 24,
		},
		API: APIConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		Pricing: PricingConfig{
			Enabled:   false,
			BaseURL:   "https://api.scryfall.com",
			RateLimit: "100ms",
			BatchSize: MaxPricingBatch,
			Interval:  "24h",
		},
		App: AppConfig{
			DebugMode: false,
			LogFormat: "text",
		},
	}
}

// DefaultPath returns ~/.mtg-binder/config.toml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".mtg-binder", "config.toml"), nil
}

// Load reads the configuration at path, or DefaultPath when path is empty.
// Keys missing from the file keep their defaults, and a missing file yields
// the default config.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, apperr.Wrap(apperr.CodeConfiguration, "parse config file", err)
	}

	return config, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration values. Every failure is a
// configuration error and should stop startup.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
	case DriverFile:
		if c.Store.SnapshotPath == "" {
			return invalid("store.snapshot_path is required for the file driver")
		}
	default:
		return invalid(fmt.Sprintf("unknown store driver %q", c.Store.Driver))
	}
	if c.Store.DatabasePath == "" {
		return invalid("store.database_path is required")
	}
	if _, err := c.BusyTimeout(); err != nil {
		return apperr.Wrap(apperr.CodeConfiguration, fmt.Sprintf("invalid busy timeout %q", c.Store.BusyTimeout), err)
	}

	if err := pagination.ValidatePageSize(c.Pagination.PageSize); err != nil {
		return fmt.Errorf("pagination.page_size: %w", err)
	}
	if err := pagination.ValidatePageSize(c.Pagination.InitialCount); err != nil {
		return fmt.Errorf("pagination.initial_count: %w", err)
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		return invalid(fmt.Sprintf("api.port out of range: %d", c.API.Port))
	}

	if _, err := c.PricingRateLimit(); err != nil {
		return apperr.Wrap(apperr.CodeConfiguration, fmt.Sprintf("invalid pricing rate limit %q", c.Pricing.RateLimit), err)
	}
	interval, err := c.PricingInterval()
	if err != nil {
		return apperr.Wrap(apperr.CodeConfiguration, fmt.Sprintf("invalid pricing interval %q", c.Pricing.Interval), err)
	}
	if interval <= 0 {
		return invalid(fmt.Sprintf("pricing.interval must be positive: %s", c.Pricing.Interval))
	}
	if c.Pricing.BatchSize < 1 || c.Pricing.BatchSize > MaxPricingBatch {
		return invalid(fmt.Sprintf("pricing.batch_size must be between 1 and %d: %d", MaxPricingBatch, c.Pricing.BatchSize))
	}

	switch c.App.LogFormat {
	case "text", "json":
	default:
		return invalid(fmt.Sprintf("unknown log format %q", c.App.LogFormat))
	}

	return nil
}

// BusyTimeout returns the SQLite busy timeout as a duration.
func (c *Config) BusyTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Store.BusyTimeout)
}

// PricingRateLimit returns the minimum gap between Scryfall requests.
func (c *Config) PricingRateLimit() (time.Duration, error) {
	return time.ParseDuration(c.Pricing.RateLimit)
}

// PricingInterval returns the time between background price refreshes.
func (c *Config) PricingInterval() (time.Duration, error) {
	return time.ParseDuration(c.Pricing.Interval)
}

func invalid(msg string) error {
	return apperr.New(apperr.CodeConfiguration, msg)
}
