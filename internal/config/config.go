// Package config provides configuration management for the operations ledger.
// Configurations are loaded from TOML files with XDG-compliant paths.
package config

import (
	"errors"
	"fmt"
	"slices"
)

// Config holds the complete application configuration.
type Config struct {
	Shop     ShopConfig     `toml:"shop"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Display  DisplayConfig  `toml:"display"`
	Logging  LoggingConfig  `toml:"logging"`
	Database DatabaseConfig `toml:"database"`
}

// ShopConfig identifies the shop whose books are kept.
type ShopConfig struct {
	CompanyName string `toml:"company_name"`
	OperatorID  string `toml:"operator_id"`
}

// LedgerConfig controls bookkeeping rules.
type LedgerConfig struct {
	// TaxRate is applied to the net amount of every supply receipt.
	TaxRate float64 `toml:"tax_rate"`
	// ActivityLogLimit caps how many audit entries are retained.
	ActivityLogLimit int `toml:"activity_log_limit"`
	// SeedOnFirstRun loads the demonstration data when a collection is empty.
	SeedOnFirstRun bool `toml:"seed_on_first_run"`
}

// DisplayConfig controls TUI appearance.
type DisplayConfig struct {
	ColorScheme ColorScheme `toml:"color_scheme"`
	DateFormat  string      `toml:"date_format"`
	TimeFormat  string      `toml:"time_format"`
}

// ColorScheme defines the terminal color palette.
type ColorScheme string

const (
	ColorSchemeSteel ColorScheme = "steel"
	ColorSchemeAmber ColorScheme = "amber"
	ColorSchemeLight ColorScheme = "light"
)

var colorSchemes = []ColorScheme{ColorSchemeSteel, ColorSchemeAmber, ColorSchemeLight}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level LogLevel `toml:"level"`
	File  string   `toml:"file"`
}

// LogLevel defines logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevels = []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}

// DatabaseConfig controls SQLite database settings.
type DatabaseConfig struct {
	Path                string `toml:"path"`
	BackupIntervalHours int    `toml:"backup_interval_hours"`
	BackupRetentionDays int    `toml:"backup_retention_days"`
}

// Validate reports every invalid setting at once, each prefixed with its
// TOML section.
func (c *Config) Validate() error {
	var errs []error
	section := func(name string, problems ...string) {
		for _, p := range problems {
			if p != "" {
				errs = append(errs, fmt.Errorf("%s: %s", name, p))
			}
		}
	}

	section("shop",
		when(c.Shop.CompanyName == "", "company_name is required"))
	section("ledger",
		when(c.Ledger.TaxRate < 0 || c.Ledger.TaxRate >= 1, "tax_rate must be in [0, 1)"),
		when(c.Ledger.ActivityLogLimit < 1, "activity_log_limit must be positive"))
	section("display",
		when(c.Display.ColorScheme != "" && !slices.Contains(colorSchemes, c.Display.ColorScheme),
			"invalid color_scheme: "+string(c.Display.ColorScheme)),
		when(c.Display.DateFormat == "", "date_format is required"))
	section("logging",
		when(c.Logging.Level != "" && !slices.Contains(logLevels, c.Logging.Level),
			"invalid log level: "+string(c.Logging.Level)))
	section("database",
		when(c.Database.Path == "", "path is required"),
		when(c.Database.BackupIntervalHours < 0, "backup_interval_hours must be non-negative"),
		when(c.Database.BackupRetentionDays < 0, "backup_retention_days must be non-negative"))

	return errors.Join(errs...)
}

func when(bad bool, problem string) string {
	if bad {
		return problem
	}
	return ""
}

// Default returns the configuration written on first run.
func Default() *Config {
	return &Config{
		Shop: ShopConfig{
			CompanyName: "North Chrome",
			OperatorID:  "operator",
		},
		Ledger: LedgerConfig{
			TaxRate:          0.19,
			ActivityLogLimit: 50,
			SeedOnFirstRun:   true,
		},
		Display: DisplayConfig{
			ColorScheme: ColorSchemeSteel,
			DateFormat:  "2006-01-02",
			TimeFormat:  "15:04",
		},
		Logging: LoggingConfig{
			Level: LogLevelInfo,
			File:  "logs/opsledger.log",
		},
		Database: DatabaseConfig{
			Path:                "ledger.db",
			BackupIntervalHours: 24,
			BackupRetentionDays: 30,
		},
	}
}
