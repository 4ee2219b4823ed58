package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration. It is read once at startup and
// passed explicitly; nothing in the engine reads configuration lazily.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Import   ImportConfig
	Log      LogConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds the SQLite store settings
type DatabaseConfig struct {
	Path          string // path to the database file
	BusyTimeoutMS int    // SQLITE_BUSY wait, milliseconds
	ForeignKeys   bool
}

// ImportConfig holds the XML import settings
type ImportConfig struct {
	Root string // month folders live under <Root>/<YYYY>/<MM>
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// DSN builds the SQLite connection string
func (d DatabaseConfig) DSN() string {
	fk := "OFF"
	if d.ForeignKeys {
		fk = "ON"
	}
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=%s", d.Path, d.BusyTimeoutMS, fk)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with GEST_ prefix (e.g., GEST_DATABASE_PATH)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.gestionale")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("GEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Path:          v.GetString("database.path"),
			BusyTimeoutMS: v.GetInt("database.busy_timeout_ms"),
			// foreign keys stay on unless the file turns them off
			ForeignKeys: !v.IsSet("database.foreign_keys") || v.GetBool("database.foreign_keys"),
		},
		Import: ImportConfig{
			Root: v.GetString("import.root"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "gestionale"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "gestionale.db"
	}
	if cfg.Database.BusyTimeoutMS == 0 {
		cfg.Database.BusyTimeoutMS = 5000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		if cfg.App.Env == "production" {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "console"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
}

// validate checks the configuration for fatal startup errors
func (c *Config) validate() error {
	dir := filepath.Dir(c.Database.Path)
	if dir != "." {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("database directory %s is not accessible: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("database path parent %s is not a directory", dir)
		}
	}
	if c.Import.Root != "" {
		if info, err := os.Stat(c.Import.Root); err == nil && !info.IsDir() {
			return fmt.Errorf("import root %s is not a directory", c.Import.Root)
		}
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	return nil
}
