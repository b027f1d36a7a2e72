package courier

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const configName = "config"

// Config holds the engine settings stored in config.yaml inside the config dir.
type Config struct {
	viper           *viper.Viper
	ConfigDir       string `mapstructure:"-"`
	DatabasePath    string `mapstructure:"database_path"`     // SQLite file, relative paths are resolved against ConfigDir
	DefaultTimeout  int    `mapstructure:"default_timeout"`   // Request timeout in milliseconds, 0 disables it
	FollowRedirects bool   `mapstructure:"follow_redirects"`  // Follow 3xx responses
	ValidateSSL     bool   `mapstructure:"validate_ssl"`      // Verify server certificates
	MaxHistoryItems int    `mapstructure:"max_history_items"` // Activity log entries returned by History
	LogLevel        string `mapstructure:"log_level"`         // debug, info, warn or error
}

var configDefaults = map[string]any{
	"database_path":     "courier.db",
	"default_timeout":   30000,
	"follow_redirects":  true,
	"validate_ssl":      true,
	"max_history_items": 100,
	"log_level":         "info",
}

// DefaultConfig returns the settings used when no config dir is given.
// It panics if the built-in defaults fail to decode.
func DefaultConfig() *Config {
	cfg, err := defaultConfig()
	if err != nil {
		panic(err)
	}
	return cfg
}

func defaultConfig() (*Config, error) {
	v := viper.New()
	for key, value := range configDefaults {
		v.SetDefault(key, value)
	}

	cfg := &Config{viper: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding default config : %w", err)
	}
	return cfg, nil
}

// LoadConfig reads config.yaml from dir, creating the dir and writing a file with the defaults
// on first use.
func LoadConfig(dir string) (*Config, error) {
	if _, err := os.ReadDir(dir); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("checking if directory exists %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating config dir %s: %w", dir, err)
		}
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	for key, value := range configDefaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file : %w", err)
		}
		if err := v.SafeWriteConfig(); err != nil {
			return nil, fmt.Errorf("writing config file : %w", err)
		}
	}

	cfg := &Config{viper: v, ConfigDir: dir}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config to struct : %w", err)
	}
	return cfg, nil
}

// Set updates a single key and writes the file back when the config was loaded from a dir.
func (cfg *Config) Set(key string, value any) error {
	if _, ok := configDefaults[key]; !ok {
		return &ValidationError{Field: key, Reason: "unknown config key"}
	}

	cfg.viper.Set(key, value)
	if cfg.ConfigDir != "" {
		if err := cfg.viper.WriteConfig(); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
	}
	if err := cfg.viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshalling config to struct : %w", err)
	}
	return nil
}

// DatabaseFile returns the database path, resolved against the config dir when relative.
func (cfg *Config) DatabaseFile() string {
	if filepath.IsAbs(cfg.DatabasePath) || cfg.ConfigDir == "" {
		return cfg.DatabasePath
	}
	return filepath.Join(cfg.ConfigDir, cfg.DatabasePath)
}

// Timeout returns DefaultTimeout as a duration.
func (cfg *Config) Timeout() time.Duration {
	return time.Duration(cfg.DefaultTimeout) * time.Millisecond
}

// Level maps LogLevel to a slog level, defaulting to info.
func (cfg *Config) Level() slog.Level {
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
