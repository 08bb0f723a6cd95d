package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bgrewell/dvd-kit/pkg/consts"
	"github.com/bgrewell/dvd-kit/pkg/logging"
	"github.com/bgrewell/dvd-kit/pkg/options"
	"github.com/go-logr/logr"
	"github.com/pelletier/go-toml/v2"
)

// Config holds the settings shared by the command line tools.
type Config struct {
	// CacheLevel is the initial path cache level, 0 or 1
	CacheLevel int `toml:"cache_level"`
	// FileSystem selects how images are read: auto, udf or iso9660
	FileSystem string `toml:"file_system"`
	// LegacyDiscID restricts disc ids to title sets 1 through 9
	LegacyDiscID bool `toml:"legacy_disc_id"`
	// LogLevel is info, debug or trace
	LogLevel string `toml:"log_level"`
	// Color is auto, always or never
	Color string `toml:"color"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		CacheLevel: consts.CACHE_LEVEL_ENABLED,
		FileSystem: consts.FILESYSTEM_AUTO.String(),
		LogLevel:   "info",
		Color:      "auto",
	}
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "dvd-kit", "config.toml"), nil
}

// Load reads and validates the configuration file at path, or at the default location when path is empty.
// A missing file yields the defaults. It returns the config, the resolved path and whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return nil, "", false, err
		}
	}

	file, err := os.Open(path)
	exists := err == nil
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, "", false, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				keys := make([]string, 0, len(strict.Errors))
				for _, e := range strict.Errors {
					keys = append(keys, strings.Join(e.Key(), "."))
				}
				return nil, "", false, fmt.Errorf("parse config %s: unknown keys %s", path, strings.Join(keys, ", "))
			}
			return nil, "", false, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, path, exists, nil
}

func (c *Config) normalize() {
	c.FileSystem = strings.ToLower(strings.TrimSpace(c.FileSystem))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Color = strings.ToLower(strings.TrimSpace(c.Color))
}

// Validate checks every key and names the first invalid one.
func (c *Config) Validate() error {
	if c.CacheLevel != consts.CACHE_LEVEL_DISABLED && c.CacheLevel != consts.CACHE_LEVEL_ENABLED {
		return fmt.Errorf("cache_level must be 0 or 1, got %d", c.CacheLevel)
	}
	if _, err := c.fileSystem(); err != nil {
		return err
	}
	switch c.LogLevel {
	case "info", "debug", "trace":
	default:
		return fmt.Errorf("log_level must be info, debug or trace, got %q", c.LogLevel)
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("color must be auto, always or never, got %q", c.Color)
	}
	return nil
}

func (c *Config) fileSystem() (consts.FileSystem, error) {
	for _, sel := range []consts.FileSystem{consts.FILESYSTEM_AUTO, consts.FILESYSTEM_UDF, consts.FILESYSTEM_ISO9660} {
		if c.FileSystem == sel.String() {
			return sel, nil
		}
	}
	return consts.FILESYSTEM_AUTO, fmt.Errorf("file_system must be auto, udf or iso9660, got %q", c.FileSystem)
}

// Logger returns a logger writing to w at the configured level.
func (c *Config) Logger(w *os.File) logr.Logger {
	useColor := logging.ColorEnabled(w)
	switch c.Color {
	case "always":
		useColor = true
	case "never":
		useColor = false
	}
	return logging.NewSimpleLogger(w, logging.ParseLevel(c.LogLevel), useColor)
}

// Options converts the configuration into reader options. Later options override earlier ones, so callers
// append their own after these.
func (c *Config) Options(logger logr.Logger) []options.Option {
	sel, _ := c.fileSystem()
	return []options.Option{
		options.WithCacheLevel(c.CacheLevel),
		options.WithFileSystem(sel),
		options.WithLegacyDiscID(c.LegacyDiscID),
		options.WithLogger(logger),
	}
}
