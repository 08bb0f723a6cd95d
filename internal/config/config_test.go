package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bgrewell/dvd-kit/internal/config"
	"github.com/bgrewell/dvd-kit/pkg/consts"
	"github.com/bgrewell/dvd-kit/pkg/options"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), ".config", "dvd-kit", "config.toml"), resolved)
	assert.Equal(t, config.Default(), *cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
cache_level = 0
file_system = "ISO9660"
legacy_disc_id = true
log_level = "debug"
color = "never"
`)
	cfg, resolved, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, path, resolved)
	assert.Equal(t, config.Config{
		CacheLevel:   0,
		FileSystem:   "iso9660",
		LegacyDiscID: true,
		LogLevel:     "debug",
		Color:        "never",
	}, *cfg)

	o := options.Defaults()
	for _, opt := range cfg.Options(logr.Discard()) {
		opt(&o)
	}
	assert.Equal(t, 0, o.CacheLevel)
	assert.Equal(t, consts.FILESYSTEM_ISO9660, o.FileSystem)
	assert.True(t, o.LegacyDiscID)

	logger := cfg.Logger(os.Stderr)
	assert.True(t, logger.V(1).Enabled())
	assert.False(t, logger.V(2).Enabled())
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	cfg, _, _, err := config.Load(writeConfig(t, `log_level = "trace"`))
	require.NoError(t, err)
	assert.Equal(t, consts.CACHE_LEVEL_ENABLED, cfg.CacheLevel)
	assert.Equal(t, "auto", cfg.FileSystem)
	assert.Equal(t, "trace", cfg.LogLevel)
}

func TestLoadInvalid(t *testing.T) {
	for body, key := range map[string]string{
		`cache_level = 3`:     "cache_level",
		`file_system = "hfs"`: "file_system",
		`log_level = "loud"`:  "log_level",
		`color = "sometimes"`: "color",
		`unknown_key = 1`:     "unknown_key",
		`cache_level = [`:     "parse config",
	} {
		_, _, _, err := config.Load(writeConfig(t, body))
		require.Error(t, err, body)
		assert.Contains(t, err.Error(), key, body)
	}
}
