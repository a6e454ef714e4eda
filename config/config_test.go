package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 0.20, cfg.Split.TestSize)
	assert.False(t, cfg.Split.KeepRatio)
	assert.EqualValues(t, 42, cfg.Split.Seed)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: 9090
split:
  test_size: 0.3
  keep_ratio: true
  seed: 7
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 0.3, cfg.Split.TestSize)
	assert.True(t, cfg.Split.KeepRatio)
	assert.EqualValues(t, 7, cfg.Split.Seed)
	// Unset sections keep their defaults.
	assert.Equal(t, "local", cfg.Storage.Type)
}

func TestLoadRejectsBadTestSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("split:\n  test_size: 1.5\n"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "test_size")
}
