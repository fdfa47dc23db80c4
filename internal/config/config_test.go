package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DATA_FILE", "STORAGE_BACKEND", "BADGERDB_PATH", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultDataFile, cfg.DataFile)
	assert.Equal(t, BackendFile, cfg.StorageBackend)
	assert.Equal(t, DefaultBadgerDBPath, cfg.BadgerDBPath)
	assert.Equal(t, logrus.WarnLevel, cfg.Level())
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	yaml := "DATA_FILE: staff.txt\nSTORAGE_BACKEND: Badger\nLOG_LEVEL: debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "staff.txt", cfg.DataFile)
	assert.Equal(t, BackendBadger, cfg.StorageBackend)
	assert.Equal(t, logrus.DebugLevel, cfg.Level())
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("DATA_FILE: staff.txt\n"), 0o644))
	t.Setenv("DATA_FILE", "env.txt")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "env.txt", cfg.DataFile)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Run("backend", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("STORAGE_BACKEND", "postgres")
		_, err := LoadConfig(t.TempDir())
		assert.Error(t, err)
	})
	t.Run("log level", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LOG_LEVEL", "loud")
		_, err := LoadConfig(t.TempDir())
		assert.Error(t, err)
	})
	t.Run("broken yaml", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("DATA_FILE: [unclosed\n"), 0o644))
		_, err := LoadConfig(dir)
		assert.Error(t, err)
	})
}
