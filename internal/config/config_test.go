package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("JOURNAL_DATA_DIR", dir)
	t.Setenv("JOURNAL_DB_FILE", "custom.db")
	t.Setenv("JOURNAL_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(dir, "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "custom.db"), cfg.DBPath())
	assert.Equal(t, filepath.Join(dir, "recordings"), cfg.RecordingsPath())
	assert.Equal(t, filepath.Join(dir, "settings.yaml"), cfg.SettingsPath())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "wav", cfg.AudioFormat)
}

func TestLoad_FromEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("JOURNAL_AUDIO_FORMAT=flac\n"), 0o644))
	t.Setenv("JOURNAL_DATA_DIR", dir)
	// godotenv never overrides variables already present; clear it first.
	os.Unsetenv("JOURNAL_AUDIO_FORMAT")
	t.Cleanup(func() { os.Unsetenv("JOURNAL_AUDIO_FORMAT") })

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "flac", cfg.AudioFormat)
}

func TestResolveDefaults_EmptyDataDir(t *testing.T) {
	cfg := &Config{}
	if _, err := os.UserConfigDir(); err != nil {
		t.Skip("no user config dir on this platform")
	}

	require.NoError(t, cfg.ResolveDefaults())
	assert.Equal(t, AppDirName, filepath.Base(cfg.DataDir))
	assert.Equal(t, "journal.db", cfg.DBFile)
	assert.Equal(t, "wav", cfg.AudioFormat)
}

func TestRead_OverrideBeforeDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("JOURNAL_DATA_DIR", "")
	t.Setenv("HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Read(filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Empty(t, cfg.DataDir, "Read leaves defaults unresolved")

	cfg.DataDir = dir
	require.NoError(t, cfg.ResolveDefaults())
	assert.Equal(t, filepath.Join(dir, "journal.db"), cfg.DBPath())
}

func TestAbsolutePathsAreKept(t *testing.T) {
	cfg := NewForTesting("/data")
	cfg.RecordingsDir = "/mnt/audio"

	assert.Equal(t, "/mnt/audio", cfg.RecordingsPath())
	assert.Equal(t, "/data/journal.db", cfg.DBPath())
}
