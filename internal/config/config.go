// Package config resolves where the journal keeps its data.
//
// Values come from JOURNAL_-prefixed environment variables (optionally seeded
// from a .env file) and may be overridden by CLI flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix for all environment variables.
const EnvPrefix = "JOURNAL"

// AppDirName is the directory created under the user config dir
// when JOURNAL_DATA_DIR is not set.
const AppDirName = "audio-journal"

// Config holds the resolved storage locations and runtime options.
type Config struct {
	// DataDir is the application-owned directory holding the database,
	// the recordings directory and the settings file.
	DataDir string `envconfig:"DATA_DIR" default:""`

	DBFile        string `envconfig:"DB_FILE" default:"journal.db"`
	RecordingsDir string `envconfig:"RECORDINGS_DIR" default:"recordings"`
	SettingsFile  string `envconfig:"SETTINGS_FILE" default:"settings.yaml"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"warn"`
	AudioFormat string `envconfig:"AUDIO_FORMAT" default:"wav"`
}

// Load reads the configuration with Read and resolves defaults.
func Load(envFiles ...string) (*Config, error) {
	cfg, err := Read(envFiles...)
	if err != nil {
		return nil, err
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads an optional .env file, then the environment, without
// resolving defaults. Callers that apply flag overrides do so before
// calling ResolveDefaults. A missing .env file is not an error.
func Read(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	return &cfg, nil
}

// ResolveDefaults fills DataDir from the user config directory when empty
// and validates the remaining fields.
func (c *Config) ResolveDefaults() error {
	if c.DataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}
		c.DataDir = filepath.Join(base, AppDirName)
	}
	if c.DBFile == "" {
		c.DBFile = "journal.db"
	}
	if c.RecordingsDir == "" {
		c.RecordingsDir = "recordings"
	}
	if c.SettingsFile == "" {
		c.SettingsFile = "settings.yaml"
	}
	if c.AudioFormat == "" {
		c.AudioFormat = "wav"
	}
	return nil
}

// DBPath returns the absolute database file path.
func (c *Config) DBPath() string {
	return c.resolve(c.DBFile)
}

// RecordingsPath returns the content store base directory.
func (c *Config) RecordingsPath() string {
	return c.resolve(c.RecordingsDir)
}

// SettingsPath returns the settings file path.
func (c *Config) SettingsPath() string {
	return c.resolve(c.SettingsFile)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// NewForTesting returns a config rooted at dir with all defaults applied.
func NewForTesting(dir string) *Config {
	return &Config{
		DataDir:       dir,
		DBFile:        "journal.db",
		RecordingsDir: "recordings",
		SettingsFile:  "settings.yaml",
		LogLevel:      "debug",
		AudioFormat:   "wav",
	}
}
