// Package settings manages the user settings file (settings.yaml).
//
// The file supplies defaults the journal consults at its edges: where
// exported audio goes, recording quality, auto-save, the maximum recording
// length and the UI theme. A missing file is created with defaults. A file
// that cannot be parsed or fails the schema is ignored in favour of
// defaults, and the problem is logged.
package settings

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/roach88/audiojournal/internal/apperr"
)

//go:embed schema.cue
var schemaSource string

// Setting keys.
const (
	KeyAudioQuality            = "audioQuality"
	KeySaveLocation            = "saveLocation"
	KeyAutoSave                = "autoSave"
	KeyMaxRecordingTimeMinutes = "maxRecordingTimeMinutes"
	KeyTheme                   = "theme"
)

// Settings is the content of the settings file.
type Settings struct {
	AudioQuality            string `yaml:"audioQuality" json:"audioQuality"`
	SaveLocation            string `yaml:"saveLocation" json:"saveLocation"`
	AutoSave                bool   `yaml:"autoSave" json:"autoSave"`
	MaxRecordingTimeMinutes int    `yaml:"maxRecordingTimeMinutes" json:"maxRecordingTimeMinutes"`
	Theme                   string `yaml:"theme" json:"theme"`
}

// MaxRecordingTime returns the recording length cap.
func (s Settings) MaxRecordingTime() time.Duration {
	return time.Duration(s.MaxRecordingTimeMinutes) * time.Minute
}

// Defaults returns the built-in settings with the given save location.
func Defaults(saveLocation string) Settings {
	return Settings{
		AudioQuality:            "medium",
		SaveLocation:            saveLocation,
		AutoSave:                true,
		MaxRecordingTimeMinutes: 30,
		Theme:                   "light",
	}
}

// DefaultSaveLocation is ~/Documents/AudioJournal, or a relative
// AudioJournal directory if the home directory is unknown.
func DefaultSaveLocation() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "AudioJournal"
	}
	return filepath.Join(home, "Documents", "AudioJournal")
}

// Keys lists every setting key in sorted order.
func Keys() []string {
	keys := []string{
		KeyAudioQuality,
		KeySaveLocation,
		KeyAutoSave,
		KeyMaxRecordingTimeMinutes,
		KeyTheme,
	}
	sort.Strings(keys)
	return keys
}

func knownKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// Manager owns the settings file. Safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	path     string
	defaults Settings
	current  Settings
	schema   cue.Value
	log      zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithSaveLocation sets the default save location.
func WithSaveLocation(dir string) Option {
	return func(m *Manager) { m.defaults.SaveLocation = dir }
}

// WithLogger sets the manager's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// Load reads the settings file at path. A missing file is created with
// defaults; only a failure to create it is returned as an error.
func Load(path string, opts ...Option) (*Manager, error) {
	m := &Manager{
		path:     path,
		defaults: Defaults(DefaultSaveLocation()),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	schema := cuecontext.New().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, apperr.Wrapf(apperr.KindState, "load settings", err, "compile settings schema")
	}
	m.schema = schema.LookupPath(cue.ParsePath("#Settings"))

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		m.current = m.defaults
		if err := m.save(m.current); err != nil {
			return nil, err
		}
		m.log.Info().Str("path", path).Msg("created settings file with default values")
		return m, nil
	}
	if err != nil {
		m.log.Error().Err(err).Str("path", path).Msg("failed to load settings")
		m.current = m.defaults
		return m, nil
	}

	loaded, err := m.parse(data)
	if err != nil {
		m.log.Error().Err(err).Str("path", path).Msg("failed to load settings")
		m.current = m.defaults
		return m, nil
	}

	m.current = loaded
	m.log.Info().Str("path", path).Msg("settings loaded")
	return m, nil
}

// parse decodes data over the defaults, so absent keys keep their default
// value, then validates the result.
func (m *Manager) parse(data []byte) (Settings, error) {
	s := m.defaults
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, apperr.Wrapf(apperr.KindValidation, "load settings", err, "parse %s", m.path)
	}
	if err := m.validate(s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Path returns the settings file path.
func (m *Manager) Path() string {
	return m.path
}

// Get returns the current settings.
func (m *Manager) Get() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Value returns a single setting by key.
func (m *Manager) Value(key string) (any, error) {
	doc, err := toMap(m.Get())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindState, "get setting", err)
	}
	v, ok := doc[key]
	if !ok {
		return nil, apperr.Validation("get setting", "unknown setting %q", key)
	}
	return v, nil
}

// Set updates one setting. raw is parsed as a YAML scalar, so "true",
// "45" and "dark" take their natural types.
func (m *Manager) Set(key, raw string) (Settings, error) {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return Settings{}, apperr.Wrapf(apperr.KindValidation, "set setting", err, "invalid value for %s", key)
	}
	if v == nil {
		return Settings{}, apperr.Validation("set setting", "a value for %s is required", key)
	}
	return m.Update(map[string]any{key: v})
}

// Update merges patch into the current settings, validates, and saves.
// Nothing changes if any key is unknown or the result is invalid.
func (m *Manager) Update(patch map[string]any) (Settings, error) {
	const op = "update settings"

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := toMap(m.current)
	if err != nil {
		return Settings{}, apperr.Wrap(apperr.KindState, op, err)
	}
	for key, v := range patch {
		if !knownKey(key) {
			return Settings{}, apperr.Validation(op, "unknown setting %q", key)
		}
		doc[key] = v
	}

	next, err := fromMap(doc)
	if err != nil {
		return Settings{}, apperr.Wrap(apperr.KindValidation, op, err)
	}
	if err := m.validate(next); err != nil {
		return Settings{}, err
	}
	if err := m.save(next); err != nil {
		return Settings{}, err
	}

	m.current = next
	m.log.Info().Interface("changes", patch).Msg("settings updated")
	return next, nil
}

// Reset restores and saves the defaults.
func (m *Manager) Reset() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.save(m.defaults); err != nil {
		return Settings{}, err
	}
	m.current = m.defaults
	m.log.Info().Msg("settings reset to defaults")
	return m.current, nil
}

func (m *Manager) validate(s Settings) error {
	v := m.schema.Unify(m.schema.Context().Encode(s))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return apperr.Wrap(apperr.KindValidation, "validate settings", err)
	}
	return nil
}

// save writes s atomically via a temp file in the same directory.
func (m *Manager) save(s Settings) error {
	const op = "save settings"

	data, err := yaml.Marshal(s)
	if err != nil {
		return apperr.Wrap(apperr.KindState, op, err)
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Wrapf(apperr.KindIO, op, err, "create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.tmp")
	if err != nil {
		return apperr.Wrapf(apperr.KindIO, op, err, "save %s", m.path)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperr.Wrapf(apperr.KindIO, op, err, "save %s", m.path)
	}
	if err := tmp.Close(); err != nil {
		return apperr.Wrapf(apperr.KindIO, op, err, "save %s", m.path)
	}
	if err := os.Rename(tmpName, m.path); err != nil {
		return apperr.Wrapf(apperr.KindIO, op, err, "save %s", m.path)
	}
	return nil
}

func toMap(s Settings) (map[string]any, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromMap(doc map[string]any) (Settings, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return Settings{}, err
	}
	var s Settings
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}
