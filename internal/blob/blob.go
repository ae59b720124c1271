// Package blob is the journal's content store: raw audio bytes kept as
// files named recording_<id>.<format> under a base directory.
//
// The store owns the bytes exclusively. The repository only holds the path
// returned by Write.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog"

	"github.com/roach88/audiojournal/internal/apperr"
)

const (
	// DefaultFormat is the file extension used when none is given.
	DefaultFormat = "wav"

	// FilePrefix starts every blob file name.
	FilePrefix = "recording_"

	maxIDLength = 128
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Info describes one stored blob.
type Info struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// Store maps recording ids to files under a base directory.
// It holds no mutable state and is safe for concurrent use.
type Store struct {
	baseDir string
	format  string
	pattern glob.Glob
	log     zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithFormat overrides the default format.
func WithFormat(format string) Option {
	return func(s *Store) {
		if format != "" {
			s.format = strings.TrimPrefix(format, ".")
		}
	}
}

// WithLogger sets the store's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New creates a store rooted at baseDir, creating the directory if absent.
func New(baseDir string, opts ...Option) (*Store, error) {
	s := &Store{
		baseDir: baseDir,
		format:  DefaultFormat,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if !idPattern.MatchString(s.format) {
		return nil, apperr.Validation("open content store", "invalid format %q", s.format)
	}

	pattern, err := glob.Compile(FilePrefix + "*." + s.format)
	if err != nil {
		return nil, apperr.Wrapf(apperr.KindValidation, "open content store", err, "invalid format %q", s.format)
	}
	s.pattern = pattern

	if err := ensureDir(baseDir); err != nil {
		return nil, apperr.Wrapf(apperr.KindIO, "open content store", err, "create %s", baseDir)
	}

	s.log.Info().Str("base_dir", baseDir).Msg("content store initialized")
	return s, nil
}

// BaseDir returns the store's base directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Format returns the store's default format.
func (s *Store) Format() string {
	return s.format
}

// ValidID reports whether id can be used as a blob identifier.
// Ids are non-empty runs of letters, digits, '-' and '_', so they can never
// escape the base directory.
func ValidID(id string) error {
	if id == "" {
		return apperr.Validation("validate id", "recording id is required")
	}
	if len(id) > maxIDLength {
		return apperr.Validation("validate id", "recording id longer than %d characters", maxIDLength)
	}
	if !idPattern.MatchString(id) {
		return apperr.Validation("validate id", "malformed recording id %q", id)
	}
	return nil
}

// FileName returns the blob file name for id and format.
func FileName(id, format string) string {
	return fmt.Sprintf("%s%s.%s", FilePrefix, id, format)
}

// ResolvePath returns the path of the blob for id. An empty format means
// the store default. Pure; performs no I/O.
func (s *Store) ResolvePath(id, format string) string {
	if format == "" {
		format = s.format
	}
	return filepath.Join(s.baseDir, FileName(id, format))
}

// Write stores data for id and returns the file path.
func (s *Store) Write(ctx context.Context, id string, data []byte, format string) (string, error) {
	if err := ValidID(id); err != nil {
		return "", err
	}
	if format != "" && !idPattern.MatchString(format) {
		return "", apperr.Validation("write blob", "invalid format %q", format)
	}
	if err := ctx.Err(); err != nil {
		return "", apperr.Wrap(apperr.KindIO, "write blob", err)
	}

	path := s.ResolvePath(id, format)
	if err := writeFile(path, data); err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("failed to save audio file")
		return "", apperr.Wrapf(apperr.KindIO, "write blob", err, "save %s", path)
	}

	s.log.Info().Str("path", path).Int("bytes", len(data)).Msg("audio file saved")
	return path, nil
}

// Read returns the bytes stored for id under the default format.
func (s *Store) Read(ctx context.Context, id string) ([]byte, error) {
	if err := ValidID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindIO, "read blob", err)
	}

	path := s.ResolvePath(id, "")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.Wrapf(apperr.KindNotFound, "read blob", err, "no recording %q", id)
	}
	if err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("failed to read audio file")
		return nil, apperr.Wrapf(apperr.KindIO, "read blob", err, "read %s", path)
	}

	s.log.Debug().Str("path", path).Msg("audio file read")
	return data, nil
}

// Delete removes the blob stored for id under the default format.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ValidID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.KindIO, "delete blob", err)
	}

	path := s.ResolvePath(id, "")
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return apperr.Wrapf(apperr.KindNotFound, "delete blob", err, "no recording %q", id)
	}
	if err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("failed to delete audio file")
		return apperr.Wrapf(apperr.KindIO, "delete blob", err, "delete %s", path)
	}

	s.log.Info().Str("path", path).Msg("audio file deleted")
	return nil
}

// List scans the base directory for blobs in the default format.
// Directories and files not following the naming convention are skipped.
// Results are sorted by id.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindIO, "list blobs", err)
	}

	dirEntries, err := os.ReadDir(s.baseDir)
	if err != nil {
		s.log.Error().Err(err).Str("base_dir", s.baseDir).Msg("failed to list audio files")
		return nil, apperr.Wrapf(apperr.KindIO, "list blobs", err, "read %s", s.baseDir)
	}

	suffix := "." + s.format
	infos := make([]Info, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !s.pattern.Match(name) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, FilePrefix), suffix)
		if ValidID(id) != nil {
			continue
		}
		infos = append(infos, Info{ID: id, Path: filepath.Join(s.baseDir, name)})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })

	s.log.Debug().Int("count", len(infos)).Msg("audio files listed")
	return infos, nil
}

// WriteToLocation writes data for id under customBase instead of the store's
// base directory, creating customBase as needed. The blob is not visible to
// Read, Delete or List.
func (s *Store) WriteToLocation(ctx context.Context, id string, data []byte, customBase string) (string, error) {
	if err := ValidID(id); err != nil {
		return "", err
	}
	if strings.TrimSpace(customBase) == "" {
		return "", apperr.Validation("write blob to location", "destination directory is required")
	}
	if err := ctx.Err(); err != nil {
		return "", apperr.Wrap(apperr.KindIO, "write blob to location", err)
	}

	if err := ensureDir(customBase); err != nil {
		s.log.Error().Err(err).Str("dir", customBase).Msg("failed to create custom directory")
		return "", apperr.Wrapf(apperr.KindIO, "write blob to location", err, "create %s", customBase)
	}

	path := filepath.Join(customBase, FileName(id, s.format))
	if err := writeFile(path, data); err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("failed to save audio file to custom path")
		return "", apperr.Wrapf(apperr.KindIO, "write blob to location", err, "save %s", path)
	}

	s.log.Info().Str("path", path).Msg("audio file saved to custom path")
	return path, nil
}

// ensureDir creates dir and its parents if absent. A concurrent creation
// between the existence check and MkdirAll is not a failure.
func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", dir)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
				return nil
			}
		}
		return err
	}
	return nil
}

// writeFile writes data to a temp file beside path and renames it into
// place, so a blob visible under its final name is always complete.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
