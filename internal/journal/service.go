// Package journal wires the storage layers and the recording coordinator
// into one service with an operation per journal action.
//
// A Service owns its database handle, content store, settings file and
// recording session. Construct it with Open and release it with Close;
// there are no package-level instances.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/audiojournal/internal/apperr"
	"github.com/roach88/audiojournal/internal/blob"
	"github.com/roach88/audiojournal/internal/config"
	"github.com/roach88/audiojournal/internal/recorder"
	"github.com/roach88/audiojournal/internal/repository"
	"github.com/roach88/audiojournal/internal/settings"
	"github.com/roach88/audiojournal/internal/store"
)

// Clock supplies timestamps to the repository and the recorder.
type Clock interface {
	Now() time.Time
}

// Service is the journal's operation surface.
type Service struct {
	cfg      *config.Config
	store    *store.Store
	blobs    *blob.Store
	repo     *repository.Repository
	recorder *recorder.Coordinator
	settings *settings.Manager
	log      zerolog.Logger
}

type options struct {
	log      zerolog.Logger
	clock    Clock
	ids      recorder.IDGenerator
	capturer recorder.Capturer
	player   recorder.Player
	notifier recorder.Notifier
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger handed to every component.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithClock overrides the time source for entries and recordings.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithIDGenerator overrides recording id generation.
func WithIDGenerator(g recorder.IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

// WithCapturer sets the audio source for recordings.
func WithCapturer(c recorder.Capturer) Option {
	return func(o *options) { o.capturer = c }
}

// WithPlayer sets the playback backend.
func WithPlayer(p recorder.Player) Option {
	return func(o *options) { o.player = p }
}

// WithNotifier receives every completed recording.
func WithNotifier(n recorder.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// Open creates the data directory layout if needed and returns a ready
// service: database (schema applied), content store, settings, recorder.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	st, err := store.Open(ctx, cfg.DBPath(), store.WithLogger(component(o.log, "store")))
	if err != nil {
		return nil, err
	}

	blobs, err := blob.New(cfg.RecordingsPath(),
		blob.WithFormat(cfg.AudioFormat),
		blob.WithLogger(component(o.log, "blob")),
	)
	if err != nil {
		st.Close()
		return nil, err
	}

	prefs, err := settings.Load(cfg.SettingsPath(), settings.WithLogger(component(o.log, "settings")))
	if err != nil {
		st.Close()
		return nil, err
	}

	repoOpts := []repository.Option{repository.WithLogger(component(o.log, "repository"))}
	recOpts := []recorder.Option{
		recorder.WithLogger(component(o.log, "recorder")),
		recorder.WithFormat(blobs.Format()),
	}
	if o.clock != nil {
		repoOpts = append(repoOpts, repository.WithClock(o.clock))
		recOpts = append(recOpts, recorder.WithClock(o.clock))
	}
	if o.ids != nil {
		recOpts = append(recOpts, recorder.WithIDGenerator(o.ids))
	}
	if o.capturer != nil {
		recOpts = append(recOpts, recorder.WithCapturer(o.capturer))
	}
	if o.player != nil {
		recOpts = append(recOpts, recorder.WithPlayer(o.player))
	}
	if o.notifier != nil {
		recOpts = append(recOpts, recorder.WithNotifier(o.notifier))
	}

	repo := repository.New(st, repoOpts...)
	svc := &Service{
		cfg:      cfg,
		store:    st,
		blobs:    blobs,
		repo:     repo,
		recorder: recorder.New(blobs, repo, recOpts...),
		settings: prefs,
		log:      o.log,
	}

	o.log.Info().Str("data_dir", cfg.DataDir).Msg("journal opened")
	return svc, nil
}

func component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// Close releases the database. An active recording is abandoned.
func (s *Service) Close() error {
	if s.recorder.Status().Recording {
		s.log.Warn().Str("recording_id", s.recorder.Status().RecordingID).Msg("closing with recording in progress")
		_ = s.recorder.Abandon()
	}
	return s.store.Close()
}

// Config returns the configuration the service was opened with.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// CreateEntry stores a new entry and returns its id.
func (s *Service) CreateEntry(ctx context.Context, in repository.NewEntry) (int64, error) {
	return s.repo.CreateEntry(ctx, in)
}

// GetAllEntries lists entries.
func (s *Service) GetAllEntries(ctx context.Context, opts repository.ListOptions) ([]repository.Entry, error) {
	return s.repo.GetAllEntries(ctx, opts)
}

// GetEntry returns one entry, or nil if absent.
func (s *Service) GetEntry(ctx context.Context, id int64, includeTags bool) (*repository.Entry, error) {
	return s.repo.GetEntry(ctx, id, includeTags)
}

// UpdateEntry overwrites an entry's title and transcript.
func (s *Service) UpdateEntry(ctx context.Context, id int64, upd repository.EntryUpdate) (repository.UpdateResult, error) {
	return s.repo.UpdateEntry(ctx, id, upd)
}

// DeleteEntry removes an entry. Its audio file is kept.
func (s *Service) DeleteEntry(ctx context.Context, id int64) (repository.DeleteResult, error) {
	return s.repo.DeleteEntry(ctx, id)
}

// SearchEntries finds entries by keyword in title or transcript.
func (s *Service) SearchEntries(ctx context.Context, keyword string) ([]repository.Entry, error) {
	return s.repo.SearchEntries(ctx, keyword)
}

// CreateTag returns the id of the named tag, creating it if needed.
func (s *Service) CreateTag(ctx context.Context, name string) (int64, error) {
	return s.repo.CreateTag(ctx, name)
}

// GetAllTags lists tags by name.
func (s *Service) GetAllTags(ctx context.Context) ([]repository.Tag, error) {
	return s.repo.GetAllTags(ctx)
}

// TagEntry attaches a tag to an entry.
func (s *Service) TagEntry(ctx context.Context, entryID, tagID int64) error {
	return s.repo.TagEntry(ctx, entryID, tagID)
}

// UntagEntry detaches a tag from an entry.
func (s *Service) UntagEntry(ctx context.Context, entryID, tagID int64) error {
	return s.repo.UntagEntry(ctx, entryID, tagID)
}

// GetTagsForEntry lists an entry's tags.
func (s *Service) GetTagsForEntry(ctx context.Context, entryID int64) ([]repository.Tag, error) {
	return s.repo.GetTagsForEntry(ctx, entryID)
}

// GetEntriesWithTag lists the entries carrying a tag.
func (s *Service) GetEntriesWithTag(ctx context.Context, tagID int64) ([]repository.Entry, error) {
	return s.repo.GetEntriesWithTag(ctx, tagID)
}

// AddEntryWithTags creates an entry and attaches the named tags, creating
// tags that do not exist yet. Either everything is stored or nothing is.
// Blank and duplicate names are skipped.
func (s *Service) AddEntryWithTags(ctx context.Context, in repository.NewEntry, tagNames []string) (int64, error) {
	return repository.Transact(ctx, s.repo, func(tx *repository.Repository) (int64, error) {
		entryID, err := tx.CreateEntry(ctx, in)
		if err != nil {
			return 0, err
		}

		seen := make(map[string]bool, len(tagNames))
		for _, name := range tagNames {
			name = strings.TrimSpace(name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true

			tagID, err := tx.CreateTag(ctx, name)
			if err != nil {
				return 0, err
			}
			if err := tx.TagEntry(ctx, entryID, tagID); err != nil {
				return 0, err
			}
		}
		return entryID, nil
	})
}

// GetAudioFile returns the stored audio for a recording id.
func (s *Service) GetAudioFile(ctx context.Context, id string) ([]byte, error) {
	return s.blobs.Read(ctx, id)
}

// SaveAudioFile stores audio under a recording id and returns its path.
func (s *Service) SaveAudioFile(ctx context.Context, id string, data []byte) (string, error) {
	return s.blobs.Write(ctx, id, data, "")
}

// ListAudioFiles lists the stored recordings.
func (s *Service) ListAudioFiles(ctx context.Context) ([]blob.Info, error) {
	return s.blobs.List(ctx)
}

// SaveAudioToCustomPath writes audio under dir, or under the saveLocation
// setting when dir is empty.
func (s *Service) SaveAudioToCustomPath(ctx context.Context, id string, data []byte, dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = s.settings.Get().SaveLocation
	}
	return s.blobs.WriteToLocation(ctx, id, data, dir)
}

// ExportRecording copies a stored recording to dir (or the saveLocation
// setting) and returns the new path.
func (s *Service) ExportRecording(ctx context.Context, id, dir string) (string, error) {
	data, err := s.blobs.Read(ctx, id)
	if err != nil {
		return "", err
	}
	return s.SaveAudioToCustomPath(ctx, id, data, dir)
}

// StartRecording begins a recording session.
func (s *Service) StartRecording(ctx context.Context) (string, error) {
	return s.recorder.Start(ctx)
}

// StopRecording ends the session, storing its audio and entry.
func (s *Service) StopRecording(ctx context.Context) (recorder.Result, error) {
	return s.recorder.Stop(ctx)
}

// PlayRecording plays a stored recording.
func (s *Service) PlayRecording(ctx context.Context, id string) error {
	return s.recorder.Play(ctx, id)
}

// AbandonRecording drops the active session without saving.
func (s *Service) AbandonRecording() error {
	return s.recorder.Abandon()
}

// RecordingStatus reports the session state.
func (s *Service) RecordingStatus() recorder.Status {
	return s.recorder.Status()
}

// Record runs a whole session: start, wait for d (capped by the
// maxRecordingTimeMinutes setting) or ctx cancellation, then stop.
// Cancellation still stops and saves; the recording is not discarded.
func (s *Service) Record(ctx context.Context, d time.Duration) (recorder.Result, error) {
	limit := s.settings.Get().MaxRecordingTime()
	if d <= 0 || d > limit {
		d = limit
	}

	if _, err := s.recorder.Start(ctx); err != nil {
		return recorder.Result{}, err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		s.log.Info().Msg("recording interrupted, saving")
	}

	// The caller's context may be done; the save must still run.
	res, err := s.recorder.Stop(context.WithoutCancel(ctx))
	if err != nil && s.recorder.Status().Recording {
		if abandonErr := s.recorder.Abandon(); abandonErr != nil && !errors.Is(abandonErr, recorder.ErrNotRecording) {
			s.log.Error().Err(abandonErr).Msg("error abandoning recording")
		}
	}
	return res, err
}

// Settings returns the current settings.
func (s *Service) Settings() settings.Settings {
	return s.settings.Get()
}

// SettingValue returns one setting.
func (s *Service) SettingValue(key string) (any, error) {
	return s.settings.Value(key)
}

// UpdateSetting sets one setting from its textual form.
func (s *Service) UpdateSetting(key, raw string) (settings.Settings, error) {
	return s.settings.Set(key, raw)
}

// ResetSettings restores default settings.
func (s *Service) ResetSettings() (settings.Settings, error) {
	return s.settings.Reset()
}

// NotFound builds the error the service's callers use for an absent entry.
func NotFound(op string, id int64) error {
	return apperr.New(apperr.KindNotFound, op, fmt.Sprintf("entry %d not found", id))
}
