package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/audiojournal/internal/apperr"
	"github.com/roach88/audiojournal/internal/blob"
	"github.com/roach88/audiojournal/internal/repository"
)

// session is the in-memory state of an active recording.
type session struct {
	id        string
	startedAt time.Time
}

// Coordinator owns the Idle -> Recording -> Idle lifecycle.
//
// Thread-safety: all methods are safe for concurrent use. Stop holds the
// session lock for its whole write sequence, so a concurrent Start waits
// until the session is resolved.
type Coordinator struct {
	mu      sync.Mutex
	current *session

	blobs    BlobWriter
	entries  EntryCreator
	capturer Capturer
	player   Player
	notifier Notifier
	clock    Clock
	ids      IDGenerator
	format   string
	log      zerolog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithCapturer sets the audio source. Default MockCapturer.
func WithCapturer(c Capturer) Option {
	return func(co *Coordinator) { co.capturer = c }
}

// WithPlayer sets the playback backend. Default NopPlayer.
func WithPlayer(p Player) Option {
	return func(co *Coordinator) { co.player = p }
}

// WithNotifier sets the completion listener.
func WithNotifier(n Notifier) Option {
	return func(co *Coordinator) { co.notifier = n }
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(co *Coordinator) { co.clock = c }
}

// WithIDGenerator overrides recording id generation.
func WithIDGenerator(g IDGenerator) Option {
	return func(co *Coordinator) { co.ids = g }
}

// WithFormat sets the audio format passed to the blob writer. Empty means
// the writer's default.
func WithFormat(format string) Option {
	return func(co *Coordinator) { co.format = format }
}

// WithLogger sets the coordinator's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(co *Coordinator) { co.log = log }
}

// New creates an idle coordinator writing through blobs and entries.
func New(blobs BlobWriter, entries EntryCreator, opts ...Option) *Coordinator {
	c := &Coordinator{
		blobs:    blobs,
		entries:  entries,
		capturer: MockCapturer{},
		notifier: nopNotifier{},
		clock:    SystemClock{},
		ids:      UUIDv7Generator{},
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.player == nil {
		c.player = NopPlayer{Log: c.log}
	}
	return c
}

// Start begins a session and returns its recording id.
func (c *Coordinator) Start(ctx context.Context) (string, error) {
	const op = "start recording"

	if err := ctx.Err(); err != nil {
		return "", apperr.Wrap(apperr.KindIO, op, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return "", apperr.Wrapf(apperr.KindState, op, ErrAlreadyRecording,
			"recording %s is already in progress", c.current.id)
	}

	id := c.ids.NewID()
	if err := blob.ValidID(id); err != nil {
		return "", apperr.Wrapf(apperr.KindValidation, op, err, "generated recording id %q is unusable", id)
	}

	c.current = &session{id: id, startedAt: c.clock.Now()}
	c.log.Info().Str("recording_id", id).Msg("recording started")
	return id, nil
}

// Stop ends the active session: capture, blob write, then entry create.
//
// A capture or blob failure leaves the session active so Stop can be
// retried (duration still counts from the original start) or the session
// abandoned. An entry failure clears the session and leaves the blob on
// disk; its path is logged.
func (c *Coordinator) Stop(ctx context.Context) (Result, error) {
	const op = "stop recording"

	c.mu.Lock()
	s := c.current
	if s == nil {
		c.mu.Unlock()
		return Result{}, apperr.Wrapf(apperr.KindState, op, ErrNotRecording, "no recording in progress")
	}

	res, err := c.finish(ctx, op, s)
	c.mu.Unlock()
	if err != nil {
		return Result{}, err
	}

	c.notifier.RecordingComplete(ctx, res)
	return res, nil
}

// finish runs the write sequence for s. Caller holds c.mu.
func (c *Coordinator) finish(ctx context.Context, op string, s *session) (Result, error) {
	now := c.clock.Now()
	duration := now.Sub(s.startedAt).Seconds()
	if duration < 0 {
		duration = 0
	}

	data, err := c.capturer.Capture(ctx, s.id)
	if err != nil {
		c.log.Error().Err(err).Str("recording_id", s.id).Msg("error capturing audio")
		return Result{}, asIO(op, fmt.Errorf("capture: %w", err))
	}

	path, err := c.blobs.Write(ctx, s.id, data, c.format)
	if err != nil {
		c.log.Error().Err(err).Str("recording_id", s.id).Msg("error saving recording")
		return Result{}, asIO(op, err)
	}

	title := "Recording " + s.id
	entryID, err := c.entries.CreateEntry(ctx, repository.NewEntry{
		Title:     &title,
		AudioPath: path,
		Duration:  &duration,
	})
	if err != nil {
		c.current = nil
		c.log.Warn().Err(err).
			Str("recording_id", s.id).
			Str("path", path).
			Msg("entry creation failed; audio file left without an entry")
		return Result{}, asIO(op, err)
	}

	c.current = nil
	c.log.Info().
		Str("recording_id", s.id).
		Int64("entry_id", entryID).
		Float64("duration", duration).
		Msg("recording saved")

	return Result{
		RecordingID: s.id,
		EntryID:     entryID,
		Path:        path,
		Duration:    duration,
		CompletedAt: now.UTC(),
	}, nil
}

// Abandon drops the active session without writing anything.
func (c *Coordinator) Abandon() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return apperr.Wrapf(apperr.KindState, "abandon recording", ErrNotRecording, "no recording in progress")
	}
	c.log.Info().Str("recording_id", c.current.id).Msg("recording abandoned")
	c.current = nil
	return nil
}

// Status reports whether a session is active and for how long.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return Status{}
	}
	return Status{
		Recording:   true,
		RecordingID: c.current.id,
		StartedAt:   c.current.startedAt,
		Elapsed:     c.clock.Now().Sub(c.current.startedAt),
	}
}

// Play validates recordingID and hands it to the player.
func (c *Coordinator) Play(ctx context.Context, recordingID string) error {
	const op = "play recording"

	if err := blob.ValidID(recordingID); err != nil {
		return err
	}
	if err := c.player.Play(ctx, recordingID); err != nil {
		return asIO(op, err)
	}
	return nil
}

// asIO keeps an existing apperr kind and classifies anything else as io.
func asIO(op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Wrap(apperr.KindIO, op, err)
}
