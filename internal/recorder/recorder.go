// Package recorder coordinates a recording session: at most one session is
// active, and stopping it writes the captured audio to the content store
// before creating the journal entry that points at it.
package recorder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/roach88/audiojournal/internal/repository"
)

var (
	// ErrAlreadyRecording is the cause of a Start while a session is active.
	ErrAlreadyRecording = errors.New("already recording")

	// ErrNotRecording is the cause of a Stop or Abandon with no session.
	ErrNotRecording = errors.New("not recording")
)

// BlobWriter persists audio bytes and returns the stored path.
// *blob.Store implements it.
type BlobWriter interface {
	Write(ctx context.Context, id string, data []byte, format string) (string, error)
}

// EntryCreator persists entry metadata. *repository.Repository implements it.
type EntryCreator interface {
	CreateEntry(ctx context.Context, in repository.NewEntry) (int64, error)
}

// Capturer yields the audio captured for a session when it stops.
type Capturer interface {
	Capture(ctx context.Context, recordingID string) ([]byte, error)
}

// Player plays back a stored recording.
type Player interface {
	Play(ctx context.Context, recordingID string) error
}

// Notifier receives the result of every successful Stop.
type Notifier interface {
	RecordingComplete(ctx context.Context, res Result)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, res Result)

// RecordingComplete calls f.
func (f NotifierFunc) RecordingComplete(ctx context.Context, res Result) { f(ctx, res) }

// Clock supplies session start and stop instants.
type Clock interface {
	Now() time.Time
}

// IDGenerator issues recording ids. Ids must satisfy blob.ValidID.
type IDGenerator interface {
	NewID() string
}

// Result is the composite outcome of a successful Stop.
type Result struct {
	RecordingID string    `json:"recordingId"`
	EntryID     int64     `json:"entryId"`
	Path        string    `json:"filePath"`
	Duration    float64   `json:"duration"` // seconds
	CompletedAt time.Time `json:"timestamp"`
}

// Status describes the coordinator's current state.
type Status struct {
	Recording   bool          `json:"recording"`
	RecordingID string        `json:"recordingId,omitempty"`
	StartedAt   time.Time     `json:"startedAt,omitzero"`
	Elapsed     time.Duration `json:"elapsed"`
}

// MockAudio is what MockCapturer returns for every session.
var MockAudio = []byte("Fake audio data")

// MockCapturer stands in for a microphone.
type MockCapturer struct{}

// Capture returns MockAudio.
func (MockCapturer) Capture(context.Context, string) ([]byte, error) {
	out := make([]byte, len(MockAudio))
	copy(out, MockAudio)
	return out, nil
}

// NopPlayer logs the request and does nothing else.
type NopPlayer struct {
	Log zerolog.Logger
}

// Play logs recordingID.
func (p NopPlayer) Play(_ context.Context, recordingID string) error {
	p.Log.Info().Str("recording_id", recordingID).Msg("playing recording")
	return nil
}

type nopNotifier struct{}

func (nopNotifier) RecordingComplete(context.Context, Result) {}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// UUIDv7Generator issues time-sortable UUIDv7 recording ids.
//
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// NewID returns a hyphenated UUIDv7. Panics if the random source fails.
func (UUIDv7Generator) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
