package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/audiojournal/internal/apperr"
	"github.com/roach88/audiojournal/internal/store"
	"github.com/roach88/audiojournal/internal/testutil"
)

type fixture struct {
	repo  *Repository
	store *store.Store
	clock *testutil.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := testutil.NewFakeClock(time.Time{})
	return &fixture{
		repo:  New(st, WithClock(clock)),
		store: st,
		clock: clock,
	}
}

func (f *fixture) mustCreateEntry(t *testing.T, title string) int64 {
	t.Helper()
	id, err := f.repo.CreateEntry(context.Background(), NewEntry{
		Title:     Ptr(title),
		AudioPath: "/recordings/recording_" + title + ".wav",
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) mustCreateTag(t *testing.T, name string) int64 {
	t.Helper()
	id, err := f.repo.CreateTag(context.Background(), name)
	require.NoError(t, err)
	return id
}

func TestTransaction_CommitsAllSteps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var entryID, tagID int64
	err := f.repo.Transaction(ctx, func(tx *Repository) error {
		assert.True(t, tx.InTransaction())

		var err error
		entryID, err = tx.CreateEntry(ctx, NewEntry{AudioPath: "/a.wav"})
		if err != nil {
			return err
		}
		tagID, err = tx.CreateTag(ctx, "morning")
		if err != nil {
			return err
		}
		return tx.TagEntry(ctx, entryID, tagID)
	})
	require.NoError(t, err)

	tags, err := f.repo.GetTagsForEntry(ctx, entryID)
	require.NoError(t, err)
	assert.Equal(t, []Tag{{ID: tagID, Name: "morning"}}, tags)
}

func TestTransaction_SecondStepFailureRollsBackFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var createdID int64
	err := f.repo.Transaction(ctx, func(tx *Repository) error {
		var err error
		createdID, err = tx.CreateEntry(ctx, NewEntry{Title: Ptr("doomed"), AudioPath: "/doomed.wav"})
		if err != nil {
			return err
		}
		// Tag 999 does not exist: foreign key failure.
		return tx.TagEntry(ctx, createdID, 999)
	})
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err), "triggering error surfaces: %v", err)

	entry, err := f.repo.GetEntry(ctx, createdID, false)
	require.NoError(t, err)
	assert.Nil(t, entry, "first step must not be visible")

	entries, err := f.repo.GetAllEntries(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTransaction_CallbackErrorIsReturnedUnchanged(t *testing.T) {
	f := newFixture(t)
	sentinel := errors.New("abort")

	err := f.repo.Transaction(context.Background(), func(tx *Repository) error {
		if _, err := tx.CreateTag(context.Background(), "x"); err != nil {
			return err
		}
		return sentinel
	})
	assert.Same(t, sentinel, err)

	tags, err := f.repo.GetAllTags(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestTransaction_PanicRollsBackAndRepanics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.PanicsWithValue(t, "boom", func() {
		_ = f.repo.Transaction(ctx, func(tx *Repository) error {
			_, _ = tx.CreateEntry(ctx, NewEntry{AudioPath: "/p.wav"})
			panic("boom")
		})
	})

	entries, err := f.repo.GetAllEntries(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTransaction_NestedJoinsOuter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.repo.Transaction(ctx, func(tx *Repository) error {
		if err := tx.Transaction(ctx, func(inner *Repository) error {
			assert.Same(t, tx, inner)
			_, err := inner.CreateEntry(ctx, NewEntry{AudioPath: "/inner.wav"})
			return err
		}); err != nil {
			return err
		}
		return errors.New("outer fails")
	})
	require.Error(t, err)

	entries, err := f.repo.GetAllEntries(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, entries, "inner work is rolled back with the outer transaction")
}

func TestTransaction_CancelledContextKeepsForeignKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.mustCreateEntry(t, "kept")
	tag := f.mustCreateTag(t, "sticky")
	require.NoError(t, f.repo.TagEntry(ctx, id, tag))

	txCtx, cancel := context.WithCancel(ctx)
	err := f.repo.Transaction(txCtx, func(tx *Repository) error {
		cancel()
		return nil
	})
	require.Error(t, err, "commit after cancellation must fail")

	var fk int
	require.NoError(t, f.store.DB().QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)

	_, err = f.repo.DeleteEntry(ctx, id)
	require.NoError(t, err)
	tags, err := f.repo.GetTagsForEntry(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, tags, "delete still cascades to associations")

	err = f.repo.TagEntry(ctx, id, tag)
	assert.True(t, apperr.IsConflict(err), "tagging a deleted entry is a conflict, got %v", err)
}

func TestTransact_ReturnsValue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := Transact(ctx, f.repo, func(tx *Repository) (int64, error) {
		return tx.CreateEntry(ctx, NewEntry{AudioPath: "/v.wav"})
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	id, err = Transact(ctx, f.repo, func(tx *Repository) (int64, error) {
		if _, err := tx.CreateEntry(ctx, NewEntry{AudioPath: "/w.wav"}); err != nil {
			return 0, err
		}
		return 42, errors.New("nope")
	})
	require.Error(t, err)
	assert.Zero(t, id)
}

func TestClosedStore_IsStateError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Close())

	_, err := f.repo.CreateEntry(ctx, NewEntry{AudioPath: "/a.wav"})
	assert.True(t, apperr.IsState(err))
	assert.ErrorIs(t, err, ErrClosed)

	_, err = f.repo.GetAllTags(ctx)
	assert.True(t, apperr.IsState(err))

	err = f.repo.Transaction(ctx, func(*Repository) error { return nil })
	assert.True(t, apperr.IsState(err))
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mustCreateEntry(t, "shared")

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.repo.GetAllEntries(ctx, ListOptions{})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := f.repo.UpdateEntry(ctx, id, EntryUpdate{Title: Ptr("updated")})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestMonotonicClock_StrictlyIncreasing(t *testing.T) {
	frozen := testutil.NewFakeClock(time.Time{})
	c := newMonotonicClock(frozen)

	first := c.Now()
	second := c.Now()
	assert.True(t, second.After(first))

	frozen.Advance(time.Hour)
	third := c.Now()
	assert.True(t, third.Equal(testutil.DefaultEpoch.Add(time.Hour)))
}
