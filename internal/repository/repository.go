// Package repository is the query and transaction layer over the journal
// database: entry CRUD, keyword search, tag CRUD, entry/tag association and
// a transaction primitive that composes several calls atomically.
//
// Update and delete of absent rows are zero-change results, not errors.
// Constraint failures map to apperr.KindConflict; everything else from the
// database is apperr.KindIO and always propagated. Nothing is retried.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/audiojournal/internal/apperr"
	"github.com/roach88/audiojournal/internal/store"
)

// ErrClosed is returned when the underlying database handle is gone.
var ErrClosed = errors.New("database is closed")

// DBProvider supplies the live database handle, or nil once closed.
// *store.Store implements it.
type DBProvider interface {
	DB() *sql.DB
}

// Clock supplies timestamps for created_at / modified_at.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository runs journal queries. A Repository handed to a Transaction
// callback is bound to that transaction; all others use the live handle.
// Safe for concurrent use outside transactions.
type Repository struct {
	db    DBProvider
	tx    *sql.Tx
	clock *monotonicClock
	log   zerolog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock overrides the timestamp source.
func WithClock(c Clock) Option {
	return func(r *Repository) { r.clock = newMonotonicClock(c) }
}

// WithLogger sets the repository's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Repository) { r.log = log }
}

// New creates a repository over db.
func New(db DBProvider, opts ...Option) *Repository {
	r := &Repository{
		db:    db,
		clock: newMonotonicClock(SystemClock{}),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// conn returns the querier for this repository: the bound transaction, or
// the live handle. A nil handle is a state error.
func (r *Repository) conn(op string) (querier, error) {
	if r.tx != nil {
		return r.tx, nil
	}
	db := r.db.DB()
	if db == nil {
		return nil, apperr.Wrap(apperr.KindState, op, ErrClosed)
	}
	return db, nil
}

// InTransaction reports whether r is bound to a transaction.
func (r *Repository) InTransaction() bool {
	return r.tx != nil
}

// Transaction runs fn inside one database transaction. fn receives a
// repository bound to the transaction and must use it (not r) for every
// call; the pool holds a single connection.
//
// If fn returns an error or panics, the transaction is rolled back and the
// triggering error (or panic) propagates. Callers must not assume partial
// application. Calling Transaction on a bound repository joins the outer
// transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) (err error) {
	if r.tx != nil {
		return fn(r)
	}

	db := r.db.DB()
	if db == nil {
		return apperr.Wrap(apperr.KindState, "transaction", ErrClosed)
	}

	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindIO, "transaction", fmt.Errorf("begin tx: %w", err))
	}

	bound := &Repository{db: r.db, tx: sqlTx, clock: r.clock, log: r.log}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(bound); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			r.log.Error().Err(rbErr).Msg("rollback failed")
		}
		r.log.Debug().Err(err).Msg("transaction rolled back")
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		r.log.Error().Err(err).Msg("error committing transaction")
		return classify("transaction", fmt.Errorf("commit: %w", err))
	}
	return nil
}

// Transact runs fn inside r.Transaction and returns its value.
// On failure the zero value is returned with the triggering error.
func Transact[T any](ctx context.Context, r *Repository, fn func(tx *Repository) (T, error)) (T, error) {
	var result T
	err := r.Transaction(ctx, func(tx *Repository) error {
		v, err := fn(tx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// classify maps a database error to the apperr taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if store.IsConstraintViolation(err) {
		return apperr.Wrap(apperr.KindConflict, op, err)
	}
	return apperr.Wrap(apperr.KindIO, op, err)
}

// monotonicClock never returns the same instant twice, so modified_at
// strictly advances on every write even under a coarse clock.
type monotonicClock struct {
	mu   sync.Mutex
	base Clock
	last time.Time
}

func newMonotonicClock(base Clock) *monotonicClock {
	return &monotonicClock{base: base}
}

func (c *monotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.base.Now().UTC().Round(0)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
