package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/audiojournal/internal/apperr"
	"github.com/roach88/audiojournal/internal/store"
)

const entryColumns = `e.id, e.title, e.audio_path, e.duration, e.transcript, e.created_at, e.modified_at`

// sortColumns whitelists ORDER BY columns. Keys are the accepted SortBy
// values; input never reaches the SQL text.
var sortColumns = map[string]string{
	SortCreatedAt:  "e.created_at",
	SortModifiedAt: "e.modified_at",
	SortTitle:      "e.title",
	SortDuration:   "e.duration",
	"created_at":   "e.created_at",
	"modified_at":  "e.modified_at",
}

// CreateEntry inserts an entry and returns its id. created_at and
// modified_at are both set to the same instant.
func (r *Repository) CreateEntry(ctx context.Context, in NewEntry) (int64, error) {
	const op = "create entry"

	if strings.TrimSpace(in.AudioPath) == "" {
		return 0, apperr.Validation(op, "audio path is required")
	}
	if in.Duration != nil && (*in.Duration < 0 || math.IsNaN(*in.Duration) || math.IsInf(*in.Duration, 0)) {
		return 0, apperr.Validation(op, "duration must be a non-negative number of seconds")
	}

	q, err := r.conn(op)
	if err != nil {
		return 0, err
	}

	now := r.clock.Now()
	result, err := q.ExecContext(ctx, `
		INSERT INTO entries (title, audio_path, duration, transcript, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		nullText(in.Title),
		in.AudioPath,
		nullFloat(in.Duration),
		nullText(in.Transcript),
		now,
		now,
	)
	if err != nil {
		r.log.Error().Err(err).Msg("error creating entry")
		return 0, classify(op, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, classify(op, fmt.Errorf("last insert id: %w", err))
	}

	r.log.Info().Int64("entry_id", id).Msg("created new entry")
	return id, nil
}

// GetAllEntries lists entries ordered per opts.
func (r *Repository) GetAllEntries(ctx context.Context, opts ListOptions) ([]Entry, error) {
	const op = "get all entries"

	q, err := r.conn(op)
	if err != nil {
		return nil, err
	}

	column, ok := sortColumns[opts.SortBy]
	if !ok {
		column = sortColumns[SortCreatedAt]
	}
	direction := "DESC"
	if strings.EqualFold(opts.Order, OrderAsc) {
		direction = "ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM entries e ORDER BY %s %s, e.id %s`, entryColumns, column, direction, direction)
	var args []any
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	entries, err := queryEntries(ctx, q, query, args...)
	if err != nil {
		r.log.Error().Err(err).Msg("error getting entries")
		return nil, classify(op, err)
	}
	return entries, nil
}

// GetEntry returns the entry with id, or nil if there is none.
//
// With includeTags, a failing tag lookup is logged and yields an empty tag
// list rather than failing the read.
func (r *Repository) GetEntry(ctx context.Context, id int64, includeTags bool) (*Entry, error) {
	const op = "get entry"

	if err := validID(op, "entry", id); err != nil {
		return nil, err
	}
	q, err := r.conn(op)
	if err != nil {
		return nil, err
	}

	row := q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries e WHERE e.id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error().Err(err).Int64("entry_id", id).Msg("error getting entry")
		return nil, classify(op, err)
	}

	if includeTags {
		tags, err := r.GetTagsForEntry(ctx, id)
		if err != nil {
			r.log.Warn().Err(err).Int64("entry_id", id).Msg("error getting tags for entry")
			tags = nil
		}
		if tags == nil {
			tags = []Tag{}
		}
		entry.Tags = tags
	}

	return &entry, nil
}

// UpdateEntry overwrites title and transcript and refreshes modified_at.
// An absent id yields Changed == 0, not an error.
func (r *Repository) UpdateEntry(ctx context.Context, id int64, upd EntryUpdate) (UpdateResult, error) {
	const op = "update entry"

	if err := validID(op, "entry", id); err != nil {
		return UpdateResult{}, err
	}
	q, err := r.conn(op)
	if err != nil {
		return UpdateResult{}, err
	}

	result, err := q.ExecContext(ctx, `
		UPDATE entries
		SET title = ?, transcript = ?, modified_at = ?
		WHERE id = ?
	`, nullText(upd.Title), nullText(upd.Transcript), r.clock.Now(), id)
	if err != nil {
		r.log.Error().Err(err).Int64("entry_id", id).Msg("error updating entry")
		return UpdateResult{}, classify(op, err)
	}

	changed, err := result.RowsAffected()
	if err != nil {
		return UpdateResult{}, classify(op, fmt.Errorf("rows affected: %w", err))
	}

	r.log.Info().Int64("entry_id", id).Int64("changes", changed).Msg("updated entry")
	return UpdateResult{ID: id, Changed: changed}, nil
}

// DeleteEntry removes an entry and, by cascade, its tag associations.
// The audio blob is left in place. An absent id yields Changed == 0.
func (r *Repository) DeleteEntry(ctx context.Context, id int64) (DeleteResult, error) {
	const op = "delete entry"

	if err := validID(op, "entry", id); err != nil {
		return DeleteResult{}, err
	}
	q, err := r.conn(op)
	if err != nil {
		return DeleteResult{}, err
	}

	result, err := q.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		r.log.Error().Err(err).Int64("entry_id", id).Msg("error deleting entry")
		return DeleteResult{}, classify(op, err)
	}

	changed, err := result.RowsAffected()
	if err != nil {
		return DeleteResult{}, classify(op, fmt.Errorf("rows affected: %w", err))
	}

	r.log.Info().Int64("entry_id", id).Int64("changes", changed).Msg("deleted entry")
	return DeleteResult{Changed: changed}, nil
}

// SearchEntries returns entries whose title or transcript contains keyword,
// ignoring case (Unicode case folding), newest first. An empty keyword
// matches every entry.
func (r *Repository) SearchEntries(ctx context.Context, keyword string) ([]Entry, error) {
	const op = "search entries"

	q, err := r.conn(op)
	if err != nil {
		return nil, err
	}

	folded := store.Casefold(keyword)
	var entries []Entry
	if folded == "" {
		entries, err = queryEntries(ctx, q,
			`SELECT `+entryColumns+` FROM entries e ORDER BY e.created_at DESC, e.id DESC`)
	} else {
		entries, err = queryEntries(ctx, q, `
			SELECT `+entryColumns+` FROM entries e
			WHERE instr(casefold(e.title), ?) > 0 OR instr(casefold(e.transcript), ?) > 0
			ORDER BY e.created_at DESC, e.id DESC
		`, folded, folded)
	}
	if err != nil {
		r.log.Error().Err(err).Str("keyword", keyword).Msg("error searching entries")
		return nil, classify(op, err)
	}
	return entries, nil
}

// GetEntriesWithTag returns entries carrying tagID, newest first.
func (r *Repository) GetEntriesWithTag(ctx context.Context, tagID int64) ([]Entry, error) {
	const op = "get entries with tag"

	if err := validID(op, "tag", tagID); err != nil {
		return nil, err
	}
	q, err := r.conn(op)
	if err != nil {
		return nil, err
	}

	entries, err := queryEntries(ctx, q, `
		SELECT `+entryColumns+` FROM entries e
		JOIN entry_tags et ON e.id = et.entry_id
		WHERE et.tag_id = ?
		ORDER BY e.created_at DESC, e.id DESC
	`, tagID)
	if err != nil {
		return nil, classify(op, err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e          Entry
		title      sql.NullString
		duration   sql.NullFloat64
		transcript sql.NullString
	)
	if err := row.Scan(&e.ID, &title, &e.AudioPath, &duration, &transcript, &e.CreatedAt, &e.ModifiedAt); err != nil {
		return Entry{}, err
	}
	if title.Valid {
		e.Title = &title.String
	}
	if duration.Valid {
		e.Duration = &duration.Float64
	}
	if transcript.Valid {
		e.Transcript = &transcript.String
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.ModifiedAt = e.ModifiedAt.UTC()
	return e, nil
}

func queryEntries(ctx context.Context, q querier, query string, args ...any) ([]Entry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func validID(op, what string, id int64) error {
	if id <= 0 {
		return apperr.Validation(op, "invalid %s id %d", what, id)
	}
	return nil
}

func nullText(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: store.NormalizeText(*s), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
