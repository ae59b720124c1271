package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/audiojournal/internal/apperr"
	"github.com/roach88/audiojournal/internal/store"
)

// CreateTag creates a tag and returns its id. If the name is taken, the
// existing tag's id is returned instead of an error.
func (r *Repository) CreateTag(ctx context.Context, name string) (int64, error) {
	const op = "create tag"

	name = store.NormalizeText(strings.TrimSpace(name))
	if name == "" {
		return 0, apperr.Validation(op, "tag name is required")
	}

	// Insert-or-select runs in one transaction so the read after a
	// conflict sees the row that caused it.
	return Transact(ctx, r, func(tx *Repository) (int64, error) {
		result, err := tx.tx.ExecContext(ctx, `
			INSERT INTO tags (name) VALUES (?)
			ON CONFLICT(name) DO NOTHING
		`, name)
		if err != nil {
			return 0, classify(op, fmt.Errorf("insert: %w", err))
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return 0, classify(op, fmt.Errorf("rows affected: %w", err))
		}

		var id int64
		if rowsAffected > 0 {
			id, err = result.LastInsertId()
			if err != nil {
				return 0, classify(op, fmt.Errorf("last insert id: %w", err))
			}
			r.log.Info().Int64("tag_id", id).Str("name", name).Msg("created tag")
			return id, nil
		}

		// Conflict - tag already exists, fetch the existing ID
		err = tx.tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&id)
		if err != nil {
			return 0, classify(op, fmt.Errorf("select existing: %w", err))
		}
		r.log.Debug().Int64("tag_id", id).Str("name", name).Msg("tag already exists")
		return id, nil
	})
}

// GetAllTags lists every tag ordered by name.
func (r *Repository) GetAllTags(ctx context.Context) ([]Tag, error) {
	const op = "get all tags"

	q, err := r.conn(op)
	if err != nil {
		return nil, err
	}
	tags, err := queryTags(ctx, q, `SELECT t.id, t.name FROM tags t ORDER BY t.name, t.id`)
	if err != nil {
		return nil, classify(op, err)
	}
	return tags, nil
}

// TagEntry associates a tag with an entry. Re-tagging is a no-op.
// A missing entry or tag is a conflict (foreign key).
func (r *Repository) TagEntry(ctx context.Context, entryID, tagID int64) error {
	const op = "tag entry"

	if err := validID(op, "entry", entryID); err != nil {
		return err
	}
	if err := validID(op, "tag", tagID); err != nil {
		return err
	}
	q, err := r.conn(op)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO entry_tags (entry_id, tag_id) VALUES (?, ?)
		ON CONFLICT(entry_id, tag_id) DO NOTHING
	`, entryID, tagID)
	if err != nil {
		if store.IsForeignKeyViolation(err) {
			return apperr.Wrapf(apperr.KindConflict, op, err, "entry %d or tag %d does not exist", entryID, tagID)
		}
		return classify(op, err)
	}
	return nil
}

// UntagEntry removes an association. Removing an absent association is
// not an error.
func (r *Repository) UntagEntry(ctx context.Context, entryID, tagID int64) error {
	const op = "untag entry"

	if err := validID(op, "entry", entryID); err != nil {
		return err
	}
	if err := validID(op, "tag", tagID); err != nil {
		return err
	}
	q, err := r.conn(op)
	if err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM entry_tags WHERE entry_id = ? AND tag_id = ?`, entryID, tagID); err != nil {
		return classify(op, err)
	}
	return nil
}

// GetTagsForEntry returns the tags on an entry ordered by name.
func (r *Repository) GetTagsForEntry(ctx context.Context, entryID int64) ([]Tag, error) {
	const op = "get tags for entry"

	if err := validID(op, "entry", entryID); err != nil {
		return nil, err
	}
	q, err := r.conn(op)
	if err != nil {
		return nil, err
	}

	tags, err := queryTags(ctx, q, `
		SELECT t.id, t.name FROM tags t
		JOIN entry_tags et ON t.id = et.tag_id
		WHERE et.entry_id = ?
		ORDER BY t.name, t.id
	`, entryID)
	if err != nil {
		return nil, classify(op, err)
	}
	return tags, nil
}

func queryTags(ctx context.Context, q querier, query string, args ...any) ([]Tag, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return tags, nil
}
