package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/audiojournal/internal/apperr"
)

// createTestStore opens a fresh store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	assert.Equal(t, path, s.Path())
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "journal.db")

	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Open multiple times
	for i := 0; i < 3; i++ {
		s, err := Open(context.Background(), path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s := createTestStoreAt(t, path)

	// Verify schema is intact
	for _, table := range Tables {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_UnwritableLocation(t *testing.T) {
	// A regular file where a directory is expected cannot be created over.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Open(context.Background(), filepath.Join(blocker, "sub", "test.db"))
	require.Error(t, err)
	assert.True(t, apperr.IsIO(err))

	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "connect", ae.Op)
}

func TestClose_NeverOpened(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
	assert.Nil(t, s.DB())
}

func TestClose_MultipleCalls(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.Close())
	assert.NoError(t, s.Close(), "second Close() should be a no-op")
}

func TestDB_NilAfterClose(t *testing.T) {
	s := createTestStore(t)

	db := s.DB()
	require.NotNil(t, db)
	require.NoError(t, db.Ping())

	require.NoError(t, s.Close())
	assert.Nil(t, s.DB())

	var nilStore *Store
	assert.Nil(t, nilStore.DB())
}

// Pragma tests

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL = 1
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"}, // ON = 1
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, s.verifyPragma(tt.name, tt.expected))
		})
	}
}

func TestPragmas_AppliedToReplacementConnections(t *testing.T) {
	s := createTestStore(t)
	// With no idle connections every query dials a new one.
	s.DB().SetMaxIdleConns(0)

	tests := []struct {
		name     string
		expected string
	}{
		{"foreign_keys", "1"},
		{"busy_timeout", "5000"},
		{"synchronous", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, s.verifyPragma(tt.name, tt.expected))
		})
	}

	_, err := s.DB().Exec(`INSERT INTO entry_tags (entry_id, tag_id) VALUES (99, 99)`)
	assert.True(t, IsForeignKeyViolation(err), "fresh connection must enforce foreign keys, got %v", err)
}

// Schema tests

func TestSchema_Columns(t *testing.T) {
	s := createTestStore(t)

	expected := map[string][]string{
		"entries":    {"id", "title", "audio_path", "duration", "transcript", "created_at", "modified_at"},
		"tags":       {"id", "name"},
		"entry_tags": {"entry_id", "tag_id"},
	}

	for table, cols := range expected {
		columns := getTableColumns(t, s.DB(), table)
		for _, col := range cols {
			assert.Contains(t, columns, col, "%s table missing column %q", table, col)
		}
	}
}

func TestSchema_Indexes(t *testing.T) {
	s := createTestStore(t)

	assert.Contains(t, getTableIndexes(t, s.DB(), "entries"), "idx_entries_created_at")
	assert.Contains(t, getTableIndexes(t, s.DB(), "entry_tags"), "idx_entry_tags_tag")
}

func TestCreateSchema_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, CreateSchema(ctx, s.DB()))
	require.NoError(t, CreateSchema(ctx, s.DB()))
}

func TestCreateSchema_RollsBackOnFailure(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS probe (id INTEGER PRIMARY KEY)`,
		`CREATE TABLE broken (`,
	}

	err := createSchema(ctx, db, statements)
	require.Error(t, err)
	assert.True(t, apperr.IsIO(err))
	assert.Contains(t, err.Error(), "statement 1")

	var name string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='probe'").Scan(&name)
	assert.ErrorIs(t, err, sql.ErrNoRows, "first statement must not be committed")
}

func TestCreateSchema_NilHandle(t *testing.T) {
	err := CreateSchema(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperr.IsState(err))
}

// Constraint tests

func TestConstraint_TagNameUnique(t *testing.T) {
	s := createTestStore(t)

	_, err := s.DB().Exec(`INSERT INTO tags (name) VALUES ('work')`)
	require.NoError(t, err)

	_, err = s.DB().Exec(`INSERT INTO tags (name) VALUES ('work')`)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.True(t, IsConstraintViolation(err))
	assert.False(t, IsForeignKeyViolation(err))
}

func TestConstraint_EntryTagForeignKeys(t *testing.T) {
	s := createTestStore(t)

	_, err := s.DB().Exec(`INSERT INTO entry_tags (entry_id, tag_id) VALUES (99, 99)`)
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
	assert.False(t, IsUniqueViolation(err))
}

func TestConstraint_CascadeOnEntryDelete(t *testing.T) {
	s := createTestStore(t)
	db := s.DB()

	_, err := db.Exec(`INSERT INTO entries (id, audio_path, created_at, modified_at) VALUES (1, '/a.wav', '2024-01-01', '2024-01-01')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO tags (id, name) VALUES (1, 'a')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO entry_tags (entry_id, tag_id) VALUES (1, 1)`)
	require.NoError(t, err)

	_, err = db.Exec(`DELETE FROM entries WHERE id = 1`)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM entry_tags`).Scan(&count))
	assert.Equal(t, 0, count)

	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM tags`).Scan(&count))
	assert.Equal(t, 1, count, "tags are never cascaded from entries")
}

func TestIsUniqueViolation_NonSQLiteError(t *testing.T) {
	assert.False(t, IsUniqueViolation(sql.ErrNoRows))
	assert.False(t, IsForeignKeyViolation(nil))
	assert.False(t, IsConstraintViolation(os.ErrNotExist))
}

// casefold function tests

func TestCasefoldFunction(t *testing.T) {
	s := createTestStore(t)

	var folded string
	require.NoError(t, s.DB().QueryRow(`SELECT casefold('ÄBC Mixed')`).Scan(&folded))
	assert.Equal(t, "äbc mixed", folded)

	require.NoError(t, s.DB().QueryRow(`SELECT casefold(NULL)`).Scan(&folded))
	assert.Equal(t, "", folded)
}

func TestCasefold_NormalizesDecomposedInput(t *testing.T) {
	decomposed := "Cafe\u0301"
	assert.Equal(t, "caf\u00e9", Casefold(decomposed))
	assert.Equal(t, "Caf\u00e9", NormalizeText(decomposed))
}

// Helpers

func createTestStoreAt(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func openRawDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open(DriverName, filepath.Join(t.TempDir(), "raw.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}
