package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DriverName is the database/sql driver registered by this package.
const DriverName = "sqlite3_journal"

// connPragmas are per-connection settings, applied on every connect.
// database/sql may replace the pooled connection (a cancelled transaction
// discards it).
var connPragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA synchronous = NORMAL",
}

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			for _, pragma := range connPragmas {
				if _, err := conn.Exec(pragma, nil); err != nil {
					return fmt.Errorf("failed to execute %q: %w", pragma, err)
				}
			}
			return conn.RegisterFunc("casefold", casefoldSQL, true)
		},
	})
}

// casefoldSQL backs the casefold() SQL function. NULL folds to "".
func casefoldSQL(v any) string {
	switch s := v.(type) {
	case string:
		return Casefold(s)
	case []byte:
		return Casefold(string(s))
	default:
		return ""
	}
}

// Casefold returns the NFC-normalized, Unicode case-folded form of s.
// A new Caser is built per call; Casers are not safe for concurrent use.
func Casefold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// NormalizeText returns s in Unicode normalization form C. Text is stored
// composed so that equality and substring search do not depend on how the
// input was encoded.
func NormalizeText(s string) string {
	return norm.NFC.String(s)
}

// IsUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure.
func IsUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
		se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// IsForeignKeyViolation reports whether err is a FOREIGN KEY constraint failure.
func IsForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

// IsConstraintViolation reports whether err is any constraint failure.
func IsConstraintViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrConstraint
}
