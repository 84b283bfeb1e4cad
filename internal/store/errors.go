package store

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// Sentinel errors per spec §4.A / §7. Callers use errors.Is to classify.
var (
	ErrNotFound          = errors.New("not found")
	ErrUniqueViolation   = errors.New("unique constraint violation")
	ErrReadOnlyViolation = errors.New("read-only violation")
	ErrStorage           = errors.New("storage error")
)

// wrapInsertErr classifies a raw insert error, mapping a SQLite unique or
// primary-key constraint failure to ErrUniqueViolation (spec §7's Conflict kind) and
// everything else to ErrStorage.
func wrapInsertErr(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return ErrUniqueViolation
	}
	return errors.Join(ErrStorage, err)
}
