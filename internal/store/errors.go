package store

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// IsTransient reports whether err is SQLite lock contention that a
// bounded retry can be expected to clear: SQLITE_BUSY or SQLITE_LOCKED,
// including their extended codes.
//
// Everything else - constraint violations, corruption, disk exhaustion -
// is non-transient and must not be retried.
func IsTransient(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
}
