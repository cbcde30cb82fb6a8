package db

import (
	"strings"

	"github.com/teranos/psq/errors"
)

// ErrDatabaseClosed marks writes that raced a Close, e.g. a history record
// arriving after the CLI released the store.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed matches ErrDatabaseClosed and the driver's own
// "sql: database is closed" error, which cannot be marked at the source.
func IsDatabaseClosed(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrDatabaseClosed):
		return true
	default:
		return strings.Contains(err.Error(), "database is closed")
	}
}
