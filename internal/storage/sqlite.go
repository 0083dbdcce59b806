package storage

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	logx "remindbot/pkg/logx"
)

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	return openSQLFile("sqlite", cfg, log, isModerncUnique)
}

func isModerncUnique(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch code := se.Code(); code {
	case sqlitelib.SQLITE_CONSTRAINT_UNIQUE, sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlitelib.SQLITE_CONSTRAINT:
		// Connections without extended result codes only report the primary code.
		return strings.Contains(se.Error(), "UNIQUE")
	default:
		return false
	}
}
