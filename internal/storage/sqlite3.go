//go:build cgo_sqlite

package storage

import (
	"errors"

	"github.com/mattn/go-sqlite3"

	logx "remindbot/pkg/logx"
)

func openSQLite3(cfg Config, log logx.Logger) (Store, error) {
	return openSQLFile("sqlite3", cfg, log, isMattnUnique)
}

func isMattnUnique(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
