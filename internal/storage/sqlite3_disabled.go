//go:build !cgo_sqlite

package storage

import (
	"errors"

	logx "remindbot/pkg/logx"
)

func openSQLite3(cfg Config, log logx.Logger) (Store, error) {
	_ = cfg
	_ = log
	return nil, errors.New("sqlite3 storage not built: build with -tags cgo_sqlite (requires cgo), or use driver \"sqlite\"")
}
