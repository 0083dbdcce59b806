package storage

import (
	"context"
	"errors"
	"time"

	"remindbot/internal/reminder"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// Config configures storage.
//
// Path is a file path for the sqlite drivers and a DSN for postgres.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the persistence contract shared by the scheduler and the command
// handlers. Affected-row counts let callers tell "nothing matched" apart from
// success without a second query.
type Store interface {
	// Insert stores r, assigning an ID when empty. A second record for the
	// same scope and event instant fails with reminder.ErrDuplicateKey.
	Insert(ctx context.Context, r *reminder.Reminder) error
	DeleteByID(ctx context.Context, id string) (int64, error)
	DeleteByScopeAndTime(ctx context.Context, scope reminder.Scope, eventAt time.Time) (int64, error)
	// DeleteExpired removes records whose event instant is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// QueryDue returns records with nextFireAt <= now and eventAt > now,
	// oldest nextFireAt first, at most limit rows.
	QueryDue(ctx context.Context, now time.Time, limit int) ([]reminder.Reminder, error)
	// QueryByScope returns the records of one scope ordered by event instant.
	QueryByScope(ctx context.Context, scope reminder.Scope) ([]reminder.Reminder, error)
	Update(ctx context.Context, id string, st reminder.State) (int64, error)
	Close() error
}
