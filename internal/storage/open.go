package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"remindbot/internal/reminder"
	logx "remindbot/pkg/logx"
)

const DefaultDriver = "sqlite"

// Open initializes the configured store. An empty driver selects DefaultDriver.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DefaultDriver
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("driver", driver))

	switch driver {
	case "sqlite":
		return openSQLite(cfg, log)
	case "sqlite3":
		return openSQLite3(cfg, log)
	case "postgres", "postgresql":
		return openPostgres(cfg, log)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}

// prepareInsert fills defaults shared by all drivers.
func prepareInsert(r *reminder.Reminder) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
}

func toMillis(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func fromMillis(ms *int64) time.Time {
	if ms == nil {
		return time.Time{}
	}
	return time.UnixMilli(*ms)
}
