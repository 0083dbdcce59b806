package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"remindbot/internal/reminder"
	logx "remindbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

const reminderColumns = `id, chat_id, thread_id, event_at_ms, interval_ms, next_fire_at_ms, remaining, delivery_failures, message, created_at_ms, created_by`

// sqlStore implements Store over database/sql for both SQLite drivers.
// isUnique reports whether an engine error is a uniqueness violation.
type sqlStore struct {
	db       *sql.DB
	log      logx.Logger
	isUnique func(error) bool
}

// openSQLFile opens a SQLite database file with the given database/sql driver
// name, applies pragmas and runs the embedded migrations.
func openSQLFile(driverName string, cfg Config, log logx.Logger, isUnique func(error) bool) (*sqlStore, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("%s path is required", driverName)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()))
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqlStore{db: db, log: log, isUnique: isUnique}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("store opened", logx.String("path", path))
	return st, nil
}

func (s *sqlStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqlStore) Insert(ctx context.Context, r *reminder.Reminder) error {
	prepareInsert(r)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders(`+reminderColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.Scope.ChatID, r.Scope.ThreadID, r.EventAt.UnixMilli(), r.Interval.Milliseconds(),
		toMillis(r.NextFireAt), r.Remaining, r.Failures, nullStr(r.Message), r.CreatedAt.UnixMilli(), r.CreatedBy,
	)
	if err != nil && s.isUnique != nil && s.isUnique(err) {
		return fmt.Errorf("%w: %s at %d", reminder.ErrDuplicateKey, r.Scope, r.EventAt.UnixMilli())
	}
	return err
}

func (s *sqlStore) DeleteByID(ctx context.Context, id string) (int64, error) {
	return s.exec(ctx, `DELETE FROM reminders WHERE id = ?`, id)
}

func (s *sqlStore) DeleteByScopeAndTime(ctx context.Context, scope reminder.Scope, eventAt time.Time) (int64, error) {
	return s.exec(ctx,
		`DELETE FROM reminders WHERE chat_id = ? AND thread_id = ? AND event_at_ms = ?`,
		scope.ChatID, scope.ThreadID, eventAt.UnixMilli(),
	)
}

func (s *sqlStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.exec(ctx, `DELETE FROM reminders WHERE event_at_ms <= ?`, now.UnixMilli())
}

func (s *sqlStore) Update(ctx context.Context, id string, st reminder.State) (int64, error) {
	return s.exec(ctx,
		`UPDATE reminders SET remaining = ?, next_fire_at_ms = ?, delivery_failures = ? WHERE id = ?`,
		st.Remaining, toMillis(st.NextFireAt), st.Failures, id,
	)
}

func (s *sqlStore) QueryDue(ctx context.Context, now time.Time, limit int) ([]reminder.Reminder, error) {
	if limit <= 0 {
		return nil, nil
	}
	ms := now.UnixMilli()
	return s.query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE next_fire_at_ms IS NOT NULL AND next_fire_at_ms <= ? AND event_at_ms > ?
		 ORDER BY next_fire_at_ms ASC, id ASC
		 LIMIT ?`,
		ms, ms, limit,
	)
}

func (s *sqlStore) QueryByScope(ctx context.Context, scope reminder.Scope) ([]reminder.Reminder, error) {
	return s.query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE chat_id = ? AND thread_id = ?
		 ORDER BY event_at_ms ASC`,
		scope.ChatID, scope.ThreadID,
	)
}

func (s *sqlStore) exec(ctx context.Context, q string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sqlStore) query(ctx context.Context, q string, args ...any) ([]reminder.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reminder.Reminder
	for rows.Next() {
		var (
			r          reminder.Reminder
			eventAt    int64
			intervalMs int64
			next       sql.NullInt64
			msg        sql.NullString
			createdAt  int64
		)
		if err := rows.Scan(&r.ID, &r.Scope.ChatID, &r.Scope.ThreadID, &eventAt, &intervalMs,
			&next, &r.Remaining, &r.Failures, &msg, &createdAt, &r.CreatedBy); err != nil {
			return nil, err
		}
		r.EventAt = time.UnixMilli(eventAt)
		r.Interval = time.Duration(intervalMs) * time.Millisecond
		if next.Valid {
			r.NextFireAt = time.UnixMilli(next.Int64)
		}
		r.Message = msg.String
		r.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
