package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"remindbot/internal/reminder"
	logx "remindbot/pkg/logx"
)

// reminderRow is the gorm model of the reminders table. Column names match
// migrations.sql so the SQLite and PostgreSQL schemas stay interchangeable.
type reminderRow struct {
	ID               string `gorm:"primaryKey;size:36"`
	ChatID           int64  `gorm:"column:chat_id;not null;uniqueIndex:ux_reminders_scope_event,priority:1"`
	ThreadID         int    `gorm:"column:thread_id;not null;default:0;uniqueIndex:ux_reminders_scope_event,priority:2"`
	EventAtMs        int64  `gorm:"column:event_at_ms;not null;uniqueIndex:ux_reminders_scope_event,priority:3"`
	IntervalMs       int64  `gorm:"column:interval_ms;not null"`
	NextFireAtMs     *int64 `gorm:"column:next_fire_at_ms;index:idx_reminders_next_fire"`
	Remaining        int    `gorm:"column:remaining;not null"`
	DeliveryFailures int    `gorm:"column:delivery_failures;not null;default:0"`
	Message          string `gorm:"column:message;type:text"`
	CreatedAtMs      int64  `gorm:"column:created_at_ms;not null"`
	CreatedBy        int64  `gorm:"column:created_by;not null;default:0"`
}

func (reminderRow) TableName() string { return "reminders" }

func rowFromReminder(r reminder.Reminder) reminderRow {
	return reminderRow{
		ID:               r.ID,
		ChatID:           r.Scope.ChatID,
		ThreadID:         r.Scope.ThreadID,
		EventAtMs:        r.EventAt.UnixMilli(),
		IntervalMs:       r.Interval.Milliseconds(),
		NextFireAtMs:     toMillis(r.NextFireAt),
		Remaining:        r.Remaining,
		DeliveryFailures: r.Failures,
		Message:          r.Message,
		CreatedAtMs:      r.CreatedAt.UnixMilli(),
		CreatedBy:        r.CreatedBy,
	}
}

func (row reminderRow) reminder() reminder.Reminder {
	return reminder.Reminder{
		ID:         row.ID,
		Scope:      reminder.Scope{ChatID: row.ChatID, ThreadID: row.ThreadID},
		EventAt:    time.UnixMilli(row.EventAtMs),
		Interval:   time.Duration(row.IntervalMs) * time.Millisecond,
		NextFireAt: fromMillis(row.NextFireAtMs),
		Remaining:  row.Remaining,
		Failures:   row.DeliveryFailures,
		Message:    row.Message,
		CreatedAt:  time.UnixMilli(row.CreatedAtMs),
		CreatedBy:  row.CreatedBy,
	}
}

type gormStore struct {
	db  *gorm.DB
	log logx.Logger
}

func openPostgres(cfg Config, log logx.Logger) (Store, error) {
	dsn := strings.TrimSpace(cfg.Path)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required (storage.path or REMINDBOT_DSN)")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := gdb.AutoMigrate(&reminderRow{}); err != nil {
		closeGorm(gdb)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("store opened")
	return &gormStore{db: gdb, log: log}, nil
}

func closeGorm(gdb *gorm.DB) {
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (s *gormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *gormStore) Insert(ctx context.Context, r *reminder.Reminder) error {
	prepareInsert(r)
	row := rowFromReminder(*r)
	err := s.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s at %d", reminder.ErrDuplicateKey, r.Scope, row.EventAtMs)
	}
	return err
}

func (s *gormStore) DeleteByID(ctx context.Context, id string) (int64, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&reminderRow{})
	return res.RowsAffected, res.Error
}

func (s *gormStore) DeleteByScopeAndTime(ctx context.Context, scope reminder.Scope, eventAt time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("chat_id = ? AND thread_id = ? AND event_at_ms = ?", scope.ChatID, scope.ThreadID, eventAt.UnixMilli()).
		Delete(&reminderRow{})
	return res.RowsAffected, res.Error
}

func (s *gormStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("event_at_ms <= ?", now.UnixMilli()).Delete(&reminderRow{})
	return res.RowsAffected, res.Error
}

func (s *gormStore) Update(ctx context.Context, id string, st reminder.State) (int64, error) {
	res := s.db.WithContext(ctx).Model(&reminderRow{}).Where("id = ?", id).Updates(map[string]any{
		"remaining":         st.Remaining,
		"next_fire_at_ms":   toMillis(st.NextFireAt),
		"delivery_failures": st.Failures,
	})
	return res.RowsAffected, res.Error
}

func (s *gormStore) QueryDue(ctx context.Context, now time.Time, limit int) ([]reminder.Reminder, error) {
	if limit <= 0 {
		return nil, nil
	}
	ms := now.UnixMilli()
	var rows []reminderRow
	err := s.db.WithContext(ctx).
		Where("next_fire_at_ms IS NOT NULL AND next_fire_at_ms <= ? AND event_at_ms > ?", ms, ms).
		Order("next_fire_at_ms ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	return decodeRows(rows), err
}

func (s *gormStore) QueryByScope(ctx context.Context, scope reminder.Scope) ([]reminder.Reminder, error) {
	var rows []reminderRow
	err := s.db.WithContext(ctx).
		Where("chat_id = ? AND thread_id = ?", scope.ChatID, scope.ThreadID).
		Order("event_at_ms ASC").
		Find(&rows).Error
	return decodeRows(rows), err
}

func decodeRows(rows []reminderRow) []reminder.Reminder {
	if len(rows) == 0 {
		return nil
	}
	out := make([]reminder.Reminder, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.reminder())
	}
	return out
}
