package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"remindbot/internal/reminder"
)

type scopeEvent struct {
	scope   reminder.Scope
	eventMs int64
}

// Memory is a process-local Store. It honours the same uniqueness and
// ordering contract as the SQL drivers.
type Memory struct {
	mu      sync.Mutex
	byID    map[string]reminder.Reminder
	byEvent map[scopeEvent]string
}

func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[string]reminder.Reminder),
		byEvent: make(map[scopeEvent]string),
	}
}

func keyOf(r reminder.Reminder) scopeEvent {
	return scopeEvent{scope: r.Scope, eventMs: r.EventAt.UnixMilli()}
}

// normalize truncates instants to the millisecond precision the SQL drivers keep.
func normalize(r reminder.Reminder) reminder.Reminder {
	r.EventAt = time.UnixMilli(r.EventAt.UnixMilli())
	r.Interval = time.Duration(r.Interval.Milliseconds()) * time.Millisecond
	r.NextFireAt = fromMillis(toMillis(r.NextFireAt))
	r.CreatedAt = time.UnixMilli(r.CreatedAt.UnixMilli())
	return r
}

func (m *Memory) Insert(_ context.Context, r *reminder.Reminder) error {
	prepareInsert(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	k := keyOf(*r)
	if _, ok := m.byEvent[k]; ok {
		return fmt.Errorf("%w: %s at %d", reminder.ErrDuplicateKey, r.Scope, k.eventMs)
	}
	if _, ok := m.byID[r.ID]; ok {
		return fmt.Errorf("%w: id %s", reminder.ErrDuplicateKey, r.ID)
	}
	m.byID[r.ID] = normalize(*r)
	m.byEvent[k] = r.ID
	return nil
}

func (m *Memory) DeleteByID(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(id), nil
}

func (m *Memory) deleteLocked(id string) int64 {
	r, ok := m.byID[id]
	if !ok {
		return 0
	}
	delete(m.byID, id)
	delete(m.byEvent, keyOf(r))
	return 1
}

func (m *Memory) DeleteByScopeAndTime(_ context.Context, scope reminder.Scope, eventAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEvent[scopeEvent{scope: scope, eventMs: eventAt.UnixMilli()}]
	if !ok {
		return 0, nil
	}
	return m.deleteLocked(id), nil
}

func (m *Memory) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := now.UnixMilli()
	var count int64
	for id, r := range m.byID {
		if r.EventAt.UnixMilli() <= n {
			count += m.deleteLocked(id)
		}
	}
	return count, nil
}

func (m *Memory) Update(_ context.Context, id string, st reminder.State) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return 0, nil
	}
	r.Remaining = st.Remaining
	r.NextFireAt = fromMillis(toMillis(st.NextFireAt))
	r.Failures = st.Failures
	m.byID[id] = r
	return 1, nil
}

func (m *Memory) QueryDue(_ context.Context, now time.Time, limit int) ([]reminder.Reminder, error) {
	if limit <= 0 {
		return nil, nil
	}
	m.mu.Lock()
	n := now.UnixMilli()
	var out []reminder.Reminder
	for _, r := range m.byID {
		if r.NextFireAt.IsZero() {
			continue
		}
		if r.NextFireAt.UnixMilli() <= n && r.EventAt.UnixMilli() > n {
			out = append(out, r)
		}
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].NextFireAt.UnixMilli(), out[j].NextFireAt.UnixMilli()
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) QueryByScope(_ context.Context, scope reminder.Scope) ([]reminder.Reminder, error) {
	m.mu.Lock()
	var out []reminder.Reminder
	for _, r := range m.byID {
		if r.Scope == scope {
			out = append(out, r)
		}
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].EventAt.Before(out[j].EventAt) })
	return out, nil
}

// Len reports the number of stored reminders.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *Memory) Close() error { return nil }
