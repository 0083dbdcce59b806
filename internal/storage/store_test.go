package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindbot/internal/reminder"
	logx "remindbot/pkg/logx"
)

var base = time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

func newRem(scope reminder.Scope, event time.Duration, interval time.Duration, remaining int) *reminder.Reminder {
	eventAt := base.Add(event)
	return &reminder.Reminder{
		Scope:      scope,
		EventAt:    eventAt,
		Interval:   interval,
		Remaining:  remaining,
		NextFireAt: reminder.FireAt(eventAt, interval, remaining),
		Message:    "msg",
		CreatedAt:  base,
		CreatedBy:  7,
	}
}

type storeFactory func(t *testing.T) Store

func factories() map[string]storeFactory {
	f := map[string]storeFactory{
		"memory": func(t *testing.T) Store { return NewMemory() },
		"sqlite": func(t *testing.T) Store {
			st, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "db", "remind.db")}, logx.Nop())
			require.NoError(t, err)
			t.Cleanup(func() { _ = st.Close() })
			return st
		},
	}
	if dsn := os.Getenv("REMINDBOT_TEST_PG_DSN"); dsn != "" {
		f["postgres"] = func(t *testing.T) Store {
			st, err := Open(Config{Driver: "postgres", Path: dsn}, logx.Nop())
			require.NoError(t, err)
			gs := st.(*gormStore)
			require.NoError(t, gs.db.Exec("DELETE FROM reminders").Error)
			t.Cleanup(func() { _ = st.Close() })
			return st
		}
	}
	return f
}

func eachStore(t *testing.T, fn func(t *testing.T, st Store)) {
	for name, mk := range factories() {
		mk := mk
		t.Run(name, func(t *testing.T) {
			if name != "postgres" {
				t.Parallel()
			}
			fn(t, mk(t))
		})
	}
}

func TestInsertAssignsIDAndRoundTrips(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		scope := reminder.Scope{ChatID: -100123, ThreadID: 4}
		r := newRem(scope, 25*time.Hour, 12*time.Hour, 2)
		require.NoError(t, st.Insert(ctx, r))
		require.NotEmpty(t, r.ID)

		got, err := st.QueryByScope(ctx, scope)
		require.NoError(t, err)
		require.Len(t, got, 1)
		g := got[0]
		assert.Equal(t, r.ID, g.ID)
		assert.Equal(t, scope, g.Scope)
		assert.True(t, g.EventAt.Equal(r.EventAt))
		assert.Equal(t, 12*time.Hour, g.Interval)
		assert.True(t, g.NextFireAt.Equal(r.NextFireAt))
		assert.Equal(t, 2, g.Remaining)
		assert.Equal(t, "msg", g.Message)
		assert.Equal(t, int64(7), g.CreatedBy)
		assert.True(t, g.Consistent())
	})
}

func TestInsertDuplicateKey(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		scope := reminder.Scope{ChatID: 1}
		require.NoError(t, st.Insert(ctx, newRem(scope, 10*time.Hour, time.Hour, 3)))

		err := st.Insert(ctx, newRem(scope, 10*time.Hour, 2*time.Hour, 2))
		require.True(t, errors.Is(err, reminder.ErrDuplicateKey), "got %v", err)

		// Same instant in another thread or chat is a different key.
		require.NoError(t, st.Insert(ctx, newRem(reminder.Scope{ChatID: 1, ThreadID: 9}, 10*time.Hour, time.Hour, 3)))
		require.NoError(t, st.Insert(ctx, newRem(reminder.Scope{ChatID: 2}, 10*time.Hour, time.Hour, 3)))
	})
}

func TestQueryDueFiltersAndOrders(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		scope := reminder.Scope{ChatID: 5}
		now := base.Add(5 * time.Hour)

		late := newRem(scope, 10*time.Hour, time.Hour, 6)   // next = base+4h
		early := newRem(scope, 20*time.Hour, time.Hour, 18) // next = base+2h
		future := newRem(scope, 30*time.Hour, time.Hour, 3) // next = base+27h
		require.NoError(t, st.Insert(ctx, late))
		require.NoError(t, st.Insert(ctx, early))
		require.NoError(t, st.Insert(ctx, future))

		// Event already passed but still due: excluded.
		stale := newRem(scope, 4*time.Hour, time.Hour, 2)
		require.NoError(t, st.Insert(ctx, stale))

		// No next fire: excluded.
		unset := newRem(scope, 40*time.Hour, time.Hour, 1)
		unset.NextFireAt = time.Time{}
		require.NoError(t, st.Insert(ctx, unset))

		due, err := st.QueryDue(ctx, now, 50)
		require.NoError(t, err)
		require.Len(t, due, 2)
		assert.Equal(t, early.ID, due[0].ID)
		assert.Equal(t, late.ID, due[1].ID)

		capped, err := st.QueryDue(ctx, now, 1)
		require.NoError(t, err)
		require.Len(t, capped, 1)
		assert.Equal(t, early.ID, capped[0].ID)

		// A nextFireAt equal to now is due.
		due, err = st.QueryDue(ctx, base.Add(4*time.Hour), 50)
		require.NoError(t, err)
		require.Len(t, due, 2)
	})
}

func TestUpdateAndDeletes(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		scope := reminder.Scope{ChatID: 8, ThreadID: 1}
		r := newRem(scope, 25*time.Hour, 12*time.Hour, 2)
		require.NoError(t, st.Insert(ctx, r))

		next := reminder.FireAt(r.EventAt, r.Interval, 1)
		n, err := st.Update(ctx, r.ID, reminder.State{Remaining: 1, NextFireAt: next, Failures: 2})
		require.NoError(t, err)
		require.Equal(t, int64(1), n)

		got, err := st.QueryByScope(ctx, scope)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 1, got[0].Remaining)
		assert.Equal(t, 2, got[0].Failures)
		assert.True(t, got[0].NextFireAt.Equal(next))

		n, err = st.Update(ctx, "missing", reminder.State{Remaining: 1, NextFireAt: next})
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = st.DeleteByScopeAndTime(ctx, scope, r.EventAt.Add(time.Minute))
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = st.DeleteByScopeAndTime(ctx, scope, r.EventAt)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = st.DeleteByID(ctx, r.ID)
		require.NoError(t, err)
		assert.Zero(t, n)

		// The key is free again after deletion.
		require.NoError(t, st.Insert(ctx, newRem(scope, 25*time.Hour, 12*time.Hour, 2)))
	})
}

func TestDeleteExpired(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		scope := reminder.Scope{ChatID: 3}
		require.NoError(t, st.Insert(ctx, newRem(scope, 2*time.Hour, time.Hour, 2)))
		require.NoError(t, st.Insert(ctx, newRem(scope, 3*time.Hour, time.Hour, 3)))
		keep := newRem(scope, 9*time.Hour, time.Hour, 5)
		require.NoError(t, st.Insert(ctx, keep))

		n, err := st.DeleteExpired(ctx, base.Add(3*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		left, err := st.QueryByScope(ctx, scope)
		require.NoError(t, err)
		require.Len(t, left, 1)
		assert.Equal(t, keep.ID, left[0].ID)
	})
}

func TestQueryByScopeOrdersByEvent(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		scope := reminder.Scope{ChatID: 11}
		require.NoError(t, st.Insert(ctx, newRem(scope, 30*time.Hour, time.Hour, 3)))
		require.NoError(t, st.Insert(ctx, newRem(scope, 10*time.Hour, time.Hour, 3)))
		require.NoError(t, st.Insert(ctx, newRem(scope, 20*time.Hour, time.Hour, 3)))
		require.NoError(t, st.Insert(ctx, newRem(reminder.Scope{ChatID: 12}, 5*time.Hour, time.Hour, 3)))

		got, err := st.QueryByScope(ctx, scope)
		require.NoError(t, err)
		require.Len(t, got, 3)
		for i := 1; i < len(got); i++ {
			assert.True(t, got[i-1].EventAt.Before(got[i].EventAt))
		}
	})
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{Driver: "bolt"}, logx.Nop())
	require.ErrorIs(t, err, ErrUnknownDriver)

	st, err := Open(Config{Driver: "memory"}, logx.Logger{})
	require.NoError(t, err)
	require.IsType(t, &Memory{}, st)

	_, err = Open(Config{Driver: "sqlite"}, logx.Nop())
	require.Error(t, err)
}
