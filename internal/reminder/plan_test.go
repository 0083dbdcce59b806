package reminder

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

func TestComputeInitialPlan(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		lead      time.Duration
		interval  time.Duration
		remaining int
		next      time.Duration
		err       error
	}{
		{name: "25h every 12h", lead: 25 * time.Hour, interval: 12 * time.Hour, remaining: 2, next: time.Hour},
		{name: "100h every 1h", lead: 100 * time.Hour, interval: time.Hour, remaining: 100, next: 0},
		{name: "90m every 30m", lead: 90*time.Minute + time.Second, interval: 30 * time.Minute, remaining: 3, next: time.Second},
		{name: "1h every 12h", lead: time.Hour, interval: 12 * time.Hour, err: ErrEmptyPlan},
		{name: "event now", lead: 0, interval: time.Hour, err: ErrPastEvent},
		{name: "event past", lead: -time.Minute, interval: time.Hour, err: ErrPastEvent},
		{name: "zero interval", lead: time.Hour, interval: 0, err: ErrBadIntervalFormat},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			plan, err := ComputeInitialPlan(epoch.Add(tt.lead), tt.interval, epoch)
			if tt.err != nil {
				require.Error(t, err)
				require.True(t, errors.Is(err, tt.err), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.remaining, plan.Remaining)
			assert.True(t, plan.Next.Equal(epoch.Add(tt.next)), "next=%s", plan.Next)
		})
	}
}

func TestComputeInitialPlanProperties(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		lead := time.Duration(rng.Int63n(int64(400*time.Hour))/int64(time.Millisecond)) * time.Millisecond
		interval := time.Duration(1+rng.Int63n(int64(48*time.Hour)/int64(time.Second))) * time.Second
		eventAt := epoch.Add(lead)

		plan, err := ComputeInitialPlan(eventAt, interval, epoch)
		if lead <= 0 {
			require.ErrorIs(t, err, ErrPastEvent)
			continue
		}
		if lead < interval {
			require.ErrorIs(t, err, ErrEmptyPlan)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, int(lead/interval), plan.Remaining)
		require.False(t, plan.Next.Before(epoch))
		require.True(t, plan.Next.Before(eventAt))
		require.True(t, plan.Next.Equal(FireAt(eventAt, interval, plan.Remaining)))
		// No further firing fits before now.
		require.True(t, FireAt(eventAt, interval, plan.Remaining+1).Before(epoch))
	}
}

func TestAdvanceEndToEnd(t *testing.T) {
	t.Parallel()
	eventAt := epoch.Add(25 * time.Hour)
	plan, err := ComputeInitialPlan(eventAt, 12*time.Hour, epoch)
	require.NoError(t, err)

	r := Reminder{EventAt: eventAt, Interval: 12 * time.Hour, Remaining: plan.Remaining, NextFireAt: plan.Next}
	require.True(t, r.Consistent())

	// First tick after the due instant.
	step := Advance(r, epoch.Add(time.Hour+30*time.Second))
	require.False(t, step.Done())
	require.Equal(t, 1, step.Remaining)
	require.Zero(t, step.Skipped)
	require.True(t, step.Next.Equal(epoch.Add(13*time.Hour)))

	r.Remaining, r.NextFireAt = step.Remaining, step.Next
	require.True(t, r.Consistent())

	step = Advance(r, epoch.Add(13*time.Hour+10*time.Second))
	require.True(t, step.Done())
}

func TestAdvanceCatchUpAfterDowntime(t *testing.T) {
	t.Parallel()
	eventAt := epoch.Add(100 * time.Hour)
	plan, err := ComputeInitialPlan(eventAt, time.Hour, epoch)
	require.NoError(t, err)
	require.Equal(t, 100, plan.Remaining)

	r := Reminder{EventAt: eventAt, Interval: time.Hour, Remaining: plan.Remaining, NextFireAt: plan.Next}

	now := epoch.Add(10*time.Hour + 30*time.Minute)
	step := Advance(r, now)
	require.Equal(t, 89, step.Remaining)
	require.Equal(t, 10, step.Skipped)
	require.True(t, step.Next.Equal(epoch.Add(11*time.Hour)))
	require.True(t, step.Next.After(now))

	// A boundary exactly at now counts as passed.
	step = Advance(r, epoch.Add(10*time.Hour))
	require.Equal(t, 89, step.Remaining)
	require.True(t, step.Next.Equal(epoch.Add(11*time.Hour)))
}

func TestAdvanceAfterEvent(t *testing.T) {
	t.Parallel()
	eventAt := epoch.Add(5 * time.Hour)
	r := Reminder{EventAt: eventAt, Interval: time.Hour, Remaining: 5, NextFireAt: epoch}

	step := Advance(r, eventAt.Add(time.Minute))
	require.True(t, step.Done())
	require.Equal(t, 4, step.Skipped)

	step = Advance(Reminder{EventAt: eventAt, Interval: time.Hour, Remaining: 1, NextFireAt: epoch.Add(4 * time.Hour)}, epoch.Add(4*time.Hour))
	require.True(t, step.Done())
	require.Zero(t, step.Skipped)
}

func TestAdvanceTerminates(t *testing.T) {
	t.Parallel()
	eventAt := epoch.Add(50 * time.Hour)
	plan, err := ComputeInitialPlan(eventAt, 7*time.Hour, epoch)
	require.NoError(t, err)

	r := Reminder{EventAt: eventAt, Interval: 7 * time.Hour, Remaining: plan.Remaining, NextFireAt: plan.Next}
	fires := 0
	for {
		fires++
		require.LessOrEqual(t, fires, plan.Remaining)
		step := Advance(r, r.NextFireAt)
		if step.Done() {
			break
		}
		require.Less(t, step.Remaining, r.Remaining)
		require.True(t, step.Next.After(r.NextFireAt))
		require.True(t, step.Next.Before(eventAt))
		r.Remaining, r.NextFireAt = step.Remaining, step.Next
	}
	require.Equal(t, plan.Remaining, fires)
}

// advanceByLoop is the straightforward decrement loop Advance must agree with.
func advanceByLoop(r Reminder, now time.Time) (int, time.Time) {
	remaining := r.Remaining - 1
	for remaining > 0 {
		next := FireAt(r.EventAt, r.Interval, remaining)
		if next.After(now) {
			return remaining, next
		}
		remaining--
	}
	return 0, time.Time{}
}

func TestAdvanceMatchesLoop(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		interval := time.Duration(1+rng.Int63n(3600)) * time.Second
		remaining := 1 + rng.Intn(60)
		eventAt := epoch.Add(time.Duration(remaining) * interval).Add(time.Duration(rng.Int63n(int64(interval/time.Millisecond))) * time.Millisecond)
		r := Reminder{
			EventAt:    eventAt,
			Interval:   interval,
			Remaining:  remaining,
			NextFireAt: FireAt(eventAt, interval, remaining),
		}
		now := r.NextFireAt.Add(time.Duration(rng.Int63n(int64(time.Duration(remaining+2)*interval/time.Millisecond))) * time.Millisecond)

		wantRemaining, wantNext := advanceByLoop(r, now)
		step := Advance(r, now)
		require.Equal(t, wantRemaining, step.Remaining, "case %d", i)
		if wantRemaining > 0 {
			require.True(t, wantNext.Equal(step.Next), "case %d", i)
			require.Equal(t, r.Remaining-1-wantRemaining, step.Skipped, "case %d", i)
		}
	}
}

func TestReminderConsistent(t *testing.T) {
	t.Parallel()
	eventAt := epoch.Add(10 * time.Hour)
	r := Reminder{EventAt: eventAt, Interval: time.Hour, Remaining: 3, NextFireAt: epoch.Add(7 * time.Hour)}
	assert.True(t, r.Consistent())

	r.NextFireAt = r.NextFireAt.Add(time.Minute)
	assert.False(t, r.Consistent())

	r.NextFireAt = epoch.Add(7 * time.Hour)
	r.Remaining = 0
	assert.False(t, r.Consistent())
}
