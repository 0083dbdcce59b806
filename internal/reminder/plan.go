package reminder

import (
	"fmt"
	"time"
)

// Plan is the countdown computed at creation time.
type Plan struct {
	Remaining int
	Next      time.Time
}

// FireAt returns the firing instant that leaves remaining firings,
// i.e. eventAt - remaining*interval at millisecond precision.
func FireAt(eventAt time.Time, interval time.Duration, remaining int) time.Time {
	return time.UnixMilli(eventAt.UnixMilli() - int64(remaining)*interval.Milliseconds())
}

// ComputeInitialPlan returns how many firings fit between now and eventAt and
// when the first one is due.
//
// Firings are aligned to the event, not to now: Remaining is
// floor((eventAt-now)/interval) and Next = eventAt - Remaining*interval, so
// Next lies in [now, eventAt). Next equals now only when the interval divides
// the lead time exactly; that firing goes out on the next tick.
func ComputeInitialPlan(eventAt time.Time, interval time.Duration, now time.Time) (Plan, error) {
	iv := interval.Milliseconds()
	if iv <= 0 {
		return Plan{}, fmt.Errorf("%w: interval must be positive", ErrBadIntervalFormat)
	}
	ev, n := eventAt.UnixMilli(), now.UnixMilli()
	if ev <= n {
		return Plan{}, ErrPastEvent
	}
	remaining := (ev - n) / iv
	if remaining == 0 {
		return Plan{}, ErrEmptyPlan
	}
	return Plan{
		Remaining: int(remaining),
		Next:      time.UnixMilli(ev - remaining*iv),
	}, nil
}

// Step is the outcome of Advance.
type Step struct {
	Remaining int
	Next      time.Time
	// Skipped counts firing boundaries at or before now that were collapsed
	// into the firing that just happened.
	Skipped int
}

// Done reports that the countdown is exhausted and the record must be deleted.
func (s Step) Done() bool { return s.Remaining <= 0 }

// Advance moves r past the firing that was just attempted at now.
//
// Boundaries that fell due while nothing was ticking are skipped, so a
// reminder fires at most once per tick, and the returned Next (when not Done)
// is strictly after now.
func Advance(r Reminder, now time.Time) Step {
	remaining := r.Remaining - 1
	if remaining <= 0 {
		return Step{}
	}
	iv := r.Interval.Milliseconds()
	if iv <= 0 {
		return Step{}
	}
	ev, n := r.EventAt.UnixMilli(), now.UnixMilli()

	// Largest k with ev - k*iv > now; equivalent to decrementing while the
	// boundary is <= now.
	maxRemaining := int64(0)
	if d := ev - n; d > 0 {
		maxRemaining = (d - 1) / iv
	}
	var skipped int
	if int64(remaining) > maxRemaining {
		skipped = remaining - int(maxRemaining)
		remaining = int(maxRemaining)
	}
	if remaining <= 0 {
		return Step{Skipped: skipped}
	}
	return Step{
		Remaining: remaining,
		Next:      time.UnixMilli(ev - int64(remaining)*iv),
		Skipped:   skipped,
	}
}
