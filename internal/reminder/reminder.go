package reminder

import (
	"strconv"
	"time"
)

// Scope is the delivery destination of a reminder and its uniqueness namespace.
// ThreadID is the forum topic inside the chat; 0 is the main thread.
type Scope struct {
	ChatID   int64
	ThreadID int
}

func (s Scope) String() string {
	if s.ThreadID == 0 {
		return strconv.FormatInt(s.ChatID, 10)
	}
	return strconv.FormatInt(s.ChatID, 10) + "/" + strconv.Itoa(s.ThreadID)
}

// Reminder is the persisted countdown record.
//
// While the record exists NextFireAt == FireAt(EventAt, Interval, Remaining)
// and Remaining >= 1. A record whose countdown is exhausted is deleted, never
// kept with Remaining == 0.
type Reminder struct {
	ID       string
	Scope    Scope
	EventAt  time.Time
	Interval time.Duration

	NextFireAt time.Time // zero when absent
	Remaining  int
	// Failures counts consecutive failed deliveries of the pending firing.
	// It is only used by the retry delivery policy and resets on advance.
	Failures int

	Message   string
	CreatedAt time.Time
	CreatedBy int64
}

// State is the mutable part of a reminder, written by the scheduler.
type State struct {
	Remaining  int
	NextFireAt time.Time
	Failures   int
}

func (r Reminder) State() State {
	return State{Remaining: r.Remaining, NextFireAt: r.NextFireAt, Failures: r.Failures}
}

// Consistent reports whether NextFireAt matches the countdown derived from
// EventAt, Interval and Remaining.
func (r Reminder) Consistent() bool {
	if r.Remaining < 1 || r.NextFireAt.IsZero() {
		return false
	}
	return r.NextFireAt.UnixMilli() == FireAt(r.EventAt, r.Interval, r.Remaining).UnixMilli()
}
