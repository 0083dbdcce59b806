// Package reminder holds the countdown reminder domain.
//
// A reminder counts down to a fixed event instant and fires every Interval
// until the event arrives. Firings are anchored backwards from the event, so
// the last firing always lands exactly one interval before it:
//
//	fire(k) = EventAt - k*Interval   for k = Remaining, Remaining-1, ..., 1
//
// The package is pure: parsing, plan arithmetic and message text. Persistence
// and delivery live in internal/storage and internal/scheduler.
package reminder
