// Package scheduler runs the reminder polling loop.
//
// Every tick it queries the store for due reminders, delivers one notification
// per reminder and persists the advanced countdown, deleting reminders whose
// countdown is exhausted or whose destination is gone. Ticks never overlap, so
// each due firing is dispatched by exactly one tick.
package scheduler
