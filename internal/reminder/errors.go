package reminder

import "errors"

var (
	// ErrBadFormat reports event time text that does not match EventLayout or
	// names a wall-clock time that does not exist in the zone.
	ErrBadFormat = errors.New("bad event time format")
	// ErrBadIntervalFormat reports interval text matching none of the accepted forms.
	ErrBadIntervalFormat = errors.New("bad interval format")
	// ErrPastEvent reports an event instant at or before now.
	ErrPastEvent = errors.New("event is in the past")
	// ErrEmptyPlan reports that not even one interval fits before the event.
	ErrEmptyPlan = errors.New("plan would produce zero reminders")
	// ErrDuplicateKey reports a second reminder for the same scope and event instant.
	ErrDuplicateKey = errors.New("reminder already exists for this event and channel")
	// ErrChannelGone reports a destination that no longer exists or rejects the bot.
	ErrChannelGone = errors.New("channel gone")
	// ErrDeliveryFailed reports any other delivery failure.
	ErrDeliveryFailed = errors.New("delivery failed")
)
