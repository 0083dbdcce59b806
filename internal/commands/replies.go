package commands

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"remindbot/internal/reminder"
)

const usage = `<b>Countdown reminders</b>
/timer create &lt;dd.MM.yyyy-HH:mm&gt; &lt;interval&gt; [message]
/timer remove &lt;dd.MM.yyyy-HH:mm&gt;
/timer list

Intervals: 12h, 30m, 45s, 12:00:00h, 01:30:00
Add --thread=N to target another topic of this chat.`

const (
	replyBadDate     = "⚠️ Invalid date. Use dd.MM.yyyy-HH:mm, e.g. 20.09.2025-10:00."
	replyBadInterval = "⚠️ Invalid interval. Examples: 12h, 30m, 45s, 12:00:00h, 01:30:00."
	replyBadThread   = "⚠️ --thread must be a topic id (0 for the main thread)."
	replyPastEvent   = "⚠️ That time is in the past."
	replyEmptyPlan   = "⚠️ The interval is longer than the time left until the event, so no reminder would fire."
	replyDuplicate   = "⚠️ A reminder for <b>%s</b> already exists here."
	replyNotFound    = "No reminder for <b>%s</b> found here."
	replyRemoved     = "🗑️ Reminder for <b>%s</b> removed."
	replyStoreFailed = "❌ Could not access the reminder database. Try again later."
	replyEmptyList   = "No reminders here."
)

func createdText(r reminder.Reminder, now time.Time, loc *time.Location) string {
	first := r.NextFireAt.Truncate(time.Minute)
	when := "now"
	if first.After(now) {
		when = humanize.RelTime(first, now, "ago", "from now")
	}
	return fmt.Sprintf("✅ Reminder set for <b>%s</b>: every %s, %s, first %s.",
		html.EscapeString(reminder.FormatEvent(r.EventAt, loc)),
		FormatInterval(r.Interval),
		pluralReminders(r.Remaining),
		when,
	)
}

func listText(list []reminder.Reminder, now time.Time, loc *time.Location) string {
	if len(list) == 0 {
		return replyEmptyList
	}
	var b strings.Builder
	fmt.Fprintf(&b, "⏰ <b>%d</b> active %s:", len(list), plural(len(list), "reminder", "reminders"))
	for i, r := range list {
		next := "soon"
		if r.NextFireAt.After(now) {
			next = "next " + humanize.RelTime(r.NextFireAt, now, "ago", "from now")
		}
		fmt.Fprintf(&b, "\n%d. <b>%s</b> · every %s · %s · %s left",
			i+1,
			html.EscapeString(reminder.FormatEvent(r.EventAt, loc)),
			FormatInterval(r.Interval),
			next,
			pluralReminders(r.Remaining),
		)
		if r.CreatedBy != 0 {
			fmt.Fprintf(&b, ` · by <a href="tg://user?id=%d">%d</a>`, r.CreatedBy, r.CreatedBy)
		}
		if msg := reminder.Snippet(r.Message); msg != "" {
			b.WriteString(" · " + html.EscapeString(msg))
		}
	}
	return b.String()
}

// FormatInterval renders whole hours as "12h" and anything else in Go
// duration notation without trailing zero units ("1h30m", "45s").
func FormatInterval(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", d/time.Hour)
	}
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = strings.TrimSuffix(s, "0s")
	}
	if strings.HasSuffix(s, "h0m") {
		s = strings.TrimSuffix(s, "0m")
	}
	return s
}

func pluralReminders(n int) string {
	return fmt.Sprintf("%d %s", n, plural(n, "reminder", "reminders"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
