package reminder

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// snippetRunes caps the message preview in /timer list.
const snippetRunes = 60

// FireText renders the notification for the pending firing of r.
// The text uses Telegram HTML parse mode; the custom message is escaped.
func FireText(r Reminder, loc *time.Location) string {
	left := r.EventAt.Sub(r.NextFireAt)
	if r.NextFireAt.IsZero() {
		left = 0
	}
	var b strings.Builder
	fmt.Fprintf(&b, "⏰ Reminder: event on <b>%s</b> (~%s left).",
		html.EscapeString(FormatEvent(r.EventAt, loc)), FormatHours(left))
	if msg := strings.TrimSpace(r.Message); msg != "" {
		b.WriteString("\n")
		b.WriteString(html.EscapeString(msg))
	}
	return b.String()
}

// FormatEvent renders an instant as local wall time in loc.
func FormatEvent(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(DisplayLayout)
}

// FormatHours renders d as whole hours, rounded half away from zero ("12h").
func FormatHours(d time.Duration) string {
	return fmt.Sprintf("%dh", int64(math.Round(d.Hours())))
}

// Snippet shortens a message for list output.
func Snippet(msg string) string {
	msg = strings.TrimSpace(msg)
	if utf8.RuneCountInString(msg) <= snippetRunes {
		return msg
	}
	rs := []rune(msg)
	return string(rs[:snippetRunes]) + "…"
}
