package reminder

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFireText(t *testing.T) {
	t.Parallel()
	loc := berlin(t)
	eventAt := time.Date(2025, 9, 20, 10, 0, 0, 0, loc)

	r := Reminder{
		EventAt:    eventAt,
		Interval:   12 * time.Hour,
		Remaining:  1,
		NextFireAt: eventAt.Add(-12 * time.Hour),
		Message:    "Raid <prep> & snacks",
	}
	got := FireText(r, loc)
	assert.Equal(t, "⏰ Reminder: event on <b>20.09.2025 10:00</b> (~12h left).\nRaid &lt;prep&gt; &amp; snacks", got)

	r.Message = "   "
	assert.Equal(t, "⏰ Reminder: event on <b>20.09.2025 10:00</b> (~12h left).", FireText(r, loc))
}

func TestFireTextUsesEventZone(t *testing.T) {
	t.Parallel()
	loc := berlin(t)
	eventAt := time.Date(2025, 12, 24, 17, 30, 0, 0, time.UTC)
	r := Reminder{EventAt: eventAt, Interval: time.Hour, Remaining: 2, NextFireAt: eventAt.Add(-2 * time.Hour)}
	assert.Contains(t, FireText(r, loc), "24.12.2025 18:30")
	assert.Contains(t, FireText(r, loc), "~2h left")
}

func TestFormatHours(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0h"},
		{29 * time.Minute, "0h"},
		{30 * time.Minute, "1h"},
		{90 * time.Minute, "2h"},
		{12 * time.Hour, "12h"},
		{100*time.Hour + 10*time.Minute, "100h"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatHours(tt.in), tt.in.String())
	}
}

func TestSnippet(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "short", Snippet("  short "))
	long := strings.Repeat("ä", 70)
	got := Snippet(long)
	assert.Equal(t, strings.Repeat("ä", 60)+"…", got)
	assert.Equal(t, strings.Repeat("x", 60), Snippet(strings.Repeat("x", 60)))
}
