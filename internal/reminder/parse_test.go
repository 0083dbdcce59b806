package reminder

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func berlin(t *testing.T) *time.Location {
	t.Helper()
	loc, err := LoadZone("")
	require.NoError(t, err)
	require.Equal(t, DefaultZone, loc.String())
	return loc
}

func TestParseEventTime(t *testing.T) {
	t.Parallel()
	loc := berlin(t)

	got, err := ParseEventTime("20.09.2025-10:00", loc)
	require.NoError(t, err)
	require.True(t, got.Equal(time.Date(2025, 9, 20, 10, 0, 0, 0, loc)))
	// CEST is UTC+2: wall clock belongs to Berlin, not UTC.
	require.Equal(t, time.Date(2025, 9, 20, 8, 0, 0, 0, time.UTC), got.UTC())

	winter, err := ParseEventTime(" 24.12.2025-18:30 ", loc)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 12, 24, 17, 30, 0, 0, time.UTC), winter.UTC())
}

func TestParseEventTimeRejects(t *testing.T) {
	t.Parallel()
	loc := berlin(t)

	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "iso", input: "2025-09-20 10:00"},
		{name: "single digit day", input: "1.09.2025-10:00"},
		{name: "missing dash", input: "20.09.2025 10:00"},
		{name: "day 31 in april", input: "31.04.2025-10:00"},
		{name: "february 29 non leap", input: "29.02.2025-10:00"},
		{name: "hour 24", input: "20.09.2025-24:00"},
		{name: "spring forward gap", input: "30.03.2025-02:30"},
		{name: "trailing junk", input: "20.09.2025-10:00x"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseEventTime(tt.input, loc)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrBadFormat), "got %v", err)
		})
	}
}

func TestParseEventTimeLeapDay(t *testing.T) {
	t.Parallel()
	loc := berlin(t)
	got, err := ParseEventTime("29.02.2028-00:00", loc)
	require.NoError(t, err)
	require.Equal(t, time.February, got.Month())
}

func TestParseInterval(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  time.Duration
	}{
		{input: "12h", want: 12 * time.Hour},
		{input: "12:00:00h", want: 12 * time.Hour},
		{input: "12:00", want: 12 * time.Hour},
		{input: " 12H ", want: 12 * time.Hour},
		{input: "12 h", want: 12 * time.Hour},
		{input: "30m", want: 30 * time.Minute},
		{input: "45s", want: 45 * time.Second},
		{input: "01:30:00", want: 90 * time.Minute},
		{input: "1:02:03", want: time.Hour + 2*time.Minute + 3*time.Second},
		{input: "36:00", want: 36 * time.Hour},
		{input: "100:30:15", want: 100*time.Hour + 30*time.Minute + 15*time.Second},
		{input: "1:90", want: 2*time.Hour + 30*time.Minute},
		{input: "0s", want: MinInterval},
		{input: "00:00", want: MinInterval},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseInterval(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseIntervalEquivalentForms(t *testing.T) {
	t.Parallel()
	a, err := ParseInterval("12h")
	require.NoError(t, err)
	b, err := ParseInterval("12:00:00h")
	require.NoError(t, err)
	c, err := ParseInterval("12:00")
	require.NoError(t, err)
	require.Equal(t, int64(12*60*60*1000), a.Milliseconds())
	require.Equal(t, a, b)
	require.Equal(t, a, c)
}

func TestParseIntervalRejects(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "abc", "12d", "1:2", "1234:00", "12:00:00:00", "123:00:00h", "-5m", "99999999999999999999h", "9999999999999h"} {
		in := in
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			_, err := ParseInterval(in)
			require.ErrorIs(t, err, ErrBadIntervalFormat)
		})
	}
}
