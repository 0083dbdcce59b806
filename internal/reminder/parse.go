package reminder

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "time/tzdata" // Europe/Berlin must resolve on hosts without a zoneinfo database
)

const (
	// EventLayout is the accepted event time input, e.g. "20.09.2025-10:00".
	EventLayout = "02.01.2006-15:04"
	// DisplayLayout renders event times in replies and notifications.
	DisplayLayout = "02.01.2006 15:04"

	DefaultZone = "Europe/Berlin"

	// MinInterval keeps a zero interval from firing on every tick.
	MinInterval = time.Second
)

// LoadZone resolves an IANA zone name, falling back to DefaultZone when empty.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, err)
	}
	return loc, nil
}

// ParseEventTime parses "dd.MM.yyyy-HH:mm" as wall-clock time in loc.
//
// Impossible calendar dates and wall times inside a spring-forward gap are
// rejected with ErrBadFormat rather than silently shifted.
func ParseEventTime(input string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		return time.Time{}, fmt.Errorf("%w: no timezone", ErrBadFormat)
	}
	s := strings.TrimSpace(input)
	t, err := time.ParseInLocation(EventLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (want %s)", ErrBadFormat, input, "dd.MM.yyyy-HH:mm")
	}
	// time.Date normalizes non-existent wall times; a round trip exposes it.
	if t.Format(EventLayout) != s {
		return time.Time{}, fmt.Errorf("%w: %q does not exist in %s", ErrBadFormat, input, loc)
	}
	return t, nil
}

var (
	reUnitInterval = regexp.MustCompile(`^(\d+)\s*([hms])$`)
	reHMSInterval  = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})h?$`)
	reHMInterval   = regexp.MustCompile(`^(\d{1,3}):(\d{2})(?::(\d{2}))?$`)
)

// ParseInterval parses the interval forms accepted by /timer create:
//
//	"12h", "30m", "45s"      integer with unit
//	"12:00:00h", "01:30:00"  HH:MM:SS, optional trailing h
//	"12:00", "100:30:15"     HHH:MM with optional :SS
//
// Minutes and seconds are not range checked ("1:90" is 2h30m). The result is
// never below MinInterval.
func ParseInterval(input string) (time.Duration, error) {
	raw := strings.ToLower(strings.TrimSpace(input))

	if m := reUnitInterval.FindStringSubmatch(raw); m != nil {
		unit := time.Second
		switch m[2] {
		case "h":
			unit = time.Hour
		case "m":
			unit = time.Minute
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || n > math.MaxInt64/int64(unit) {
			return 0, fmt.Errorf("%w: %q is too large", ErrBadIntervalFormat, input)
		}
		return floorInterval(time.Duration(n) * unit), nil
	}

	if m := reHMSInterval.FindStringSubmatch(raw); m != nil {
		return floorInterval(clock(m[1], m[2], m[3])), nil
	}

	if m := reHMInterval.FindStringSubmatch(raw); m != nil {
		return floorInterval(clock(m[1], m[2], m[3])), nil
	}

	return 0, fmt.Errorf("%w: %q (examples: 12h, 30m, 45s, 12:00:00h, 01:30:00)", ErrBadIntervalFormat, input)
}

// clock sums regex-validated digit groups; an empty seconds group counts as 0.
func clock(h, m, s string) time.Duration {
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	ss := 0
	if s != "" {
		ss, _ = strconv.Atoi(s)
	}
	return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute + time.Duration(ss)*time.Second
}

func floorInterval(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	return d
}
