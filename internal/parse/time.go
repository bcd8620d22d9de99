package parse

import (
	"fmt"
	"time"
)

// Bookings arrive with ISO-8601 timestamps. Some deployments send a bare
// local time without zone information; both forms must render.
var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Time parses a booking timestamp into the display timezone.
func Time(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// Clock renders a timestamp as a wall-clock label, or "--:--" when the value
// does not parse. The panel never shows raw errors on operational screens.
func Clock(value string, loc *time.Location) string {
	t, err := Time(value, loc)
	if err != nil {
		return "--:--"
	}
	return t.Format("15:04")
}

// ClockRange renders a booking's start and end as "HH:MM - HH:MM".
func ClockRange(start, end string, loc *time.Location) string {
	return Clock(start, loc) + " - " + Clock(end, loc)
}
