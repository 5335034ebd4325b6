package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeRangeAll disables time filtering.
const TimeRangeAll = "all"

var rangeUnits = map[byte]time.Duration{
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseTimeRange accepts "30d", "12h", "2w", any Go duration, or "all".
// A zero duration means unbounded.
func ParseTimeRange(raw string) (time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || s == TimeRangeAll {
		return 0, nil
	}
	if unit, ok := rangeUnits[s[len(s)-1]]; ok {
		if n, err := strconv.Atoi(s[:len(s)-1]); err == nil {
			if n <= 0 {
				return 0, fmt.Errorf("time range %q must be positive", raw)
			}
			return time.Duration(n) * unit, nil
		}
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid time range %q", raw)
	}
	if d <= 0 {
		return 0, fmt.Errorf("time range %q must be positive", raw)
	}
	return d, nil
}

// RangeStart returns the lower bound of the window ending at end, or the
// zero time when the window is unbounded.
func RangeStart(end time.Time, window time.Duration) time.Time {
	if window <= 0 {
		return time.Time{}
	}
	return end.Add(-window)
}
