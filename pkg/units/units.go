// Package units provides size and calendar duration units and parses the
// human durations accepted by --max-age.
package units

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Binary size multipliers.
const (
	KiB = 1024
	MiB = 1024 * KiB
)

// Calendar durations. Month and Year use the mean Gregorian lengths.
const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 2629746 * time.Second
	Year  = 31556952 * time.Second
)

// ErrInvalidDuration is returned when a duration string cannot be parsed.
var ErrInvalidDuration = errors.New("invalid duration")

var durationUnits = map[string]time.Duration{
	"ns":      time.Nanosecond,
	"us":      time.Microsecond,
	"ms":      time.Millisecond,
	"s":       time.Second,
	"sec":     time.Second,
	"secs":    time.Second,
	"second":  time.Second,
	"seconds": time.Second,
	"m":       time.Minute,
	"min":     time.Minute,
	"mins":    time.Minute,
	"minute":  time.Minute,
	"minutes": time.Minute,
	"h":       time.Hour,
	"hr":      time.Hour,
	"hrs":     time.Hour,
	"hour":    time.Hour,
	"hours":   time.Hour,
	"d":       Day,
	"day":     Day,
	"days":    Day,
	"w":       Week,
	"week":    Week,
	"weeks":   Week,
	"M":       Month,
	"month":   Month,
	"months":  Month,
	"y":       Year,
	"year":    Year,
	"years":   Year,
}

// ParseDuration parses durations such as "6M", "90d", "1y 2w" or any value
// accepted by time.ParseDuration. "m" is minutes and "M" is months.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidDuration)
	}

	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("%w: %q is negative", ErrInvalidDuration, s)
		}

		return d, nil
	}

	var total time.Duration

	rest := s

	for rest != "" {
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)

		digits := strings.IndexFunc(rest, func(r rune) bool { return !unicode.IsDigit(r) })
		if digits <= 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}

		value, err := strconv.ParseInt(rest[:digits], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrInvalidDuration, s, err)
		}

		rest = rest[digits:]

		end := strings.IndexFunc(rest, func(r rune) bool { return !unicode.IsLetter(r) })
		if end < 0 {
			end = len(rest)
		}

		unit, ok := durationUnits[rest[:end]]
		if !ok {
			return 0, fmt.Errorf("%w: unknown unit %q in %q", ErrInvalidDuration, rest[:end], s)
		}

		total += time.Duration(value) * unit
		rest = strings.TrimLeftFunc(rest[end:], unicode.IsSpace)
	}

	return total, nil
}
