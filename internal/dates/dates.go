// Package dates holds the calendar helpers used by the contract rules.
//
// Every value produced here is a date-only instant: midnight UTC of the
// calendar day. Day arithmetic on such values never crosses a DST boundary.
package dates

import (
	"fmt"
	"strings"
	"time"

	"github.com/tphakala/contractwatch/internal/errors"
)

const (
	// Day is the length of one calendar day between date-only values
	Day = 24 * time.Hour

	displayLayout  = "02/01/2006"
	dayMonthLayout = "2/1/2006"
	isoDateLayout  = time.DateOnly
	isoDateLength  = len(isoDateLayout)
)

// ErrInvalidDate is returned when no strategy accepts the input
var ErrInvalidDate = errors.NewStd("invalid date")

// Strategy tries to read a date from s. It reports false when s is not in
// the shape it understands.
type Strategy func(s string) (time.Time, bool)

// DefaultStrategies is the order used by Parse. The first match wins.
var DefaultStrategies = []Strategy{
	ISODateTime,
	ISODate,
	DayMonthYear,
}

// Parse reads a date in one of the accepted shapes:
//
//	2024-03-15T10:30:00Z   ISO timestamp, the time part is dropped
//	2024-03-15             ISO date
//	15/03/2024             day/month/year
//	15/03/2024 10:30       day/month/year, the time part is dropped
//
// It returns ErrInvalidDate rather than a partial result.
func Parse(input string) (time.Time, error) {
	return ParseWith(input, DefaultStrategies...)
}

// ParseWith is Parse with a caller supplied strategy order
func ParseWith(input string, strategies ...Strategy) (time.Time, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty input", ErrInvalidDate)
	}
	for _, strategy := range strategies {
		if t, ok := strategy(s); ok {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, input)
}

// ISODateTime accepts an ISO date followed by a time or zone suffix,
// introduced by 'T' or a space. Only the date part is kept.
func ISODateTime(s string) (time.Time, bool) {
	idx := strings.IndexAny(s, "T ")
	if idx != isoDateLength {
		return time.Time{}, false
	}
	return ISODate(s[:idx])
}

// ISODate accepts yyyy-mm-dd
func ISODate(s string) (time.Time, bool) {
	if len(s) != isoDateLength {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(isoDateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DayMonthYear accepts dd/mm/yyyy, with or without leading zeros. A time
// after the first space is ignored.
func DayMonthYear(s string) (time.Time, bool) {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	if strings.Count(s, "/") != 2 {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(dayMonthLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DateOf returns the calendar date of t, in t's own location, as UTC midnight
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the calendar date of now
func Today(now time.Time) time.Time {
	return DateOf(now)
}

// AddDays moves a date-only value by n calendar days
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DaysBetween returns the number of days from a to b, rounded up.
// A partial day counts as a full day, so 36 hours is 2 days.
func DaysBetween(a, b time.Time) int {
	d := b.Sub(a)
	q := d / Day
	if d%Day > 0 {
		q++
	}
	return int(q)
}

// FormatForDisplay renders t as dd/mm/yyyy, or "" for the zero time
func FormatForDisplay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(displayLayout)
}

// FormatISO renders t as yyyy-mm-dd, or "" for the zero time
func FormatISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(isoDateLayout)
}
