// Package dateutils parses the date and time representations found in fuel exports:
// day-first numeric dates, ISO dates, spreadsheet serial numbers and loosely formatted
// clock times.
package dateutils

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Common layouts
const (
	DateLayoutISO      = "2006-01-02"
	DateLayoutEuropean = "02/01/2006"
	DateLayoutFull     = "2006-01-02 15:04:05"
)

// ErrNoClock is returned by ParseClock when the text carries no clock component.
var ErrNoClock = errors.New("no clock component")

var (
	numericDate = regexp.MustCompile(`^(\d{1,4})[/.\-](\d{1,2})[/.\-](\d{1,4})$`)
	clockSplit  = regexp.MustCompile(`[:\s.]+`)
	spaces      = regexp.MustCompile(`\s+`)
)

// textual layouts tried after the numeric forms
var namedLayouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2-Jan-06",
	"January 2, 2006",
	"Jan 2, 2006",
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour, Minute, Second int
}

// ParseDate parses a date, optionally followed by a clock time after a space or 'T'.
// Numeric dates are read day-first when dayFirst is set (15/01/2024) and month-first
// otherwise; a form that is only valid the other way round is accepted the other way
// round. Year-first forms (2024-01-15) are unambiguous. The result is a naive UTC time.
func ParseDate(value string, dayFirst bool) (time.Time, error) {
	s := CleanDateString(value)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return naive(t), nil
	}

	if day, err := parseDay(s, dayFirst); err == nil {
		return day, nil
	}

	datePart, clockPart := splitDateClock(s)

	day, err := parseDay(datePart, dayFirst)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse date: %s", value)
	}
	if clockPart == "" {
		return day, nil
	}

	clock, err := ParseClock(clockPart)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse time in %q: %w", value, err)
	}
	return Combine(day, clock), nil
}

func splitDateClock(s string) (string, string) {
	if idx := strings.IndexAny(s, " T"); idx > 0 {
		return s[:idx], strings.TrimSpace(s[idx+1:])
	}
	return s, ""
}

func parseDay(s string, dayFirst bool) (time.Time, error) {
	if m := numericDate.FindStringSubmatch(s); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		c, _ := strconv.Atoi(m[3])

		if len(m[1]) == 4 {
			return buildDate(a, b, c)
		}
		if len(m[3]) != 2 && len(m[3]) != 4 {
			return time.Time{}, fmt.Errorf("bad year %q", m[3])
		}
		year := expandYear(c)

		first, second := a, b // day, month
		if !dayFirst {
			first, second = b, a
		}
		if t, err := buildDate(year, second, first); err == nil {
			return t, nil
		}
		return buildDate(year, first, second)
	}

	for _, layout := range namedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func buildDate(year, month, day int) (time.Time, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("date out of range: %04d-%02d-%02d", year, month, day)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("invalid day: %04d-%02d-%02d", year, month, day)
	}
	return t, nil
}

func expandYear(y int) int {
	switch {
	case y >= 100:
		return y
	case y < 70:
		return 2000 + y
	default:
		return 1900 + y
	}
}

// ParseClock reads free text such as "8:30", "08:30:15" or "8.30.00" as a clock time.
// Components are split on ':', '.' and whitespace; each one is clamped to its valid
// range rather than rejected. Text without ':' yields ErrNoClock.
func ParseClock(value string) (Clock, error) {
	s := strings.TrimSpace(value)
	if !strings.Contains(s, ":") {
		return Clock{}, ErrNoClock
	}

	parts := clockSplit.Split(s, -1)
	var nums [3]int
	for i := 0; i < len(parts) && i < 3; i++ {
		f, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return Clock{}, fmt.Errorf("invalid clock component %q", parts[i])
		}
		nums[i] = int(f)
	}

	return Clock{
		Hour:   clamp(nums[0], 23),
		Minute: clamp(nums[1], 59),
		Second: clamp(nums[2], 59),
	}, nil
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// ClockFromFraction converts the fractional part of a spreadsheet serial to a clock time.
func ClockFromFraction(f float64) Clock {
	_, frac := math.Modf(f)
	if frac < 0 {
		frac += 1
	}
	secs := int(math.Round(frac * 86400))
	if secs >= 86400 {
		secs = 86399
	}
	return Clock{Hour: secs / 3600, Minute: secs % 3600 / 60, Second: secs % 60}
}

// FromSerial converts a spreadsheet serial date to a naive UTC time. date1904 selects
// the 1904 date system used by some Mac workbooks.
func FromSerial(serial float64, date1904 bool) (time.Time, error) {
	if serial <= 0 {
		return time.Time{}, fmt.Errorf("invalid serial date %v", serial)
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return time.Time{}, err
	}
	return naive(t.Round(time.Second)), nil
}

// Combine puts a clock time on the calendar day of t.
func Combine(t time.Time, c Clock) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), c.Hour, c.Minute, c.Second, 0, time.UTC)
}

// DateOnly truncates t to midnight of its calendar day.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last second of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}

// ToISODate formats a time.Time value as an ISO date (YYYY-MM-DD)
func ToISODate(date time.Time) string {
	if date.IsZero() {
		return ""
	}
	return date.Format(DateLayoutISO)
}

// FormatTimestamp formats t as "YYYY-MM-DD HH:MM:SS", empty for the zero time.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayoutFull)
}

// CleanDateString trims and collapses internal whitespace.
func CleanDateString(dateStr string) string {
	return spaces.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

// naive keeps the wall clock of t and labels it UTC.
func naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
