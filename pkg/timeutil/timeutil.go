// Package timeutil normalizes the mixed timestamp representations that
// arrive from external feeds into canonical formatted strings, and
// provides small elapsed-time helpers.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/b-infra/opskit/pkg/errors"
	"github.com/b-infra/opskit/pkg/numgroup"
)

// DefaultLayout is the canonical output layout
const DefaultLayout = "2006-01-02 15:04:05"

// DayLayout formats a date without a time component
const DayLayout = "2006-01-02"

// NormalizeDate extracts a formatted timestamp from the mixed
// representations external systems emit: time.Time values, unix
// timestamps in seconds or milliseconds (numeric or string), ISO-8601
// strings with or without a trailing Z, and event-time strings of the
// form "2024-01-02 15:04:05.123 GMT". The layout defaults to
// DefaultLayout when empty. Timestamps resolve in UTC.
func NormalizeDate(value interface{}, layout string) (string, error) {
	if layout == "" {
		layout = DefaultLayout
	}

	switch v := value.(type) {
	case nil:
		return "", errors.NewValidationError("date value is nil")
	case time.Time:
		return v.Format(layout), nil
	case int:
		return fromUnix(int64(v), layout), nil
	case int64:
		return fromUnix(v, layout), nil
	case float64:
		return fromUnix(int64(v), layout), nil
	case string:
		return normalizeString(v, layout)
	default:
		return "", errors.NewValidationError(fmt.Sprintf("unsupported date type %T", value))
	}
}

func normalizeString(s, layout string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "nan" || s == "NaT" || s == "None" {
		return "", errors.NewValidationError("date value is empty")
	}

	// Event-time strings carry a GMT suffix and fractional seconds.
	if strings.Contains(s, "GMT") {
		trimmed := strings.TrimSpace(strings.ReplaceAll(s, "GMT", ""))
		if i := strings.Index(trimmed, "."); i >= 0 {
			trimmed = trimmed[:i]
		}
		t, err := time.Parse(DefaultLayout, trimmed)
		if err != nil {
			return "", errors.NewValidationError("failed to parse event time: " + s).WithCause(err)
		}
		return t.Format(layout), nil
	}

	if numgroup.IsNumeric(s) {
		// Millisecond timestamps are longer than ten digits.
		digits := s
		if i := strings.Index(digits, "."); i >= 0 {
			digits = digits[:i]
		}
		if len(strings.TrimPrefix(digits, "-")) > 10 {
			digits = digits[:10]
		}
		seconds, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return "", errors.NewValidationError("failed to parse numeric timestamp: " + s).WithCause(err)
		}
		return fromUnix(seconds, layout), nil
	}

	for _, parseLayout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		DefaultLayout,
		DayLayout,
	} {
		if t, err := time.Parse(parseLayout, strings.TrimSuffix(s, "Z")); err == nil {
			return t.Format(layout), nil
		}
	}

	return "", errors.NewValidationError("failed to parse date: " + s)
}

func fromUnix(seconds int64, layout string) string {
	// Millisecond inputs arrive as 13-digit numbers.
	if seconds > 9_999_999_999 {
		seconds = seconds / 1000
	}
	return time.Unix(seconds, 0).UTC().Format(layout)
}

// ValidDate converts a dd-mm-yyyy string to yyyy-mm-dd. Any other input
// is returned trimmed but otherwise untouched.
func ValidDate(date string) string {
	date = strings.TrimSpace(date)
	if t, err := time.Parse("02-01-2006", date); err == nil {
		return t.Format(DayLayout)
	}
	return date
}

// GenerateDates returns every date from start (inclusive, "yyyy-mm-dd")
// up to today as formatted day strings. The clock is injectable for
// tests; nil means time.Now.
func GenerateDates(start string, now func() time.Time) ([]string, error) {
	startDate, err := time.Parse(DayLayout, start)
	if err != nil {
		return nil, errors.NewValidationError("start date must be in yyyy-mm-dd format").WithCause(err)
	}

	if now == nil {
		now = time.Now
	}
	today := now()

	var dates []string
	for current := startDate; !current.After(today); current = current.AddDate(0, 0, 1) {
		dates = append(dates, current.Format(DayLayout))
	}
	return dates, nil
}

// Timer measures wall-clock elapsed time between Start and Stop
type Timer struct {
	start time.Time
	taken time.Duration
}

// NewTimer returns a started timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Start resets the timer
func (t *Timer) Start() {
	t.start = time.Now()
	t.taken = 0
}

// Stop records the elapsed time since Start
func (t *Timer) Stop() {
	t.taken = time.Since(t.start)
}

// Seconds returns the recorded elapsed time in seconds
func (t *Timer) Seconds() float64 {
	return t.taken.Seconds()
}

// Minutes returns the recorded elapsed time in minutes
func (t *Timer) Minutes() float64 {
	return t.taken.Minutes()
}
