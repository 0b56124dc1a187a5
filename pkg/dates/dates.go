// Package dates holds the calendar helpers shared by the donation, request
// and report code. All values are treated as calendar dates in UTC.
package dates

import (
	"fmt"
	"math"
	"time"
)

const (
	// ISO is the wire format of dates in requests and responses.
	ISO = "2006-01-02"
	// Display is the human-readable format used in exports, e.g. "Mar 7, 2024".
	Display = "Jan 2, 2006"
)

const day = 24 * time.Hour

// Format renders t as "Jan 2, 2006". The zero time renders as "".
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(Display)
}

// Parse reads a YYYY-MM-DD date.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(ISO, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// Truncate drops the time of day, keeping the calendar date of t in UTC.
func Truncate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date.
func Today() time.Time {
	return Truncate(time.Now())
}

// DaysBetween returns the absolute number of days between a and b, rounded
// to the nearest whole day.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(math.Abs(a.Sub(b).Hours()) / 24))
}

// AddDays shifts a calendar date by n days.
func AddDays(t time.Time, n int) time.Time {
	return t.Add(time.Duration(n) * day)
}
