package types

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar day format used for every task date
const DateLayout = "2006-01-02"

// Date is a calendar day in ISO form (YYYY-MM-DD)
type Date string

// ParseDate validates s and returns it as a Date
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return Date(t.Format(DateLayout)), nil
}

// DateOf returns the calendar day of t in t's location
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// Time returns the midnight UTC instant of the day
func (d Date) Time() (time.Time, error) {
	return time.Parse(DateLayout, string(d))
}

// AddDays returns the day n days after d (n may be negative)
func (d Date) AddDays(n int) (Date, error) {
	t, err := d.Time()
	if err != nil {
		return "", err
	}
	return DateOf(t.AddDate(0, 0, n)), nil
}

// Valid reports whether d parses as an ISO day
func (d Date) Valid() bool {
	_, err := d.Time()
	return err == nil
}

// Before compares two ISO days lexically, which matches calendar order
func (d Date) Before(other Date) bool {
	return d < other
}

func (d Date) String() string {
	return string(d)
}
