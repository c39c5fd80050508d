package daterange

import (
	"fmt"
	"time"
)

// Layout is the textual form of a Date, YYYY-MM-DD
const Layout = "2006-01-02"

// Date is a calendar day in the proleptic Gregorian calendar.
// The zero value means "no date".
type Date struct {
	t time.Time
}

// ParseError returned by Parse for malformed date text
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid date %q, expected YYYY-MM-DD: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// New makes a Date from year, month and day, normalizing overflowed values the way time.Date does
func New(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime drops the clock part of t, keeping the calendar day as seen in t's location
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return New(y, m, d)
}

// Parse converts YYYY-MM-DD text to Date, month and day may omit the leading zero
func Parse(s string) (Date, error) {
	t, err := time.Parse("2006-1-2", s)
	if err != nil {
		return Date{}, &ParseError{Input: s, Err: err}
	}
	return Date{t: t}, nil
}

// IsZero reports whether d is the absent date
func (d Date) IsZero() bool { return d.t.IsZero() }

// AddDays returns d shifted by n days. Panics if the result leaves years 1..9999.
func (d Date) AddDays(n int) Date {
	res, ok := d.addDays(n)
	if !ok {
		panic(fmt.Sprintf("daterange: %s %+d days is out of range", d, n))
	}
	return res
}

func (d Date) addDays(n int) (Date, bool) {
	res := d.t.AddDate(0, 0, n)
	if y := res.Year(); y < 1 || y > 9999 {
		return Date{}, false
	}
	return Date{t: res}, true
}

// Compare returns -1, 0 or +1 if d is before, equal or after other
func (d Date) Compare(other Date) int { return d.t.Compare(other.t) }

// Before reports whether d is before other
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

// After reports whether d is after other
func (d Date) After(other Date) bool { return d.t.After(other.t) }

// Equal reports whether d and other are the same day
func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

// Time returns midnight UTC of d
func (d Date) Time() time.Time { return d.t }

// Format renders d with Go time layout
func (d Date) Format(layout string) string { return d.t.Format(layout) }

func (d Date) String() string { return d.t.Format(Layout) }

// MarshalText implements encoding.TextMarshaler
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Date) UnmarshalText(data []byte) error {
	res, err := Parse(string(data))
	if err != nil {
		return err
	}
	*d = res
	return nil
}
