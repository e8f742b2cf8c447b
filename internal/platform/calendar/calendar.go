// Package calendar provides date-only arithmetic for regulatory deadline
// computation. All functions normalize their inputs to a civil date (year,
// month, day) so that time-of-day and timezone offsets never affect
// comparisons or arithmetic.
package calendar

import (
	"fmt"
	"time"
)

// DateOnly strips the time-of-day and timezone from t, returning midnight UTC
// of the same calendar date. Every function in this package applies it to its
// inputs before doing arithmetic.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in the local timezone, normalized.
func Today() time.Time {
	return DateOnly(time.Now())
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}

// Before reports whether a falls on an earlier calendar date than b.
func Before(a, b time.Time) bool {
	return DateOnly(a).Before(DateOnly(b))
}

// After reports whether a falls on a later calendar date than b.
func After(a, b time.Time) bool {
	return DateOnly(a).After(DateOnly(b))
}

// AddDays returns the date n calendar days after t (n may be negative).
func AddDays(t time.Time, n int) time.Time {
	return DateOnly(t).AddDate(0, 0, n)
}

// AddMonths returns the date n calendar months after t. Day-of-month overflow
// follows time.AddDate semantics (Jan 31 + 1 month = Mar 2/3).
func AddMonths(t time.Time, n int) time.Time {
	return DateOnly(t).AddDate(0, n, 0)
}

// LastDayOfMonth returns the last calendar day of t's month.
func LastDayOfMonth(t time.Time) time.Time {
	y, m, _ := DateOnly(t).Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
}

// IsBusinessDay reports whether t falls on a weekday. Holidays are not
// considered; the regulatory rule counts Monday through Friday only.
func IsBusinessDay(t time.Time) bool {
	wd := DateOnly(t).Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// NthBusinessDay returns the nth business day (Mon-Fri) of the given month.
// n is 1-based. It panics if n is not positive; a month always contains at
// least 20 business days, so any n within the regulatory range is safe.
func NthBusinessDay(year int, month time.Month, n int) time.Time {
	if n <= 0 {
		panic("calendar: business day ordinal must be positive")
	}
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	count := 0
	for {
		if IsBusinessDay(d) {
			count++
			if count == n {
				return d
			}
		}
		d = d.AddDate(0, 0, 1)
	}
}

// DaysUntil returns the number of whole calendar days from `from` to `to`.
// Negative when `to` is in the past relative to `from`.
func DaysUntil(from, to time.Time) int {
	return int(DateOnly(to).Sub(DateOnly(from)).Hours() / 24)
}

// MinDate returns the earlier of two calendar dates.
func MinDate(a, b time.Time) time.Time {
	if Before(b, a) {
		return DateOnly(b)
	}
	return DateOnly(a)
}

// Competency is a calendar-month accounting period encoded as YYYYMM,
// e.g. 202503 for March 2025. It is the unit regulatory billing windows are
// expressed in.
type Competency int

// CompetencyOf returns the competency containing the given date.
func CompetencyOf(t time.Time) Competency {
	y, m, _ := DateOnly(t).Date()
	return Competency(y*100 + int(m))
}

// Year returns the competency's calendar year.
func (c Competency) Year() int { return int(c) / 100 }

// Month returns the competency's calendar month.
func (c Competency) Month() time.Month { return time.Month(int(c) % 100) }

// Valid reports whether c encodes a real year-month.
func (c Competency) Valid() bool {
	m := int(c) % 100
	return c > 0 && m >= 1 && m <= 12
}

// Next returns the competency of the following calendar month.
func (c Competency) Next() Competency {
	if c.Month() == time.December {
		return Competency((c.Year()+1)*100 + 1)
	}
	return c + 1
}

// FirstDay returns the first calendar day of the competency month.
func (c Competency) FirstDay() time.Time {
	return time.Date(c.Year(), c.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// LastDay returns the last calendar day of the competency month.
func (c Competency) LastDay() time.Time {
	return time.Date(c.Year(), c.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

func (c Competency) String() string {
	return fmt.Sprintf("%06d", int(c))
}
