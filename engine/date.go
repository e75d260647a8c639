package engine

import (
	"time"

	"cloud.google.com/go/civil"
)

// Supported calendar year range, inclusive.
const (
	MinYear = -262144
	MaxYear = 262143
)

// NewDate returns the proleptic Gregorian date year-month-day, or false when
// the triple does not name a real date (month 13, day 32, February 29 in a
// common year, or a year outside [MinYear, MaxYear]).
func NewDate(year, month, day int) (civil.Date, bool) {
	if year < MinYear || year > MaxYear {
		return civil.Date{}, false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return civil.Date{}, false
	}
	d := civil.Date{Year: year, Month: time.Month(month), Day: day}
	if !d.IsValid() {
		return civil.Date{}, false
	}
	return d, true
}

// AtMidnight returns d at 00:00:00, or false when d is not a valid date.
func AtMidnight(d civil.Date) (civil.DateTime, bool) {
	if !d.IsValid() {
		return civil.DateTime{}, false
	}
	return civil.DateTime{Date: d, Time: civil.Time{}}, true
}
