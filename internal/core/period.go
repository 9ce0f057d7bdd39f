package core

import (
	"fmt"
	"time"
)

// Period identifies one month's storage bucket: a (year, month) pair.
// It is derived from a calendar date by dropping the day-of-month and is
// immutable once computed.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf derives the period a date belongs to.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// NewPeriod builds a period from a year and a 1-12 month number.
func NewPeriod(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("%w: month %d out of range", ErrInvalidDate, month)
	}
	if year < 1 {
		return Period{}, fmt.Errorf("%w: year %d out of range", ErrInvalidDate, year)
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

// Before reports whether p is strictly earlier than other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// Equal reports whether two periods name the same month.
func (p Period) Equal(other Period) bool {
	return p.Year == other.Year && p.Month == other.Month
}

// Prev returns the immediately preceding period.
func (p Period) Prev() Period {
	if p.Month == time.January {
		return Period{Year: p.Year - 1, Month: time.December}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Next returns the immediately following period.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// FirstDay returns the first day of the period's month.
func (p Period) FirstDay() Date {
	return NewDate(p.Year, int(p.Month), 1)
}

// IsZero reports whether the period is the zero value.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// String renders the period as "2025-07".
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// monthsCA holds the Catalan month names used on screens. Storage paths
// never use these; the on-disk scheme is English-only (see internal/period).
var monthsCA = [13]string{
	"",
	"gener",
	"febrer",
	"març",
	"abril",
	"maig",
	"juny",
	"juliol",
	"agost",
	"setembre",
	"octubre",
	"novembre",
	"desembre",
}

// MonthNameCA returns the Catalan display name for a month, or "" for an
// out-of-range value.
func MonthNameCA(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthsCA[m]
}

// DisplayCA renders the period for screens, e.g. "juliol 2025".
func (p Period) DisplayCA() string {
	return fmt.Sprintf("%s %d", MonthNameCA(p.Month), p.Year)
}
