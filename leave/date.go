/*
Day-granularity dates.

PURPOSE:
  Leave is requested, charged and accrued in whole (or half) calendar days.
  Date wraps time.Time normalized to midnight UTC so that two dates compare
  equal iff they are the same calendar day, regardless of how they were
  constructed.

KEY CONCEPTS:
  - Date: a calendar day. The zero value is "no date".
  - Inclusive ranges: a request from Mon to Wed spans 3 days.
  - Service years: fractional years on a 365.25-day basis, used by accrual.

SEE ALSO:
  - chargeable.go: walks date ranges day by day
  - accrual.go: converts service duration into accrued hours
*/
package leave

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format for dates.
const DateLayout = "2006-01-02"

var daysPerYear = decimal.NewFromFloat(365.25)

// Date is a calendar day with no time-of-day component.
type Date struct {
	t time.Time
}

// NewDate creates a Date for the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate that panics on error. Test helper.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Today returns the current calendar day in the local timezone.
func Today() Date {
	return DateOf(time.Now())
}

func (d Date) IsZero() bool       { return d.t.IsZero() }
func (d Date) Time() time.Time    { return d.t }
func (d Date) Year() int          { return d.t.Year() }
func (d Date) Month() time.Month  { return d.t.Month() }
func (d Date) Day() int           { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

func (d Date) String() string { return d.t.Format(DateLayout) }

func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }

// OnOrBefore reports d <= other.
func (d Date) OnOrBefore(other Date) bool { return !d.After(other) }

// OnOrAfter reports d >= other.
func (d Date) OnOrAfter(other Date) bool { return !d.Before(other) }

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return DateOf(d.t.AddDate(0, 0, n))
}

// AddYears returns the same calendar day n years later.
func (d Date) AddYears(n int) Date {
	return DateOf(d.t.AddDate(n, 0, 0))
}

// IsWeekend reports whether the date falls on Saturday or Sunday.
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// DaysBetween returns the inclusive day count of [from, to].
// Returns 0 when to is before from.
func DaysBetween(from, to Date) int {
	if to.Before(from) {
		return 0
	}
	return int(to.t.Sub(from.t).Hours()/24) + 1
}

// YearsBetween returns the fractional years elapsed from one date to another
// on a 365.25-day basis. Negative spans clamp to zero.
func YearsBetween(from, to Date) decimal.Decimal {
	if to.Before(from) {
		return decimal.Zero
	}
	days := decimal.NewFromInt(int64(to.t.Sub(from.t).Hours() / 24))
	return days.Div(daysPerYear)
}

// MarshalJSON encodes the date as a YYYY-MM-DD string, or null when zero.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a YYYY-MM-DD string or null.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date JSON: %s", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
