/*
Chargeable-days calculation.

PURPOSE:
  Determines how many days of a requested range actually draw down leave
  balance. Weekends and public holidays are free; only working days charge.
  This is the single shared definition of "how long is this leave" used by
  request validation, balance aggregation and the preview endpoint.

KEY CONCEPTS:
  - Inclusive range: start and end dates both count.
  - Classification is exclusive: a holiday falling on a weekend counts once,
    as a weekend. HolidayCount only holds holidays on weekdays.
  - chargeable = total - weekends - weekday holidays.
  - Half days: only meaningful on a single-day range. A half day on a
    working day charges 0.5; on a weekend or holiday it charges 0.

EXAMPLE:
  calc := leave.NewCalculator(store, store)
  bd, err := calc.Calculate(ctx, leave.ChargeableInput{
      EmployeeID: "emp-1",
      Start:      leave.MustParseDate("2025-04-18"),
      End:        leave.MustParseDate("2025-04-22"),
  })
  // Fri..Tue with Easter Monday: total 5, weekends 2, holidays 1, chargeable 2

SEE ALSO:
  - calendar.go: effective holiday set
  - request.go: rejects zero-chargeable requests
*/
package leave

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

var halfDay = decimal.NewFromFloat(0.5)

// ChargeableInput identifies a range to price for one employee.
type ChargeableInput struct {
	EmployeeID     string
	Start          Date
	End            Date
	PartialDayType PartialDayType
}

// Breakdown is the result of a chargeable-days calculation.
type Breakdown struct {
	TotalDays      int
	WeekendCount   int
	HolidayCount   int // weekday holidays only
	ChargeableDays decimal.Decimal
	Holidays       []Holiday // the weekday holidays, ordered by date
	IsHalfDay      bool
	PartialDayType PartialDayType
}

// Calculator computes chargeable days. Pure read: no calculation mutates
// state, and repeated calls over the same inputs return the same breakdown.
type Calculator struct {
	employees EmployeeStore
	calendar  HolidayCalendar
}

// NewCalculator wires a calculator over employee records and a holiday
// calendar.
func NewCalculator(employees EmployeeStore, calendar HolidayCalendar) *Calculator {
	return &Calculator{employees: employees, calendar: calendar}
}

// Calculate resolves the employee and prices the range against their
// effective holiday calendar.
func (c *Calculator) Calculate(ctx context.Context, in ChargeableInput) (*Breakdown, error) {
	emp, err := c.employees.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("loading employee %s: %w", in.EmployeeID, err)
	}
	if emp == nil {
		return nil, fmt.Errorf("employee %s: %w", in.EmployeeID, ErrEmployeeNotFound)
	}
	return c.ForEmployee(ctx, emp, in.Start, in.End, in.PartialDayType)
}

// ForEmployee prices a range for an already-loaded employee. Used by the
// balance aggregator to avoid re-fetching the employee per request.
func (c *Calculator) ForEmployee(ctx context.Context, emp *Employee, start, end Date, partial PartialDayType) (*Breakdown, error) {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return nil, fmt.Errorf("range %s to %s: %w", start, end, ErrInvalidRange)
	}
	if partial.IsHalf() && !start.Equal(end) {
		return nil, fmt.Errorf("half day over %s to %s: %w", start, end, ErrHalfDaySpansRange)
	}

	rows, err := c.calendar.HolidaysInRange(ctx, emp.EntityID, emp.StateRegion, start, end)
	if err != nil {
		return nil, fmt.Errorf("loading holidays: %w", err)
	}
	set := EffectiveHolidays(rows, emp.EntityID, emp.StateRegion)

	bd := &Breakdown{PartialDayType: partial}
	for d := start; d.OnOrBefore(end); d = d.AddDays(1) {
		bd.TotalDays++
		holiday, isHoliday := set[d.String()]
		switch {
		case d.IsWeekend():
			// A holiday on a weekend counts as a weekend, never twice.
			bd.WeekendCount++
		case isHoliday:
			bd.HolidayCount++
			bd.Holidays = append(bd.Holidays, holiday)
		}
	}

	working := bd.TotalDays - bd.WeekendCount - bd.HolidayCount
	bd.ChargeableDays = decimal.NewFromInt(int64(working))

	if partial.IsHalf() {
		bd.IsHalfDay = true
		if working > 0 {
			bd.ChargeableDays = halfDay
		}
	}
	return bd, nil
}
