/*
Accrual math.

PURPOSE:
  Converts a resolved policy plus service duration into accrued hours.
  Accrual is continuous: an employee half a year in has earned half the
  annual rate. Service years use the 365.25-day basis from date.go.

KEY RULES:
  - Minimum-service threshold (long service): nothing accrues until the
    threshold year is reached; once reached, the full service period counts,
    with the post-threshold rate applied to years beyond the threshold.
  - Carryover cap: when a policy caps carryover, accrual is clipped so that
    opening balance + accrual never exceeds the cap. Used hours are not
    affected.

EXAMPLE:
  20 days/year at 7.6 h/day, 6 months of service:
    0.5 x 20 x 7.6 = 76 hours
*/
package leave

import "github.com/shopspring/decimal"

// AccruedHours returns the hours accrued under the policy for service from
// serviceStart to asOf.
func AccruedHours(p *LeavePolicy, serviceStart, asOf Date) decimal.Decimal {
	years := YearsBetween(serviceStart, asOf)
	if years.IsZero() {
		return decimal.Zero
	}

	if p.MinServiceYears <= 0 {
		return years.Mul(p.AnnualHours())
	}

	threshold := decimal.NewFromInt(int64(p.MinServiceYears))
	if years.LessThan(threshold) {
		return decimal.Zero
	}

	// Service up to the threshold accrues at the base rate, the remainder at
	// the post-threshold rate when one is configured.
	afterRate := p.RateAfterThreshold
	if afterRate.IsZero() {
		afterRate = p.AccrualRate
	}
	base := threshold.Mul(p.AnnualHours())
	beyond := years.Sub(threshold).Mul(p.annualHoursAt(afterRate))
	return base.Add(beyond)
}

// ClipToCarryover limits accrued hours so opening + accrued stays within the
// policy's carryover cap. A zero or negative cap means uncapped.
func ClipToCarryover(p *LeavePolicy, opening, accrued decimal.Decimal) decimal.Decimal {
	cap := p.MaxCarryoverHours
	if cap.LessThanOrEqual(decimal.Zero) {
		return accrued
	}
	if opening.Add(accrued).LessThanOrEqual(cap) {
		return accrued
	}
	clipped := cap.Sub(opening)
	if clipped.IsNegative() {
		return decimal.Zero
	}
	return clipped
}
