/*
Balance aggregation.

PURPOSE:
  Derives leave balances from first principles on every call:

    available = opening + accrued + adjusted - usedApproved - usedPending

  All terms are decimal hours. Balances are never stored as mutable
  counters; the persisted snapshots are a materialized view for reporting,
  rebuilt by the batch recalculation.

KEY RULES:
  - Used hours = chargeable days x the policy's standard hours per day,
    summed over approved (and separately pending) requests of the category.
    Pending reduces availability exactly like approved.
  - If recomputing chargeable days for a stored request fails (holiday
    config removed, etc.), the request's captured total_days is used
    instead. Reporting degrades, it does not error.
  - Ineligible categories (long service before the threshold) report zero
    accrual with the eligibility date.
  - Unresolved categories are absent from Categories and recorded in
    Unresolved; other categories are unaffected.

SEE ALSO:
  - accrual.go: accrued-hours math
  - request.go: the write path that consumes availability checks
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// CategoryBalance is the derived balance for one leave category.
type CategoryBalance struct {
	LeaveType           LeaveType
	Source              PolicySource
	PolicyID            string
	Accrued             decimal.Decimal
	Opening             decimal.Decimal
	Adjusted            decimal.Decimal
	UsedApproved        decimal.Decimal
	UsedPending         decimal.Decimal
	Available           decimal.Decimal
	StandardHoursPerDay decimal.Decimal
	Eligible            bool
	EligibilityDate     Date
}

// EmployeeBalances is the full balance picture for one employee.
type EmployeeBalances struct {
	EmployeeID string
	AsOf       Date
	Categories map[LeaveType]*CategoryBalance
	Unresolved map[LeaveType]error
}

// Balance returns the category balance or nil when unresolved.
func (b *EmployeeBalances) Balance(t LeaveType) *CategoryBalance {
	return b.Categories[t]
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator derives balances from requests, adjustments and policy.
type Aggregator struct {
	employees   EmployeeStore
	requests    RequestStore
	adjustments AdjustmentStore
	snapshots   SnapshotStore
	resolver    *Resolver
	calc        *Calculator

	// Now is swappable for tests. Defaults to Today.
	Now func() Date
}

// NewAggregator wires an aggregator over the full store surface.
func NewAggregator(store Store, resolver *Resolver, calc *Calculator) *Aggregator {
	return &Aggregator{
		employees:   store,
		requests:    store,
		adjustments: store,
		snapshots:   store,
		resolver:    resolver,
		calc:        calc,
		Now:         Today,
	}
}

// ForEmployee derives every category balance for one employee as of today.
func (a *Aggregator) ForEmployee(ctx context.Context, employeeID string) (*EmployeeBalances, error) {
	emp, err := a.employees.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("loading employee %s: %w", employeeID, err)
	}
	if emp == nil {
		return nil, fmt.Errorf("employee %s: %w", employeeID, ErrEmployeeNotFound)
	}

	lc, err := a.resolver.LeaveContextFor(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	requests, err := a.requests.RequestsForEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("loading requests: %w", err)
	}
	adjs, err := a.adjustments.AdjustmentsForEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("loading adjustments: %w", err)
	}

	asOf := a.Now()
	out := &EmployeeBalances{
		EmployeeID: employeeID,
		AsOf:       asOf,
		Categories: make(map[LeaveType]*CategoryBalance),
		Unresolved: lc.Unresolved,
	}
	for t, rp := range lc.Policies {
		cb := a.categoryBalance(ctx, emp, t, rp, requests, adjs, asOf)
		out.Categories[t] = cb
	}
	return out, nil
}

func (a *Aggregator) categoryBalance(ctx context.Context, emp *Employee, t LeaveType, rp ResolvedPolicy, requests []LeaveRequest, adjs []Adjustment, asOf Date) *CategoryBalance {
	p := rp.Policy
	cb := &CategoryBalance{
		LeaveType:           t,
		Source:              rp.Source,
		PolicyID:            p.ID,
		StandardHoursPerDay: p.StandardHoursPerDay,
		Eligible:            rp.Eligible,
		EligibilityDate:     rp.EligibilityDate,
	}

	for _, adj := range adjs {
		if adj.LeaveType != t {
			continue
		}
		if adj.Kind == KindOpeningBalance {
			cb.Opening = cb.Opening.Add(adj.Hours)
		} else {
			cb.Adjusted = cb.Adjusted.Add(adj.Hours)
		}
	}

	if rp.Eligible {
		accrued := AccruedHours(&p, emp.ServiceStart, asOf)
		cb.Accrued = ClipToCarryover(&p, cb.Opening, accrued)
	}

	for i := range requests {
		r := &requests[i]
		if r.LeaveType != t || !r.CountsAgainstBalance() {
			continue
		}
		hours := a.requestHours(ctx, emp, r).Mul(p.StandardHoursPerDay)
		if r.Status == StatusApproved {
			cb.UsedApproved = cb.UsedApproved.Add(hours)
		} else {
			cb.UsedPending = cb.UsedPending.Add(hours)
		}
	}

	cb.Available = cb.Opening.Add(cb.Accrued).Add(cb.Adjusted).
		Sub(cb.UsedApproved).Sub(cb.UsedPending)
	return cb
}

// requestHours recomputes a stored request's chargeable days, falling back
// to the days captured at submission when recomputation fails.
func (a *Aggregator) requestHours(ctx context.Context, emp *Employee, r *LeaveRequest) decimal.Decimal {
	bd, err := a.calc.ForEmployee(ctx, emp, r.StartDate, r.EndDate, r.PartialDayType)
	if err != nil {
		return r.TotalDays
	}
	return bd.ChargeableDays
}

// =============================================================================
// BATCH RECALCULATION
// =============================================================================

// Progress is reported after each employee in a batch run. Processed is
// monotonically non-decreasing and includes failed employees.
type Progress struct {
	Processed int
	Total     int
}

// RecalcFailure records one employee the batch skipped.
type RecalcFailure struct {
	EmployeeID string
	Err        error
}

// RecalcResult summarizes a batch run.
type RecalcResult struct {
	Total     int
	Processed int
	Failed    int
	Failures  []RecalcFailure
}

// RecalculateAll rebuilds snapshots for every active employee, optionally
// restricted to one entity. A failing employee is recorded and skipped; the
// batch continues. The context is checked between employees so a long run
// can be cancelled mid-batch, and onProgress (optional) fires after every
// employee, success or failure.
func (a *Aggregator) RecalculateAll(ctx context.Context, entityID string, onProgress func(Progress)) (*RecalcResult, error) {
	emps, err := a.employees.ListActiveEmployees(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("listing employees: %w", err)
	}

	res := &RecalcResult{Total: len(emps)}
	for _, emp := range emps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := a.recalcOne(ctx, emp.ID); err != nil {
			res.Failed++
			res.Failures = append(res.Failures, RecalcFailure{EmployeeID: emp.ID, Err: err})
		}
		res.Processed++
		if onProgress != nil {
			onProgress(Progress{Processed: res.Processed, Total: res.Total})
		}
	}
	return res, nil
}

func (a *Aggregator) recalcOne(ctx context.Context, employeeID string) error {
	balances, err := a.ForEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	if a.snapshots == nil {
		return nil
	}
	now := time.Now()
	for _, cb := range balances.Categories {
		snap := &BalanceSnapshot{
			ID:                  uuid.NewString(),
			EmployeeID:          employeeID,
			LeaveType:           cb.LeaveType,
			AccruedHours:        cb.Accrued,
			OpeningHours:        cb.Opening,
			AdjustedHours:       cb.Adjusted,
			UsedApprovedHours:   cb.UsedApproved,
			UsedPendingHours:    cb.UsedPending,
			AvailableHours:      cb.Available,
			StandardHoursPerDay: cb.StandardHoursPerDay,
			AsOf:                balances.AsOf,
			TakenAt:             now,
		}
		if err := a.snapshots.SaveSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("saving %s snapshot: %w", cb.LeaveType, err)
		}
	}
	return nil
}
