/*
Leave policy resolution.

PURPOSE:
  Picks the effective policy per leave category for an employee. Company
  policies supersede the statutory system defaults; within company policies
  the most specific scope wins. Resolution failures degrade per category:
  an employee with no long-service policy still gets annual and personal
  balances.

RESOLUTION ORDER (per category):
  1. Active company policy whose scope covers the employee, most specific
     scope first (entity match + employment-type match), newest on ties.
  2. Active system default (statutory floor) covering the employee.
  3. NoPolicyError; the category is reported as unavailable.

ELIGIBILITY:
  Policies with a minimum-service threshold (long service leave) still
  resolve for employees below the threshold, with Eligible=false and the
  future EligibilityDate. No accrual counts until the threshold is reached.

SEE ALSO:
  - accrual.go: turns a resolved policy into accrued hours
  - factory/: statutory default construction
*/
package leave

import (
	"context"
	"fmt"
)

// AccruingLeaveTypes are the categories the resolver produces a policy for.
// Unpaid leave has no accrual and needs no policy.
var AccruingLeaveTypes = []LeaveType{LeaveAnnual, LeavePersonal, LeaveLongService}

// ResolvedPolicy is the outcome of resolution for one category.
type ResolvedPolicy struct {
	Policy          LeavePolicy
	Source          PolicySource
	Eligible        bool
	EligibilityDate Date // set only when Eligible is false
}

// LeaveContext holds every category's resolution for one employee.
type LeaveContext struct {
	EmployeeID string
	AsOf       Date
	Policies   map[LeaveType]ResolvedPolicy
	Unresolved map[LeaveType]error
}

// Resolver resolves effective policies.
type Resolver struct {
	employees EmployeeStore
	policies  PolicyStore

	// Now is swappable for tests. Defaults to Today.
	Now func() Date
}

// NewResolver wires a resolver over employee and policy stores.
func NewResolver(employees EmployeeStore, policies PolicyStore) *Resolver {
	return &Resolver{employees: employees, policies: policies, Now: Today}
}

// LeaveContextFor resolves every accruing category for the employee.
// Only a missing employee or a store failure is an error; per-category
// resolution failures land in Unresolved.
func (r *Resolver) LeaveContextFor(ctx context.Context, employeeID string) (*LeaveContext, error) {
	emp, err := r.employees.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("loading employee %s: %w", employeeID, err)
	}
	if emp == nil {
		return nil, fmt.Errorf("employee %s: %w", employeeID, ErrEmployeeNotFound)
	}

	lc := &LeaveContext{
		EmployeeID: employeeID,
		AsOf:       r.Now(),
		Policies:   make(map[LeaveType]ResolvedPolicy),
		Unresolved: make(map[LeaveType]error),
	}
	for _, t := range AccruingLeaveTypes {
		rp, err := r.Resolve(ctx, emp, t)
		if err != nil {
			lc.Unresolved[t] = err
			continue
		}
		lc.Policies[t] = *rp
	}
	return lc, nil
}

// Resolve picks the effective policy for one category.
func (r *Resolver) Resolve(ctx context.Context, emp *Employee, t LeaveType) (*ResolvedPolicy, error) {
	candidates, err := r.policies.ListActivePolicies(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("listing %s policies: %w", t, err)
	}

	best := pickPolicy(candidates, emp, false)
	source := SourceCompany
	if best == nil {
		best = pickPolicy(candidates, emp, true)
		source = SourceSystem
	}
	if best == nil {
		return nil, &NoPolicyError{EmployeeID: emp.ID, LeaveType: t}
	}

	rp := &ResolvedPolicy{Policy: *best, Source: source, Eligible: true}
	if best.MinServiceYears > 0 {
		eligibleFrom := emp.ServiceStart.AddYears(best.MinServiceYears)
		if r.Now().Before(eligibleFrom) {
			rp.Eligible = false
			rp.EligibilityDate = eligibleFrom
		}
	}
	return rp, nil
}

// pickPolicy returns the best-scoped applicable policy of the given tier,
// or nil. More specific scope wins; newest update breaks ties.
func pickPolicy(candidates []LeavePolicy, emp *Employee, system bool) *LeavePolicy {
	var best *LeavePolicy
	bestScore := -1
	for i := range candidates {
		p := &candidates[i]
		if p.IsSystem != system || !p.AppliesTo(emp) {
			continue
		}
		score := policyScore(p)
		if score > bestScore || (score == bestScore && best != nil && p.UpdatedAt.After(best.UpdatedAt)) {
			best = p
			bestScore = score
		}
	}
	return best
}

func policyScore(p *LeavePolicy) int {
	n := 0
	if p.EntityID != "" {
		n += 2
	}
	if len(p.EmploymentTypes) > 0 {
		n++
	}
	return n
}
