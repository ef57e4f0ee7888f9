/*
Core domain types for the leave engine.

PURPOSE:
  Defines the entities the engine computes over: employees, leave categories,
  policies, requests, adjustments and balance snapshots. All quantities are
  decimal hours; days exist only at the calculator boundary and are converted
  through a policy's standard hours per day.

KEY CONCEPTS:
  - LeaveType: the category (annual, personal, long_service, unpaid).
  - LeavePolicy: accrual configuration for one category. Company policies
    supersede system (statutory) defaults.
  - LeaveRequest: the unit of record. Balances are derived from request
    history, never stored as mutable counters.
  - ActingContext: who is performing an operation and under which mode.
    Permission and balance-enforcement decisions read this explicitly.

SEE ALSO:
  - policy.go: resolution of the effective policy per category
  - balance.go: derivation of balances from requests + policy
  - request.go: lifecycle validation and transitions
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEAVE CATEGORIES
// =============================================================================

// LeaveType identifies a leave category.
type LeaveType string

const (
	LeaveAnnual      LeaveType = "annual"
	LeavePersonal    LeaveType = "personal"
	LeaveLongService LeaveType = "long_service"
	LeaveUnpaid      LeaveType = "unpaid"
)

// PaidLeaveTypes are the categories that draw down an accrued paid balance.
// Casual employees may not request these.
var PaidLeaveTypes = []LeaveType{LeaveAnnual, LeavePersonal}

// IsPaid reports whether the category draws down a paid accrual.
func (t LeaveType) IsPaid() bool {
	for _, p := range PaidLeaveTypes {
		if t == p {
			return true
		}
	}
	return false
}

// Valid reports whether t is a known category.
func (t LeaveType) Valid() bool {
	switch t {
	case LeaveAnnual, LeavePersonal, LeaveLongService, LeaveUnpaid:
		return true
	}
	return false
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmploymentType classifies the working arrangement.
type EmploymentType string

const (
	EmploymentFullTime EmploymentType = "full_time"
	EmploymentPartTime EmploymentType = "part_time"
	EmploymentCasual   EmploymentType = "casual"
	EmploymentContract EmploymentType = "contractor"
)

// EmployeeStatus is the lifecycle state of an employee record.
// Employees are never hard-deleted.
type EmployeeStatus string

const (
	EmployeeActive     EmployeeStatus = "active"
	EmployeeOnboarding EmployeeStatus = "onboarding"
	EmployeeTerminated EmployeeStatus = "terminated"
)

// Employee is a person leave is calculated for.
type Employee struct {
	ID             string
	FirstName      string
	LastName       string
	Email          string
	EmploymentType EmploymentType
	Status         EmployeeStatus
	ServiceStart   Date
	HoursPerWeek   decimal.Decimal
	EntityID       string // employing legal entity
	StateRegion    string // e.g. "NSW"; scopes public holidays
	ManagerID      string // empty when the employee has no manager
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasManager reports whether approvals route to a manager.
func (e *Employee) HasManager() bool { return e.ManagerID != "" }

// YearsOfService returns fractional service years as of the given day.
func (e *Employee) YearsOfService(asOf Date) decimal.Decimal {
	return YearsBetween(e.ServiceStart, asOf)
}

// =============================================================================
// POLICIES
// =============================================================================

// AccrualUnit is the unit the accrual rate is expressed in, per year of
// service. Everything converts to hours through the policy.
type AccrualUnit string

const (
	UnitDays  AccrualUnit = "days"
	UnitWeeks AccrualUnit = "weeks"
	UnitHours AccrualUnit = "hours"
)

// PolicySource records where a resolved policy came from.
type PolicySource string

const (
	SourceCompany PolicySource = "company"
	SourceSystem  PolicySource = "system"
)

// LeavePolicy is the accrual configuration for one leave category.
//
// System policies carry the statutory floor (NES for AU) and cannot be
// deleted, only superseded by a company policy matching the same scope.
type LeavePolicy struct {
	ID        string
	Name      string
	LeaveType LeaveType

	// Scope. Empty EntityID applies to all entities; empty EmploymentTypes
	// applies to all employment types.
	EntityID        string
	EmploymentTypes []EmploymentType
	Country         string

	// Accrual: AccrualRate units of AccrualUnit per year of service.
	AccrualUnit         AccrualUnit
	AccrualRate         decimal.Decimal
	StandardHoursPerDay decimal.Decimal // e.g. 7.6
	HoursPerWeekRef     decimal.Decimal // reference week for UnitWeeks, e.g. 38

	// MinServiceYears gates accrual entirely until reached (long service).
	// RateAfterThreshold, when positive, replaces AccrualRate for service
	// beyond the threshold.
	MinServiceYears    int
	RateAfterThreshold decimal.Decimal

	// MaxCarryoverHours caps opening balance + accrual when positive.
	MaxCarryoverHours decimal.Decimal

	IsSystem  bool
	IsDefault bool
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppliesTo reports whether the policy's scope covers the employee.
func (p *LeavePolicy) AppliesTo(e *Employee) bool {
	if p.EntityID != "" && p.EntityID != e.EntityID {
		return false
	}
	if len(p.EmploymentTypes) == 0 {
		return true
	}
	for _, et := range p.EmploymentTypes {
		if et == e.EmploymentType {
			return true
		}
	}
	return false
}

// AnnualHours converts the yearly accrual rate to hours.
func (p *LeavePolicy) AnnualHours() decimal.Decimal {
	switch p.AccrualUnit {
	case UnitDays:
		return p.AccrualRate.Mul(p.StandardHoursPerDay)
	case UnitWeeks:
		return p.AccrualRate.Mul(p.HoursPerWeekRef)
	default:
		return p.AccrualRate
	}
}

// annualHoursAt converts a specific rate (pre or post threshold) to hours.
func (p *LeavePolicy) annualHoursAt(rate decimal.Decimal) decimal.Decimal {
	switch p.AccrualUnit {
	case UnitDays:
		return rate.Mul(p.StandardHoursPerDay)
	case UnitWeeks:
		return rate.Mul(p.HoursPerWeekRef)
	default:
		return rate
	}
}

// =============================================================================
// REQUESTS
// =============================================================================

// RequestStatus is the lifecycle state of a leave request.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusDeclined  RequestStatus = "declined"
	StatusCancelled RequestStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed from s.
func (s RequestStatus) Terminal() bool {
	return s == StatusDeclined || s == StatusCancelled
}

// PartialDayType marks half-day requests. Half days are only valid on
// single-day ranges.
type PartialDayType string

const (
	FullDay PartialDayType = "full"
	HalfAM  PartialDayType = "half_am"
	HalfPM  PartialDayType = "half_pm"
)

// IsHalf reports whether the request covers half a working day.
func (p PartialDayType) IsHalf() bool { return p == HalfAM || p == HalfPM }

// Valid reports whether p is a known partial-day marker. The empty string
// is accepted and treated as a full day.
func (p PartialDayType) Valid() bool {
	switch p {
	case "", FullDay, HalfAM, HalfPM:
		return true
	}
	return false
}

// LeaveRequest is the unit of record for taken or planned leave.
type LeaveRequest struct {
	ID             string
	EmployeeID     string
	LeaveType      LeaveType
	StartDate      Date
	EndDate        Date
	Status         RequestStatus
	TotalDays      decimal.Decimal // chargeable days captured at submission
	PartialDayType PartialDayType
	Reason         string
	ManagerID      string // approver the request was routed to, if any
	DecidedBy      string
	DecidedAt      *time.Time
	DeclineReason  string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Overlaps reports whether the request's inclusive range intersects [from, to].
func (r *LeaveRequest) Overlaps(from, to Date) bool {
	return !r.EndDate.Before(from) && !r.StartDate.After(to)
}

// CountsAgainstBalance reports whether the request reduces available balance.
// Pending counts exactly like approved; it is only reported separately.
func (r *LeaveRequest) CountsAgainstBalance() bool {
	return r.Status == StatusPending || r.Status == StatusApproved
}

// =============================================================================
// ADJUSTMENTS AND SNAPSHOTS
// =============================================================================

// AdjustmentKind distinguishes migrated opening balances from ad-hoc
// corrections. Both are append-only.
type AdjustmentKind string

const (
	KindOpeningBalance AdjustmentKind = "opening_balance"
	KindAdjustment     AdjustmentKind = "adjustment"
)

// Adjustment is a signed manual change to an employee's balance in hours.
type Adjustment struct {
	ID         string
	EmployeeID string
	LeaveType  LeaveType
	Kind       AdjustmentKind
	Hours      decimal.Decimal
	Reason     string
	CreatedBy  string
	CreatedAt  time.Time
}

// BalanceSnapshot is a persisted materialization of a derived balance.
// It exists for reporting and dashboards; the request history plus policy
// remain the single source of truth.
type BalanceSnapshot struct {
	ID                  string
	EmployeeID          string
	LeaveType           LeaveType
	AccruedHours        decimal.Decimal
	OpeningHours        decimal.Decimal
	AdjustedHours       decimal.Decimal
	UsedApprovedHours   decimal.Decimal
	UsedPendingHours    decimal.Decimal
	AvailableHours      decimal.Decimal
	StandardHoursPerDay decimal.Decimal
	AsOf                Date
	TakenAt             time.Time
}

// =============================================================================
// ACTING CONTEXT
// =============================================================================

// Role is the coarse permission level carried by the session.
type Role string

const (
	RoleStaff   Role = "staff"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// ActingMode is the hat an admin is wearing for a given call. Admins acting
// in staff mode are treated as ordinary employees.
type ActingMode string

const (
	ModeStaff ActingMode = "staff"
	ModeAdmin ActingMode = "admin"
)

// BalancePolicy selects how insufficient balance is handled on request
// creation: a returned warning the requester may override, or a hard block.
type BalancePolicy string

const (
	BalanceWarn  BalancePolicy = "warn"
	BalanceBlock BalancePolicy = "block"
)

// ActingContext identifies who performs an operation and under which mode.
// It is constructed once at the API boundary and passed explicitly; domain
// code never infers the actor from ambient state.
type ActingContext struct {
	UserID        string
	Email         string
	Role          Role
	EmployeeID    string // the actor's own employee record, if any
	Mode          ActingMode
	BalancePolicy BalancePolicy
}

// IsAdmin reports whether the actor holds admin rights and is using them.
func (a ActingContext) IsAdmin() bool {
	return a.Role == RoleAdmin && a.Mode == ModeAdmin
}
