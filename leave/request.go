/*
Leave request lifecycle.

PURPOSE:
  The single write path for leave requests. Validates creation in a fixed
  order, routes approval to the employee's manager (auto-approving when
  there is none), and enforces the status machine:

    pending  -> approved | declined | cancelled
    approved -> cancelled        (recall, only before the leave starts)
    declined, cancelled          terminal

  Cancellation never mutates balance counters; balances are derived from
  request history, so a cancelled request simply stops counting.

VALIDATION ORDER (creation, short-circuits):
  1. chargeable resolution (bad range, half day over multiple days,
     zero chargeable days)
  2. casual employees cannot take paid categories
  3. overlap with existing pending/approved leave
  4. actor must be the employee, their manager, or an admin in admin mode
  5. balance sufficiency: a warning on the self-service path, a hard
     error when the acting context carries BalanceBlock

SEE ALSO:
  - balance.go: availability the sufficiency check reads
  - errors.go: the codes each failure maps to
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// INPUT AND RESULT
// =============================================================================

// CreateInput describes a leave request to be created.
type CreateInput struct {
	EmployeeID     string
	LeaveType      LeaveType
	Start          Date
	End            Date
	Reason         string
	PartialDayType PartialDayType
	Acting         ActingContext
}

// Warning is a non-blocking finding returned alongside a created request.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateResult is the outcome of a successful creation.
type CreateResult struct {
	Request      *LeaveRequest
	Breakdown    *Breakdown
	AutoApproved bool
	Warnings     []Warning
}

// Guard validates and applies leave request transitions.
type Guard struct {
	employees EmployeeStore
	requests  RequestStore
	calc      *Calculator
	balances  *Aggregator
	notifier  *Notifier

	// Now is swappable for tests. Defaults to Today.
	Now func() Date
}

// NewGuard wires the lifecycle guard. The notifier may be nil.
func NewGuard(store Store, calc *Calculator, balances *Aggregator, notifier *Notifier) *Guard {
	return &Guard{
		employees: store,
		requests:  store,
		calc:      calc,
		balances:  balances,
		notifier:  notifier,
		Now:       Today,
	}
}

// =============================================================================
// CREATE
// =============================================================================

// Create validates and persists a new leave request.
func (g *Guard) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	if !in.LeaveType.Valid() {
		return nil, fmt.Errorf("unknown leave type %q: %w", in.LeaveType, ErrNoPolicyResolved)
	}
	if !in.PartialDayType.Valid() {
		return nil, fmt.Errorf("unknown partial day type %q: %w", in.PartialDayType, ErrInvalidRange)
	}

	emp, err := g.employees.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("loading employee %s: %w", in.EmployeeID, err)
	}
	if emp == nil {
		return nil, fmt.Errorf("employee %s: %w", in.EmployeeID, ErrEmployeeNotFound)
	}

	// 1. Chargeable resolution. Surfaces INVALID_RANGE and
	//    HALF_DAY_MUST_BE_SINGLE_DAY before anything else.
	bd, err := g.calc.ForEmployee(ctx, emp, in.Start, in.End, in.PartialDayType)
	if err != nil {
		return nil, err
	}
	if bd.ChargeableDays.IsZero() {
		return nil, fmt.Errorf("%s to %s is entirely weekend/holiday: %w", in.Start, in.End, ErrNoChargeableDays)
	}

	// 2. Casual exclusion from paid categories.
	if emp.EmploymentType == EmploymentCasual && in.LeaveType.IsPaid() {
		return nil, fmt.Errorf("employee %s is casual: %w", emp.ID, ErrPaidLeaveForCasual)
	}

	// 3. Overlap with live requests.
	overlapping, err := g.requests.OverlappingRequests(ctx, emp.ID, in.Start, in.End)
	if err != nil {
		return nil, fmt.Errorf("checking overlap: %w", err)
	}
	if len(overlapping) > 0 {
		c := overlapping[0]
		return nil, &OverlapError{EmployeeID: emp.ID, ConflictingID: c.ID, Start: c.StartDate, End: c.EndDate}
	}

	// 4. Permission.
	if err := g.canActOn(emp, in.Acting); err != nil {
		return nil, err
	}

	// 5. Balance sufficiency.
	warnings, err := g.checkBalance(ctx, emp, in, bd)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	req := &LeaveRequest{
		ID:             uuid.NewString(),
		EmployeeID:     emp.ID,
		LeaveType:      in.LeaveType,
		StartDate:      in.Start,
		EndDate:        in.End,
		Status:         StatusPending,
		TotalDays:      bd.ChargeableDays,
		PartialDayType: in.PartialDayType,
		Reason:         in.Reason,
		ManagerID:      emp.ManagerID,
		CreatedBy:      in.Acting.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	autoApproved := !emp.HasManager()
	if autoApproved {
		req.Status = StatusApproved
		req.DecidedBy = in.Acting.UserID
		req.DecidedAt = &now
	}

	if err := g.requests.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("saving request: %w", err)
	}
	g.invalidate(emp.ID)

	return &CreateResult{
		Request:      req,
		Breakdown:    bd,
		AutoApproved: autoApproved,
		Warnings:     warnings,
	}, nil
}

// checkBalance enforces sufficiency for paid categories. Long service also
// requires eligibility. Unpaid leave has no balance to check.
func (g *Guard) checkBalance(ctx context.Context, emp *Employee, in CreateInput, bd *Breakdown) ([]Warning, error) {
	if in.LeaveType == LeaveUnpaid {
		return nil, nil
	}

	balances, err := g.balances.ForEmployee(ctx, emp.ID)
	if err != nil {
		return nil, err
	}
	cb := balances.Balance(in.LeaveType)
	if cb == nil {
		if cause, ok := balances.Unresolved[in.LeaveType]; ok {
			return nil, cause
		}
		return nil, &NoPolicyError{EmployeeID: emp.ID, LeaveType: in.LeaveType}
	}
	if !cb.Eligible {
		return nil, fmt.Errorf("%s eligible from %s: %w", in.LeaveType, cb.EligibilityDate, ErrNotEligible)
	}

	requested := bd.ChargeableDays.Mul(cb.StandardHoursPerDay)
	if requested.LessThanOrEqual(cb.Available) {
		return nil, nil
	}

	if in.Acting.BalancePolicy == BalanceBlock {
		return nil, &InsufficientBalanceError{
			EmployeeID: emp.ID,
			LeaveType:  in.LeaveType,
			Requested:  requested,
			Available:  cb.Available,
		}
	}
	return []Warning{{
		Code: CodeInsufficientBalance,
		Message: fmt.Sprintf("request needs %s hours but only %s available",
			requested.String(), cb.Available.String()),
	}}, nil
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Approve moves a pending request to approved. Only the routed manager or
// an admin in admin mode may approve.
func (g *Guard) Approve(ctx context.Context, requestID string, acting ActingContext) (*LeaveRequest, error) {
	return g.decide(ctx, requestID, StatusApproved, "", acting)
}

// Decline moves a pending request to declined with a reason.
func (g *Guard) Decline(ctx context.Context, requestID, reason string, acting ActingContext) (*LeaveRequest, error) {
	return g.decide(ctx, requestID, StatusDeclined, reason, acting)
}

func (g *Guard) decide(ctx context.Context, requestID string, to RequestStatus, reason string, acting ActingContext) (*LeaveRequest, error) {
	req, err := g.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, &TransitionError{RequestID: requestID, From: req.Status, To: to}
	}
	if !g.canDecide(req, acting) {
		return nil, fmt.Errorf("user %s deciding request %s: %w", acting.UserID, requestID, ErrPermissionDenied)
	}

	now := time.Now()
	req.Status = to
	req.DecidedBy = acting.UserID
	req.DecidedAt = &now
	req.DeclineReason = reason
	req.UpdatedAt = now

	if err := g.requests.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("saving request: %w", err)
	}
	g.invalidate(req.EmployeeID)
	return req, nil
}

// Cancel withdraws a request. Pending requests can always be cancelled by
// an authorized actor; approved requests only until the leave starts.
func (g *Guard) Cancel(ctx context.Context, requestID string, acting ActingContext) (*LeaveRequest, error) {
	req, err := g.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case StatusPending:
		// fine
	case StatusApproved:
		if req.StartDate.Before(g.Now()) {
			return nil, &TransitionError{
				RequestID: requestID,
				From:      req.Status,
				To:        StatusCancelled,
				Detail:    "leave has already started",
			}
		}
	default:
		return nil, &TransitionError{RequestID: requestID, From: req.Status, To: StatusCancelled}
	}

	emp, err := g.employees.GetEmployee(ctx, req.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("loading employee %s: %w", req.EmployeeID, err)
	}
	if emp == nil {
		return nil, fmt.Errorf("employee %s: %w", req.EmployeeID, ErrEmployeeNotFound)
	}
	if err := g.canActOn(emp, acting); err != nil {
		return nil, err
	}

	now := time.Now()
	req.Status = StatusCancelled
	req.DecidedBy = acting.UserID
	req.DecidedAt = &now
	req.UpdatedAt = now

	if err := g.requests.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("saving request: %w", err)
	}
	g.invalidate(req.EmployeeID)
	return req, nil
}

// =============================================================================
// PERMISSION
// =============================================================================

// canActOn allows the employee themselves, their manager, or an admin in
// admin mode.
func (g *Guard) canActOn(emp *Employee, acting ActingContext) error {
	if acting.IsAdmin() {
		return nil
	}
	if acting.EmployeeID != "" && acting.EmployeeID == emp.ID {
		return nil
	}
	if emp.ManagerID != "" && acting.EmployeeID == emp.ManagerID {
		return nil
	}
	return fmt.Errorf("user %s acting on employee %s: %w", acting.UserID, emp.ID, ErrPermissionDenied)
}

// canDecide allows the routed manager or an admin in admin mode.
func (g *Guard) canDecide(req *LeaveRequest, acting ActingContext) bool {
	if acting.IsAdmin() {
		return true
	}
	return req.ManagerID != "" && acting.EmployeeID == req.ManagerID
}

func (g *Guard) loadRequest(ctx context.Context, id string) (*LeaveRequest, error) {
	req, err := g.requests.GetRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading request %s: %w", id, err)
	}
	if req == nil {
		return nil, fmt.Errorf("request %s: %w", id, ErrRequestNotFound)
	}
	return req, nil
}

func (g *Guard) invalidate(employeeID string) {
	if g.notifier != nil {
		g.notifier.Invalidate(employeeID)
	}
}
