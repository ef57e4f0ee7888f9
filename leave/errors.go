/*
Error taxonomy for the leave engine.

PURPOSE:
  Two layers: sentinel errors for control flow (errors.Is) and structured
  error types carrying context for callers that need details. Every client
  failure maps to a stable string code the API and UI consume; codes are
  part of the contract and never change meaning.

USAGE:
  if errors.Is(err, leave.ErrOverlappingLeave) { ... }

  var ib *leave.InsufficientBalanceError
  if errors.As(err, &ib) {
      log.Printf("short by %s hours", ib.Requested.Sub(ib.Available))
  }

  code := leave.Code(err)   // "OVERLAPPING_LEAVE"
*/
package leave

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	ErrInvalidRange        = errors.New("end date is before start date")
	ErrHalfDaySpansRange   = errors.New("half-day request must cover a single day")
	ErrPaidLeaveForCasual  = errors.New("paid leave is not available to casual employees")
	ErrOverlappingLeave    = errors.New("request overlaps existing leave")
	ErrInsufficientBalance = errors.New("insufficient leave balance")
	ErrPermissionDenied    = errors.New("not permitted to act on this request")
	ErrNoPolicyResolved    = errors.New("no leave policy resolved for category")
	ErrNoChargeableDays    = errors.New("request contains no chargeable days")
	ErrInvalidTransition   = errors.New("invalid request status transition")
	ErrEmployeeNotFound    = errors.New("employee not found")
	ErrRequestNotFound     = errors.New("leave request not found")
	ErrPolicyNotFound      = errors.New("leave policy not found")
	ErrSystemPolicy        = errors.New("system policies cannot be deleted")
	ErrNotEligible         = errors.New("employee not yet eligible for category")
)

// =============================================================================
// ERROR CODES
// =============================================================================

// Error codes are the stable strings the UI switches on.
const (
	CodeInvalidRange        = "INVALID_RANGE"
	CodeHalfDaySingle       = "HALF_DAY_MUST_BE_SINGLE_DAY"
	CodePaidLeaveForCasual  = "PAID_LEAVE_NOT_ALLOWED_FOR_CASUAL"
	CodeOverlappingLeave    = "OVERLAPPING_LEAVE"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodeNoPolicyResolved    = "NO_POLICY_RESOLVED"
	CodeNoChargeableDays    = "NO_CHARGEABLE_DAYS"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeEmployeeNotFound    = "EMPLOYEE_NOT_FOUND"
	CodeRequestNotFound     = "REQUEST_NOT_FOUND"
	CodePolicyNotFound      = "POLICY_NOT_FOUND"
	CodeSystemPolicy        = "SYSTEM_POLICY_PROTECTED"
	CodeNotEligible         = "NOT_ELIGIBLE"
	CodeInternal            = "INTERNAL_ERROR"
)

var sentinelCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidRange, CodeInvalidRange},
	{ErrHalfDaySpansRange, CodeHalfDaySingle},
	{ErrPaidLeaveForCasual, CodePaidLeaveForCasual},
	{ErrOverlappingLeave, CodeOverlappingLeave},
	{ErrInsufficientBalance, CodeInsufficientBalance},
	{ErrPermissionDenied, CodePermissionDenied},
	{ErrNoPolicyResolved, CodeNoPolicyResolved},
	{ErrNoChargeableDays, CodeNoChargeableDays},
	{ErrInvalidTransition, CodeInvalidTransition},
	{ErrEmployeeNotFound, CodeEmployeeNotFound},
	{ErrRequestNotFound, CodeRequestNotFound},
	{ErrPolicyNotFound, CodePolicyNotFound},
	{ErrSystemPolicy, CodeSystemPolicy},
	{ErrNotEligible, CodeNotEligible},
}

// Code maps an error to its stable string code. Unknown errors map to
// INTERNAL_ERROR.
func Code(err error) string {
	for _, sc := range sentinelCodes {
		if errors.Is(err, sc.err) {
			return sc.code
		}
	}
	return CodeInternal
}

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InsufficientBalanceError carries the shortfall details.
type InsufficientBalanceError struct {
	EmployeeID string
	LeaveType  LeaveType
	Requested  decimal.Decimal // hours
	Available  decimal.Decimal // hours
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance for employee %s: requested %s hours, available %s",
		e.LeaveType, e.EmployeeID, e.Requested.String(), e.Available.String())
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// OverlapError identifies the conflicting request.
type OverlapError struct {
	EmployeeID    string
	ConflictingID string
	Start         Date
	End           Date
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("employee %s already has leave %s covering %s to %s",
		e.EmployeeID, e.ConflictingID, e.Start, e.End)
}

func (e *OverlapError) Unwrap() error { return ErrOverlappingLeave }

// NoPolicyError reports which category could not be resolved.
type NoPolicyError struct {
	EmployeeID string
	LeaveType  LeaveType
}

func (e *NoPolicyError) Error() string {
	return fmt.Sprintf("no %s policy resolved for employee %s", e.LeaveType, e.EmployeeID)
}

func (e *NoPolicyError) Unwrap() error { return ErrNoPolicyResolved }

// TransitionError reports a rejected status change.
type TransitionError struct {
	RequestID string
	From      RequestStatus
	To        RequestStatus
	Detail    string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("request %s: cannot transition %s -> %s", e.RequestID, e.From, e.To)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// CLASSIFICATION HELPERS
// =============================================================================

// IsClientError reports whether the error is the caller's fault (bad input,
// business-rule violation) rather than a system failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrHalfDaySpansRange) ||
		errors.Is(err, ErrPaidLeaveForCasual) ||
		errors.Is(err, ErrOverlappingLeave) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrNoChargeableDays) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrSystemPolicy) ||
		errors.Is(err, ErrNotEligible)
}

// IsNotFound reports whether the error is a missing-entity error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrPolicyNotFound)
}
