/*
Storage interfaces.

PURPOSE:
  The engine computes over these narrow interfaces; store/sqlite provides the
  durable implementation and store/memory an in-memory one for tests. Stores
  return (nil, nil) for missing single entities; the engine owns the mapping
  to not-found errors.
*/
package leave

import "context"

// EmployeeStore provides employee records.
type EmployeeStore interface {
	GetEmployee(ctx context.Context, id string) (*Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
	// ListActiveEmployees returns active employees, optionally restricted to
	// one entity when entityID is non-empty.
	ListActiveEmployees(ctx context.Context, entityID string) ([]Employee, error)
	SaveEmployee(ctx context.Context, e *Employee) error
}

// PolicyStore provides leave policy configuration.
type PolicyStore interface {
	GetPolicy(ctx context.Context, id string) (*LeavePolicy, error)
	// ListActivePolicies returns all active policies for a leave type,
	// company and system alike. The resolver ranks them.
	ListActivePolicies(ctx context.Context, t LeaveType) ([]LeavePolicy, error)
	ListPolicies(ctx context.Context) ([]LeavePolicy, error)
	SavePolicy(ctx context.Context, p *LeavePolicy) error
	// DeletePolicy must refuse system policies with ErrSystemPolicy.
	DeletePolicy(ctx context.Context, id string) error
}

// RequestStore provides leave request history.
type RequestStore interface {
	GetRequest(ctx context.Context, id string) (*LeaveRequest, error)
	RequestsForEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error)
	// OverlappingRequests returns pending and approved requests of the
	// employee intersecting the inclusive range.
	OverlappingRequests(ctx context.Context, employeeID string, from, to Date) ([]LeaveRequest, error)
	PendingForManager(ctx context.Context, managerID string) ([]LeaveRequest, error)
	SaveRequest(ctx context.Context, r *LeaveRequest) error
}

// HolidayStore provides public holiday rows. The effective set for an
// employee is computed by EffectiveHolidays in calendar.go.
type HolidayStore interface {
	// HolidaysInRange returns active holidays within [from, to] whose scope
	// matches the entity and state (global rows included).
	HolidaysInRange(ctx context.Context, entityID, stateRegion string, from, to Date) ([]Holiday, error)
	ListHolidays(ctx context.Context) ([]Holiday, error)
	SaveHoliday(ctx context.Context, h *Holiday) error
	DeleteHoliday(ctx context.Context, id string) error
}

// AdjustmentStore provides append-only manual balance changes.
type AdjustmentStore interface {
	AdjustmentsForEmployee(ctx context.Context, employeeID string) ([]Adjustment, error)
	SaveAdjustment(ctx context.Context, a *Adjustment) error
}

// SnapshotStore persists materialized balances for reporting.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, s *BalanceSnapshot) error
	LatestSnapshots(ctx context.Context, employeeID string) ([]BalanceSnapshot, error)
}

// Store is the full persistence surface the API wires together.
type Store interface {
	EmployeeStore
	PolicyStore
	RequestStore
	HolidayStore
	AdjustmentStore
	SnapshotStore
}
