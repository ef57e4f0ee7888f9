// Package store provides an in-memory leave.Store for testing and dev.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/atlashr/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements leave.Store with maps guarded by a RWMutex. Values are
// copied on the way in and out so callers never share state with the store.
type Memory struct {
	mu          sync.RWMutex
	employees   map[string]leave.Employee
	policies    map[string]leave.LeavePolicy
	requests    map[string]leave.LeaveRequest
	holidays    map[string]leave.Holiday
	adjustments map[string][]leave.Adjustment // by employee
	snapshots   map[string][]leave.BalanceSnapshot
}

func NewMemory() *Memory {
	return &Memory{
		employees:   make(map[string]leave.Employee),
		policies:    make(map[string]leave.LeavePolicy),
		requests:    make(map[string]leave.LeaveRequest),
		holidays:    make(map[string]leave.Holiday),
		adjustments: make(map[string][]leave.Adjustment),
		snapshots:   make(map[string][]leave.BalanceSnapshot),
	}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Memory) GetEmployee(_ context.Context, id string) (*leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]leave.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, e)
	}
	sortEmployees(out)
	return out, nil
}

func (m *Memory) ListActiveEmployees(_ context.Context, entityID string) ([]leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.Employee
	for _, e := range m.employees {
		if e.Status != leave.EmployeeActive {
			continue
		}
		if entityID != "" && e.EntityID != entityID {
			continue
		}
		out = append(out, e)
	}
	sortEmployees(out)
	return out, nil
}

func (m *Memory) SaveEmployee(_ context.Context, e *leave.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = *e
	return nil
}

func sortEmployees(es []leave.Employee) {
	sort.Slice(es, func(i, j int) bool { return es[i].ID < es[j].ID })
}

// =============================================================================
// POLICIES
// =============================================================================

func (m *Memory) GetPolicy(_ context.Context, id string) (*leave.LeavePolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.policies[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) ListActivePolicies(_ context.Context, t leave.LeaveType) ([]leave.LeavePolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.LeavePolicy
	for _, p := range m.policies {
		if p.IsActive && p.LeaveType == t {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListPolicies(_ context.Context) ([]leave.LeavePolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]leave.LeavePolicy, 0, len(m.policies))
	for _, p := range m.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SavePolicy(_ context.Context, p *leave.LeavePolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[p.ID] = *p
	return nil
}

func (m *Memory) DeletePolicy(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.policies[id]
	if !ok {
		return leave.ErrPolicyNotFound
	}
	if p.IsSystem {
		return leave.ErrSystemPolicy
	}
	delete(m.policies, id)
	return nil
}

// =============================================================================
// REQUESTS
// =============================================================================

func (m *Memory) GetRequest(_ context.Context, id string) (*leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *Memory) RequestsForEmployee(_ context.Context, employeeID string) ([]leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.LeaveRequest
	for _, r := range m.requests {
		if r.EmployeeID == employeeID {
			out = append(out, r)
		}
	}
	sortRequests(out)
	return out, nil
}

func (m *Memory) OverlappingRequests(_ context.Context, employeeID string, from, to leave.Date) ([]leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.LeaveRequest
	for _, r := range m.requests {
		if r.EmployeeID != employeeID || !r.CountsAgainstBalance() {
			continue
		}
		if r.Overlaps(from, to) {
			out = append(out, r)
		}
	}
	sortRequests(out)
	return out, nil
}

func (m *Memory) PendingForManager(_ context.Context, managerID string) ([]leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.LeaveRequest
	for _, r := range m.requests {
		if r.Status == leave.StatusPending && r.ManagerID == managerID {
			out = append(out, r)
		}
	}
	sortRequests(out)
	return out, nil
}

func (m *Memory) SaveRequest(_ context.Context, r *leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = *r
	return nil
}

func sortRequests(rs []leave.LeaveRequest) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].StartDate.Equal(rs[j].StartDate) {
			return rs[i].StartDate.Before(rs[j].StartDate)
		}
		return rs[i].ID < rs[j].ID
	})
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (m *Memory) HolidaysInRange(_ context.Context, entityID, stateRegion string, from, to leave.Date) ([]leave.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.Holiday
	for _, h := range m.holidays {
		if !h.IsActive || !h.MatchesScope(entityID, stateRegion) {
			continue
		}
		if h.Date.OnOrAfter(from) && h.Date.OnOrBefore(to) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) ListHolidays(_ context.Context) ([]leave.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]leave.Holiday, 0, len(m.holidays))
	for _, h := range m.holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) SaveHoliday(_ context.Context, h *leave.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[h.ID] = *h
	return nil
}

func (m *Memory) DeleteHoliday(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.holidays, id)
	return nil
}

// =============================================================================
// ADJUSTMENTS AND SNAPSHOTS
// =============================================================================

func (m *Memory) AdjustmentsForEmployee(_ context.Context, employeeID string) ([]leave.Adjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.adjustments[employeeID]
	out := make([]leave.Adjustment, len(src))
	copy(out, src)
	return out, nil
}

func (m *Memory) SaveAdjustment(_ context.Context, a *leave.Adjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adjustments[a.EmployeeID] = append(m.adjustments[a.EmployeeID], *a)
	return nil
}

func (m *Memory) SaveSnapshot(_ context.Context, s *leave.BalanceSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[s.EmployeeID] = append(m.snapshots[s.EmployeeID], *s)
	return nil
}

// LatestSnapshots returns the most recent snapshot per leave type.
func (m *Memory) LatestSnapshots(_ context.Context, employeeID string) ([]leave.BalanceSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	latest := make(map[leave.LeaveType]leave.BalanceSnapshot)
	for _, s := range m.snapshots[employeeID] {
		cur, ok := latest[s.LeaveType]
		if !ok || s.TakenAt.After(cur.TakenAt) {
			latest[s.LeaveType] = s
		}
	}
	out := make([]leave.BalanceSnapshot, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LeaveType < out[j].LeaveType })
	return out, nil
}
