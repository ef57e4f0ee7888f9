/*
scenarios.go - Demo scenario loaders

PURPOSE:

	Populates the database with realistic fixtures for demos and local
	development. Each scenario installs employees, policies, holidays and
	request history with fixed ids, so reloading a scenario is an upsert
	and never duplicates rows.

AVAILABLE SCENARIOS:

	small-team:   Manager with two reports, pending and approved leave
	new-starter:  Recent hire with a quarter year of accrual
	long-tenure:  Ten-year veteran, long service unlocked, capped carryover

ADDING NEW SCENARIOS:
 1. Add to the 'scenarios' slice with ID, name, description
 2. Create a loader: loadXxxScenario(ctx, h)
 3. Add a case to LoadScenario

NOTE:

	Loading is admin-only and intended for development and demo
	environments, not production data.

SEE ALSO:
  - server.go: the /api/scenarios routes
  - factory/policy.go: the statutory defaults every scenario installs
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlashr/leave-engine/factory"
	"github.com/atlashr/leave-engine/leave"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes one loadable demo fixture.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "small-team",
		Name:        "Small Team",
		Description: "Manager with two reports, a pending request and approved history",
	},
	{
		ID:          "new-starter",
		Name:        "New Starter",
		Description: "Employee three months in, small accrual, long service locked",
	},
	{
		ID:          "long-tenure",
		Name:        "Long Tenure",
		Description: "Ten-year veteran with long service unlocked and capped carryover",
	},
}

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario installs a demo fixture. Admin only.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if !ActingFrom(r.Context()).IsAdmin() {
		h.writeError(w, r, leave.ErrPermissionDenied)
		return
	}

	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid JSON body")
		return
	}

	ctx := r.Context()
	if _, err := factory.Seed(ctx, h.Store); err != nil {
		h.writeError(w, r, err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "small-team":
		err = h.loadSmallTeamScenario(ctx)
	case "new-starter":
		err = h.loadNewStarterScenario(ctx)
	case "long-tenure":
		err = h.loadLongTenureScenario(ctx)
	default:
		h.badRequest(w, "unknown scenario")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.Notifier.Invalidate("")
	h.Logger.Info("scenario loaded", "scenario", req.ScenarioID)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// LOADERS
// =============================================================================

func (h *Handler) demoEmployee(id, first, last, managerID, serviceStart string, et leave.EmploymentType) *leave.Employee {
	now := time.Now()
	return &leave.Employee{
		ID:             id,
		FirstName:      first,
		LastName:       last,
		Email:          id + "@demo.example.com",
		EmploymentType: et,
		Status:         leave.EmployeeActive,
		ServiceStart:   leave.MustParseDate(serviceStart),
		HoursPerWeek:   decimal.NewFromInt(38),
		EntityID:       "demo-au",
		StateRegion:    "NSW",
		ManagerID:      managerID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (h *Handler) demoHolidays(ctx context.Context) error {
	rows := []leave.Holiday{
		{ID: "demo-australia-day", Name: "Australia Day", Date: leave.MustParseDate("2025-01-27")},
		{ID: "demo-anzac-day", Name: "Anzac Day", Date: leave.MustParseDate("2025-04-25")},
		{ID: "demo-kings-birthday", Name: "King's Birthday", Date: leave.MustParseDate("2025-06-09"), StateRegion: "NSW"},
	}
	for i := range rows {
		rows[i].IsPaid = true
		rows[i].IsActive = true
		rows[i].CreatedAt = time.Now()
		if err := h.Store.SaveHoliday(ctx, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}

// loadSmallTeamScenario: a manager, two reports, one approved week, one
// pending request sitting in the approval queue.
func (h *Handler) loadSmallTeamScenario(ctx context.Context) error {
	if err := h.demoHolidays(ctx); err != nil {
		return err
	}

	employees := []*leave.Employee{
		h.demoEmployee("demo-mgr", "Priya", "Sharma", "", "2018-02-05", leave.EmploymentFullTime),
		h.demoEmployee("demo-emp-a", "Tom", "Keller", "demo-mgr", "2022-07-11", leave.EmploymentFullTime),
		h.demoEmployee("demo-emp-b", "Mei", "Lin", "demo-mgr", "2023-01-16", leave.EmploymentPartTime),
	}
	for _, e := range employees {
		if err := h.Store.SaveEmployee(ctx, e); err != nil {
			return err
		}
	}

	now := time.Now()
	decided := now.Add(-30 * 24 * time.Hour)
	requests := []*leave.LeaveRequest{
		{
			ID: "demo-req-approved", EmployeeID: "demo-emp-a", LeaveType: leave.LeaveAnnual,
			StartDate: leave.MustParseDate("2025-04-14"), EndDate: leave.MustParseDate("2025-04-18"),
			Status: leave.StatusApproved, TotalDays: decimal.NewFromInt(5),
			Reason: "school holidays", ManagerID: "demo-mgr",
			DecidedBy: "user-demo-mgr", DecidedAt: &decided,
			CreatedAt: decided, UpdatedAt: decided,
		},
		{
			ID: "demo-req-pending", EmployeeID: "demo-emp-b", LeaveType: leave.LeavePersonal,
			StartDate: leave.MustParseDate("2025-09-01"), EndDate: leave.MustParseDate("2025-09-02"),
			Status: leave.StatusPending, TotalDays: decimal.NewFromInt(2),
			Reason: "medical appointment", ManagerID: "demo-mgr",
			CreatedAt: now, UpdatedAt: now,
		},
	}
	for _, r := range requests {
		if err := h.Store.SaveRequest(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// loadNewStarterScenario: one recent hire, nothing taken yet.
func (h *Handler) loadNewStarterScenario(ctx context.Context) error {
	if err := h.demoHolidays(ctx); err != nil {
		return err
	}
	start := leave.Today().AddDays(-91)
	emp := h.demoEmployee("demo-starter", "Noah", "Patel", "", start.String(), leave.EmploymentFullTime)
	return h.Store.SaveEmployee(ctx, emp)
}

// loadLongTenureScenario: ten years of service, a capped company annual
// policy and an opening balance carried in from the previous system.
func (h *Handler) loadLongTenureScenario(ctx context.Context) error {
	if err := h.demoHolidays(ctx); err != nil {
		return err
	}

	start := leave.Today().AddYears(-10)
	emp := h.demoEmployee("demo-veteran", "Grace", "O'Neill", "", start.String(), leave.EmploymentFullTime)
	if err := h.Store.SaveEmployee(ctx, emp); err != nil {
		return err
	}

	now := time.Now().UTC()
	capped := &leave.LeavePolicy{
		ID:                  "demo-annual-capped",
		Name:                "Annual Leave (capped carryover)",
		LeaveType:           leave.LeaveAnnual,
		EntityID:            "demo-au",
		AccrualUnit:         leave.UnitDays,
		AccrualRate:         decimal.NewFromInt(20),
		StandardHoursPerDay: decimal.NewFromFloat(7.6),
		HoursPerWeekRef:     decimal.NewFromInt(38),
		MaxCarryoverHours:   decimal.NewFromInt(304),
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := h.Store.SavePolicy(ctx, capped); err != nil {
		return err
	}

	return h.Store.SaveAdjustment(ctx, &leave.Adjustment{
		ID:         "demo-veteran-opening",
		EmployeeID: "demo-veteran",
		LeaveType:  leave.LeaveAnnual,
		Kind:       leave.KindOpeningBalance,
		Hours:      decimal.NewFromInt(120),
		Reason:     "migrated from previous system",
		CreatedBy:  "system",
		CreatedAt:  now,
	})
}
