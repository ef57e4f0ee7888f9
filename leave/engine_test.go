/*
engine_test.go - Shared fixtures for engine-level tests

Wires the full engine (resolver, calculator, aggregator, guard) over the
in-memory store with a pinned clock so accrual math is deterministic.
*/
package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/atlashr/leave-engine/leave"
	"github.com/atlashr/leave-engine/leave/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	store    *store.Memory
	resolver *leave.Resolver
	calc     *leave.Calculator
	agg      *leave.Aggregator
	notifier *leave.Notifier
	guard    *leave.Guard
	now      leave.Date
}

// newFixture pins "today" to the given date and wires the engine.
func newFixture(t *testing.T, today string) *fixture {
	t.Helper()

	mem := store.NewMemory()
	now := leave.MustParseDate(today)
	clock := func() leave.Date { return now }

	resolver := leave.NewResolver(mem, mem)
	resolver.Now = clock
	calc := leave.NewCalculator(mem, mem)
	agg := leave.NewAggregator(mem, resolver, calc)
	agg.Now = clock
	notifier := leave.NewNotifier()
	guard := leave.NewGuard(mem, calc, agg, notifier)
	guard.Now = clock

	return &fixture{
		store:    mem,
		resolver: resolver,
		calc:     calc,
		agg:      agg,
		notifier: notifier,
		guard:    guard,
		now:      now,
	}
}

func (f *fixture) addEmployee(t *testing.T, id string, mutate func(*leave.Employee)) *leave.Employee {
	t.Helper()
	emp := &leave.Employee{
		ID:             id,
		FirstName:      "Test",
		LastName:       id,
		Email:          id + "@example.com",
		EmploymentType: leave.EmploymentFullTime,
		Status:         leave.EmployeeActive,
		ServiceStart:   leave.MustParseDate("2020-01-06"),
		HoursPerWeek:   decimal.NewFromInt(38),
		EntityID:       "ent-au",
		StateRegion:    "NSW",
	}
	if mutate != nil {
		mutate(emp)
	}
	require.NoError(t, f.store.SaveEmployee(context.Background(), emp))
	return emp
}

// addStatutoryPolicies installs the default policy set: annual 20 d/y,
// personal 10 d/y, long service 0.8667 w/y after 7 years.
func (f *fixture) addStatutoryPolicies(t *testing.T) {
	t.Helper()
	std := decimal.NewFromFloat(7.6)
	week := decimal.NewFromInt(38)

	policies := []leave.LeavePolicy{
		{
			ID: "sys-annual", Name: "Annual (system)", LeaveType: leave.LeaveAnnual,
			AccrualUnit: leave.UnitDays, AccrualRate: decimal.NewFromInt(20),
			StandardHoursPerDay: std, HoursPerWeekRef: week,
			IsSystem: true, IsDefault: true, IsActive: true,
		},
		{
			ID: "sys-personal", Name: "Personal (system)", LeaveType: leave.LeavePersonal,
			AccrualUnit: leave.UnitDays, AccrualRate: decimal.NewFromInt(10),
			StandardHoursPerDay: std, HoursPerWeekRef: week,
			IsSystem: true, IsDefault: true, IsActive: true,
		},
		{
			ID: "sys-lsl", Name: "Long Service (system)", LeaveType: leave.LeaveLongService,
			AccrualUnit: leave.UnitWeeks, AccrualRate: decimal.NewFromFloat(0.8667),
			StandardHoursPerDay: std, HoursPerWeekRef: week, MinServiceYears: 7,
			IsSystem: true, IsDefault: true, IsActive: true,
		},
	}
	for i := range policies {
		require.NoError(t, f.store.SavePolicy(context.Background(), &policies[i]))
	}
}

func (f *fixture) addHoliday(t *testing.T, id, date, entityID, state string) {
	t.Helper()
	require.NoError(t, f.store.SaveHoliday(context.Background(), &leave.Holiday{
		ID: id, Name: id, Date: leave.MustParseDate(date),
		EntityID: entityID, StateRegion: state,
		IsPaid: true, IsActive: true, CreatedAt: time.Now(),
	}))
}

func (f *fixture) addRequest(t *testing.T, r *leave.LeaveRequest) {
	t.Helper()
	if r.Status == "" {
		r.Status = leave.StatusApproved
	}
	if r.TotalDays.IsZero() {
		r.TotalDays = decimal.NewFromInt(int64(leave.DaysBetween(r.StartDate, r.EndDate)))
	}
	require.NoError(t, f.store.SaveRequest(context.Background(), r))
}

func actingSelf(emp *leave.Employee) leave.ActingContext {
	return leave.ActingContext{
		UserID:        "user-" + emp.ID,
		Role:          leave.RoleStaff,
		EmployeeID:    emp.ID,
		Mode:          leave.ModeStaff,
		BalancePolicy: leave.BalanceWarn,
	}
}

func actingAdmin() leave.ActingContext {
	return leave.ActingContext{
		UserID:        "user-admin",
		Role:          leave.RoleAdmin,
		Mode:          leave.ModeAdmin,
		BalancePolicy: leave.BalanceBlock,
	}
}
