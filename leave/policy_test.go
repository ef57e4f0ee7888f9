package leave_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlashr/leave-engine/leave"
)

func TestResolver_SystemDefaultWhenNoCompanyPolicy(t *testing.T) {
	f := newFixture(t, "2025-06-02")
	f.addStatutoryPolicies(t)
	f.addEmployee(t, "emp-1", nil)

	lc, err := f.resolver.LeaveContextFor(context.Background(), "emp-1")
	require.NoError(t, err)

	rp, ok := lc.Policies[leave.LeaveAnnual]
	require.True(t, ok)
	assert.Equal(t, leave.SourceSystem, rp.Source)
	assert.Equal(t, "sys-annual", rp.Policy.ID)
}

func TestResolver_CompanyPolicySupersedesSystem(t *testing.T) {
	// GIVEN: a generous company annual policy alongside the statutory floor
	// WHEN: resolving for a covered employee
	// THEN: the company policy wins

	f := newFixture(t, "2025-06-02")
	f.addStatutoryPolicies(t)
	f.addEmployee(t, "emp-1", nil)

	company := &leave.LeavePolicy{
		ID: "co-annual", Name: "Annual (company)", LeaveType: leave.LeaveAnnual,
		AccrualUnit: leave.UnitDays, AccrualRate: decimal.NewFromInt(25),
		StandardHoursPerDay: decimal.NewFromFloat(7.6),
		HoursPerWeekRef:     decimal.NewFromInt(38),
		IsActive:            true,
	}
	require.NoError(t, f.store.SavePolicy(context.Background(), company))

	rp, err := f.resolver.Resolve(context.Background(), mustEmployee(t, f, "emp-1"), leave.LeaveAnnual)
	require.NoError(t, err)

	assert.Equal(t, leave.SourceCompany, rp.Source)
	assert.Equal(t, "co-annual", rp.Policy.ID)
}

func TestResolver_MostSpecificScopeWins(t *testing.T) {
	f := newFixture(t, "2025-06-02")
	f.addEmployee(t, "emp-1", nil) // ent-au, full_time

	global := &leave.LeavePolicy{
		ID: "co-global", LeaveType: leave.LeaveAnnual,
		AccrualUnit: leave.UnitDays, AccrualRate: decimal.NewFromInt(22),
		StandardHoursPerDay: decimal.NewFromFloat(7.6), IsActive: true,
	}
	entityScoped := &leave.LeavePolicy{
		ID: "co-entity", LeaveType: leave.LeaveAnnual, EntityID: "ent-au",
		AccrualUnit: leave.UnitDays, AccrualRate: decimal.NewFromInt(24),
		StandardHoursPerDay: decimal.NewFromFloat(7.6), IsActive: true,
	}
	require.NoError(t, f.store.SavePolicy(context.Background(), global))
	require.NoError(t, f.store.SavePolicy(context.Background(), entityScoped))

	rp, err := f.resolver.Resolve(context.Background(), mustEmployee(t, f, "emp-1"), leave.LeaveAnnual)
	require.NoError(t, err)
	assert.Equal(t, "co-entity", rp.Policy.ID)
}

func TestResolver_EmploymentTypeScope(t *testing.T) {
	// GIVEN: a company policy scoped to part-timers only
	// WHEN: resolving for a full-timer
	// THEN: the company policy is skipped and the system default applies

	f := newFixture(t, "2025-06-02")
	f.addStatutoryPolicies(t)
	f.addEmployee(t, "emp-ft", nil)

	partTimeOnly := &leave.LeavePolicy{
		ID: "co-pt", LeaveType: leave.LeaveAnnual,
		EmploymentTypes: []leave.EmploymentType{leave.EmploymentPartTime},
		AccrualUnit:     leave.UnitDays, AccrualRate: decimal.NewFromInt(25),
		StandardHoursPerDay: decimal.NewFromFloat(7.6), IsActive: true,
	}
	require.NoError(t, f.store.SavePolicy(context.Background(), partTimeOnly))

	rp, err := f.resolver.Resolve(context.Background(), mustEmployee(t, f, "emp-ft"), leave.LeaveAnnual)
	require.NoError(t, err)
	assert.Equal(t, leave.SourceSystem, rp.Source)
}

func TestResolver_CategoryDegradation(t *testing.T) {
	// GIVEN: only an annual policy exists
	// WHEN: resolving the full context
	// THEN: annual resolves, the other categories degrade independently

	f := newFixture(t, "2025-06-02")
	f.addEmployee(t, "emp-1", nil)

	annual := &leave.LeavePolicy{
		ID: "only-annual", LeaveType: leave.LeaveAnnual,
		AccrualUnit: leave.UnitDays, AccrualRate: decimal.NewFromInt(20),
		StandardHoursPerDay: decimal.NewFromFloat(7.6), IsActive: true,
	}
	require.NoError(t, f.store.SavePolicy(context.Background(), annual))

	lc, err := f.resolver.LeaveContextFor(context.Background(), "emp-1")
	require.NoError(t, err)

	assert.Contains(t, lc.Policies, leave.LeaveAnnual)
	assert.NotContains(t, lc.Policies, leave.LeavePersonal)
	assert.ErrorIs(t, lc.Unresolved[leave.LeavePersonal], leave.ErrNoPolicyResolved)
	assert.ErrorIs(t, lc.Unresolved[leave.LeaveLongService], leave.ErrNoPolicyResolved)
	assert.Equal(t, "NO_POLICY_RESOLVED", leave.Code(lc.Unresolved[leave.LeavePersonal]))
}

func TestResolver_LongServiceEligibility(t *testing.T) {
	f := newFixture(t, "2025-06-02")
	f.addStatutoryPolicies(t)

	t.Run("below the threshold resolves as ineligible with a date", func(t *testing.T) {
		emp := f.addEmployee(t, "emp-new", func(e *leave.Employee) {
			e.ServiceStart = leave.MustParseDate("2022-03-01")
		})

		rp, err := f.resolver.Resolve(context.Background(), emp, leave.LeaveLongService)
		require.NoError(t, err)
		assert.False(t, rp.Eligible)
		assert.Equal(t, "2029-03-01", rp.EligibilityDate.String())
	})

	t.Run("past the threshold is eligible", func(t *testing.T) {
		emp := f.addEmployee(t, "emp-vet", func(e *leave.Employee) {
			e.ServiceStart = leave.MustParseDate("2015-03-01")
		})

		rp, err := f.resolver.Resolve(context.Background(), emp, leave.LeaveLongService)
		require.NoError(t, err)
		assert.True(t, rp.Eligible)
		assert.True(t, rp.EligibilityDate.IsZero())
	})
}

func TestResolver_UnknownEmployee(t *testing.T) {
	f := newFixture(t, "2025-06-02")
	f.addStatutoryPolicies(t)

	_, err := f.resolver.LeaveContextFor(context.Background(), "emp-ghost")
	assert.ErrorIs(t, err, leave.ErrEmployeeNotFound)
}

func mustEmployee(t *testing.T, f *fixture, id string) *leave.Employee {
	t.Helper()
	emp, err := f.store.GetEmployee(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, emp)
	return emp
}
