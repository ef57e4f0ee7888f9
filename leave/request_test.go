package leave_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlashr/leave-engine/leave"
)

func actingManager(mgrID string) leave.ActingContext {
	return leave.ActingContext{
		UserID:        "user-" + mgrID,
		Role:          leave.RoleManager,
		EmployeeID:    mgrID,
		Mode:          leave.ModeStaff,
		BalancePolicy: leave.BalanceBlock,
	}
}

func submit(t *testing.T, f *fixture, emp *leave.Employee, acting leave.ActingContext, leaveType leave.LeaveType, start, end string) (*leave.CreateResult, error) {
	t.Helper()
	return f.guard.Create(context.Background(), leave.CreateInput{
		EmployeeID: emp.ID,
		LeaveType:  leaveType,
		Start:      leave.MustParseDate(start),
		End:        leave.MustParseDate(end),
		Acting:     acting,
	})
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreate_RoutedToManager(t *testing.T) {
	// GIVEN: an employee with a manager and plenty of balance
	// WHEN: they request a working week
	// THEN: the request lands pending with the manager attached

	f := newFixture(t, "2025-06-02")
	f.addStatutoryPolicies(t)
	f.addEmployee(t, "mgr-1", nil)
	emp := f.addEmployee(t, "emp-1", func(e *leave.Employee) { e.ManagerID = "mgr-1" })

	res, err := submit(t, f, emp, actingSelf(emp), leave.LeaveAnnual, "2025-07-07", "2025-07-11")
	require.NoError(t, err)

	assert.Equal(t, leave.StatusPending, res.Request.Status)
	assert.Equal(t, "mgr-1", res.Request.ManagerID)
	assert.False(t, res.AutoApproved)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 5.0, res.Breakdown.ChargeableDays.InexactFloat64())

	stored, err := f.store.GetRequest(context.Background(), res.Request.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, leave.StatusPending, stored.Status)
}

func TestCreate_AutoApprovedWithoutManager(t *testing.T) {
	f := newFixture(t, "2025-06-02")
	f.addStatutoryPolicies(t)
	emp := f.addEmployee(t, "emp-solo", nil)

	res, err := submit(t, f, emp, actingSelf(emp), leave.LeaveAnnual, "2025-07-07", "2025-07-08")
	require.NoError(t, err)

	assert.True(t, res.AutoApproved)
	assert.Equal(t, leave.StatusApproved, res.Request.Status)
	assert.NotNil(t, res.Request.DecidedAt)
}

func TestCreate_NoChargeableDays(t *testing.T) {
	f := newFixture(t, "2025-06-02")
	f.addStatutoryPolicies(t)
	emp := f.addEmployee(t, "emp-1", nil)

	// Saturday and Sunday only.
	_, err := submit(t, f, emp, actingSelf(emp), leave.LeaveAnnual, "2025-06-07", "2025-06-08")
	assert.ErrorIs(t, err, leave.ErrNoChargeableDays)
	assert.Equal(t, "NO_CHARGEABLE_DAYS", leave.Code(err))
}

func TestCreate_CasualExclusion(t *testing.T) {
	f := newFixture(t, "2025-06-02")
	f.addStatutoryPolicies(t)
	emp := f.addEmployee(t, "emp-casual", func(e *leave.Employee) {
		e.EmploymentType = leave.EmploymentCasual
	})

	t.Run("paid categories are blocked", func(t *testing.T) {
		_, err := submit(t, f, emp, actingSelf(emp), leave.LeaveAnnual, "2025-07-07", "2025-07-08")
		assert.ErrorIs(t, err, leave.ErrPaidLeaveForCasual)
		assert.Equal(t, "PAID_LEAVE_NOT_ALLOWED_FOR_CASUAL", leave.Code(err))
	})

	t.Run("unpaid leave is fine", func(t *testing.T) {
		res, err := submit(t, f, emp, actingSelf(emp), leave.LeaveUnpaid, "2025-07-07", "2025-07-08")
		require.NoError(t, err)
		assert.NotNil(t, res.Request)
	})
}

func TestCreate_OverlapRejected(t *testing.T) {
	f := newFixture(t, "2025-06-02")
	f.addStatutoryPolicies(t)
	emp := f.addEmployee(t, "emp-1", nil)

	f.addRequest(t, &leave.LeaveRequest{
		ID: "req-existing", EmployeeID: emp.ID, LeaveType: leave.LeaveAnnual,
		StartDate: leave.MustParseDate("2025-07-09"), EndDate: leave.MustParseDate("2025-07-11"),
		Status: leave.StatusApproved,
	})

	t.Run("touching range conflicts", func(t *testing.T) {
		_, err := submit(t, f, emp, actingSelf(emp), leave.LeaveAnnual, "2025-07-07", "2025-07-09")
		require.Error(t, err)

		var oe *leave.OverlapError
		require.ErrorAs(t, err, &oe)
		assert.Equal(t, "req-existing", oe.ConflictingID)
		assert.Equal(t, "OVERLAPPING_LEAVE", leave.Code(err))
	})

	t.Run("adjacent but disjoint range is fine", func(t *testing.T) {
		_, err := submit(t, f, emp, actingSelf(emp), leave.LeaveAnnual, "2025-07-14", "2025-07-15")
		assert.NoError(t, err)
	})
}

func TestCreate_CancelledLeaveDoesNotBlock(t *testing.T) {
	f := newFixture(t, "2025-06-02")
	f.addStatutoryPolicies(t)
	emp := f.addEmployee(t, "emp-1", nil)

	f.addRequest(t, &leave.LeaveRequest{
		ID: "req-cancelled", EmployeeID: emp.ID, LeaveType: leave.LeaveAnnual,
		StartDate: leave.MustParseDate("2025-07-07"), EndDate: leave.MustParseDate("2025-07-11"),
		Status: leave.StatusCancelled,
	})

	_, err := submit(t, f, emp, actingSelf(emp), leave.LeaveAnnual, "2025-07-07", "2025-07-11")
	assert.NoError(t, err)
}

func TestCreate_PermissionMatrix(t *testing.T) {
	f := newFixture(t, "2025-06-02")
	f.addStatutoryPolicies(t)
	f.addEmployee(t, "mgr-1", nil)
	emp := f.addEmployee(t, "emp-1", func(e *leave.Employee) { e.ManagerID = "mgr-1" })

	t.Run("an unrelated employee is denied", func(t *testing.T) {
		stranger := f.addEmployee(t, "emp-stranger", nil)
		_, err := submit(t, f, emp, actingSelf(stranger), leave.LeaveAnnual, "2025-07-07", "2025-07-08")
		assert.ErrorIs(t, err, leave.ErrPermissionDenied)
	})

	t.Run("an admin in staff mode is denied", func(t *testing.T) {
		acting := actingAdmin()
		acting.Mode = leave.ModeStaff
		_, err := submit(t, f, emp, acting, leave.LeaveAnnual, "2025-07-07", "2025-07-08")
		assert.ErrorIs(t, err, leave.ErrPermissionDenied)
	})

	t.Run("the manager may submit on behalf", func(t *testing.T) {
		_, err := submit(t, f, emp, actingManager("mgr-1"), leave.LeaveAnnual, "2025-07-07", "2025-07-08")
		assert.NoError(t, err)
	})

	t.Run("an admin in admin mode may submit on behalf", func(t *testing.T) {
		_, err := submit(t, f, emp, actingAdmin(), leave.LeaveAnnual, "2025-08-04", "2025-08-05")
		assert.NoError(t, err)
	})
}

func TestCreate_BalanceWarnVersusBlock(t *testing.T) {
	// GIVEN: an employee hired today, so nothing has accrued yet
	// WHEN: they request a paid day
	// THEN: the self-service path warns and creates; the blocking path fails

	f := newFixture(t, "2025-06-02")
	f.addStatutoryPolicies(t)
	emp := f.addEmployee(t, "emp-new", func(e *leave.Employee) {
		e.ServiceStart = leave.MustParseDate("2025-06-02")
	})

	t.Run("warn path", func(t *testing.T) {
		res, err := submit(t, f, emp, actingSelf(emp), leave.LeaveAnnual, "2025-07-07", "2025-07-07")
		require.NoError(t, err)

		require.Len(t, res.Warnings, 1)
		assert.Equal(t, "INSUFFICIENT_BALANCE", res.Warnings[0].Code)
		assert.NotNil(t, res.Request)
	})

	t.Run("block path", func(t *testing.T) {
		_, err := submit(t, f, emp, actingAdmin(), leave.LeaveAnnual, "2025-08-04", "2025-08-04")
		require.Error(t, err)

		var ibe *leave.InsufficientBalanceError
		require.ErrorAs(t, err, &ibe)
		assert.Equal(t, leave.LeaveAnnual, ibe.LeaveType)
		assert.Equal(t, "INSUFFICIENT_BALANCE", leave.Code(err))
		assert.True(t, leave.IsClientError(err))
	})
}

func TestCreate_LongServiceBeforeEligibility(t *testing.T) {
	f := newFixture(t, "2025-06-02")
	f.addStatutoryPolicies(t)
	emp := f.addEmployee(t, "emp-1", nil) // ~5.4 years of service

	_, err := submit(t, f, emp, actingSelf(emp), leave.LeaveLongService, "2025-07-07", "2025-07-11")
	assert.ErrorIs(t, err, leave.ErrNotEligible)
	assert.Equal(t, "NOT_ELIGIBLE", leave.Code(err))
}

func TestCreate_NoPolicyForCategory(t *testing.T) {
	f := newFixture(t, "2025-06-02")
	// Only an annual policy exists; personal cannot resolve.
	annual := &leave.LeavePolicy{
		ID: "only-annual", LeaveType: leave.LeaveAnnual,
		AccrualUnit: leave.UnitDays, AccrualRate: decimal.NewFromInt(20),
		StandardHoursPerDay: decimal.NewFromFloat(7.6), IsActive: true,
	}
	require.NoError(t, f.store.SavePolicy(context.Background(), annual))
	emp := f.addEmployee(t, "emp-1", nil)

	_, err := submit(t, f, emp, actingSelf(emp), leave.LeavePersonal, "2025-07-07", "2025-07-08")
	assert.ErrorIs(t, err, leave.ErrNoPolicyResolved)
}

// =============================================================================
// DECISIONS
// =============================================================================

func TestDecide_ManagerApproves(t *testing.T) {
	f := newFixture(t, "2025-06-02")
	f.addStatutoryPolicies(t)
	f.addEmployee(t, "mgr-1", nil)
	emp := f.addEmployee(t, "emp-1", func(e *leave.Employee) { e.ManagerID = "mgr-1" })

	res, err := submit(t, f, emp, actingSelf(emp), leave.LeaveAnnual, "2025-07-07", "2025-07-08")
	require.NoError(t, err)

	approved, err := f.guard.Approve(context.Background(), res.Request.ID, actingManager("mgr-1"))
	require.NoError(t, err)

	assert.Equal(t, leave.StatusApproved, approved.Status)
	assert.Equal(t, "user-mgr-1", approved.DecidedBy)
	require.NotNil(t, approved.DecidedAt)
}

func TestDecide_DeclineKeepsReason(t *testing.T) {
	f := newFixture(t, "2025-06-02")
	f.addStatutoryPolicies(t)
	f.addEmployee(t, "mgr-1", nil)
	emp := f.addEmployee(t, "emp-1", func(e *leave.Employee) { e.ManagerID = "mgr-1" })

	res, err := submit(t, f, emp, actingSelf(emp), leave.LeaveAnnual, "2025-07-07", "2025-07-08")
	require.NoError(t, err)

	declined, err := f.guard.Decline(context.Background(), res.Request.ID, "blackout period", actingManager("mgr-1"))
	require.NoError(t, err)

	assert.Equal(t, leave.StatusDeclined, declined.Status)
	assert.Equal(t, "blackout period", declined.DeclineReason)
}

func TestDecide_PermissionAndState(t *testing.T) {
	f := newFixture(t, "2025-06-02")
	f.addStatutoryPolicies(t)
	f.addEmployee(t, "mgr-1", nil)
	emp := f.addEmployee(t, "emp-1", func(e *leave.Employee) { e.ManagerID = "mgr-1" })

	res, err := submit(t, f, emp, actingSelf(emp), leave.LeaveAnnual, "2025-07-07", "2025-07-08")
	require.NoError(t, err)

	t.Run("the employee cannot approve their own request", func(t *testing.T) {
		_, err := f.guard.Approve(context.Background(), res.Request.ID, actingSelf(emp))
		assert.ErrorIs(t, err, leave.ErrPermissionDenied)
	})

	t.Run("an unrelated manager cannot approve", func(t *testing.T) {
		_, err := f.guard.Approve(context.Background(), res.Request.ID, actingManager("mgr-other"))
		assert.ErrorIs(t, err, leave.ErrPermissionDenied)
	})

	t.Run("deciding twice fails on state", func(t *testing.T) {
		_, err := f.guard.Approve(context.Background(), res.Request.ID, actingManager("mgr-1"))
		require.NoError(t, err)

		_, err = f.guard.Approve(context.Background(), res.Request.ID, actingManager("mgr-1"))
		var te *leave.TransitionError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, leave.StatusApproved, te.From)
		assert.Equal(t, "INVALID_TRANSITION", leave.Code(err))
	})

	t.Run("unknown request", func(t *testing.T) {
		_, err := f.guard.Approve(context.Background(), "req-ghost", actingManager("mgr-1"))
		assert.ErrorIs(t, err, leave.ErrRequestNotFound)
	})
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestCancel_PendingBySelf(t *testing.T) {
	f := newFixture(t, "2025-06-02")
	f.addStatutoryPolicies(t)
	f.addEmployee(t, "mgr-1", nil)
	emp := f.addEmployee(t, "emp-1", func(e *leave.Employee) { e.ManagerID = "mgr-1" })

	res, err := submit(t, f, emp, actingSelf(emp), leave.LeaveAnnual, "2025-07-07", "2025-07-08")
	require.NoError(t, err)

	cancelled, err := f.guard.Cancel(context.Background(), res.Request.ID, actingSelf(emp))
	require.NoError(t, err)
	assert.Equal(t, leave.StatusCancelled, cancelled.Status)

	// The cancelled request no longer consumes balance.
	balances, err := f.agg.ForEmployee(context.Background(), emp.ID)
	require.NoError(t, err)
	assert.True(t, balances.Balance(leave.LeaveAnnual).UsedPending.IsZero())
}

func TestCancel_ApprovedRecallRules(t *testing.T) {
	f := newFixture(t, "2025-06-02")
	f.addStatutoryPolicies(t)
	emp := f.addEmployee(t, "emp-1", nil)

	t.Run("future approved leave can be recalled", func(t *testing.T) {
		f.addRequest(t, &leave.LeaveRequest{
			ID: "req-future", EmployeeID: emp.ID, LeaveType: leave.LeaveAnnual,
			StartDate: leave.MustParseDate("2025-06-02"), EndDate: leave.MustParseDate("2025-06-03"),
			Status: leave.StatusApproved,
		})

		cancelled, err := f.guard.Cancel(context.Background(), "req-future", actingSelf(emp))
		require.NoError(t, err)
		assert.Equal(t, leave.StatusCancelled, cancelled.Status)
	})

	t.Run("started leave cannot be recalled", func(t *testing.T) {
		f.addRequest(t, &leave.LeaveRequest{
			ID: "req-started", EmployeeID: emp.ID, LeaveType: leave.LeaveAnnual,
			StartDate: leave.MustParseDate("2025-05-30"), EndDate: leave.MustParseDate("2025-06-06"),
			Status: leave.StatusApproved,
		})

		_, err := f.guard.Cancel(context.Background(), "req-started", actingSelf(emp))
		var te *leave.TransitionError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "leave has already started", te.Detail)
	})

	t.Run("terminal requests stay terminal", func(t *testing.T) {
		f.addRequest(t, &leave.LeaveRequest{
			ID: "req-declined", EmployeeID: emp.ID, LeaveType: leave.LeaveAnnual,
			StartDate: leave.MustParseDate("2025-08-04"), EndDate: leave.MustParseDate("2025-08-05"),
			Status: leave.StatusDeclined,
		})

		_, err := f.guard.Cancel(context.Background(), "req-declined", actingSelf(emp))
		var te *leave.TransitionError
		assert.ErrorAs(t, err, &te)
	})

	t.Run("a stranger cannot cancel", func(t *testing.T) {
		stranger := f.addEmployee(t, "emp-stranger-2", nil)
		f.addRequest(t, &leave.LeaveRequest{
			ID: "req-other", EmployeeID: emp.ID, LeaveType: leave.LeaveAnnual,
			StartDate: leave.MustParseDate("2025-09-01"), EndDate: leave.MustParseDate("2025-09-02"),
			Status: leave.StatusPending,
		})

		_, err := f.guard.Cancel(context.Background(), "req-other", actingSelf(stranger))
		assert.ErrorIs(t, err, leave.ErrPermissionDenied)
	})
}
