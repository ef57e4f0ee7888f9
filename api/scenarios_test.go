package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlashr/leave-engine/leave"
)

func TestScenarios_List(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/scenarios/", signToken(t, "staff", "emp-1"), nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeJSON[[]ScenarioDTO](t, rec)
	require.Len(t, got, 3)
	assert.Equal(t, "small-team", got[0].ID)
}

func TestScenarios_LoadRequiresAdmin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", signToken(t, "staff", "emp-1"),
		map[string]string{"scenario_id": "small-team"}, false)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestScenarios_SmallTeam(t *testing.T) {
	// GIVEN: the small-team fixture
	// WHEN: loaded twice
	// THEN: the data is present, queryable and not duplicated

	ts := newTestServer(t)
	admin := signToken(t, "admin", "emp-admin")

	for i := 0; i < 2; i++ {
		rec := ts.do(t, http.MethodPost, "/api/scenarios/load", admin,
			map[string]string{"scenario_id": "small-team"}, true)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	emps, err := ts.store.ListEmployees(context.Background())
	require.NoError(t, err)
	assert.Len(t, emps, 3, "reload must not duplicate employees")

	// The pending request sits in the demo manager's queue.
	rec := ts.do(t, http.MethodGet, "/api/requests/pending", signToken(t, "manager", "demo-mgr"), nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	queue := decodeJSON[[]RequestDTO](t, rec)
	require.Len(t, queue, 1)
	assert.Equal(t, "demo-req-pending", queue[0].ID)

	// Balances for the report with history derive without error.
	rec = ts.do(t, http.MethodGet, "/api/employees/demo-emp-a/balances",
		signToken(t, "staff", "demo-emp-a"), nil, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	balances := decodeJSON[BalancesDTO](t, rec)
	assert.Equal(t, 38.0, balances.Categories["annual"].UsedApproved)
}

func TestScenarios_LongTenure(t *testing.T) {
	ts := newTestServer(t)
	admin := signToken(t, "admin", "emp-admin")

	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", admin,
		map[string]string{"scenario_id": "long-tenure"}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	balances, err := ts.handler.Aggregator.ForEmployee(context.Background(), "demo-veteran")
	require.NoError(t, err)

	annual := balances.Balance(leave.LeaveAnnual)
	require.NotNil(t, annual)
	assert.Equal(t, "company", string(annual.Source), "entity policy supersedes the statutory floor")
	assert.Equal(t, 120.0, annual.Opening.InexactFloat64())
	assert.Equal(t, 304.0, annual.Opening.Add(annual.Accrued).InexactFloat64(), "carryover cap applies")

	lsl := balances.Balance(leave.LeaveLongService)
	require.NotNil(t, lsl)
	assert.True(t, lsl.Eligible)
}

func TestScenarios_Unknown(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", signToken(t, "admin", "emp-admin"),
		map[string]string{"scenario_id": "time-machine"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
