/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes the leave calculation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees                   List all employees
    POST   /api/employees                   Create/update employee
    GET    /api/employees/{id}              Get employee details
    GET    /api/employees/{id}/balances     Derived balances
    GET    /api/employees/{id}/requests     Request history
    POST   /api/employees/{id}/requests     Submit leave request
    GET    /api/employees/{id}/statement.pdf Leave statement PDF

  Requests:
    GET    /api/requests/pending            Manager approval queue
    POST   /api/requests/{id}/approve       Approve pending request
    POST   /api/requests/{id}/decline       Decline pending request
    POST   /api/requests/{id}/cancel        Cancel pending/future leave

  Calculation:
    GET    /api/leave/chargeable            Chargeable-days preview

  Policies:
    GET    /api/policies                    List policies
    POST   /api/policies                    Create policy from JSON
    GET    /api/policies/{id}               Get policy
    DELETE /api/policies/{id}               Delete company policy
    POST   /api/policies/seed-defaults      Install statutory defaults

  Holidays:
    GET    /api/holidays                    List holiday rows
    POST   /api/holidays                    Create holiday row
    DELETE /api/holidays/{id}               Delete holiday row

  Admin:
    POST   /api/admin/adjustments           Manual balance change
    POST   /api/admin/recalculate           Batch balance recalculation
    GET    /api/admin/recalc-runs           Batch run audit trail
    GET    /api/cache/version               Cache invalidation version

ERROR HANDLING:
  Errors are returned as JSON with the engine's stable code:
  - 400: Validation errors, invalid input
  - 403: Permission denied
  - 404: Resource not found
  - 409: Overlapping leave, balance conflicts
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atlashr/leave-engine/factory"
	"github.com/atlashr/leave-engine/leave"
	"github.com/atlashr/leave-engine/report"
	"github.com/atlashr/leave-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all API dependencies.
type Handler struct {
	Store      *sqlite.Store
	Resolver   *leave.Resolver
	Calculator *leave.Calculator
	Aggregator *leave.Aggregator
	Guard      *leave.Guard
	Notifier   *leave.Notifier
	Factory    *factory.Factory
	Reports    *report.Generator
	Logger     *slog.Logger
}

// NewHandler wires the engine over the store.
func NewHandler(store *sqlite.Store, logger *slog.Logger) *Handler {
	resolver := leave.NewResolver(store, store)
	calc := leave.NewCalculator(store, store)
	aggregator := leave.NewAggregator(store, resolver, calc)
	notifier := leave.NewNotifier()
	guard := leave.NewGuard(store, calc, aggregator, notifier)

	return &Handler{
		Store:      store,
		Resolver:   resolver,
		Calculator: calc,
		Aggregator: aggregator,
		Guard:      guard,
		Notifier:   notifier,
		Factory:    factory.New(),
		Reports:    report.NewGenerator(store, aggregator),
		Logger:     logger,
	}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// ListEmployees returns every employee record.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	emps, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]EmployeeDTO, 0, len(emps))
	for i := range emps {
		out = append(out, toEmployeeDTO(&emps[i]))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// GetEmployee returns one employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if emp == nil {
		h.writeError(w, r, leave.ErrEmployeeNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// CreateEmployee creates or updates an employee record. Admin only.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	acting := ActingFrom(r.Context())
	if !acting.IsAdmin() {
		h.writeError(w, r, leave.ErrPermissionDenied)
		return
	}

	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid JSON body")
		return
	}
	serviceStart, err := leave.ParseDate(req.ServiceStart)
	if err != nil {
		h.badRequest(w, "service_start must be YYYY-MM-DD")
		return
	}
	if req.FirstName == "" || req.Email == "" {
		h.badRequest(w, "first_name and email are required")
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	emp := &leave.Employee{
		ID:             id,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		EmploymentType: leave.EmploymentType(req.EmploymentType),
		Status:         leave.EmployeeActive,
		ServiceStart:   serviceStart,
		HoursPerWeek:   decimal.NewFromFloat(req.HoursPerWeek),
		EntityID:       req.EntityID,
		StateRegion:    req.StateRegion,
		ManagerID:      req.ManagerID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.Notifier.Invalidate(emp.ID)
	h.writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// GetBalances returns the derived balances for one employee.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.Aggregator.ForEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toBalancesDTO(balances))
}

// GetRequests returns the request history for one employee.
func (h *Handler) GetRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Store.RequestsForEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]RequestDTO, 0, len(requests))
	for i := range requests {
		out = append(out, toRequestDTO(&requests[i]))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// GetStatement renders the employee's leave statement as a PDF.
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	st, err := h.Reports.Build(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="leave-statement-%s.pdf"`, st.Employee.ID))
	if err := h.Reports.RenderPDF(st, w); err != nil {
		h.Logger.Error("rendering statement", "employee_id", st.Employee.ID, "error", err)
	}
}

// =============================================================================
// CHARGEABLE PREVIEW
// =============================================================================

// PreviewChargeable prices a range without creating anything.
// Query params: employee_id, start, end, partial_day_type.
func (h *Handler) PreviewChargeable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := leave.ParseDate(q.Get("start"))
	if err != nil {
		h.badRequest(w, "start must be YYYY-MM-DD")
		return
	}
	end, err := leave.ParseDate(q.Get("end"))
	if err != nil {
		h.badRequest(w, "end must be YYYY-MM-DD")
		return
	}

	timer := time.Now()
	bd, err := h.Calculator.Calculate(r.Context(), leave.ChargeableInput{
		EmployeeID:     q.Get("employee_id"),
		Start:          start,
		End:            end,
		PartialDayType: leave.PartialDayType(q.Get("partial_day_type")),
	})
	chargeableDuration.Observe(time.Since(timer).Seconds())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toBreakdownDTO(bd))
}

// =============================================================================
// REQUEST LIFECYCLE
// =============================================================================

// SubmitRequest creates a leave request for the employee in the path.
// Self-service submissions get the soft balance policy; on-behalf
// submissions (manager or admin) get the hard block.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")
	acting := ActingFrom(r.Context())

	var body SubmitRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.badRequest(w, "invalid JSON body")
		return
	}
	start, err := leave.ParseDate(body.StartDate)
	if err != nil {
		h.badRequest(w, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := leave.ParseDate(body.EndDate)
	if err != nil {
		h.badRequest(w, "end_date must be YYYY-MM-DD")
		return
	}

	acting.BalancePolicy = leave.BalanceBlock
	if acting.EmployeeID == employeeID {
		acting.BalancePolicy = leave.BalanceWarn
	}

	res, err := h.Guard.Create(r.Context(), leave.CreateInput{
		EmployeeID:     employeeID,
		LeaveType:      leave.LeaveType(body.LeaveType),
		Start:          start,
		End:            end,
		Reason:         body.Reason,
		PartialDayType: leave.PartialDayType(body.PartialDayType),
		Acting:         acting,
	})
	observeOutcome("create", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.Logger.Info("leave request created",
		"request_id", res.Request.ID,
		"employee_id", employeeID,
		"leave_type", body.LeaveType,
		"auto_approved", res.AutoApproved,
	)
	h.writeJSON(w, http.StatusCreated, CreateRequestResponse{
		Request:      toRequestDTO(res.Request),
		Breakdown:    toBreakdownDTO(res.Breakdown),
		AutoApproved: res.AutoApproved,
		Warnings:     res.Warnings,
	})
}

// ListPendingRequests returns the acting manager's approval queue.
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	acting := ActingFrom(r.Context())
	managerID := acting.EmployeeID
	if acting.IsAdmin() && r.URL.Query().Get("manager_id") != "" {
		managerID = r.URL.Query().Get("manager_id")
	}

	requests, err := h.Store.PendingForManager(r.Context(), managerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]RequestDTO, 0, len(requests))
	for i := range requests {
		out = append(out, toRequestDTO(&requests[i]))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// ApproveRequest approves a pending request.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Guard.Approve(r.Context(), chi.URLParam(r, "id"), ActingFrom(r.Context()))
	observeOutcome("approve", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// DeclineRequest declines a pending request with a reason.
func (h *Handler) DeclineRequest(w http.ResponseWriter, r *http.Request) {
	var body DeclineRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.badRequest(w, "invalid JSON body")
		return
	}
	req, err := h.Guard.Decline(r.Context(), chi.URLParam(r, "id"), body.Reason, ActingFrom(r.Context()))
	observeOutcome("decline", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// CancelRequest withdraws a pending request or recalls future approved
// leave.
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Guard.Cancel(r.Context(), chi.URLParam(r, "id"), ActingFrom(r.Context()))
	observeOutcome("cancel", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// =============================================================================
// POLICIES
// =============================================================================

// ListPolicies returns every policy as factory JSON.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Store.ListPolicies(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]PolicyDTO, 0, len(policies))
	for i := range policies {
		out = append(out, h.Factory.ToJSON(&policies[i]))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// GetPolicy returns one policy.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetPolicy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if p == nil {
		h.writeError(w, r, leave.ErrPolicyNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, h.Factory.ToJSON(p))
}

// CreatePolicy creates or updates a policy from factory JSON. Admin only.
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	if !ActingFrom(r.Context()).IsAdmin() {
		h.writeError(w, r, leave.ErrPermissionDenied)
		return
	}

	var pj PolicyDTO
	if err := json.NewDecoder(r.Body).Decode(&pj); err != nil {
		h.badRequest(w, "invalid JSON body")
		return
	}
	p, err := h.Factory.FromJSON(pj)
	if err != nil {
		h.badRequest(w, err.Error())
		return
	}
	if err := h.Store.SavePolicy(r.Context(), p); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.Notifier.Invalidate("")
	h.writeJSON(w, http.StatusCreated, h.Factory.ToJSON(p))
}

// DeletePolicy removes a company policy. System rows refuse deletion.
func (h *Handler) DeletePolicy(w http.ResponseWriter, r *http.Request) {
	if !ActingFrom(r.Context()).IsAdmin() {
		h.writeError(w, r, leave.ErrPermissionDenied)
		return
	}
	if err := h.Store.DeletePolicy(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.Notifier.Invalidate("")
	w.WriteHeader(http.StatusNoContent)
}

// SeedDefaultPolicies installs the statutory defaults. Admin only.
func (h *Handler) SeedDefaultPolicies(w http.ResponseWriter, r *http.Request) {
	if !ActingFrom(r.Context()).IsAdmin() {
		h.writeError(w, r, leave.ErrPermissionDenied)
		return
	}
	seeded, err := factory.Seed(r.Context(), h.Store)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.Notifier.Invalidate("")
	h.writeJSON(w, http.StatusOK, map[string]int{"seeded": seeded})
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// ListHolidays returns every holiday row.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.ListHolidays(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]HolidayDTO, 0, len(holidays))
	for i := range holidays {
		out = append(out, toHolidayDTO(&holidays[i]))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// CreateHoliday creates or updates a holiday row. Admin only.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	if !ActingFrom(r.Context()).IsAdmin() {
		h.writeError(w, r, leave.ErrPermissionDenied)
		return
	}

	var dto HolidayDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.badRequest(w, "invalid JSON body")
		return
	}
	date, err := leave.ParseDate(dto.Date)
	if err != nil {
		h.badRequest(w, "date must be YYYY-MM-DD")
		return
	}
	if dto.Name == "" {
		h.badRequest(w, "name is required")
		return
	}

	id := dto.ID
	if id == "" {
		id = uuid.NewString()
	}
	holiday := &leave.Holiday{
		ID:          id,
		Name:        dto.Name,
		Date:        date,
		EntityID:    dto.EntityID,
		StateRegion: dto.StateRegion,
		IsPaid:      dto.IsPaid,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}
	if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.Notifier.Invalidate("")
	h.writeJSON(w, http.StatusCreated, toHolidayDTO(holiday))
}

// DeleteHoliday removes a holiday row. Admin only.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if !ActingFrom(r.Context()).IsAdmin() {
		h.writeError(w, r, leave.ErrPermissionDenied)
		return
	}
	if err := h.Store.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.Notifier.Invalidate("")
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN
// =============================================================================

// CreateAdjustment appends a manual balance change. Admin only.
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	acting := ActingFrom(r.Context())
	if !acting.IsAdmin() {
		h.writeError(w, r, leave.ErrPermissionDenied)
		return
	}

	var body AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.badRequest(w, "invalid JSON body")
		return
	}
	t := leave.LeaveType(body.LeaveType)
	if !t.Valid() {
		h.badRequest(w, "unknown leave_type")
		return
	}
	kind := leave.AdjustmentKind(body.Kind)
	if kind == "" {
		kind = leave.KindAdjustment
	}

	adj := &leave.Adjustment{
		ID:         uuid.NewString(),
		EmployeeID: body.EmployeeID,
		LeaveType:  t,
		Kind:       kind,
		Hours:      decimal.NewFromFloat(body.Hours),
		Reason:     body.Reason,
		CreatedBy:  acting.UserID,
		CreatedAt:  time.Now(),
	}
	if err := h.Store.SaveAdjustment(r.Context(), adj); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.Notifier.Invalidate(body.EmployeeID)
	h.writeJSON(w, http.StatusCreated, map[string]string{"id": adj.ID})
}

// TriggerRecalculation runs a batch recalculation synchronously and
// records the run. Admin only. Optional entity_id query restricts scope.
func (h *Handler) TriggerRecalculation(w http.ResponseWriter, r *http.Request) {
	if !ActingFrom(r.Context()).IsAdmin() {
		h.writeError(w, r, leave.ErrPermissionDenied)
		return
	}

	entityID := r.URL.Query().Get("entity_id")
	res, err := RunRecalculation(r.Context(), h.Store, h.Aggregator, h.Logger, entityID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toRecalcResultDTO(res))
}

// ListRecalcRuns returns the batch audit trail, newest first.
func (h *Handler) ListRecalcRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRecalcRuns(r.Context(), 50)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, runs)
}

// CacheVersion returns the current invalidation version for UI polling.
func (h *Handler) CacheVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]uint64{"version": h.Notifier.Version()})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("encoding response", "error", err)
	}
}

func (h *Handler) badRequest(w http.ResponseWriter, msg string) {
	h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, Code: "INVALID_INPUT"})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case leave.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, leave.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, leave.ErrOverlappingLeave):
		status = http.StatusConflict
	case leave.IsClientError(err):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.Logger.Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}
	h.writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: leave.Code(err)})
}
