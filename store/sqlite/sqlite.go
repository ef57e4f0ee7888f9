/*
Package sqlite provides the SQLite-backed implementation of leave.Store.

PURPOSE:
  Durable persistence for employees, policies, requests, holidays,
  adjustments and balance snapshots. In production the same patterns apply
  to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  employees:           Employee records (never deleted, status transitions)
  leave_policies:      Accrual configuration, company and system rows
  leave_requests:      The unit of record balances derive from
  public_holidays:     Calendar rows scoped by entity and state
  balance_adjustments: Append-only manual balance changes
  balance_snapshots:   Materialized balances (reporting only)
  recalc_runs:         Batch recalculation audit trail

INVARIANTS ENFORCED HERE:
  - idx_policies_one_default: at most one active default policy per
    (leave_type, entity, employment scope)
  - system policies refuse deletion
  - adjustments have no UPDATE or DELETE statements

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and crash recovery improves.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/store.go: Interface definitions
  - leave/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/atlashr/leave-engine/leave"
)

// Store implements leave.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees (never hard-deleted, status transitions only)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL,
		employment_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		service_start TEXT NOT NULL,
		hours_per_week TEXT NOT NULL,
		entity_id TEXT NOT NULL DEFAULT '',
		state_region TEXT NOT NULL DEFAULT '',
		manager_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_entity
		ON employees(entity_id, status);
	CREATE INDEX IF NOT EXISTS idx_employees_manager
		ON employees(manager_id) WHERE manager_id != '';

	-- Leave policies (company rows supersede system rows at resolution)
	CREATE TABLE IF NOT EXISTS leave_policies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		entity_id TEXT NOT NULL DEFAULT '',
		employment_types TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		accrual_unit TEXT NOT NULL,
		accrual_rate TEXT NOT NULL,
		standard_hours_per_day TEXT NOT NULL,
		hours_per_week_ref TEXT NOT NULL DEFAULT '0',
		min_service_years INTEGER NOT NULL DEFAULT 0,
		rate_after_threshold TEXT NOT NULL DEFAULT '0',
		max_carryover_hours TEXT NOT NULL DEFAULT '0',
		is_system BOOLEAN NOT NULL DEFAULT FALSE,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_policies_type_active
		ON leave_policies(leave_type, is_active);

	-- At most one active default per (leave_type, entity, employment scope)
	CREATE UNIQUE INDEX IF NOT EXISTS idx_policies_one_default
		ON leave_policies(leave_type, entity_id, employment_types)
		WHERE is_default AND is_active;

	-- Leave requests (the unit of record)
	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		total_days TEXT NOT NULL,
		partial_day_type TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		manager_id TEXT NOT NULL DEFAULT '',
		decided_by TEXT NOT NULL DEFAULT '',
		decided_at TEXT,
		decline_reason TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee
		ON leave_requests(employee_id, status);
	CREATE INDEX IF NOT EXISTS idx_requests_employee_dates
		ON leave_requests(employee_id, start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_requests_manager_pending
		ON leave_requests(manager_id, status) WHERE status = 'pending';

	-- Public holidays, scoped by entity ('' = all) and state ('' = all)
	CREATE TABLE IF NOT EXISTS public_holidays (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		date TEXT NOT NULL,
		entity_id TEXT NOT NULL DEFAULT '',
		state_region TEXT NOT NULL DEFAULT '',
		is_paid BOOLEAN NOT NULL DEFAULT TRUE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_date
		ON public_holidays(date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON public_holidays(entity_id, state_region, date, name);

	-- Balance adjustments (append-only; no UPDATE or DELETE)
	CREATE TABLE IF NOT EXISTS balance_adjustments (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		kind TEXT NOT NULL,
		hours TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_adjustments_employee
		ON balance_adjustments(employee_id, leave_type);

	-- Balance snapshots (materialized view, reporting only)
	CREATE TABLE IF NOT EXISTS balance_snapshots (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		accrued_hours TEXT NOT NULL,
		opening_hours TEXT NOT NULL,
		adjusted_hours TEXT NOT NULL,
		used_approved_hours TEXT NOT NULL,
		used_pending_hours TEXT NOT NULL,
		available_hours TEXT NOT NULL,
		standard_hours_per_day TEXT NOT NULL,
		as_of TEXT NOT NULL,
		taken_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_employee
		ON balance_snapshots(employee_id, leave_type, taken_at DESC);

	-- Recalculation runs (batch audit trail)
	CREATE TABLE IF NOT EXISTS recalc_runs (
		id TEXT PRIMARY KEY,
		entity_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		total INTEGER NOT NULL DEFAULT 0,
		processed INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_recalc_runs_status
		ON recalc_runs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEES
// =============================================================================

const employeeColumns = `id, first_name, last_name, email, employment_type, status,
	service_start, hours_per_week, entity_id, state_region, manager_id, created_at, updated_at`

// GetEmployee returns the employee or nil when missing.
func (s *Store) GetEmployee(ctx context.Context, id string) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
	e, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}
	return e, nil
}

// ListEmployees returns every employee, any status.
func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEmployees(ctx,
		`SELECT `+employeeColumns+` FROM employees ORDER BY last_name, first_name`)
}

// ListActiveEmployees returns active employees, optionally one entity's.
func (s *Store) ListActiveEmployees(ctx context.Context, entityID string) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entityID == "" {
		return s.queryEmployees(ctx,
			`SELECT `+employeeColumns+` FROM employees WHERE status = 'active' ORDER BY id`)
	}
	return s.queryEmployees(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE status = 'active' AND entity_id = ? ORDER BY id`,
		entityID)
}

// SaveEmployee inserts or updates an employee record.
func (s *Store) SaveEmployee(ctx context.Context, e *leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees
		(id, first_name, last_name, email, employment_type, status, service_start,
		 hours_per_week, entity_id, state_region, manager_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			email = excluded.email,
			employment_type = excluded.employment_type,
			status = excluded.status,
			service_start = excluded.service_start,
			hours_per_week = excluded.hours_per_week,
			entity_id = excluded.entity_id,
			state_region = excluded.state_region,
			manager_id = excluded.manager_id,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.FirstName, e.LastName, e.Email, e.EmploymentType, e.Status,
		e.ServiceStart.String(), e.HoursPerWeek.String(), e.EntityID, e.StateRegion,
		e.ManagerID,
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func (s *Store) queryEmployees(ctx context.Context, query string, args ...any) ([]leave.Employee, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var out []leave.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanEmployee(row scanner) (*leave.Employee, error) {
	var e leave.Employee
	var serviceStart, hoursPerWeek, createdAt, updatedAt string
	err := row.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &e.EmploymentType,
		&e.Status, &serviceStart, &hoursPerWeek, &e.EntityID, &e.StateRegion,
		&e.ManagerID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if e.ServiceStart, err = leave.ParseDate(serviceStart); err != nil {
		return nil, err
	}
	e.HoursPerWeek = mustDecimal(hoursPerWeek)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

// =============================================================================
// POLICIES
// =============================================================================

const policyColumns = `id, name, leave_type, entity_id, employment_types, country,
	accrual_unit, accrual_rate, standard_hours_per_day, hours_per_week_ref,
	min_service_years, rate_after_threshold, max_carryover_hours,
	is_system, is_default, is_active, created_at, updated_at`

// GetPolicy returns the policy or nil when missing.
func (s *Store) GetPolicy(ctx context.Context, id string) (*leave.LeavePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+policyColumns+` FROM leave_policies WHERE id = ?`, id)
	p, err := scanPolicy(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}
	return p, nil
}

// ListActivePolicies returns active policies of one leave type.
func (s *Store) ListActivePolicies(ctx context.Context, t leave.LeaveType) ([]leave.LeavePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPolicies(ctx,
		`SELECT `+policyColumns+` FROM leave_policies WHERE leave_type = ? AND is_active ORDER BY id`, t)
}

// ListPolicies returns every policy.
func (s *Store) ListPolicies(ctx context.Context) ([]leave.LeavePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPolicies(ctx,
		`SELECT `+policyColumns+` FROM leave_policies ORDER BY leave_type, id`)
}

// SavePolicy inserts or updates a policy.
func (s *Store) SavePolicy(ctx context.Context, p *leave.LeavePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO leave_policies
		(id, name, leave_type, entity_id, employment_types, country, accrual_unit,
		 accrual_rate, standard_hours_per_day, hours_per_week_ref, min_service_years,
		 rate_after_threshold, max_carryover_hours, is_system, is_default, is_active,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			leave_type = excluded.leave_type,
			entity_id = excluded.entity_id,
			employment_types = excluded.employment_types,
			country = excluded.country,
			accrual_unit = excluded.accrual_unit,
			accrual_rate = excluded.accrual_rate,
			standard_hours_per_day = excluded.standard_hours_per_day,
			hours_per_week_ref = excluded.hours_per_week_ref,
			min_service_years = excluded.min_service_years,
			rate_after_threshold = excluded.rate_after_threshold,
			max_carryover_hours = excluded.max_carryover_hours,
			is_system = excluded.is_system,
			is_default = excluded.is_default,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.LeaveType, p.EntityID, joinEmploymentTypes(p.EmploymentTypes),
		p.Country, p.AccrualUnit, p.AccrualRate.String(), p.StandardHoursPerDay.String(),
		p.HoursPerWeekRef.String(), p.MinServiceYears, p.RateAfterThreshold.String(),
		p.MaxCarryoverHours.String(), p.IsSystem, p.IsDefault, p.IsActive,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("another active default exists for this scope: %w", err)
		}
		return fmt.Errorf("failed to save policy: %w", err)
	}
	return nil
}

// DeletePolicy removes a company policy. System policies refuse deletion.
func (s *Store) DeletePolicy(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var isSystem bool
	err := s.db.QueryRowContext(ctx,
		`SELECT is_system FROM leave_policies WHERE id = ?`, id).Scan(&isSystem)
	if err == sql.ErrNoRows {
		return leave.ErrPolicyNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load policy: %w", err)
	}
	if isSystem {
		return leave.ErrSystemPolicy
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM leave_policies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}
	return nil
}

func (s *Store) queryPolicies(ctx context.Context, query string, args ...any) ([]leave.LeavePolicy, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	var out []leave.LeavePolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanPolicy(row scanner) (*leave.LeavePolicy, error) {
	var p leave.LeavePolicy
	var employmentTypes, rate, stdHours, weekRef, rateAfter, carryover string
	var createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.Name, &p.LeaveType, &p.EntityID, &employmentTypes,
		&p.Country, &p.AccrualUnit, &rate, &stdHours, &weekRef, &p.MinServiceYears,
		&rateAfter, &carryover, &p.IsSystem, &p.IsDefault, &p.IsActive,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.EmploymentTypes = splitEmploymentTypes(employmentTypes)
	p.AccrualRate = mustDecimal(rate)
	p.StandardHoursPerDay = mustDecimal(stdHours)
	p.HoursPerWeekRef = mustDecimal(weekRef)
	p.RateAfterThreshold = mustDecimal(rateAfter)
	p.MaxCarryoverHours = mustDecimal(carryover)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// =============================================================================
// REQUESTS
// =============================================================================

const requestColumns = `id, employee_id, leave_type, start_date, end_date, status,
	total_days, partial_day_type, reason, manager_id, decided_by, decided_at,
	decline_reason, created_by, created_at, updated_at`

// GetRequest returns the request or nil when missing.
func (s *Store) GetRequest(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM leave_requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	return r, nil
}

// RequestsForEmployee returns the full request history, newest range first.
func (s *Store) RequestsForEmployee(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM leave_requests
		 WHERE employee_id = ? ORDER BY start_date DESC, created_at DESC`, employeeID)
}

// OverlappingRequests returns live (pending/approved) requests intersecting
// the inclusive range.
func (s *Store) OverlappingRequests(ctx context.Context, employeeID string, from, to leave.Date) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM leave_requests
		 WHERE employee_id = ?
		   AND status IN ('pending', 'approved')
		   AND end_date >= ? AND start_date <= ?
		 ORDER BY start_date`, employeeID, from.String(), to.String())
}

// PendingForManager returns the approval queue for a manager.
func (s *Store) PendingForManager(ctx context.Context, managerID string) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM leave_requests
		 WHERE manager_id = ? AND status = 'pending' ORDER BY start_date`, managerID)
}

// SaveRequest inserts or updates a request.
func (s *Store) SaveRequest(ctx context.Context, r *leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO leave_requests
		(id, employee_id, leave_type, start_date, end_date, status, total_days,
		 partial_day_type, reason, manager_id, decided_by, decided_at, decline_reason,
		 created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			decided_by = excluded.decided_by,
			decided_at = excluded.decided_at,
			decline_reason = excluded.decline_reason,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.EmployeeID, r.LeaveType, r.StartDate.String(), r.EndDate.String(),
		r.Status, r.TotalDays.String(), r.PartialDayType, r.Reason, r.ManagerID,
		r.DecidedBy, nullTime(r.DecidedAt), r.DeclineReason, r.CreatedBy,
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}
	return nil
}

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]leave.LeaveRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var out []leave.LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanRequest(row scanner) (*leave.LeaveRequest, error) {
	var r leave.LeaveRequest
	var start, end, totalDays, createdAt, updatedAt string
	var decidedAt sql.NullString
	err := row.Scan(&r.ID, &r.EmployeeID, &r.LeaveType, &start, &end, &r.Status,
		&totalDays, &r.PartialDayType, &r.Reason, &r.ManagerID, &r.DecidedBy,
		&decidedAt, &r.DeclineReason, &r.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if r.StartDate, err = leave.ParseDate(start); err != nil {
		return nil, err
	}
	if r.EndDate, err = leave.ParseDate(end); err != nil {
		return nil, err
	}
	r.TotalDays = mustDecimal(totalDays)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	if decidedAt.Valid {
		t := parseTime(decidedAt.String)
		r.DecidedAt = &t
	}
	return &r, nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

const holidayColumns = `id, name, date, entity_id, state_region, is_paid, is_active, created_at`

// HolidaysInRange returns active holidays within the range whose scope
// matches the entity and state. Rows with empty scope fields match all.
func (s *Store) HolidaysInRange(ctx context.Context, entityID, stateRegion string, from, to leave.Date) ([]leave.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryHolidays(ctx,
		`SELECT `+holidayColumns+` FROM public_holidays
		 WHERE is_active
		   AND date >= ? AND date <= ?
		   AND (entity_id = '' OR entity_id = ?)
		   AND (state_region = '' OR state_region = ?)
		 ORDER BY date`, from.String(), to.String(), entityID, stateRegion)
}

// ListHolidays returns every holiday row.
func (s *Store) ListHolidays(ctx context.Context) ([]leave.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryHolidays(ctx,
		`SELECT `+holidayColumns+` FROM public_holidays ORDER BY date`)
}

// SaveHoliday inserts or updates a holiday row.
func (s *Store) SaveHoliday(ctx context.Context, h *leave.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO public_holidays
		(id, name, date, entity_id, state_region, is_paid, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			date = excluded.date,
			entity_id = excluded.entity_id,
			state_region = excluded.state_region,
			is_paid = excluded.is_paid,
			is_active = excluded.is_active
	`
	_, err := s.db.ExecContext(ctx, query,
		h.ID, h.Name, h.Date.String(), h.EntityID, h.StateRegion, h.IsPaid,
		h.IsActive, formatTime(h.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

// DeleteHoliday removes a holiday row.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM public_holidays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	return nil
}

func (s *Store) queryHolidays(ctx context.Context, query string, args ...any) ([]leave.Holiday, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var out []leave.Holiday
	for rows.Next() {
		var h leave.Holiday
		var date, createdAt string
		if err := rows.Scan(&h.ID, &h.Name, &date, &h.EntityID, &h.StateRegion,
			&h.IsPaid, &h.IsActive, &createdAt); err != nil {
			return nil, err
		}
		if h.Date, err = leave.ParseDate(date); err != nil {
			return nil, err
		}
		h.CreatedAt = parseTime(createdAt)
		out = append(out, h)
	}
	return out, rows.Err()
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

// AdjustmentsForEmployee returns the append-only adjustment history.
func (s *Store) AdjustmentsForEmployee(ctx context.Context, employeeID string) ([]leave.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, employee_id, leave_type, kind, hours, reason, created_by, created_at
		 FROM balance_adjustments WHERE employee_id = ? ORDER BY created_at`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query adjustments: %w", err)
	}
	defer rows.Close()

	var out []leave.Adjustment
	for rows.Next() {
		var a leave.Adjustment
		var hours, createdAt string
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.LeaveType, &a.Kind, &hours,
			&a.Reason, &a.CreatedBy, &createdAt); err != nil {
			return nil, err
		}
		a.Hours = mustDecimal(hours)
		a.CreatedAt = parseTime(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveAdjustment appends an adjustment. Insert only.
func (s *Store) SaveAdjustment(ctx context.Context, a *leave.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO balance_adjustments
		 (id, employee_id, leave_type, kind, hours, reason, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.EmployeeID, a.LeaveType, a.Kind, a.Hours.String(), a.Reason,
		a.CreatedBy, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save adjustment: %w", err)
	}
	return nil
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// SaveSnapshot appends a materialized balance row.
func (s *Store) SaveSnapshot(ctx context.Context, snap *leave.BalanceSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO balance_snapshots
		 (id, employee_id, leave_type, accrued_hours, opening_hours, adjusted_hours,
		  used_approved_hours, used_pending_hours, available_hours,
		  standard_hours_per_day, as_of, taken_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.EmployeeID, snap.LeaveType, snap.AccruedHours.String(),
		snap.OpeningHours.String(), snap.AdjustedHours.String(),
		snap.UsedApprovedHours.String(), snap.UsedPendingHours.String(),
		snap.AvailableHours.String(), snap.StandardHoursPerDay.String(),
		snap.AsOf.String(), formatTime(snap.TakenAt))
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshots returns the most recent snapshot per leave type.
func (s *Store) LatestSnapshots(ctx context.Context, employeeID string) ([]leave.BalanceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, employee_id, leave_type, accrued_hours, opening_hours,
		        adjusted_hours, used_approved_hours, used_pending_hours,
		        available_hours, standard_hours_per_day, as_of, taken_at
		 FROM balance_snapshots
		 WHERE employee_id = ?
		   AND taken_at = (
		       SELECT MAX(taken_at) FROM balance_snapshots b2
		       WHERE b2.employee_id = balance_snapshots.employee_id
		         AND b2.leave_type = balance_snapshots.leave_type)
		 ORDER BY leave_type`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []leave.BalanceSnapshot
	for rows.Next() {
		var snap leave.BalanceSnapshot
		var accrued, opening, adjusted, usedA, usedP, avail, std, asOf, takenAt string
		if err := rows.Scan(&snap.ID, &snap.EmployeeID, &snap.LeaveType, &accrued,
			&opening, &adjusted, &usedA, &usedP, &avail, &std, &asOf, &takenAt); err != nil {
			return nil, err
		}
		snap.AccruedHours = mustDecimal(accrued)
		snap.OpeningHours = mustDecimal(opening)
		snap.AdjustedHours = mustDecimal(adjusted)
		snap.UsedApprovedHours = mustDecimal(usedA)
		snap.UsedPendingHours = mustDecimal(usedP)
		snap.AvailableHours = mustDecimal(avail)
		snap.StandardHoursPerDay = mustDecimal(std)
		if snap.AsOf, err = leave.ParseDate(asOf); err != nil {
			return nil, err
		}
		snap.TakenAt = parseTime(takenAt)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// =============================================================================
// RECALC RUNS
// =============================================================================

// RecalcRun is one batch recalculation's audit record.
type RecalcRun struct {
	ID          string
	EntityID    string
	Status      string // pending, running, completed, failed
	Total       int
	Processed   int
	Failed      int
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// SaveRecalcRun inserts or updates a run record.
func (s *Store) SaveRecalcRun(ctx context.Context, run *RecalcRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO recalc_runs
		(id, entity_id, status, total, processed, failed, error, started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			total = excluded.total,
			processed = excluded.processed,
			failed = excluded.failed,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.EntityID, run.Status, run.Total, run.Processed, run.Failed,
		run.Error, nullTime(run.StartedAt), nullTime(run.CompletedAt),
		formatTime(run.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save recalc run: %w", err)
	}
	return nil
}

// ListRecalcRuns returns recent runs, newest first.
func (s *Store) ListRecalcRuns(ctx context.Context, limit int) ([]RecalcRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, entity_id, status, total, processed, failed, error,
		        started_at, completed_at, created_at
		 FROM recalc_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recalc runs: %w", err)
	}
	defer rows.Close()

	var runs []RecalcRun
	for rows.Next() {
		var r RecalcRun
		var startedAt, completedAt sql.NullString
		var createdAt string
		if err := rows.Scan(&r.ID, &r.EntityID, &r.Status, &r.Total, &r.Processed,
			&r.Failed, &r.Error, &startedAt, &completedAt, &createdAt); err != nil {
			return nil, err
		}
		if startedAt.Valid {
			t := parseTime(startedAt.String)
			r.StartedAt = &t
		}
		if completedAt.Valid {
			t := parseTime(completedAt.String)
			r.CompletedAt = &t
		}
		r.CreatedAt = parseTime(createdAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LastCompletedRun returns the newest completed run, or nil.
func (s *Store) LastCompletedRun(ctx context.Context) (*RecalcRun, error) {
	runs, err := s.ListRecalcRuns(ctx, 20)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if runs[i].Status == "completed" {
			return &runs[i], nil
		}
	}
	return nil, nil
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func joinEmploymentTypes(ts []leave.EmploymentType) string {
	if len(ts) == 0 {
		return ""
	}
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}

func splitEmploymentTypes(s string) []leave.EmploymentType {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]leave.EmploymentType, len(parts))
	for i, p := range parts {
		out[i] = leave.EmploymentType(p)
	}
	return out
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
