/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and the lifecycle guard, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/policy.go: PolicyJSON type
*/
package api

import (
	"time"

	"github.com/atlashr/leave-engine/factory"
	"github.com/atlashr/leave-engine/leave"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID             string  `json:"id"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	EmploymentType string  `json:"employment_type"`
	Status         string  `json:"status"`
	ServiceStart   string  `json:"service_start"`
	HoursPerWeek   float64 `json:"hours_per_week"`
	EntityID       string  `json:"entity_id,omitempty"`
	StateRegion    string  `json:"state_region,omitempty"`
	ManagerID      string  `json:"manager_id,omitempty"`
}

// CreateEmployeeRequest is the body for creating or updating an employee.
type CreateEmployeeRequest struct {
	ID             string  `json:"id,omitempty"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	EmploymentType string  `json:"employment_type"`
	ServiceStart   string  `json:"service_start"`
	HoursPerWeek   float64 `json:"hours_per_week"`
	EntityID       string  `json:"entity_id,omitempty"`
	StateRegion    string  `json:"state_region,omitempty"`
	ManagerID      string  `json:"manager_id,omitempty"`
}

func toEmployeeDTO(e *leave.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:             e.ID,
		FirstName:      e.FirstName,
		LastName:       e.LastName,
		Email:          e.Email,
		EmploymentType: string(e.EmploymentType),
		Status:         string(e.Status),
		ServiceStart:   e.ServiceStart.String(),
		HoursPerWeek:   e.HoursPerWeek.InexactFloat64(),
		EntityID:       e.EntityID,
		StateRegion:    e.StateRegion,
		ManagerID:      e.ManagerID,
	}
}

// =============================================================================
// BALANCES
// =============================================================================

// CategoryBalanceDTO is one category's derived balance in hours.
type CategoryBalanceDTO struct {
	LeaveType           string  `json:"leave_type"`
	Source              string  `json:"source"`
	Accrued             float64 `json:"accrued_hours"`
	Opening             float64 `json:"opening_hours"`
	Adjusted            float64 `json:"adjusted_hours"`
	UsedApproved        float64 `json:"used_approved_hours"`
	UsedPending         float64 `json:"used_pending_hours"`
	Available           float64 `json:"available_hours"`
	StandardHoursPerDay float64 `json:"standard_hours_per_day"`
	Eligible            bool    `json:"eligible"`
	EligibilityDate     string  `json:"eligibility_date,omitempty"`
}

// BalancesDTO is the full balance picture for one employee.
type BalancesDTO struct {
	EmployeeID string                        `json:"employee_id"`
	AsOf       string                        `json:"as_of"`
	Categories map[string]CategoryBalanceDTO `json:"categories"`
	Unresolved map[string]string             `json:"unresolved,omitempty"`
}

func toBalancesDTO(b *leave.EmployeeBalances) BalancesDTO {
	out := BalancesDTO{
		EmployeeID: b.EmployeeID,
		AsOf:       b.AsOf.String(),
		Categories: make(map[string]CategoryBalanceDTO, len(b.Categories)),
	}
	for t, cb := range b.Categories {
		dto := CategoryBalanceDTO{
			LeaveType:           string(cb.LeaveType),
			Source:              string(cb.Source),
			Accrued:             cb.Accrued.InexactFloat64(),
			Opening:             cb.Opening.InexactFloat64(),
			Adjusted:            cb.Adjusted.InexactFloat64(),
			UsedApproved:        cb.UsedApproved.InexactFloat64(),
			UsedPending:         cb.UsedPending.InexactFloat64(),
			Available:           cb.Available.InexactFloat64(),
			StandardHoursPerDay: cb.StandardHoursPerDay.InexactFloat64(),
			Eligible:            cb.Eligible,
		}
		if !cb.EligibilityDate.IsZero() {
			dto.EligibilityDate = cb.EligibilityDate.String()
		}
		out.Categories[string(t)] = dto
	}
	if len(b.Unresolved) > 0 {
		out.Unresolved = make(map[string]string, len(b.Unresolved))
		for t, err := range b.Unresolved {
			out.Unresolved[string(t)] = leave.Code(err)
		}
	}
	return out
}

// =============================================================================
// CHARGEABLE PREVIEW
// =============================================================================

// BreakdownDTO mirrors leave.Breakdown for the preview endpoint.
type BreakdownDTO struct {
	TotalDays      int          `json:"total_days"`
	WeekendCount   int          `json:"weekend_count"`
	HolidayCount   int          `json:"holiday_count"`
	ChargeableDays float64      `json:"chargeable_days"`
	Holidays       []HolidayDTO `json:"holidays,omitempty"`
	IsHalfDay      bool         `json:"is_half_day"`
	PartialDayType string       `json:"partial_day_type,omitempty"`
}

func toBreakdownDTO(bd *leave.Breakdown) BreakdownDTO {
	out := BreakdownDTO{
		TotalDays:      bd.TotalDays,
		WeekendCount:   bd.WeekendCount,
		HolidayCount:   bd.HolidayCount,
		ChargeableDays: bd.ChargeableDays.InexactFloat64(),
		IsHalfDay:      bd.IsHalfDay,
		PartialDayType: string(bd.PartialDayType),
	}
	for i := range bd.Holidays {
		out.Holidays = append(out.Holidays, toHolidayDTO(&bd.Holidays[i]))
	}
	return out
}

// =============================================================================
// REQUESTS
// =============================================================================

// SubmitRequestDTO is the body for creating a leave request.
type SubmitRequestDTO struct {
	LeaveType      string `json:"leave_type"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	Reason         string `json:"reason,omitempty"`
	PartialDayType string `json:"partial_day_type,omitempty"`
}

// DeclineRequestDTO carries the decline reason.
type DeclineRequestDTO struct {
	Reason string `json:"reason"`
}

// RequestDTO represents a leave request in API responses.
type RequestDTO struct {
	ID             string     `json:"id"`
	EmployeeID     string     `json:"employee_id"`
	LeaveType      string     `json:"leave_type"`
	StartDate      string     `json:"start_date"`
	EndDate        string     `json:"end_date"`
	Status         string     `json:"status"`
	TotalDays      float64    `json:"total_days"`
	PartialDayType string     `json:"partial_day_type,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	ManagerID      string     `json:"manager_id,omitempty"`
	DecidedBy      string     `json:"decided_by,omitempty"`
	DecidedAt      *time.Time `json:"decided_at,omitempty"`
	DeclineReason  string     `json:"decline_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// CreateRequestResponse wraps a created request with its breakdown and any
// warnings the client may surface.
type CreateRequestResponse struct {
	Request      RequestDTO      `json:"request"`
	Breakdown    BreakdownDTO    `json:"breakdown"`
	AutoApproved bool            `json:"auto_approved"`
	Warnings     []leave.Warning `json:"warnings,omitempty"`
}

func toRequestDTO(r *leave.LeaveRequest) RequestDTO {
	return RequestDTO{
		ID:             r.ID,
		EmployeeID:     r.EmployeeID,
		LeaveType:      string(r.LeaveType),
		StartDate:      r.StartDate.String(),
		EndDate:        r.EndDate.String(),
		Status:         string(r.Status),
		TotalDays:      r.TotalDays.InexactFloat64(),
		PartialDayType: string(r.PartialDayType),
		Reason:         r.Reason,
		ManagerID:      r.ManagerID,
		DecidedBy:      r.DecidedBy,
		DecidedAt:      r.DecidedAt,
		DeclineReason:  r.DeclineReason,
		CreatedAt:      r.CreatedAt,
	}
}

// =============================================================================
// POLICIES AND HOLIDAYS
// =============================================================================

// PolicyDTO wraps the factory JSON schema.
type PolicyDTO = factory.PolicyJSON

// HolidayDTO represents a public holiday row.
type HolidayDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Date        string `json:"date"`
	EntityID    string `json:"entity_id,omitempty"`
	StateRegion string `json:"state_region,omitempty"`
	IsPaid      bool   `json:"is_paid"`
	IsActive    bool   `json:"is_active"`
}

func toHolidayDTO(h *leave.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:          h.ID,
		Name:        h.Name,
		Date:        h.Date.String(),
		EntityID:    h.EntityID,
		StateRegion: h.StateRegion,
		IsPaid:      h.IsPaid,
		IsActive:    h.IsActive,
	}
}

// =============================================================================
// ADMIN
// =============================================================================

// AdjustmentRequest is the body for a manual balance change.
type AdjustmentRequest struct {
	EmployeeID string  `json:"employee_id"`
	LeaveType  string  `json:"leave_type"`
	Kind       string  `json:"kind,omitempty"` // opening_balance | adjustment
	Hours      float64 `json:"hours"`
	Reason     string  `json:"reason,omitempty"`
}

// RecalcResultDTO summarizes a batch recalculation.
type RecalcResultDTO struct {
	Total     int               `json:"total"`
	Processed int               `json:"processed"`
	Failed    int               `json:"failed"`
	Failures  map[string]string `json:"failures,omitempty"`
}

func toRecalcResultDTO(res *leave.RecalcResult) RecalcResultDTO {
	out := RecalcResultDTO{Total: res.Total, Processed: res.Processed, Failed: res.Failed}
	if len(res.Failures) > 0 {
		out.Failures = make(map[string]string, len(res.Failures))
		for _, f := range res.Failures {
			out.Failures[f.EmployeeID] = f.Err.Error()
		}
	}
	return out
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
