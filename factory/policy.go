/*
Package factory provides JSON to Go policy conversion and the statutory
default policy set.

PURPOSE:
  Converts JSON policy definitions into leave.LeavePolicy values. This
  enables policy configuration without code changes - HR can define
  policies in JSON through the admin API, and the factory creates the
  proper Go structs. It also owns the built-in NES (National Employment
  Standards, AU) defaults that back every employee when no company policy
  matches.

JSON SCHEMA:
  {
    "id": "annual-default",
    "name": "Annual Leave",
    "leave_type": "annual",
    "accrual_unit": "days",
    "accrual_rate": 20,
    "standard_hours_per_day": 7.6,
    "employment_types": ["full_time", "part_time"],
    "entity_id": "",
    "max_carryover_hours": 0,
    "is_default": true
  }

KEY FEATURES:
  - Validates JSON structure and category
  - Sets sensible defaults (7.6 h/day, 38 h/week reference)
  - Builds the NES statutory floor as is_system rows

USAGE:
  f := factory.New()
  policy, err := f.ParsePolicy(jsonStr)

  for _, p := range factory.DefaultNESPolicies() {
      store.SavePolicy(ctx, &p)
  }

SEE ALSO:
  - leave/policy.go: resolution of company vs system policies
  - cmd/server: the seed command that installs the defaults
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlashr/leave-engine/leave"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of a leave policy.
type PolicyJSON struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	LeaveType           string   `json:"leave_type"`
	EntityID            string   `json:"entity_id,omitempty"`
	EmploymentTypes     []string `json:"employment_types,omitempty"`
	Country             string   `json:"country,omitempty"`
	AccrualUnit         string   `json:"accrual_unit"`
	AccrualRate         float64  `json:"accrual_rate"`
	StandardHoursPerDay float64  `json:"standard_hours_per_day,omitempty"`
	HoursPerWeekRef     float64  `json:"hours_per_week_ref,omitempty"`
	MinServiceYears     int      `json:"min_service_years,omitempty"`
	RateAfterThreshold  float64  `json:"rate_after_threshold,omitempty"`
	MaxCarryoverHours   float64  `json:"max_carryover_hours,omitempty"`
	IsSystem            bool     `json:"is_system,omitempty"`
	IsDefault           bool     `json:"is_default,omitempty"`
	IsActive            *bool    `json:"is_active,omitempty"`
}

// Defaults applied when the JSON omits them.
const (
	DefaultStandardHoursPerDay = 7.6
	DefaultHoursPerWeekRef     = 38.0
)

// =============================================================================
// POLICY FACTORY
// =============================================================================

// Factory converts JSON policies to leave.LeavePolicy.
type Factory struct{}

// New creates a policy factory.
func New() *Factory {
	return &Factory{}
}

// ParsePolicy parses a JSON string into a LeavePolicy.
func (f *Factory) ParsePolicy(jsonStr string) (*leave.LeavePolicy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, fmt.Errorf("failed to parse policy JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts PolicyJSON to a LeavePolicy, applying defaults.
func (f *Factory) FromJSON(pj PolicyJSON) (*leave.LeavePolicy, error) {
	t := leave.LeaveType(pj.LeaveType)
	if !t.Valid() {
		return nil, fmt.Errorf("unknown leave type %q", pj.LeaveType)
	}
	if pj.ID == "" || pj.Name == "" {
		return nil, fmt.Errorf("policy id and name are required")
	}
	unit := leave.AccrualUnit(pj.AccrualUnit)
	switch unit {
	case leave.UnitDays, leave.UnitWeeks, leave.UnitHours:
	default:
		return nil, fmt.Errorf("unknown accrual unit %q", pj.AccrualUnit)
	}
	if pj.AccrualRate < 0 {
		return nil, fmt.Errorf("accrual rate must not be negative")
	}

	stdHours := pj.StandardHoursPerDay
	if stdHours == 0 {
		stdHours = DefaultStandardHoursPerDay
	}
	weekRef := pj.HoursPerWeekRef
	if weekRef == 0 {
		weekRef = DefaultHoursPerWeekRef
	}
	active := true
	if pj.IsActive != nil {
		active = *pj.IsActive
	}

	ets := make([]leave.EmploymentType, 0, len(pj.EmploymentTypes))
	for _, e := range pj.EmploymentTypes {
		ets = append(ets, leave.EmploymentType(e))
	}

	now := time.Now().UTC()
	return &leave.LeavePolicy{
		ID:                  pj.ID,
		Name:                pj.Name,
		LeaveType:           t,
		EntityID:            pj.EntityID,
		EmploymentTypes:     ets,
		Country:             pj.Country,
		AccrualUnit:         unit,
		AccrualRate:         decimal.NewFromFloat(pj.AccrualRate),
		StandardHoursPerDay: decimal.NewFromFloat(stdHours),
		HoursPerWeekRef:     decimal.NewFromFloat(weekRef),
		MinServiceYears:     pj.MinServiceYears,
		RateAfterThreshold:  decimal.NewFromFloat(pj.RateAfterThreshold),
		MaxCarryoverHours:   decimal.NewFromFloat(pj.MaxCarryoverHours),
		IsSystem:            pj.IsSystem,
		IsDefault:           pj.IsDefault,
		IsActive:            active,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// ToJSON converts a LeavePolicy back to its JSON representation.
func (f *Factory) ToJSON(p *leave.LeavePolicy) PolicyJSON {
	ets := make([]string, 0, len(p.EmploymentTypes))
	for _, e := range p.EmploymentTypes {
		ets = append(ets, string(e))
	}
	active := p.IsActive
	return PolicyJSON{
		ID:                  p.ID,
		Name:                p.Name,
		LeaveType:           string(p.LeaveType),
		EntityID:            p.EntityID,
		EmploymentTypes:     ets,
		Country:             p.Country,
		AccrualUnit:         string(p.AccrualUnit),
		AccrualRate:         p.AccrualRate.InexactFloat64(),
		StandardHoursPerDay: p.StandardHoursPerDay.InexactFloat64(),
		HoursPerWeekRef:     p.HoursPerWeekRef.InexactFloat64(),
		MinServiceYears:     p.MinServiceYears,
		RateAfterThreshold:  p.RateAfterThreshold.InexactFloat64(),
		MaxCarryoverHours:   p.MaxCarryoverHours.InexactFloat64(),
		IsSystem:            p.IsSystem,
		IsDefault:           p.IsDefault,
		IsActive:            &active,
	}
}

// =============================================================================
// STATUTORY DEFAULTS (NES, AU)
// =============================================================================

// DefaultNESPolicies returns the Australian statutory floor as system rows:
// annual 20 days/year, personal 10 days/year, long service 0.8667 weeks/year
// payable after 7 years, all at 7.6 hours per standard day. Casual employees
// are excluded from the paid categories at request time, not here.
func DefaultNESPolicies() []leave.LeavePolicy {
	now := time.Now().UTC()
	std := decimal.NewFromFloat(DefaultStandardHoursPerDay)
	week := decimal.NewFromFloat(DefaultHoursPerWeekRef)

	base := leave.LeavePolicy{
		Country:             "AU",
		AccrualUnit:         leave.UnitDays,
		StandardHoursPerDay: std,
		HoursPerWeekRef:     week,
		IsSystem:            true,
		IsDefault:           true,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	annual := base
	annual.ID = "nes-annual-au"
	annual.Name = "Annual Leave (NES)"
	annual.LeaveType = leave.LeaveAnnual
	annual.AccrualRate = decimal.NewFromInt(20)

	personal := base
	personal.ID = "nes-personal-au"
	personal.Name = "Personal/Carer's Leave (NES)"
	personal.LeaveType = leave.LeavePersonal
	personal.AccrualRate = decimal.NewFromInt(10)

	longService := base
	longService.ID = "nes-long-service-au"
	longService.Name = "Long Service Leave"
	longService.LeaveType = leave.LeaveLongService
	longService.AccrualUnit = leave.UnitWeeks
	longService.AccrualRate = decimal.NewFromFloat(0.8667)
	longService.MinServiceYears = 7

	return []leave.LeavePolicy{annual, personal, longService}
}

// Seed installs the statutory defaults into a policy store, skipping rows
// that already exist so local edits are untouched.
func Seed(ctx context.Context, store leave.PolicyStore) (int, error) {
	seeded := 0
	for _, p := range DefaultNESPolicies() {
		existing, err := store.GetPolicy(ctx, p.ID)
		if err != nil {
			return seeded, fmt.Errorf("checking policy %s: %w", p.ID, err)
		}
		if existing != nil {
			continue
		}
		if err := store.SavePolicy(ctx, &p); err != nil {
			return seeded, fmt.Errorf("seeding policy %s: %w", p.ID, err)
		}
		seeded++
	}
	return seeded, nil
}
