/*
Public holiday calendar.

PURPOSE:
  Holidays are configuration rows scoped by legal entity and state/region,
  both nullable. The effective calendar for an employee is the union of rows
  matching their entity and state, global rows included, deduplicated by
  date. Only active rows participate.

KEY CONCEPTS:
  - Scoping: EntityID == "" means all entities, StateRegion == "" means all
    states. A NSW-only holiday never affects a VIC employee.
  - Dedup: two rows on the same date (say a global row and an entity row)
    count as one holiday.

SEE ALSO:
  - chargeable.go: consumes the effective set when classifying days
*/
package leave

import (
	"context"
	"sort"
	"time"
)

// Holiday is one public holiday row.
type Holiday struct {
	ID          string
	Name        string
	Date        Date
	EntityID    string // empty = all entities
	StateRegion string // empty = all states
	IsPaid      bool
	IsActive    bool
	CreatedAt   time.Time
}

// MatchesScope reports whether the holiday applies to the given entity and
// state. Empty scope fields on the holiday match everything.
func (h *Holiday) MatchesScope(entityID, stateRegion string) bool {
	if h.EntityID != "" && h.EntityID != entityID {
		return false
	}
	if h.StateRegion != "" && h.StateRegion != stateRegion {
		return false
	}
	return true
}

// HolidayCalendar answers which holidays apply to an employee over a range.
type HolidayCalendar interface {
	HolidaysInRange(ctx context.Context, entityID, stateRegion string, from, to Date) ([]Holiday, error)
}

// EffectiveHolidays filters rows to the employee's scope and deduplicates by
// date, keeping the most specific row (entity-scoped over global). The result
// is keyed by the date's YYYY-MM-DD string.
func EffectiveHolidays(rows []Holiday, entityID, stateRegion string) map[string]Holiday {
	set := make(map[string]Holiday)
	for _, h := range rows {
		if !h.IsActive || !h.MatchesScope(entityID, stateRegion) {
			continue
		}
		key := h.Date.String()
		existing, ok := set[key]
		if !ok || specificity(h) > specificity(existing) {
			set[key] = h
		}
	}
	return set
}

func specificity(h Holiday) int {
	n := 0
	if h.EntityID != "" {
		n++
	}
	if h.StateRegion != "" {
		n++
	}
	return n
}

// SortedHolidays returns the effective set ordered by date, for display.
func SortedHolidays(set map[string]Holiday) []Holiday {
	out := make([]Holiday, 0, len(set))
	for _, h := range set {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
