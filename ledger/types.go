/*
Package ledger provides the meal issuance ledger.

PURPOSE:
  Records that an employee received a meal and guarantees that no employee
  is served twice on the same service day, even when several counters write
  at the same moment from different devices.

KEY CONCEPTS IN THIS FILE (types.go):
  - EmployeeID: Opaque, trimmed, upper-case employee identifier
  - MealWindow: MORNING or EVENING
  - CounterID: Positive counter number (descriptive only, no capacity)
  - IssuanceRecord: The single persisted entity, append-only
  - EligibilityResult / IssuanceResult: Outcomes returned to callers

DESIGN PRINCIPLES:
  1. Append-only: records are created once and never modified
  2. One key: (EmployeeID, ServiceDay) is the uniqueness partition
  3. Outcomes vs errors: "already served" is a result, not an error

SEE ALSO:
  - time.go: ServiceDay derivation
  - store.go: Persistence contract
  - ledger.go: Eligibility checker, issuance writer, roster/history reader
*/
package ledger

import (
	"strings"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// EmployeeID identifies an employee. Always upper-case once normalized.
type EmployeeID string

// NormalizeEmployeeID trims and upper-cases raw input.
// Returns a ValidationError when nothing is left.
func NormalizeEmployeeID(raw string) (EmployeeID, error) {
	id := strings.ToUpper(strings.TrimSpace(raw))
	if id == "" {
		return "", &ValidationError{Field: "employee_id", Reason: "must not be empty"}
	}
	return EmployeeID(id), nil
}

func (id EmployeeID) String() string { return string(id) }

// CounterID identifies the dispensing counter.
type CounterID int

func (c CounterID) Valid() bool { return c > 0 }

// =============================================================================
// MEAL WINDOW
// =============================================================================

type MealWindow string

const (
	MealMorning MealWindow = "MORNING"
	MealEvening MealWindow = "EVENING"
)

// MealWindows lists the windows in display order.
func MealWindows() []MealWindow {
	return []MealWindow{MealMorning, MealEvening}
}

// ParseMealWindow accepts any casing and surrounding whitespace.
func ParseMealWindow(raw string) (MealWindow, error) {
	w := MealWindow(strings.ToUpper(strings.TrimSpace(raw)))
	if !w.Valid() {
		return "", &ValidationError{Field: "meal_window", Value: raw, Reason: "must be MORNING or EVENING"}
	}
	return w, nil
}

func (w MealWindow) Valid() bool {
	return w == MealMorning || w == MealEvening
}

func (w MealWindow) String() string { return string(w) }

// =============================================================================
// ISSUANCE RECORD - The only persisted entity
// =============================================================================

// IssuanceRecord records one meal given to one employee.
//
// INVARIANTS:
//   - At most one record per (EmployeeID, ServiceDay).
//   - ServiceDay is derived from ServedAtMillis at write time and never changes.
//   - Records are never updated or deleted.
type IssuanceRecord struct {
	ID             string
	EmployeeID     EmployeeID
	MealWindow     MealWindow
	CounterID      CounterID
	ServedAtMillis int64
	ServiceDay     ServiceDay
}

// ServedAt returns the creation time in UTC.
func (r IssuanceRecord) ServedAt() time.Time {
	return time.UnixMilli(r.ServedAtMillis).UTC()
}

// =============================================================================
// OUTCOMES
// =============================================================================

// AlreadyServed describes the record that blocks another meal on the same day.
type AlreadyServed struct {
	RecordID       string
	MealWindow     MealWindow
	CounterID      CounterID
	ServedAtMillis int64
}

func alreadyServedBy(r IssuanceRecord) *AlreadyServed {
	return &AlreadyServed{
		RecordID:       r.ID,
		MealWindow:     r.MealWindow,
		CounterID:      r.CounterID,
		ServedAtMillis: r.ServedAtMillis,
	}
}

// EligibilityResult is advisory. Served is nil when the employee is eligible.
type EligibilityResult struct {
	EmployeeID EmployeeID
	ServiceDay ServiceDay
	Served     *AlreadyServed
}

func (r EligibilityResult) Eligible() bool { return r.Served == nil }

type IssuanceOutcome string

const (
	OutcomeIssued   IssuanceOutcome = "issued"
	OutcomeRejected IssuanceOutcome = "rejected"
)

// IssuanceResult is authoritative over any earlier EligibilityResult.
// Record is the new record when issued, or the conflicting one when rejected.
type IssuanceResult struct {
	Outcome   IssuanceOutcome
	Record    IssuanceRecord
	Rejection *AlreadyServed
}

func (r IssuanceResult) Issued() bool { return r.Outcome == OutcomeIssued }
