/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger's domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Issuance:
    IssueMealRequest, IssuanceRecordDTO, IssuanceDTO, RejectionDTO, ServedDTO

  Eligibility:
    EligibilityDTO

  Roster / History:
    RosterDTO, RosterSummaryDTO, CounterCountDTO, HistoryDTO

  Misc:
    CounterDTO, HealthDTO, ErrorResponse

TIMESTAMPS:
  Every record carries served_at_epoch_millis (authoritative) and served_at
  (RFC 3339, UTC) for display.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"fmt"
	"time"

	"github.com/Krishna78600/Samosa-Man-App/ledger"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// IssueMealRequest is the body of POST /api/issuances.
// The timestamp is never taken from the client.
type IssueMealRequest struct {
	EmployeeID string `json:"employee_id"`
	MealWindow string `json:"meal_window"`
	CounterID  int    `json:"counter_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type IssuanceRecordDTO struct {
	ID                  string    `json:"id"`
	EmployeeID          string    `json:"employee_id"`
	MealWindow          string    `json:"meal_window"`
	CounterID           int       `json:"counter_id"`
	ServedAtEpochMillis int64     `json:"served_at_epoch_millis"`
	ServedAt            time.Time `json:"served_at"`
	ServiceDay          string    `json:"service_day"`
}

// ServedDTO names the meal that blocks another one today.
type ServedDTO struct {
	RecordID            string    `json:"record_id"`
	MealWindow          string    `json:"meal_window"`
	CounterID           int       `json:"counter_id"`
	ServedAtEpochMillis int64     `json:"served_at_epoch_millis"`
	ServedAt            time.Time `json:"served_at"`
}

type EligibilityDTO struct {
	EmployeeID string     `json:"employee_id"`
	ServiceDay string     `json:"service_day"`
	Eligible   bool       `json:"eligible"`
	Served     *ServedDTO `json:"served,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// IssuanceDTO is returned with 201 Created.
type IssuanceDTO struct {
	Status string            `json:"status"`
	Record IssuanceRecordDTO `json:"record"`
}

// RejectionDTO is returned with 409 Conflict when the employee was already served.
type RejectionDTO struct {
	Status     string    `json:"status"`
	Error      string    `json:"error"`
	Message    string    `json:"message"`
	EmployeeID string    `json:"employee_id"`
	ServiceDay string    `json:"service_day"`
	Served     ServedDTO `json:"served"`
}

type RosterDTO struct {
	ServiceDay string              `json:"service_day"`
	Count      int                 `json:"count"`
	Records    []IssuanceRecordDTO `json:"records"`
}

type CounterCountDTO struct {
	CounterID int `json:"counter_id"`
	Count     int `json:"count"`
}

type RosterSummaryDTO struct {
	ServiceDay string            `json:"service_day"`
	Total      int               `json:"total"`
	ByWindow   map[string]int    `json:"by_window"`
	ByCounter  []CounterCountDTO `json:"by_counter"`
	Value      string            `json:"value"`
}

type HistoryDTO struct {
	EmployeeID string              `json:"employee_id"`
	Count      int                 `json:"count"`
	Records    []IssuanceRecordDTO `json:"records"`
}

// CounterDTO is a display label for a counter number.
type CounterDTO struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

type HealthDTO struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toRecordDTO(r ledger.IssuanceRecord) IssuanceRecordDTO {
	return IssuanceRecordDTO{
		ID:                  r.ID,
		EmployeeID:          string(r.EmployeeID),
		MealWindow:          string(r.MealWindow),
		CounterID:           int(r.CounterID),
		ServedAtEpochMillis: r.ServedAtMillis,
		ServedAt:            r.ServedAt(),
		ServiceDay:          string(r.ServiceDay),
	}
}

func toRecordDTOs(recs []ledger.IssuanceRecord) []IssuanceRecordDTO {
	dtos := make([]IssuanceRecordDTO, len(recs))
	for i, r := range recs {
		dtos[i] = toRecordDTO(r)
	}
	return dtos
}

func toServedDTO(s *ledger.AlreadyServed) ServedDTO {
	return ServedDTO{
		RecordID:            s.RecordID,
		MealWindow:          string(s.MealWindow),
		CounterID:           int(s.CounterID),
		ServedAtEpochMillis: s.ServedAtMillis,
		ServedAt:            time.UnixMilli(s.ServedAtMillis).UTC(),
	}
}

func toSummaryDTO(s ledger.RosterSummary) RosterSummaryDTO {
	dto := RosterSummaryDTO{
		ServiceDay: string(s.ServiceDay),
		Total:      s.Total,
		ByWindow:   make(map[string]int, len(s.ByWindow)),
		ByCounter:  make([]CounterCountDTO, len(s.ByCounter)),
		Value:      s.Value.StringFixed(2),
	}
	for w, n := range s.ByWindow {
		dto.ByWindow[string(w)] = n
	}
	for i, c := range s.ByCounter {
		dto.ByCounter[i] = CounterCountDTO{CounterID: int(c.CounterID), Count: c.Count}
	}
	return dto
}

// servedMessage is the operator-facing text shown at the counter.
func servedMessage(s *ledger.AlreadyServed) string {
	return fmt.Sprintf("Employee already received %s at Counter %d", s.MealWindow, s.CounterID)
}
