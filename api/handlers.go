/*
handlers.go - HTTP API handlers for the meal issuance ledger

PURPOSE:
  Exposes the ledger to counter devices via REST. Handles HTTP
  request/response, JSON serialization, and delegates to the ledger.

ENDPOINTS:
  Employees:
    GET    /api/employees/{id}/eligibility  Advisory "can E eat today?"
    GET    /api/employees/{id}/history      Every meal of E, newest first

  Issuances:
    POST   /api/issuances                   Serve a meal (201 or 409)

  Roster:
    GET    /api/roster/today                Today's meals, most recent first
    GET    /api/roster/today/summary        Counts per window/counter, value

  Misc:
    GET    /api/counters                    Configured counter labels
    GET    /healthz                         Store reachability

REQUEST FLOW:
  1. Parse HTTP request
  2. Read "now" from the server clock (never from the client)
  3. Call the ledger
  4. Serialize response

ERROR HANDLING:
  - 400: ledger.ErrInvalidInput, malformed JSON
  - 409: Already served today (RejectionDTO, not an ErrorResponse)
  - 503: ledger.ErrStorageUnavailable
  - 500: Anything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Krishna78600/Samosa-Man-App/clock"
	"github.com/Krishna78600/Samosa-Man-App/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger   *ledger.Ledger
	Clock    clock.Clock
	Counters []CounterDTO
	Pinger   Pinger

	log *zap.Logger
}

// NewHandler creates a handler over a ledger. A nil clock uses the system clock.
func NewHandler(l *ledger.Ledger, clk clock.Clock, log *zap.Logger) *Handler {
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Ledger:   l,
		Clock:    clk,
		Counters: []CounterDTO{},
		log:      log.Named("api"),
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// CheckEligibility tells the counter whether the employee can still eat today.
func (h *Handler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	res, err := h.Ledger.CheckEligibility(r.Context(), chi.URLParam(r, "id"), h.Clock.Now())
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	dto := EligibilityDTO{
		EmployeeID: string(res.EmployeeID),
		ServiceDay: string(res.ServiceDay),
		Eligible:   res.Eligible(),
	}
	if res.Served != nil {
		served := toServedDTO(res.Served)
		dto.Served = &served
		dto.Message = servedMessage(res.Served)
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetHistory returns every meal of one employee.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	recs, err := h.Ledger.ListEmployeeHistory(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	// Echo the normalized id the ledger searched for.
	empID, _ := ledger.NormalizeEmployeeID(id)
	writeJSON(w, http.StatusOK, HistoryDTO{
		EmployeeID: string(empID),
		Count:      len(recs),
		Records:    toRecordDTOs(recs),
	})
}

// =============================================================================
// ISSUANCE HANDLERS
// =============================================================================

// IssueMeal serves a meal. 201 when recorded, 409 when already served today.
func (h *Handler) IssueMeal(w http.ResponseWriter, r *http.Request) {
	var req IssueMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	window, err := ledger.ParseMealWindow(req.MealWindow)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	res, err := h.Ledger.IssueMeal(r.Context(), req.EmployeeID, window, ledger.CounterID(req.CounterID), h.Clock.Now())
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	if !res.Issued() {
		writeJSON(w, http.StatusConflict, RejectionDTO{
			Status:     string(ledger.OutcomeRejected),
			Error:      "already served",
			Message:    servedMessage(res.Rejection),
			EmployeeID: string(res.Record.EmployeeID),
			ServiceDay: string(res.Record.ServiceDay),
			Served:     toServedDTO(res.Rejection),
		})
		return
	}

	writeJSON(w, http.StatusCreated, IssuanceDTO{
		Status: string(ledger.OutcomeIssued),
		Record: toRecordDTO(res.Record),
	})
}

// =============================================================================
// ROSTER HANDLERS
// =============================================================================

// GetTodayRoster lists today's meals, most recent first.
func (h *Handler) GetTodayRoster(w http.ResponseWriter, r *http.Request) {
	now := h.Clock.Now()
	recs, err := h.Ledger.ListTodayRoster(r.Context(), now)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RosterDTO{
		ServiceDay: string(h.Ledger.Calendar().Day(now)),
		Count:      len(recs),
		Records:    toRecordDTOs(recs),
	})
}

// GetTodaySummary totals today's meals.
func (h *Handler) GetTodaySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Ledger.RosterSummary(r.Context(), h.Clock.Now())
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// =============================================================================
// MISC HANDLERS
// =============================================================================

// ListCounters returns the configured counter labels. Issuance accepts any
// positive counter, listed or not.
func (h *Handler) ListCounters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Counters)
}

// Health reports 503 when the store cannot be reached.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Pinger != nil {
		if err := h.Pinger.Ping(r.Context()); err != nil {
			h.log.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, HealthDTO{Status: "unavailable", Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthDTO{Status: "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	case ledger.IsUnavailable(err):
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable, try again", err)
	default:
		h.log.Error("unexpected ledger error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
