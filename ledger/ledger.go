/*
ledger.go - Eligibility checker, issuance writer, roster and history reader

PURPOSE:
  The Ledger is the only API the outer layers (HTTP, UI) use:
    CheckEligibility     advisory "has E been served today, and where?"
    IssueMeal            authoritative guarded write
    ListTodayRoster      records of today's service day, most recent first
    ListEmployeeHistory  every record of one employee, newest day first

CRITICAL INVARIANT:
  At most one IssuanceRecord per (EmployeeID, ServiceDay).

  The ledger does NOT enforce this with a lookup followed by a write. Between
  the two, another counter on another device can insert. IssueMeal goes
  straight to Store.InsertIfAbsent and trusts the storage engine's
  conditional insert. CheckEligibility exists for fast feedback only.

SERVICE DAY:
  Derived from the server-side timestamp through a single Calendar. A client
  can never choose which day a record lands in.

NO RETRIES:
  A rejection is a legitimate business outcome. A storage failure is
  surfaced as-is; retry policy belongs to the caller.

EXAMPLE:
  l := ledger.New(store, ledger.UTCCalendar(), ledger.WithLogger(log))
  res, err := l.IssueMeal(ctx, "EMP001", ledger.MealMorning, 1, time.Now())
  if err == nil && !res.Issued() {
      fmt.Printf("already had %s at counter %d\n",
          res.Rejection.MealWindow, res.Rejection.CounterID)
  }
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store operation names used in logs, metrics and StorageError.Op.
const (
	OpFindByEmployeeAndDay = "find_by_employee_and_day"
	OpInsertIfAbsent       = "insert_if_absent"
	OpListByDay            = "list_by_day"
	OpListByEmployee       = "list_by_employee"
)

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	store       Store
	calendar    Calendar
	log         *zap.Logger
	metrics     *Metrics
	prices      Prices
	newID       func() string
	callTimeout time.Duration
}

type Option func(*Ledger)

func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log.Named("ledger")
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithPrices sets the per-window meal value used by RosterSummary.
func WithPrices(p Prices) Option {
	return func(l *Ledger) { l.prices = p }
}

// WithIDGenerator replaces the uuid record id generator.
func WithIDGenerator(fn func() string) Option {
	return func(l *Ledger) {
		if fn != nil {
			l.newID = fn
		}
	}
}

// WithCallTimeout bounds every store call. A timeout surfaces as ErrStorageUnavailable.
func WithCallTimeout(d time.Duration) Option {
	return func(l *Ledger) { l.callTimeout = d }
}

// New creates a ledger over a long-lived store handle.
func New(store Store, calendar Calendar, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		calendar: calendar,
		log:      zap.NewNop(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) Calendar() Calendar { return l.calendar }

// =============================================================================
// ELIGIBILITY CHECKER (advisory)
// =============================================================================

// CheckEligibility reports whether employeeID can still be served on now's service day.
func (l *Ledger) CheckEligibility(ctx context.Context, employeeID string, now time.Time) (EligibilityResult, error) {
	id, err := NormalizeEmployeeID(employeeID)
	if err != nil {
		return EligibilityResult{}, err
	}
	if err := validateNow(now); err != nil {
		return EligibilityResult{}, err
	}

	day := l.calendar.DayOfMillis(now.UnixMilli())
	var existing *IssuanceRecord
	err = l.call(ctx, OpFindByEmployeeAndDay, func(ctx context.Context) error {
		var ferr error
		existing, ferr = l.store.FindByEmployeeAndDay(ctx, id, day)
		return ferr
	})
	if err != nil {
		return EligibilityResult{}, err
	}

	res := EligibilityResult{EmployeeID: id, ServiceDay: day}
	if existing != nil {
		res.Served = alreadyServedBy(*existing)
	}
	l.metrics.recordCheck(res.Eligible())
	return res, nil
}

// =============================================================================
// ISSUANCE WRITER (authoritative)
// =============================================================================

// IssueMeal records a meal unless the employee already has one on now's service day.
func (l *Ledger) IssueMeal(ctx context.Context, employeeID string, window MealWindow, counter CounterID, now time.Time) (IssuanceResult, error) {
	id, err := NormalizeEmployeeID(employeeID)
	if err != nil {
		return IssuanceResult{}, err
	}
	if !window.Valid() {
		return IssuanceResult{}, &ValidationError{Field: "meal_window", Value: string(window), Reason: "must be MORNING or EVENING"}
	}
	if !counter.Valid() {
		return IssuanceResult{}, &ValidationError{Field: "counter_id", Reason: "must be a positive integer"}
	}
	if err := validateNow(now); err != nil {
		return IssuanceResult{}, err
	}

	servedAt := now.UnixMilli()
	candidate := IssuanceRecord{
		ID:             l.newID(),
		EmployeeID:     id,
		MealWindow:     window,
		CounterID:      counter,
		ServedAtMillis: servedAt,
		ServiceDay:     l.calendar.DayOfMillis(servedAt),
	}

	var ins InsertResult
	err = l.call(ctx, OpInsertIfAbsent, func(ctx context.Context) error {
		var ierr error
		ins, ierr = l.store.InsertIfAbsent(ctx, candidate)
		return ierr
	})
	if err != nil {
		return IssuanceResult{}, err
	}

	if !ins.Inserted {
		l.metrics.recordRejected(window)
		l.log.Info("meal rejected: already served",
			zap.String("employee_id", string(id)),
			zap.String("service_day", string(candidate.ServiceDay)),
			zap.String("requested_window", string(window)),
			zap.Int("requested_counter", int(counter)),
			zap.String("existing_window", string(ins.Existing.MealWindow)),
			zap.Int("existing_counter", int(ins.Existing.CounterID)),
		)
		return IssuanceResult{
			Outcome:   OutcomeRejected,
			Record:    ins.Existing,
			Rejection: alreadyServedBy(ins.Existing),
		}, nil
	}

	l.metrics.recordIssued(window)
	l.log.Info("meal issued",
		zap.String("record_id", candidate.ID),
		zap.String("employee_id", string(id)),
		zap.String("service_day", string(candidate.ServiceDay)),
		zap.String("window", string(window)),
		zap.Int("counter", int(counter)),
	)
	return IssuanceResult{Outcome: OutcomeIssued, Record: candidate}, nil
}

// =============================================================================
// ROSTER / HISTORY READER
// =============================================================================

// ListTodayRoster returns the records of now's service day, most recent first.
func (l *Ledger) ListTodayRoster(ctx context.Context, now time.Time) ([]IssuanceRecord, error) {
	if err := validateNow(now); err != nil {
		return nil, err
	}
	return l.ListDay(ctx, l.calendar.DayOfMillis(now.UnixMilli()))
}

// ListDay returns the records of one service day, most recent first.
func (l *Ledger) ListDay(ctx context.Context, day ServiceDay) ([]IssuanceRecord, error) {
	day, err := ParseServiceDay(string(day))
	if err != nil {
		return nil, err
	}

	var recs []IssuanceRecord
	err = l.call(ctx, OpListByDay, func(ctx context.Context) error {
		var lerr error
		recs, lerr = l.store.ListByDay(ctx, day)
		return lerr
	})
	if err != nil {
		return nil, err
	}
	if recs == nil {
		return []IssuanceRecord{}, nil
	}
	SortRoster(recs)
	return recs, nil
}

// ListEmployeeHistory returns every record of the employee, newest service day first.
func (l *Ledger) ListEmployeeHistory(ctx context.Context, employeeID string) ([]IssuanceRecord, error) {
	id, err := NormalizeEmployeeID(employeeID)
	if err != nil {
		return nil, err
	}

	var recs []IssuanceRecord
	err = l.call(ctx, OpListByEmployee, func(ctx context.Context) error {
		var lerr error
		recs, lerr = l.store.ListByEmployee(ctx, id)
		return lerr
	})
	if err != nil {
		return nil, err
	}
	if recs == nil {
		return []IssuanceRecord{}, nil
	}
	SortHistory(recs)
	return recs, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// call runs one store operation with the optional timeout and classifies failures.
func (l *Ledger) call(ctx context.Context, op string, fn func(context.Context) error) error {
	if l.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.callTimeout)
		defer cancel()
	}

	start := time.Now()
	// A nil error is final even past the deadline: the store may have committed.
	err := fn(ctx)
	l.metrics.observeStore(op, time.Since(start), err)
	if err != nil {
		err = Unavailable(op, err)
		l.log.Warn("store call failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

func validateNow(now time.Time) error {
	if now.IsZero() {
		return &ValidationError{Field: "now", Reason: "timestamp is required"}
	}
	return nil
}
