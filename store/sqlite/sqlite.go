/*
Package sqlite provides a SQLite-backed implementation of ledger.Store.

PURPOSE:
  Durable single-node storage for issuance records. Every counter process on
  the same host shares one database file; SQLite's unique index arbitrates
  concurrent inserts across processes.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on meal_issuances
  - No DELETE statements on meal_issuances

KEY TABLE:
  meal_issuances: one row per meal handed out

INDEXES:
  - idx_unique_employee_day: Enforces at most one meal per employee per day
  - idx_issuances_day_served: Today's roster (hot path)
  - idx_issuances_employee_day: Employee history

CONCURRENCY:
  InsertIfAbsent is a single INSERT ... ON CONFLICT DO NOTHING. The database
  decides the winner; no Go-side lock is taken. When the insert is ignored
  the conflicting row is read back and returned.

WAL MODE:
  Opened with WAL and a busy timeout so readers never block the writer and
  concurrent writers queue instead of failing with SQLITE_BUSY.

USAGE:
  store, err := sqlite.New("./data/meals.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  l := ledger.New(store, ledger.UTCCalendar())

SEE ALSO:
  - ledger/store.go: Interface definition
  - store/gormstore: Same schema on a shared Postgres server
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/Krishna78600/Samosa-Man-App/ledger"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

type Option func(*Store)

func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log.Named("sqlite")
		}
	}
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if isMemory(dbPath) {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, log: zap.NewNop()}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	store.log.Info("sqlite store ready", zap.String("path", dbPath))

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meal_issuances (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		meal_window TEXT NOT NULL CHECK (meal_window IN ('MORNING', 'EVENING')),
		counter_id INTEGER NOT NULL CHECK (counter_id > 0),
		served_at_ms INTEGER NOT NULL,
		service_day TEXT NOT NULL
	);

	-- CRITICAL: one meal per employee per service day
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_employee_day
		ON meal_issuances(employee_id, service_day);

	CREATE INDEX IF NOT EXISTS idx_issuances_day_served
		ON meal_issuances(service_day, served_at_ms DESC);

	CREATE INDEX IF NOT EXISTS idx_issuances_employee_day
		ON meal_issuances(employee_id, service_day DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ISSUANCE STORE (ledger.Store interface)
// =============================================================================

const selectColumns = `SELECT id, employee_id, meal_window, counter_id, served_at_ms, service_day FROM meal_issuances`

func (s *Store) FindByEmployeeAndDay(ctx context.Context, employeeID ledger.EmployeeID, day ledger.ServiceDay) (*ledger.IssuanceRecord, error) {
	rec, err := s.findOne(ctx, employeeID, day)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, ledger.Unavailable(ledger.OpFindByEmployeeAndDay, err)
	}
	return &rec, nil
}

// InsertIfAbsent adds a record unless (employee_id, service_day) is taken.
func (s *Store) InsertIfAbsent(ctx context.Context, rec ledger.IssuanceRecord) (ledger.InsertResult, error) {
	query := `
		INSERT INTO meal_issuances
		(id, employee_id, meal_window, counter_id, served_at_ms, service_day)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, service_day) DO NOTHING
	`

	res, err := s.db.ExecContext(ctx, query,
		rec.ID,
		string(rec.EmployeeID),
		string(rec.MealWindow),
		int(rec.CounterID),
		rec.ServedAtMillis,
		string(rec.ServiceDay),
	)
	if err != nil {
		return ledger.InsertResult{}, ledger.Unavailable(ledger.OpInsertIfAbsent, fmt.Errorf("failed to insert issuance: %w", err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return ledger.InsertResult{}, ledger.Unavailable(ledger.OpInsertIfAbsent, err)
	}
	if n == 1 {
		return ledger.Inserted(), nil
	}

	// Lost the race. The winner is committed, so it is visible now.
	existing, err := s.findOne(ctx, rec.EmployeeID, rec.ServiceDay)
	if err != nil {
		return ledger.InsertResult{}, ledger.Unavailable(ledger.OpInsertIfAbsent, fmt.Errorf("failed to load conflicting issuance: %w", err))
	}
	return ledger.AlreadyExists(existing), nil
}

// ListByDay returns the day's records, most recent first.
func (s *Store) ListByDay(ctx context.Context, day ledger.ServiceDay) ([]ledger.IssuanceRecord, error) {
	query := selectColumns + `
		WHERE service_day = ?
		ORDER BY served_at_ms DESC, id ASC
	`
	recs, err := s.queryIssuances(ctx, query, string(day))
	if err != nil {
		return nil, ledger.Unavailable(ledger.OpListByDay, err)
	}
	return recs, nil
}

// ListByEmployee returns the employee's records, newest service day first.
func (s *Store) ListByEmployee(ctx context.Context, employeeID ledger.EmployeeID) ([]ledger.IssuanceRecord, error) {
	query := selectColumns + `
		WHERE employee_id = ?
		ORDER BY service_day DESC, served_at_ms DESC
	`
	recs, err := s.queryIssuances(ctx, query, string(employeeID))
	if err != nil {
		return nil, ledger.Unavailable(ledger.OpListByEmployee, err)
	}
	return recs, nil
}

func (s *Store) findOne(ctx context.Context, employeeID ledger.EmployeeID, day ledger.ServiceDay) (ledger.IssuanceRecord, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE employee_id = ? AND service_day = ?`,
		string(employeeID), string(day))
	return scanIssuance(row)
}

func (s *Store) queryIssuances(ctx context.Context, query string, args ...any) ([]ledger.IssuanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query issuances: %w", err)
	}
	defer rows.Close()

	recs := []ledger.IssuanceRecord{}
	for rows.Next() {
		rec, err := scanIssuance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issuance: %w", err)
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIssuance(row scanner) (ledger.IssuanceRecord, error) {
	var (
		rec        ledger.IssuanceRecord
		employeeID string
		window     string
		counterID  int
		serviceDay string
	)

	err := row.Scan(&rec.ID, &employeeID, &window, &counterID, &rec.ServedAtMillis, &serviceDay)
	if err != nil {
		return rec, err
	}

	rec.EmployeeID = ledger.EmployeeID(employeeID)
	rec.MealWindow = ledger.MealWindow(window)
	rec.CounterID = ledger.CounterID(counterID)
	rec.ServiceDay = ledger.ServiceDay(serviceDay)
	return rec, nil
}

// Helper functions

func isMemory(dbPath string) bool {
	return dbPath == ":memory:" || strings.HasPrefix(dbPath, "file::memory:")
}

var _ ledger.Store = (*Store)(nil)
