/*
Package gormstore implements ledger.Store on a shared SQL server through gorm.

PURPOSE:
  Counters spread over several machines need one authoritative database.
  Postgres is the production target; SQLite (pure Go driver) is used for
  tests and single-box installs.

UNIQUENESS:
  The schema carries a unique index on (employee_id, service_day).
  InsertIfAbsent issues INSERT ... ON CONFLICT (employee_id, service_day)
  DO NOTHING and inspects RowsAffected. Zero rows means another counter won;
  the winning row is loaded and returned.

SCHEMA:
  Postgres: versioned SQL in migrations/, applied with golang-migrate.
  SQLite:   gorm AutoMigrate from issuanceModel's tags.
*/
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Krishna78600/Samosa-Man-App/ledger"
)

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// New wraps an open gorm handle. The schema must already exist.
func New(db *gorm.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log.Named("gormstore")}
}

// OpenPostgres connects to Postgres and applies pending migrations.
func OpenPostgres(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres handle: %w", err)
	}
	if err := RunMigrations(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	s := New(db, log)
	s.log.Info("postgres store ready")
	return s, nil
}

// OpenSQLite opens a pure Go SQLite database and auto-migrates the schema.
// In-memory DSNs are pinned to one connection.
func OpenSQLite(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&issuanceModel{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return New(db, log), nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{Logger: gormlogger.Discard}
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// =============================================================================
// MODEL
// =============================================================================

type issuanceModel struct {
	ID         string `gorm:"column:id;primaryKey"`
	EmployeeID string `gorm:"column:employee_id;not null;uniqueIndex:idx_unique_employee_day,priority:1;index:idx_issuances_employee_day,priority:1"`
	MealWindow string `gorm:"column:meal_window;not null"`
	CounterID  int    `gorm:"column:counter_id;not null"`
	ServedAtMs int64  `gorm:"column:served_at_ms;not null;index:idx_issuances_day_served,priority:2,sort:desc"`
	ServiceDay string `gorm:"column:service_day;not null;uniqueIndex:idx_unique_employee_day,priority:2;index:idx_issuances_day_served,priority:1;index:idx_issuances_employee_day,priority:2,sort:desc"`
}

func (issuanceModel) TableName() string { return "meal_issuances" }

func modelFromRecord(rec ledger.IssuanceRecord) issuanceModel {
	return issuanceModel{
		ID:         rec.ID,
		EmployeeID: string(rec.EmployeeID),
		MealWindow: string(rec.MealWindow),
		CounterID:  int(rec.CounterID),
		ServedAtMs: rec.ServedAtMillis,
		ServiceDay: string(rec.ServiceDay),
	}
}

func (m issuanceModel) toRecord() ledger.IssuanceRecord {
	return ledger.IssuanceRecord{
		ID:             m.ID,
		EmployeeID:     ledger.EmployeeID(m.EmployeeID),
		MealWindow:     ledger.MealWindow(m.MealWindow),
		CounterID:      ledger.CounterID(m.CounterID),
		ServedAtMillis: m.ServedAtMs,
		ServiceDay:     ledger.ServiceDay(m.ServiceDay),
	}
}

func toRecords(rows []issuanceModel) []ledger.IssuanceRecord {
	items := make([]ledger.IssuanceRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toRecord())
	}
	return items
}

// =============================================================================
// ledger.Store
// =============================================================================

func (s *Store) FindByEmployeeAndDay(ctx context.Context, employeeID ledger.EmployeeID, day ledger.ServiceDay) (*ledger.IssuanceRecord, error) {
	row, err := s.findOne(ctx, employeeID, day)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail(ledger.OpFindByEmployeeAndDay, err)
	}
	rec := row.toRecord()
	return &rec, nil
}

func (s *Store) InsertIfAbsent(ctx context.Context, rec ledger.IssuanceRecord) (ledger.InsertResult, error) {
	row := modelFromRecord(rec)
	create := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "employee_id"}, {Name: "service_day"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil && !isUniqueViolation(create.Error) {
		return ledger.InsertResult{}, s.fail(ledger.OpInsertIfAbsent, create.Error)
	}
	if create.Error == nil && create.RowsAffected > 0 {
		return ledger.Inserted(), nil
	}

	existing, err := s.findOne(ctx, rec.EmployeeID, rec.ServiceDay)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) && create.Error != nil {
			// The violation came from another constraint, such as a reused id.
			err = create.Error
		}
		return ledger.InsertResult{}, s.fail(ledger.OpInsertIfAbsent, err)
	}
	return ledger.AlreadyExists(existing.toRecord()), nil
}

func (s *Store) ListByDay(ctx context.Context, day ledger.ServiceDay) ([]ledger.IssuanceRecord, error) {
	var rows []issuanceModel
	err := s.db.WithContext(ctx).
		Where("service_day = ?", string(day)).
		Order("served_at_ms DESC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, s.fail(ledger.OpListByDay, err)
	}
	return toRecords(rows), nil
}

func (s *Store) ListByEmployee(ctx context.Context, employeeID ledger.EmployeeID) ([]ledger.IssuanceRecord, error) {
	var rows []issuanceModel
	err := s.db.WithContext(ctx).
		Where("employee_id = ?", string(employeeID)).
		Order("service_day DESC").
		Order("served_at_ms DESC").
		Find(&rows).Error
	if err != nil {
		return nil, s.fail(ledger.OpListByEmployee, err)
	}
	return toRecords(rows), nil
}

func (s *Store) findOne(ctx context.Context, employeeID ledger.EmployeeID, day ledger.ServiceDay) (issuanceModel, error) {
	var row issuanceModel
	err := s.db.WithContext(ctx).
		Where("employee_id = ? AND service_day = ?", string(employeeID), string(day)).
		Take(&row).Error
	return row, err
}

func (s *Store) fail(op string, err error) error {
	s.log.Warn("gorm store call failed", zap.String("op", op), zap.Error(err))
	return ledger.Unavailable(op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ ledger.Store = (*Store)(nil)
