/*
store.go - Persistence contract for issuance records

PURPOSE:
  Defines the interface between the ledger and whatever holds the records.
  The Store owns the uniqueness invariant: at most one record per
  (EmployeeID, ServiceDay).

APPEND-ONLY CONTRACT:
  - InsertIfAbsent(): the ONLY write operation
  - NO Update() or Delete() methods exist

ATOMICITY:
  InsertIfAbsent must be linearizable per key. Two concurrent calls for the
  same (EmployeeID, ServiceDay) produce exactly one Inserted; every other
  call gets AlreadyExists carrying the record that actually persisted.
  Implementations push this into the storage engine (unique index, SET NX).
  A read-then-write in Go is racy across processes and is not acceptable.

ERRORS:
  Every backend failure (I/O, connectivity, timeout) is returned as a
  StorageError, so errors.Is(err, ErrStorageUnavailable) holds.

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory, single process (tests, dev)
  - store/sqlite: Embedded SQLite with a unique index
  - store/gormstore: Shared Postgres (or SQLite) through gorm
  - store/redisstore: Redis with a Lua SET NX script
*/
package ledger

import (
	"context"
	"sort"
)

// =============================================================================
// STORE - Interface for issuance persistence (append-only)
// =============================================================================

type Store interface {
	// FindByEmployeeAndDay returns nil, nil when no record exists.
	FindByEmployeeAndDay(ctx context.Context, employeeID EmployeeID, day ServiceDay) (*IssuanceRecord, error)

	// InsertIfAbsent persists rec unless (EmployeeID, ServiceDay) is taken.
	// This is the ONLY write operation.
	InsertIfAbsent(ctx context.Context, rec IssuanceRecord) (InsertResult, error)

	// ListByDay returns the day's records, most recent first.
	ListByDay(ctx context.Context, day ServiceDay) ([]IssuanceRecord, error)

	// ListByEmployee returns every record of the employee, newest day first.
	ListByEmployee(ctx context.Context, employeeID EmployeeID) ([]IssuanceRecord, error)
}

// InsertResult is either Inserted or AlreadyExists(Existing).
type InsertResult struct {
	Inserted bool
	Existing IssuanceRecord
}

func Inserted() InsertResult {
	return InsertResult{Inserted: true}
}

func AlreadyExists(existing IssuanceRecord) InsertResult {
	return InsertResult{Existing: existing}
}

// =============================================================================
// ORDERING HELPERS - Shared by stores and the reader
// =============================================================================

// SortRoster orders records most recent first.
func SortRoster(recs []IssuanceRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].ServedAtMillis > recs[j].ServedAtMillis
	})
}

// SortHistory orders records by service day descending, then most recent first.
func SortHistory(recs []IssuanceRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].ServiceDay != recs[j].ServiceDay {
			return recs[i].ServiceDay > recs[j].ServiceDay
		}
		return recs[i].ServedAtMillis > recs[j].ServedAtMillis
	})
}
