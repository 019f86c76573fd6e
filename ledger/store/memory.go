// Package store provides the in-process Store implementation.
package store

import (
	"context"
	"sync"

	"github.com/Krishna78600/Samosa-Man-App/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds records for one process. Uniqueness is only guaranteed among
// callers sharing the same *Memory.
type Memory struct {
	mu         sync.RWMutex
	records    map[key]ledger.IssuanceRecord
	byDay      map[ledger.ServiceDay][]key
	byEmployee map[ledger.EmployeeID][]key
}

type key struct {
	EmployeeID ledger.EmployeeID
	ServiceDay ledger.ServiceDay
}

func NewMemory() *Memory {
	return &Memory{
		records:    make(map[key]ledger.IssuanceRecord),
		byDay:      make(map[ledger.ServiceDay][]key),
		byEmployee: make(map[ledger.EmployeeID][]key),
	}
}

func (m *Memory) FindByEmployeeAndDay(ctx context.Context, employeeID ledger.EmployeeID, day ledger.ServiceDay) (*ledger.IssuanceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, ledger.Unavailable(ledger.OpFindByEmployeeAndDay, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[key{EmployeeID: employeeID, ServiceDay: day}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// InsertIfAbsent checks and writes under one exclusive lock.
func (m *Memory) InsertIfAbsent(ctx context.Context, rec ledger.IssuanceRecord) (ledger.InsertResult, error) {
	if err := ctx.Err(); err != nil {
		return ledger.InsertResult{}, ledger.Unavailable(ledger.OpInsertIfAbsent, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{EmployeeID: rec.EmployeeID, ServiceDay: rec.ServiceDay}
	if existing, ok := m.records[k]; ok {
		return ledger.AlreadyExists(existing), nil
	}
	m.records[k] = rec
	m.byDay[rec.ServiceDay] = append(m.byDay[rec.ServiceDay], k)
	m.byEmployee[rec.EmployeeID] = append(m.byEmployee[rec.EmployeeID], k)
	return ledger.Inserted(), nil
}

func (m *Memory) ListByDay(ctx context.Context, day ledger.ServiceDay) ([]ledger.IssuanceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, ledger.Unavailable(ledger.OpListByDay, err)
	}
	m.mu.RLock()
	result := m.collectLocked(m.byDay[day])
	m.mu.RUnlock()

	ledger.SortRoster(result)
	return result, nil
}

func (m *Memory) ListByEmployee(ctx context.Context, employeeID ledger.EmployeeID) ([]ledger.IssuanceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, ledger.Unavailable(ledger.OpListByEmployee, err)
	}
	m.mu.RLock()
	result := m.collectLocked(m.byEmployee[employeeID])
	m.mu.RUnlock()

	ledger.SortHistory(result)
	return result, nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *Memory) collectLocked(keys []key) []ledger.IssuanceRecord {
	result := make([]ledger.IssuanceRecord, 0, len(keys))
	for _, k := range keys {
		result = append(result, m.records[k])
	}
	return result
}

var _ ledger.Store = (*Memory)(nil)
