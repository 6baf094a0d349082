package store

import (
	"context"
	"sort"
	"sync"

	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
	"github.com/MobilityFirst/GNS-sub011/internal/server/updates"
)

// Memory is an in-process RemoteStore. Each key is updated atomically under
// one lock; records are copied on the way in and out.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

func (m *Memory) CreateRecord(_ context.Context, key string, record Record) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[key]; exists {
		return failed(responsecode.DuplicateID)
	}
	if record == nil {
		record = Record{}
	}
	m.records[key] = updates.CopyRecord(record)
	return ok()
}

func (m *Memory) ReadField(_ context.Context, key, field string) Result {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, exists := m.records[key]
	if !exists {
		return failed(responsecode.BadGuid)
	}
	return FieldOf(rec, field)
}

func (m *Memory) ReadRecord(_ context.Context, key string) Result {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, exists := m.records[key]
	if !exists {
		return failed(responsecode.BadGuid)
	}
	return WithRecord(updates.CopyRecord(rec))
}

func (m *Memory) UpdateField(_ context.Context, key, field string, u updates.Update) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	working, write, code := Mutate(m.records[key], field, u)
	if code.IsError() {
		return failed(code)
	}
	if write {
		m.records[key] = working
	}
	return ok()
}

func (m *Memory) DeleteRecord(_ context.Context, key string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[key]; !exists {
		return failed(responsecode.BadGuid)
	}
	delete(m.records, key)
	return ok()
}

// KeysWithField returns, sorted, the keys whose record has field at top level.
func (m *Memory) KeysWithField(_ context.Context, field string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k, rec := range m.records {
		if _, found := updates.GetPath(rec, field); found {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len reports how many records are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
