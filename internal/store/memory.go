package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"memberdesk/internal/domain"
)

// Memory keeps the whole store in a mutex-guarded map. It intentionally
// favors clarity over performance and exists for tests and single-process
// deployments without Postgres.
type Memory struct {
	mu   sync.RWMutex
	rows map[domain.CollectionName]memoryRow
}

type memoryRow struct {
	data      []json.RawMessage
	updatedAt time.Time
}

func NewMemory() *Memory {
	return &Memory{rows: make(map[domain.CollectionName]memoryRow)}
}

func (s *Memory) Bootstrap(_ context.Context) (map[domain.CollectionName][]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.CollectionName][]json.RawMessage, len(domain.AllCollections()))
	for _, name := range domain.AllCollections() {
		if row, ok := s.rows[name]; ok {
			out[name] = domain.CloneRecords(row.data)
		} else {
			out[name] = []json.RawMessage{}
		}
	}
	return out, nil
}

func (s *Memory) Get(_ context.Context, name domain.CollectionName) ([]json.RawMessage, error) {
	if !domain.ValidName(name) {
		return nil, ErrUnknownCollection
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if row, ok := s.rows[name]; ok {
		return domain.CloneRecords(row.data), nil
	}
	return []json.RawMessage{}, nil
}

func (s *Memory) Put(_ context.Context, name domain.CollectionName, records []json.RawMessage) error {
	if !domain.ValidName(name) {
		return ErrUnknownCollection
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[name] = memoryRow{data: domain.CloneRecords(records), updatedAt: time.Now()}
	return nil
}

func (s *Memory) Clear(ctx context.Context, name domain.CollectionName) error {
	return s.Put(ctx, name, nil)
}

func (s *Memory) ImportBulk(ctx context.Context, collections map[domain.CollectionName][]json.RawMessage) error {
	// Stable order so a partial failure is at least deterministic.
	names := make([]domain.CollectionName, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, name := range names {
		if err := s.Put(ctx, name, collections[name]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Memory) Ping(_ context.Context) error {
	return nil
}

// UpdatedAt exposes the row timestamp for tests of upsert semantics.
func (s *Memory) UpdatedAt(name domain.CollectionName) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[name]
	return row.updatedAt, ok
}
