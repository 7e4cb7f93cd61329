package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"edgelab-hq/tessera/pkg/exposure"
)

// Memory implements exposure.Storage with an in-process map. It backs
// tests and short-lived tooling; records vanish with the process.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*exposure.Record
}

// NewMemory creates an in-memory storage backend.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]*exposure.Record),
	}
}

// Store persists one record.
func (s *Memory) Store(ctx context.Context, record *exposure.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy so later caller mutation cannot reach stored state.
	cp := *record
	cp.StoredAt = time.Now().UTC()
	s.records[record.ID] = &cp

	return nil
}

// Query retrieves records matching the filters, ordered by LoggedAt.
func (s *Memory) Query(ctx context.Context, query *exposure.Query) ([]*exposure.Record, error) {
	s.mu.RLock()
	matched := make([]*exposure.Record, 0)
	for _, record := range s.records {
		if matchesQuery(record, query) {
			cp := *record
			matched = append(matched, &cp)
		}
	}
	s.mu.RUnlock()

	ascending := query.SortOrder == "asc"
	sort.Slice(matched, func(i, j int) bool {
		if ascending {
			return matched[i].LoggedAt.Before(matched[j].LoggedAt)
		}
		return matched[j].LoggedAt.Before(matched[i].LoggedAt)
	})

	start := query.Offset
	if start < 0 {
		start = 0
	}
	if start >= len(matched) {
		return []*exposure.Record{}, nil
	}
	matched = matched[start:]
	if query.Limit > 0 && query.Limit < len(matched) {
		matched = matched[:query.Limit]
	}
	return matched, nil
}

// Count returns the number of records matching the filters.
func (s *Memory) Count(ctx context.Context, query *exposure.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, query) {
			count++
		}
	}
	return count, nil
}

// DeleteOlderThan removes records logged before the cutoff.
func (s *Memory) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if record.LoggedAt.Before(cutoff) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close drops all records.
func (s *Memory) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*exposure.Record)
	return nil
}

// Size returns the number of stored records (for tests).
func (s *Memory) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// matchesQuery checks one record against the query filters.
func matchesQuery(record *exposure.Record, query *exposure.Query) bool {
	if query.StartTime != nil && record.LoggedAt.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && !record.LoggedAt.Before(*query.EndTime) {
		return false
	}
	if query.Experiment != "" && record.Experiment != query.Experiment {
		return false
	}
	if query.Variant != "" && record.Variant != query.Variant {
		return false
	}
	if query.UserID != "" && record.UserID != query.UserID {
		return false
	}
	return true
}
