// Package store keeps run records for the lifetime of the process.
package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/Otavio-CB/non-functional-tester/internal/loadtest"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/resource"
)

// ErrNotFound is returned for an unknown run identifier.
var ErrNotFound = errors.New("test not found")

// ResourceStats is the resource view of one run.
type ResourceStats struct {
	ResourceStats   []resource.Sample `json:"resource_stats"`
	ResourceMetrics resource.Summary  `json:"resource_metrics"`
}

// MemoryStore is an in-memory map of run records keyed by test ID.
// It is safe for concurrent use and satisfies dispatch.Publisher.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]loadtest.RunRecord
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]loadtest.RunRecord),
	}
}

// Save stores a copy of rec, replacing any earlier version of the same run.
func (s *MemoryStore) Save(rec loadtest.RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.TestID] = rec.Clone()
}

// Get returns a copy of the record with the given ID.
func (s *MemoryStore) Get(id string) (loadtest.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return loadtest.RunRecord{}, ErrNotFound
	}
	return rec.Clone(), nil
}

// List returns copies of all records, oldest first. Records that started at
// the same instant are ordered by ID.
func (s *MemoryStore) List() []loadtest.RunRecord {
	s.mu.RLock()
	res := make([]loadtest.RunRecord, 0, len(s.records))
	for _, rec := range s.records {
		res = append(res, rec.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		if !res[i].StartTime.Equal(res[j].StartTime) {
			return res[i].StartTime.Before(res[j].StartTime)
		}
		return res[i].TestID < res[j].TestID
	})
	return res
}

// ResourceStats returns the samples and summary of one run. Runs with no
// samples yet return an empty, non-nil sample list.
func (s *MemoryStore) ResourceStats(id string) (ResourceStats, error) {
	rec, err := s.Get(id)
	if err != nil {
		return ResourceStats{}, err
	}
	return ResourceStats{
		ResourceStats:   rec.ResourceStats,
		ResourceMetrics: rec.ResourceMetrics,
	}, nil
}

// Len returns the number of stored runs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
