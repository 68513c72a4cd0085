// Package store holds the in-memory job collection and writes it through to
// the pluggable persistence adapter on every mutation.
package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"vidmill/internal/domain"
	"vidmill/internal/infrastructure/logger"
	"vidmill/internal/port"
)

// JobStore is the owner-scoped collection of job records.
//
// All mutations run under one lock, which also serializes the adapter's
// full-collection writes. A failed write surfaces as domain.ErrPersistence
// but leaves the in-memory mutation in place; the next mutation writes the
// whole collection again, which is the retry.
type JobStore struct {
	mu      sync.RWMutex
	adapter port.Persistence
	jobs    map[string]*domain.JobRecord
}

// NewJobStore loads the collection from the adapter once. An empty adapter is
// seeded with the built-in sample records.
func NewJobStore(adapter port.Persistence) (*JobStore, error) {
	loaded, err := adapter.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: load jobs: %v", domain.ErrPersistence, err)
	}

	s := &JobStore{
		adapter: adapter,
		jobs:    make(map[string]*domain.JobRecord, len(loaded)),
	}
	for _, job := range loaded {
		s.jobs[job.ID] = job
	}

	if len(s.jobs) == 0 {
		for _, job := range sampleJobs() {
			s.jobs[job.ID] = job
		}
		if err := s.persist(); err != nil {
			logger.Warn.Printf("failed to persist seeded jobs: %v", err)
		}
	}

	return s, nil
}

// persist writes the entire collection through the adapter. Callers must hold
// the write lock.
func (s *JobStore) persist() error {
	jobs := make([]*domain.JobRecord, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	if err := s.adapter.SaveAll(jobs); err != nil {
		return fmt.Errorf("%w: save jobs: %v", domain.ErrPersistence, err)
	}
	return nil
}

// Insert adds a new record and persists the collection.
func (s *JobStore) Insert(job *domain.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, job.ID)
	}

	s.jobs[job.ID] = job.Clone()
	return s.persist()
}

// Get returns a copy of the record.
func (s *JobStore) Get(id string) (*domain.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return job.Clone(), nil
}

// Update applies mutate to the record under the store lock and persists the
// result. The returned record is a copy taken after the mutation.
func (s *JobStore) Update(id string, mutate func(*domain.JobRecord)) (*domain.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	mutate(job)
	updated := job.Clone()
	if err := s.persist(); err != nil {
		return updated, err
	}
	return updated, nil
}

// Remove deletes the record and persists the collection.
func (s *JobStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	delete(s.jobs, id)
	return s.persist()
}

// ListFor returns the caller's records, or every record for admin callers,
// newest submission first.
func (s *JobStore) ListFor(caller domain.Identity) []*domain.JobRecord {
	return s.ListFiltered(caller, nil)
}

// ListFiltered composes owner scoping with an optional caller-supplied
// predicate. Used by the search and status-tab views.
func (s *JobStore) ListFiltered(caller domain.Identity, pred func(*domain.JobRecord) bool) []*domain.JobRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.JobRecord, 0, len(s.jobs))
	for _, job := range s.jobs {
		if !job.VisibleTo(caller) {
			continue
		}
		if pred != nil && !pred(job) {
			continue
		}
		out = append(out, job.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}

// StatusIs builds a status-equality predicate for ListFiltered.
func StatusIs(status domain.JobStatus) func(*domain.JobRecord) bool {
	return func(job *domain.JobRecord) bool {
		return job.Status == status
	}
}

// MatchesQuery builds a case-insensitive free-text predicate over title,
// original file name and owner id.
func MatchesQuery(query string) func(*domain.JobRecord) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	return func(job *domain.JobRecord) bool {
		if query == "" {
			return true
		}
		return strings.Contains(strings.ToLower(job.Title), query) ||
			strings.Contains(strings.ToLower(job.OriginalFileName), query) ||
			strings.Contains(strings.ToLower(job.OwnerID), query)
	}
}

// And combines predicates for ListFiltered.
func And(preds ...func(*domain.JobRecord) bool) func(*domain.JobRecord) bool {
	return func(job *domain.JobRecord) bool {
		for _, pred := range preds {
			if pred != nil && !pred(job) {
				return false
			}
		}
		return true
	}
}
