package jobs

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrJobNotFound is returned when no job exists for an id.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobNotReady is returned when a job has not completed yet.
	ErrJobNotReady = errors.New("job not completed")
)

// Store is an in-memory job registry. All reads return copies so callers
// never see a job mid-update.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewStore creates an empty job store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*Job),
	}
}

// Put inserts or replaces a job.
func (s *Store) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// Get returns a snapshot of a job.
func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return Job{}, ErrJobNotFound
	}
	return *job, nil
}

// Update applies fn to a job under the write lock and returns the resulting
// snapshot. Terminal jobs are never modified.
func (s *Store) Update(id string, fn func(*Job)) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return Job{}, ErrJobNotFound
	}
	if job.Status.Terminal() {
		return *job, nil
	}

	fn(job)
	return *job, nil
}

// Len returns the number of tracked jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// CleanupOlderThan evicts terminal jobs created before the cutoff and
// returns their ids.
func (s *Store) CleanupOlderThan(maxAge time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	var evicted []string
	for id, job := range s.jobs {
		if job.Status.Terminal() && job.CreatedAt.Before(cutoff) {
			delete(s.jobs, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}
