package state

import (
	"sync"
	"time"
)

// Status is a copy of the refresh bookkeeping at one point in time.
type Status struct {
	LastAttempt  time.Time     `json:"last_attempt,omitzero"`
	LastSuccess  time.Time     `json:"last_success,omitzero"`
	LastDuration time.Duration `json:"last_duration_ns"`
	LastError    string        `json:"last_error,omitempty"`
	Successes    uint64        `json:"successes"`
	Failures     uint64        `json:"failures"`
}

// Healthy reports whether the most recent cycle succeeded.
func (s Status) Healthy() bool {
	return s.Successes > 0 && s.LastError == ""
}

type Store struct {
	mu     sync.RWMutex
	status Status
}

func New() *Store {
	return &Store{}
}

func (s *Store) RecordSuccess(at time.Time, took time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.LastAttempt = at
	s.status.LastSuccess = at
	s.status.LastDuration = took
	s.status.LastError = ""
	s.status.Successes++
}

func (s *Store) RecordFailure(at time.Time, took time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.LastAttempt = at
	s.status.LastDuration = took
	s.status.LastError = err.Error()
	s.status.Failures++
}

func (s *Store) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}
