package tasks

import (
	"sync"
	"time"

	"github.com/lysyi3m/threat-comb/app/feed"
)

// ResultStore keeps the outcome of the most recent pipeline run in memory.
// Stored results are treated as read-only by every reader.
type ResultStore struct {
	mu          sync.RWMutex
	result      feed.Result
	completedAt time.Time
	runs        int
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) Set(result feed.Result, completedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.result = result
	s.completedAt = completedAt
	s.runs++
}

// Latest returns the last stored result. ok is false until the first run
// completes.
func (s *ResultStore) Latest() (result feed.Result, completedAt time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.result, s.completedAt, s.runs > 0
}

func (s *ResultStore) RunCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runs
}
