package memory

import (
	"context"
	"sync"

	"assessment-session-service/internal/domain"
)

// ResultStore keeps finished attempts in memory.
type ResultStore struct {
	mu      sync.RWMutex
	results []domain.ScoredResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) Record(_ context.Context, result domain.ScoredResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

// Results returns every recorded attempt for assessmentID in recording order.
func (s *ResultStore) Results(assessmentID string) []domain.ScoredResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ScoredResult
	for _, r := range s.results {
		if r.AssessmentID == assessmentID {
			out = append(out, r)
		}
	}
	return out
}
