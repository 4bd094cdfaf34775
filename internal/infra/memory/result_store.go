package memory

import (
	"context"
	"sync"

	"quiz-battle-service/internal/domain"
)

// ResultStore keeps match results in memory; results are insert-only.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]domain.MatchResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]domain.MatchResult)}
}

func (s *ResultStore) Save(_ context.Context, result domain.MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[result.RoomID]; ok {
		return domain.ErrResultExists
	}
	s.results[result.RoomID] = copyResult(result)
	return nil
}

func (s *ResultStore) Get(_ context.Context, roomID string) (domain.MatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[roomID]
	if !ok {
		return domain.MatchResult{}, domain.ErrResultNotFound
	}
	return copyResult(result), nil
}

func copyResult(r domain.MatchResult) domain.MatchResult {
	players := make(map[string]domain.PlayerResult, len(r.Players))
	for id, pr := range r.Players {
		players[id] = pr
	}
	r.Players = players
	return r
}
