package memory

import (
	"context"
	"sync"

	"quiz-battle-service/internal/domain"
)

// StatsStore keeps per-user aggregates in memory.
type StatsStore struct {
	mu    sync.Mutex
	stats map[string]domain.UserStats
}

func NewStatsStore() *StatsStore {
	return &StatsStore{stats: make(map[string]domain.UserStats)}
}

func (s *StatsStore) Get(_ context.Context, userID string) (domain.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stats[userID]
	if !ok {
		return domain.UserStats{UserID: userID}, nil
	}
	return st, nil
}

func (s *StatsStore) Update(_ context.Context, userID string, apply func(domain.UserStats) domain.UserStats) (domain.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.stats[userID]
	if !ok {
		current = domain.UserStats{UserID: userID}
	}
	next := apply(current)
	next.UserID = userID
	s.stats[userID] = next
	return next, nil
}
