package app

import (
	"context"

	"quiz-battle-service/internal/domain"
)

// RoomStore is the shared room document store. Implementations must make Update an
// atomic compare-and-swap on Room.Version.
type RoomStore interface {
	// Create inserts a new room and indexes its join code. Returns domain.ErrCodeTaken
	// when the code is already mapped.
	Create(ctx context.Context, room domain.Room) (domain.Room, error)
	Get(ctx context.Context, roomID string) (domain.Room, error)
	// Update reads the room, applies mutate and commits only if no other write landed
	// in between, re-running mutate on conflict. An error from mutate aborts the write
	// and is returned unchanged.
	Update(ctx context.Context, roomID string, mutate func(*domain.Room) error) (domain.Room, error)
	// Delete removes the room and its code index if its version still matches.
	Delete(ctx context.Context, roomID string, version int64) error
	ResolveCode(ctx context.Context, code string) (string, error)
	// List returns the rooms of a mode, oldest first.
	List(ctx context.Context, mode domain.RoomMode) ([]domain.Room, error)
	// Watch streams full snapshots, starting with the current one. The channel closes
	// when the room is deleted, ctx ends or cancel is called.
	Watch(ctx context.Context, roomID string) (<-chan domain.Room, func(), error)
}

// ResultStore keeps immutable match results, one per room.
type ResultStore interface {
	Save(ctx context.Context, result domain.MatchResult) error
	Get(ctx context.Context, roomID string) (domain.MatchResult, error)
}

// StatsStore keeps per-user aggregates. Get returns a zero record for unknown users.
type StatsStore interface {
	Get(ctx context.Context, userID string) (domain.UserStats, error)
	Update(ctx context.Context, userID string, apply func(domain.UserStats) domain.UserStats) (domain.UserStats, error)
}

// QuestionLoader fetches the whole question pool of a difficulty from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, difficulty string) ([]domain.Question, error)
}

// QuestionSupplier produces count questions of a difficulty.
type QuestionSupplier interface {
	Questions(ctx context.Context, difficulty string, count int) ([]domain.Question, error)
}

// ResultPublisher announces settled matches to other services.
type ResultPublisher interface {
	PublishMatchResult(ctx context.Context, result domain.MatchResult) error
}
