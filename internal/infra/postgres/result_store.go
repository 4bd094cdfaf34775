package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"quiz-battle-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultStore persists match results. The unique room_id column makes Save
// insert-only: a second result for the same room is rejected.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) Save(ctx context.Context, result domain.MatchResult) error {
	players, err := json.Marshal(result.Players)
	if err != nil {
		return domain.NewStoreError("encode result players", err)
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO match_results
			(id, room_id, winner_id, loser_id, is_draw, difficulty, question_count, players, start_time, end_time, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11)
		 ON CONFLICT (room_id) DO NOTHING`,
		result.ID, result.RoomID, result.WinnerID, result.LoserID, result.IsDraw, result.Difficulty,
		result.QuestionCount, string(players), result.StartTime, result.EndTime, result.Duration.Milliseconds())
	if err != nil {
		return domain.NewStoreError("save result", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrResultExists
	}
	return nil
}

func (s *ResultStore) Get(ctx context.Context, roomID string) (domain.MatchResult, error) {
	var (
		result     domain.MatchResult
		players    []byte
		durationMs int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, room_id, winner_id, loser_id, is_draw, difficulty, question_count, players, start_time, end_time, duration_ms
		   FROM match_results WHERE room_id=$1`, roomID).
		Scan(&result.ID, &result.RoomID, &result.WinnerID, &result.LoserID, &result.IsDraw, &result.Difficulty,
			&result.QuestionCount, &players, &result.StartTime, &result.EndTime, &durationMs)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MatchResult{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.MatchResult{}, domain.NewStoreError("get result", err)
	}
	if err := json.Unmarshal(players, &result.Players); err != nil {
		return domain.MatchResult{}, domain.NewStoreError("decode result players", err)
	}
	result.Duration = time.Duration(durationMs) * time.Millisecond
	return result, nil
}
