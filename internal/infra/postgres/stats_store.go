package postgres

import (
	"context"
	"errors"
	"time"

	"quiz-battle-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const statsColumns = `user_id, total_matches, wins, losses, draws, current_streak, best_streak,
	rating, total_score, average_accuracy, last_played_at`

// StatsStore keeps per-user aggregates. Updates lock the user's row so concurrent
// settlements for the same user apply one after the other.
type StatsStore struct {
	pool *pgxpool.Pool
}

func NewStatsStore(pool *pgxpool.Pool) *StatsStore {
	return &StatsStore{pool: pool}
}

func (s *StatsStore) Get(ctx context.Context, userID string) (domain.UserStats, error) {
	stats, err := scanStats(s.pool.QueryRow(ctx, `SELECT `+statsColumns+` FROM user_stats WHERE user_id=$1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserStats{UserID: userID}, nil
	}
	if err != nil {
		return domain.UserStats{}, domain.NewStoreError("get stats", err)
	}
	return stats, nil
}

func (s *StatsStore) Update(ctx context.Context, userID string, apply func(domain.UserStats) domain.UserStats) (domain.UserStats, error) {
	var updated domain.UserStats
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO user_stats (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
			return err
		}
		current, err := scanStats(tx.QueryRow(ctx, `SELECT `+statsColumns+` FROM user_stats WHERE user_id=$1 FOR UPDATE`, userID))
		if err != nil {
			return err
		}
		updated = apply(current)
		updated.UserID = userID

		var lastPlayed *time.Time
		if !updated.LastPlayedAt.IsZero() {
			lastPlayed = &updated.LastPlayedAt
		}
		_, err = tx.Exec(ctx,
			`UPDATE user_stats SET total_matches=$2, wins=$3, losses=$4, draws=$5, current_streak=$6,
				best_streak=$7, rating=$8, total_score=$9, average_accuracy=$10, last_played_at=$11, updated_at=now()
			 WHERE user_id=$1`,
			userID, updated.TotalMatches, updated.Wins, updated.Losses, updated.Draws, updated.CurrentStreak,
			updated.BestStreak, updated.Rating, updated.TotalScore, updated.AverageAccuracy, lastPlayed)
		return err
	})
	if err != nil {
		return domain.UserStats{}, domain.NewStoreError("update stats", err)
	}
	return updated, nil
}

func scanStats(row pgx.Row) (domain.UserStats, error) {
	var (
		st         domain.UserStats
		lastPlayed *time.Time
	)
	err := row.Scan(&st.UserID, &st.TotalMatches, &st.Wins, &st.Losses, &st.Draws, &st.CurrentStreak,
		&st.BestStreak, &st.Rating, &st.TotalScore, &st.AverageAccuracy, &lastPlayed)
	if err != nil {
		return domain.UserStats{}, err
	}
	if lastPlayed != nil {
		st.LastPlayedAt = *lastPlayed
	}
	return st, nil
}
