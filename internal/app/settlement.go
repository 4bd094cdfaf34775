package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-battle-service/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const settleTimeout = 30 * time.Second

// settle records the match result and folds it into both players' stats. The result
// write is authoritative; stats updates are independent and their failures are only logged.
func (s *MatchService) settle(ctx context.Context, room domain.Room) error {
	result := domain.Settle(room, s.now())
	result.ID = uuid.NewString()

	if err := s.results.Save(ctx, result); err != nil {
		if errors.Is(err, domain.ErrResultExists) {
			s.log.Info("match already settled", "room", room.ID)
			return nil
		}
		return fmt.Errorf("save match result: %w", err)
	}
	s.log.Info("match settled", "room", room.ID, "winner", result.WinnerID, "draw", result.IsDraw)

	var g errgroup.Group
	for _, pr := range result.Players {
		pr := pr
		g.Go(func() error {
			_, err := s.stats.Update(ctx, pr.UserID, func(st domain.UserStats) domain.UserStats {
				st.UserID = pr.UserID
				return st.Apply(pr, result.EndTime)
			})
			if err != nil {
				return fmt.Errorf("update stats for %s: %w", pr.UserID, err)
			}
			return nil
		})
	}
	// The group has no shared context, so one player's failure leaves the other's update running.
	if err := g.Wait(); err != nil {
		s.log.Error("update user stats", "room", room.ID, "error", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishMatchResult(ctx, result); err != nil {
			s.log.Warn("publish match result", "room", room.ID, "error", err)
		}
	}
	return nil
}
