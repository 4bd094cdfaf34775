package app

import (
	"context"
	"errors"

	"quiz-battle-service/internal/domain"
)

// SetPresence flags the caller online or offline in a room they occupy. A dropped
// connection is not a leave: the seat and the match survive until LeaveRoom.
func (s *MatchService) SetPresence(ctx context.Context, roomID, userID string, online bool) error {
	if err := authorize(ctx, userID); err != nil {
		return err
	}
	now := s.now()
	_, err := s.rooms.Update(ctx, roomID, func(r *domain.Room) error {
		player := r.Players.Find(userID)
		if player == nil {
			return domain.ErrPlayerNotFound
		}
		if player.Online == online {
			return errNoChange
		}
		player.Online = online
		player.LastSeen = now
		return nil
	})
	switch {
	case errors.Is(err, errNoChange), errors.Is(err, domain.ErrPlayerNotFound), errors.Is(err, domain.ErrRoomNotFound):
		return nil
	case err != nil:
		return err
	}
	s.log.Debug("presence changed", "room", roomID, "user", userID, "online", online)
	return nil
}
