package app

import (
	"context"
	"errors"
	"time"

	"quiz-battle-service/internal/domain"
)

const revertTimeout = 5 * time.Second

// triggerStart runs the start sequence in the background. Concurrent triggers for the
// same room in this process share one run; triggers from other processes are absorbed
// by the status guard inside the CAS.
func (s *MatchService) triggerStart(roomID string) {
	s.background("start", roomID, func(ctx context.Context) error {
		_, err, _ := s.starts.Do(roomID, func() (interface{}, error) {
			return nil, s.startMatch(ctx, roomID)
		})
		return err
	})
}

// startMatch moves WAITING -> STARTING, waits out the countdown, then commits
// IN_PROGRESS, or reverts to WAITING if a seat emptied meanwhile.
func (s *MatchService) startMatch(ctx context.Context, roomID string) error {
	_, err := s.rooms.Update(ctx, roomID, func(r *domain.Room) error {
		if r.Status != domain.StatusWaiting || r.Players.Count() < domain.MaxPlayers {
			return errNoChange
		}
		r.Status = domain.StatusStarting
		return nil
	})
	if errors.Is(err, errNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	s.log.Info("match starting", "room", roomID, "countdown", s.countdown)

	select {
	case <-s.after(s.countdown):
	case <-ctx.Done():
		s.revertToWaiting(roomID)
		return ctx.Err()
	}

	room, err := s.rooms.Update(ctx, roomID, func(r *domain.Room) error {
		if r.Status != domain.StatusStarting {
			return errNoChange
		}
		if r.Players.Count() < domain.MaxPlayers {
			r.Status = domain.StatusWaiting
			return nil
		}
		now := s.now()
		r.Status = domain.StatusInProgress
		r.StartTime = &now
		r.CurrentQuestionIndex = 0
		return nil
	})
	switch {
	case errors.Is(err, errNoChange):
		return nil
	case err != nil:
		s.revertToWaiting(roomID)
		return err
	}
	s.log.Info("match start committed", "room", roomID, "status", room.Status)
	return nil
}

// revertToWaiting is best-effort; nobody awaits it.
func (s *MatchService) revertToWaiting(roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), revertTimeout)
	defer cancel()
	_, err := s.rooms.Update(ctx, roomID, func(r *domain.Room) error {
		if r.Status != domain.StatusStarting {
			return errNoChange
		}
		r.Status = domain.StatusWaiting
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		s.log.Warn("revert to waiting failed", "room", roomID, "error", err)
	}
}

// LeaveRoom unseats the caller. A room that is mid-countdown or mid-match becomes
// CANCELLED so the opponent sees a terminal state; a waiting or emptied room is deleted.
func (s *MatchService) LeaveRoom(ctx context.Context, roomID, userID string) error {
	if err := authorize(ctx, userID); err != nil {
		return err
	}
	now := s.now()
	room, err := s.rooms.Update(ctx, roomID, func(r *domain.Room) error {
		if !r.Players.Remove(userID) {
			return domain.ErrPlayerNotFound
		}
		switch r.Status {
		case domain.StatusStarting, domain.StatusInProgress:
			r.Status = domain.StatusCancelled
			r.EndTime = &now
		case domain.StatusWaiting, domain.StatusFinished, domain.StatusCancelled:
		}
		return nil
	})
	if errors.Is(err, domain.ErrPlayerNotFound) || errors.Is(err, domain.ErrRoomNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	s.log.Info("player left", "room", roomID, "user", userID, "status", room.Status, "remaining", room.Players.Count())

	if !shouldDelete(room) {
		return nil
	}
	if err := s.rooms.Delete(ctx, room.ID, room.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) || errors.Is(err, domain.ErrRoomNotFound) {
			// Someone joined or the room went away after our write; leave it be.
			s.log.Debug("skip room delete", "room", room.ID, "error", err)
			return nil
		}
		return err
	}
	s.log.Info("room deleted", "room", room.ID)
	return nil
}

func shouldDelete(room domain.Room) bool {
	switch room.Status {
	case domain.StatusWaiting:
		return room.Players.Count() <= 1
	case domain.StatusStarting, domain.StatusInProgress, domain.StatusFinished, domain.StatusCancelled:
		return room.Players.Count() == 0
	}
	return false
}
