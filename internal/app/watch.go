package app

import (
	"context"

	"quiz-battle-service/internal/domain"
)

// Watch streams room snapshots as the store delivers them. Snapshots may repeat.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *MatchService) Watch(ctx context.Context, roomID string) (<-chan domain.Room, func(), error) {
	return s.rooms.Watch(ctx, roomID)
}

// WatchTransitions streams only distinct (room, status) pairs, so consumers can drive
// screen changes without tracking what they already reacted to.
func (s *MatchService) WatchTransitions(ctx context.Context, roomID string) (<-chan domain.RoomTransition, func(), error) {
	ctx, stop := context.WithCancel(ctx)
	snapshots, cancel, err := s.rooms.Watch(ctx, roomID)
	if err != nil {
		stop()
		return nil, nil, err
	}
	return DistinctTransitions(ctx, snapshots), func() {
		stop()
		cancel()
	}, nil
}

// DistinctTransitions drops snapshots whose status equals the last emitted one.
// The output closes when in closes or ctx ends.
func DistinctTransitions(ctx context.Context, in <-chan domain.Room) <-chan domain.RoomTransition {
	out := make(chan domain.RoomTransition, 4)
	go func() {
		defer close(out)
		var last domain.RoomStatus
		for room := range in {
			if room.Status == last {
				continue
			}
			last = room.Status
			select {
			case out <- domain.RoomTransition{RoomID: room.ID, Status: room.Status}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
