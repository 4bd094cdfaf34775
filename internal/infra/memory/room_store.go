package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"quiz-battle-service/internal/domain"
)

// RoomStore is an in-memory implementation of app.RoomStore. All writes are
// serialised by one lock, so Update never sees a version conflict.
type RoomStore struct {
	mu       sync.RWMutex
	now      func() time.Time
	rooms    map[string]domain.Room
	codes    map[string]string
	watchers map[string]map[chan domain.Room]struct{}
}

func NewRoomStore() *RoomStore {
	return NewRoomStoreWithClock(time.Now)
}

// NewRoomStoreWithClock allows deterministic timestamps in tests.
func NewRoomStoreWithClock(now func() time.Time) *RoomStore {
	return &RoomStore{
		now:      now,
		rooms:    make(map[string]domain.Room),
		codes:    make(map[string]string),
		watchers: make(map[string]map[chan domain.Room]struct{}),
	}
}

func (s *RoomStore) Create(_ context.Context, room domain.Room) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.ID]; ok {
		return domain.Room{}, fmt.Errorf("room %s already exists", room.ID)
	}
	code := domain.NormalizeJoinCode(room.Code)
	if code != "" {
		if _, ok := s.codes[code]; ok {
			return domain.Room{}, domain.ErrCodeTaken
		}
		s.codes[code] = room.ID
	}
	room = room.Clone()
	room.Code = code
	room.Version = 1
	room.UpdatedAt = s.now()
	s.rooms[room.ID] = room
	return room.Clone(), nil
}

func (s *RoomStore) Get(_ context.Context, roomID string) (domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (s *RoomStore) Update(_ context.Context, roomID string, mutate func(*domain.Room) error) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.rooms[roomID]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	next := current.Clone()
	if err := mutate(&next); err != nil {
		return domain.Room{}, err
	}
	next.ID = current.ID
	next.Code = current.Code
	next.Version = current.Version + 1
	next.UpdatedAt = s.now()
	s.rooms[roomID] = next
	s.broadcastLocked(next)
	return next.Clone(), nil
}

func (s *RoomStore) Delete(_ context.Context, roomID string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	if current.Version != version {
		return domain.ErrVersionConflict
	}
	delete(s.rooms, roomID)
	if current.Code != "" {
		delete(s.codes, current.Code)
	}
	for ch := range s.watchers[roomID] {
		close(ch)
	}
	delete(s.watchers, roomID)
	return nil
}

func (s *RoomStore) ResolveCode(_ context.Context, code string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roomID, ok := s.codes[domain.NormalizeJoinCode(code)]
	if !ok {
		return "", domain.ErrRoomNotFound
	}
	return roomID, nil
}

func (s *RoomStore) List(_ context.Context, mode domain.RoomMode) ([]domain.Room, error) {
	s.mu.RLock()
	out := make([]domain.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		if room.Mode == mode {
			out = append(out, room.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *RoomStore) Watch(ctx context.Context, roomID string) (<-chan domain.Room, func(), error) {
	ch := make(chan domain.Room, 8)

	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return nil, nil, domain.ErrRoomNotFound
	}
	if s.watchers[roomID] == nil {
		s.watchers[roomID] = make(map[chan domain.Room]struct{})
	}
	s.watchers[roomID][ch] = struct{}{}
	ch <- room.Clone()
	s.mu.Unlock()

	var once sync.Once
	remove := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			set, ok := s.watchers[roomID]
			if !ok {
				return
			}
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(s.watchers, roomID)
			}
		})
	}
	stop := context.AfterFunc(ctx, remove)
	return ch, func() {
		stop()
		remove()
	}, nil
}

func (s *RoomStore) broadcastLocked(room domain.Room) {
	for ch := range s.watchers[room.ID] {
		snapshot := room.Clone()
		select {
		case ch <- snapshot:
			continue
		default:
		}
		// Slow reader: trim pending snapshots down to one per status run so every
		// status change still reaches it. Only this goroutine sends, under s.mu.
		var pending []domain.Room
	drain:
		for {
			select {
			case r := <-ch:
				pending = append(pending, r)
			default:
				break drain
			}
		}
		for _, r := range collapseSnapshots(append(pending, snapshot), cap(ch)) {
			ch <- r
		}
	}
}

// collapseSnapshots keeps the latest snapshot of each run of equal status, and at
// most limit of them, newest last.
func collapseSnapshots(rooms []domain.Room, limit int) []domain.Room {
	kept := rooms[:0]
	for i, r := range rooms {
		if i == len(rooms)-1 || r.Status != rooms[i+1].Status {
			kept = append(kept, r)
		}
	}
	if len(kept) > limit {
		kept = kept[len(kept)-limit:]
	}
	return kept
}
