package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"quiz-battle-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultUpdateRetries bounds optimistic retries of a contended Update.
const DefaultUpdateRetries = 16

// RoomStore keeps rooms as JSON documents shared by every service instance.
// Layout:
//
//	battle:room:{id}          room document
//	battle:code:{CODE}        join code -> room id
//	battle:rooms:{MODE}       set of room ids per mode
//	battle:room:{id}:events   pub/sub channel carrying committed snapshots
//
// Writes are WATCH/MULTI transactions on the room key, so a write based on a stale
// read is rejected and retried with fresh data.
type RoomStore struct {
	client  *redis.Client
	ttl     time.Duration
	retries int
	now     func() time.Time
}

// NewRoomStore returns a store whose documents expire ttl after their last write
// (zero keeps them forever).
func NewRoomStore(client *redis.Client, ttl time.Duration) *RoomStore {
	return &RoomStore{
		client:  client,
		ttl:     ttl,
		retries: DefaultUpdateRetries,
		now:     time.Now,
	}
}

type roomEvent struct {
	Room    *domain.Room `json:"room,omitempty"`
	Deleted bool         `json:"deleted,omitempty"`
}

func (s *RoomStore) Create(ctx context.Context, room domain.Room) (domain.Room, error) {
	room = room.Clone()
	room.Code = domain.NormalizeJoinCode(room.Code)
	room.Version = 1
	room.UpdatedAt = s.serverTime(ctx)
	if room.CreatedAt.IsZero() {
		room.CreatedAt = room.UpdatedAt
	}

	if room.Code != "" {
		ok, err := s.client.SetNX(ctx, codeKey(room.Code), room.ID, s.ttl).Result()
		if err != nil {
			return domain.Room{}, domain.NewStoreError("reserve join code", err)
		}
		if !ok {
			return domain.Room{}, domain.ErrCodeTaken
		}
	}

	payload, event, err := encodeRoom(room)
	if err != nil {
		return domain.Room{}, err
	}
	created, err := s.client.SetNX(ctx, roomKey(room.ID), payload, s.ttl).Result()
	if err == nil && !created {
		err = fmt.Errorf("room %s already exists", room.ID)
	}
	if err == nil {
		_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SAdd(ctx, modeKey(room.Mode), room.ID)
			pipe.Publish(ctx, eventsChannel(room.ID), event)
			return nil
		})
	}
	if err != nil {
		if room.Code != "" {
			_ = s.client.Del(ctx, codeKey(room.Code)).Err()
		}
		if created {
			_ = s.client.Del(ctx, roomKey(room.ID)).Err()
		}
		return domain.Room{}, domain.NewStoreError("create room", err)
	}
	return room, nil
}

func (s *RoomStore) Get(ctx context.Context, roomID string) (domain.Room, error) {
	raw, err := s.client.Get(ctx, roomKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, domain.NewStoreError("get room", err)
	}
	return decodeRoom(raw)
}

func (s *RoomStore) Update(ctx context.Context, roomID string, mutate func(*domain.Room) error) (domain.Room, error) {
	key := roomKey(roomID)
	for attempt := 0; attempt < s.retries; attempt++ {
		var (
			updated   domain.Room
			mutateErr error
		)
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				mutateErr = domain.ErrRoomNotFound
				return mutateErr
			}
			if err != nil {
				return err
			}
			current, err := decodeRoom(raw)
			if err != nil {
				return err
			}

			next := current.Clone()
			if err := mutate(&next); err != nil {
				mutateErr = err
				return err
			}
			next.ID = current.ID
			next.Version = current.Version + 1
			next.UpdatedAt = s.serverTime(ctx)

			payload, event, err := encodeRoom(next)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, s.ttl)
				pipe.Publish(ctx, eventsChannel(roomID), event)
				return nil
			})
			updated = next
			return err
		}, key)

		switch {
		case mutateErr != nil:
			return domain.Room{}, mutateErr
		case errors.Is(err, redis.TxFailedErr):
			continue
		case err != nil:
			return domain.Room{}, storeError("update room", err)
		}
		return updated, nil
	}
	return domain.Room{}, fmt.Errorf("update room %s: %w", roomID, domain.ErrVersionConflict)
}

func (s *RoomStore) Delete(ctx context.Context, roomID string, version int64) error {
	key := roomKey(roomID)
	var missing, stale bool
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			missing = true
			return nil
		}
		if err != nil {
			return err
		}
		room, err := decodeRoom(raw)
		if err != nil {
			return err
		}
		if room.Version != version {
			stale = true
			return nil
		}

		var ownsCode bool
		if room.Code != "" {
			owner, err := tx.Get(ctx, codeKey(room.Code)).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			ownsCode = owner == room.ID
		}
		tombstone, _ := json.Marshal(roomEvent{Deleted: true})
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			if ownsCode {
				pipe.Del(ctx, codeKey(room.Code))
			}
			pipe.SRem(ctx, modeKey(room.Mode), room.ID)
			pipe.Publish(ctx, eventsChannel(roomID), tombstone)
			return nil
		})
		return err
	}, key)

	switch {
	case missing:
		return domain.ErrRoomNotFound
	case stale, errors.Is(err, redis.TxFailedErr):
		return domain.ErrVersionConflict
	case err != nil:
		return storeError("delete room", err)
	}
	return nil
}

func (s *RoomStore) ResolveCode(ctx context.Context, code string) (string, error) {
	roomID, err := s.client.Get(ctx, codeKey(domain.NormalizeJoinCode(code))).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrRoomNotFound
	}
	if err != nil {
		return "", domain.NewStoreError("resolve join code", err)
	}
	return roomID, nil
}

// List returns the rooms of a mode, oldest first. Ids whose document has expired
// are pruned from the mode index as a side effect.
func (s *RoomStore) List(ctx context.Context, mode domain.RoomMode) ([]domain.Room, error) {
	ids, err := s.client.SMembers(ctx, modeKey(mode)).Result()
	if err != nil {
		return nil, domain.NewStoreError("list rooms", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = roomKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, domain.NewStoreError("list rooms", err)
	}

	rooms := make([]domain.Room, 0, len(values))
	var stale []interface{}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		room, err := decodeRoom([]byte(raw))
		if err != nil || room.Mode != mode {
			continue
		}
		rooms = append(rooms, room)
	}
	if len(stale) > 0 {
		_ = s.client.SRem(ctx, modeKey(mode), stale...).Err()
	}

	sort.Slice(rooms, func(i, j int) bool {
		if !rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
		}
		return rooms[i].ID < rooms[j].ID
	})
	return rooms, nil
}

// Watch subscribes to the room's event channel before reading the current document,
// so no commit between the two is lost. Snapshots older than one already delivered
// are skipped.
func (s *RoomStore) Watch(ctx context.Context, roomID string) (<-chan domain.Room, func(), error) {
	ctx, stop := context.WithCancel(ctx)
	sub := s.client.Subscribe(ctx, eventsChannel(roomID))
	if _, err := sub.Receive(ctx); err != nil {
		stop()
		_ = sub.Close()
		return nil, nil, domain.NewStoreError("subscribe room", err)
	}
	initial, err := s.Get(ctx, roomID)
	if err != nil {
		stop()
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan domain.Room, 16)
	go func() {
		defer close(out)
		defer sub.Close()

		last := initial.Version
		select {
		case out <- initial:
		case <-ctx.Done():
			return
		}
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event roomEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				if event.Deleted {
					return
				}
				if event.Room == nil || event.Room.Version <= last {
					continue
				}
				last = event.Room.Version
				select {
				case out <- *event.Room:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, stop, nil
}

// serverTime prefers the Redis clock so timestamps agree across instances.
func (s *RoomStore) serverTime(ctx context.Context) time.Time {
	t, err := s.client.Time(ctx).Result()
	if err != nil {
		return s.now()
	}
	return t
}

func encodeRoom(room domain.Room) (payload, event []byte, err error) {
	payload, err = json.Marshal(room)
	if err != nil {
		return nil, nil, fmt.Errorf("encode room: %w", err)
	}
	event, err = json.Marshal(roomEvent{Room: &room})
	if err != nil {
		return nil, nil, fmt.Errorf("encode room event: %w", err)
	}
	return payload, event, nil
}

func decodeRoom(raw []byte) (domain.Room, error) {
	var room domain.Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return domain.Room{}, domain.NewStoreError("decode room", err)
	}
	return room, nil
}

func storeError(op string, err error) error {
	if errors.Is(err, domain.ErrStore) {
		return err
	}
	return domain.NewStoreError(op, err)
}

func roomKey(roomID string) string {
	return "battle:room:" + roomID
}

func codeKey(code string) string {
	return "battle:code:" + code
}

func modeKey(mode domain.RoomMode) string {
	return "battle:rooms:" + string(mode)
}

func eventsChannel(roomID string) string {
	return "battle:room:" + roomID + ":events"
}
