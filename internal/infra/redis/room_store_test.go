package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-battle-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRoomStoreCreateAndResolve(t *testing.T) {
	mr, store := newTestRoomStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, testRoom("room-1", "abc234", domain.ModeFriendMatch, time.Now()))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Version != 1 || created.Code != "ABC234" {
		t.Fatalf("expected version 1 and normalised code, got %d %q", created.Version, created.Code)
	}
	if !mr.Exists("battle:room:room-1") || !mr.Exists("battle:code:ABC234") {
		t.Fatalf("expected room and code keys")
	}

	roomID, err := store.ResolveCode(ctx, "abc234")
	if err != nil || roomID != "room-1" {
		t.Fatalf("resolve: %q %v", roomID, err)
	}
	got, err := store.Get(ctx, "room-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Players.Find("host") == nil {
		t.Fatalf("expected host seated after round trip")
	}

	if _, err := store.Create(ctx, testRoom("room-2", "ABC234", domain.ModeFriendMatch, time.Now())); !errors.Is(err, domain.ErrCodeTaken) {
		t.Fatalf("expected code taken, got %v", err)
	}
	if mr.Exists("battle:room:room-2") {
		t.Fatalf("room with clashing code must not be written")
	}
	if _, err := store.ResolveCode(ctx, "ZZZZZZ"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected unknown code, got %v", err)
	}
}

func TestRoomStoreUpdate(t *testing.T) {
	_, store := newTestRoomStore(t)
	ctx := context.Background()
	_, _ = store.Create(ctx, testRoom("room-1", "", domain.ModeQuickMatch, time.Now()))

	updated, err := store.Update(ctx, "room-1", func(r *domain.Room) error {
		r.Status = domain.StatusStarting
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 || updated.Status != domain.StatusStarting {
		t.Fatalf("unexpected room after update: v%d %s", updated.Version, updated.Status)
	}

	sentinel := errors.New("nothing to do")
	if _, err := store.Update(ctx, "room-1", func(r *domain.Room) error {
		r.Status = domain.StatusCancelled
		return sentinel
	}); err != sentinel {
		t.Fatalf("expected mutate error unchanged, got %v", err)
	}
	got, _ := store.Get(ctx, "room-1")
	if got.Version != 2 || got.Status != domain.StatusStarting {
		t.Fatalf("aborted mutation leaked: v%d %s", got.Version, got.Status)
	}

	if _, err := store.Update(ctx, "missing", func(*domain.Room) error { return nil }); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRoomStoreConcurrentUpdatesAllLand(t *testing.T) {
	_, store := newTestRoomStore(t)
	store.retries = 100
	ctx := context.Background()
	_, _ = store.Create(ctx, testRoom("room-1", "", domain.ModeQuickMatch, time.Now()))

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "room-1", func(r *domain.Room) error {
				r.CurrentQuestionIndex++
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	got, _ := store.Get(ctx, "room-1")
	if got.CurrentQuestionIndex != writers || got.Version != writers+1 {
		t.Fatalf("lost updates: index %d version %d", got.CurrentQuestionIndex, got.Version)
	}
}

func TestRoomStoreDeleteChecksVersion(t *testing.T) {
	mr, store := newTestRoomStore(t)
	ctx := context.Background()
	created, _ := store.Create(ctx, testRoom("room-1", "KMN234", domain.ModeQuickMatch, time.Now()))

	if err := store.Delete(ctx, "room-1", created.Version+1); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
	if err := store.Delete(ctx, "room-1", created.Version); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("battle:room:room-1") || mr.Exists("battle:code:KMN234") {
		t.Fatalf("expected room and code keys removed")
	}
	if ok, _ := mr.SIsMember("battle:rooms:QUICK_MATCH", "room-1"); ok {
		t.Fatalf("expected room removed from mode index")
	}
	if err := store.Delete(ctx, "room-1", created.Version); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRoomStoreListOrdersAndPrunes(t *testing.T) {
	mr, store := newTestRoomStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	_, _ = store.Create(ctx, testRoom("newer", "", domain.ModeQuickMatch, base.Add(time.Minute)))
	_, _ = store.Create(ctx, testRoom("older", "", domain.ModeQuickMatch, base))
	_, _ = store.Create(ctx, testRoom("gone", "", domain.ModeQuickMatch, base.Add(-time.Minute)))
	_, _ = store.Create(ctx, testRoom("friend", "", domain.ModeFriendMatch, base))
	mr.Del("battle:room:gone")

	rooms, err := store.List(ctx, domain.ModeQuickMatch)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rooms) != 2 || rooms[0].ID != "older" || rooms[1].ID != "newer" {
		t.Fatalf("unexpected rooms %+v", ids(rooms))
	}
	if ok, _ := mr.SIsMember("battle:rooms:QUICK_MATCH", "gone"); ok {
		t.Fatalf("expected expired room pruned from index")
	}
}

func TestRoomStoreWatch(t *testing.T) {
	_, store := newTestRoomStore(t)
	ctx := context.Background()
	created, _ := store.Create(ctx, testRoom("room-1", "", domain.ModeQuickMatch, time.Now()))

	snapshots, cancel, err := store.Watch(ctx, "room-1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer cancel()

	if first := receive(t, snapshots); first.Version != created.Version {
		t.Fatalf("expected initial snapshot, got v%d", first.Version)
	}

	updated, err := store.Update(ctx, "room-1", func(r *domain.Room) error {
		r.Status = domain.StatusStarting
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if next := receive(t, snapshots); next.Version != updated.Version || next.Status != domain.StatusStarting {
		t.Fatalf("expected committed snapshot, got v%d %s", next.Version, next.Status)
	}

	if err := store.Delete(ctx, "room-1", updated.Version); err != nil {
		t.Fatalf("delete: %v", err)
	}
	select {
	case _, ok := <-snapshots:
		if ok {
			t.Fatalf("expected stream closed after delete")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("stream not closed after delete")
	}

	if _, _, err := store.Watch(ctx, "room-1"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected not found for deleted room, got %v", err)
	}
}

func TestRoomStoreReportsStoreErrors(t *testing.T) {
	mr, store := newTestRoomStore(t)
	mr.Close()

	if _, err := store.Get(context.Background(), "room-1"); !errors.Is(err, domain.ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func newTestRoomStore(t *testing.T) (*miniredis.Miniredis, *RoomStore) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := newClient(mr)
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRoomStore(client, time.Hour)
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}

func testRoom(id, code string, mode domain.RoomMode, createdAt time.Time) domain.Room {
	room := domain.Room{
		ID:            id,
		Code:          code,
		Mode:          mode,
		Difficulty:    "Easy",
		QuestionCount: 1,
		Status:        domain.StatusWaiting,
		HostID:        "host",
		Questions:     []domain.Question{{ID: "q1", Prompt: "?", Options: []string{"a", "b"}, CorrectAnswer: "a"}},
		CreatedAt:     createdAt,
	}
	_ = room.Players.Seat(domain.Player{UserID: "host", DisplayName: "Host", Online: true, Ready: true})
	return room
}

func receive(t *testing.T, ch <-chan domain.Room) domain.Room {
	t.Helper()
	select {
	case room, ok := <-ch:
		if !ok {
			t.Fatalf("stream closed")
		}
		return room
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
	return domain.Room{}
}

func ids(rooms []domain.Room) []string {
	out := make([]string, len(rooms))
	for i, r := range rooms {
		out[i] = r.ID
	}
	return out
}
