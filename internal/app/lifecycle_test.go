package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"quiz-battle-service/internal/auth"
	"quiz-battle-service/internal/domain"
	"quiz-battle-service/internal/infra/memory"
)

func TestStartRevertsWhenSeatEmptiesDuringCountdown(t *testing.T) {
	rooms := memory.NewRoomStore()
	fire := make(chan time.Time)
	service := NewMatchService(rooms, memory.NewResultStore(), memory.NewStatsStore(), nil,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	service.after = func(time.Duration) <-chan time.Time { return fire }
	defer service.Close()

	room, err := service.FindQuickMatch(ctxAs("a"), "a", "An", "Easy", 2)
	if err != nil {
		t.Fatalf("quick match a: %v", err)
	}
	if _, err := service.FindQuickMatch(ctxAs("b"), "b", "Binh", "Easy", 2); err != nil {
		t.Fatalf("quick match b: %v", err)
	}
	waitStatus(t, rooms, room.ID, domain.StatusStarting)

	// Drop b without the leave path so the room stays STARTING with one seat.
	if _, err := rooms.Update(context.Background(), room.ID, func(r *domain.Room) error {
		r.Players.Remove("b")
		return nil
	}); err != nil {
		t.Fatalf("drop seat: %v", err)
	}
	fire <- time.Now()
	service.Wait()

	got, _ := rooms.Get(context.Background(), room.ID)
	if got.Status != domain.StatusWaiting || got.StartTime != nil {
		t.Fatalf("expected revert to waiting, got %s", got.Status)
	}
}

func TestConcurrentStartTriggersRunOnce(t *testing.T) {
	rooms := memory.NewRoomStore()
	fire := make(chan time.Time)
	service := NewMatchService(rooms, memory.NewResultStore(), memory.NewStatsStore(), nil,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	calls := 0
	service.after = func(time.Duration) <-chan time.Time {
		calls++
		return fire
	}
	defer service.Close()

	room, _ := service.FindQuickMatch(ctxAs("a"), "a", "An", "Easy", 2)
	if _, err := service.FindQuickMatch(ctxAs("b"), "b", "Binh", "Easy", 2); err != nil {
		t.Fatalf("quick match b: %v", err)
	}
	waitStatus(t, rooms, room.ID, domain.StatusStarting)
	service.triggerStart(room.ID)
	service.triggerStart(room.ID)
	close(fire)
	service.Wait()

	got, _ := rooms.Get(context.Background(), room.ID)
	if got.Status != domain.StatusInProgress {
		t.Fatalf("expected in progress, got %s", got.Status)
	}
	if calls != 1 {
		t.Fatalf("expected one countdown, got %d", calls)
	}
}

func TestFallbackSupplier(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	failing := &flakySupplier{err: errors.New("bank offline")}
	qs, err := NewFallbackSupplier(failing, 3, logger).Questions(context.Background(), "Hard", 4)
	if err != nil {
		t.Fatalf("fallback must not fail: %v", err)
	}
	if len(qs) != 4 || qs[3].ID != "local-hard-4" {
		t.Fatalf("expected local questions, got %+v", qs)
	}
	if failing.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", failing.calls)
	}

	short := &flakySupplier{qs: GenerateLocalQuestions("Easy", 1)}
	qs, _ = NewFallbackSupplier(short, 1, logger).Questions(context.Background(), "Easy", 2)
	if len(qs) != 2 {
		t.Fatalf("expected short answer replaced, got %d", len(qs))
	}

	healthy := &flakySupplier{qs: []domain.Question{{ID: "q1", Options: []string{"x", "y"}, CorrectAnswer: "y"}}}
	qs, _ = NewFallbackSupplier(healthy, 2, logger).Questions(context.Background(), "Easy", 1)
	if qs[0].ID != "q1" || healthy.calls != 1 {
		t.Fatalf("expected primary answer on first try, got %+v after %d calls", qs, healthy.calls)
	}
}

func TestGenerateLocalQuestionsAreAnswerable(t *testing.T) {
	qs := GenerateLocalQuestions("Medium", 6)
	if len(qs) != 6 || !validQuestions(qs) {
		t.Fatalf("expected 6 valid questions")
	}
	if qs[0].CorrectAnswer == qs[1].CorrectAnswer {
		t.Fatalf("expected rotating correct answers")
	}
	if GenerateLocalQuestions("Medium", 0) != nil {
		t.Fatalf("expected nothing for zero count")
	}
}

func TestDistinctTransitions(t *testing.T) {
	in := make(chan domain.Room, 6)
	for _, st := range []domain.RoomStatus{
		domain.StatusWaiting, domain.StatusWaiting, domain.StatusStarting,
		domain.StatusInProgress, domain.StatusInProgress, domain.StatusFinished,
	} {
		in <- domain.Room{ID: "r", Status: st}
	}
	close(in)

	var got []domain.RoomStatus
	for tr := range DistinctTransitions(context.Background(), in) {
		got = append(got, tr.Status)
	}
	want := []domain.RoomStatus{domain.StatusWaiting, domain.StatusStarting, domain.StatusInProgress, domain.StatusFinished}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestShouldDelete(t *testing.T) {
	one := domain.Room{Status: domain.StatusWaiting}
	_ = one.Players.Seat(domain.Player{UserID: "a"})
	if !shouldDelete(one) {
		t.Fatalf("waiting room with one player should go")
	}
	one.Status = domain.StatusCancelled
	if shouldDelete(one) {
		t.Fatalf("cancelled room with a remaining player should stay")
	}
	if !shouldDelete(domain.Room{Status: domain.StatusFinished}) {
		t.Fatalf("empty finished room should go")
	}
}

type flakySupplier struct {
	qs    []domain.Question
	err   error
	calls int
}

func (f *flakySupplier) Questions(context.Context, string, int) ([]domain.Question, error) {
	f.calls++
	return f.qs, f.err
}

func ctxAs(userID string) context.Context {
	return auth.WithUser(context.Background(), auth.Identity{UserID: userID})
}

func waitStatus(t *testing.T, rooms *memory.RoomStore, roomID string, want domain.RoomStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r, err := rooms.Get(context.Background(), roomID); err == nil && r.Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room %s never reached %s", roomID, want)
}
