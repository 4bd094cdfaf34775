package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"quiz-battle-service/internal/auth"
	"quiz-battle-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// DefaultCountdown is how long a room stays STARTING before play begins.
const DefaultCountdown = 3 * time.Second

// DefaultMaxQuestionCount caps the questions a room may be opened with.
const DefaultMaxQuestionCount = 50

// errNoChange aborts a room mutation that has nothing to do.
var errNoChange = errors.New("no change")

// MatchService contains the PvP use cases: matchmaking, room lifecycle, answers and settlement.
type MatchService struct {
	rooms     RoomStore
	results   ResultStore
	stats     StatsStore
	questions QuestionSupplier
	publisher ResultPublisher
	log       *slog.Logger

	countdown    time.Duration
	timeLimit    time.Duration
	maxQuestions int
	now          func() time.Time
	after        func(time.Duration) <-chan time.Time

	starts singleflight.Group

	bgCtx    context.Context
	bgCancel context.CancelFunc
	wg       sync.WaitGroup
}

// Option customises a MatchService.
type Option func(*MatchService)

func WithLogger(l *slog.Logger) Option {
	return func(s *MatchService) { s.log = l }
}

func WithCountdown(d time.Duration) Option {
	return func(s *MatchService) { s.countdown = d }
}

func WithQuestionTimeLimit(d time.Duration) Option {
	return func(s *MatchService) {
		if d > 0 {
			s.timeLimit = d
		}
	}
}

func WithMaxQuestionCount(n int) Option {
	return func(s *MatchService) {
		if n > 0 {
			s.maxQuestions = n
		}
	}
}

func WithPublisher(p ResultPublisher) Option {
	return func(s *MatchService) { s.publisher = p }
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *MatchService) { s.now = now }
}

func NewMatchService(rooms RoomStore, results ResultStore, stats StatsStore, questions QuestionSupplier, opts ...Option) *MatchService {
	s := &MatchService{
		rooms:        rooms,
		results:      results,
		stats:        stats,
		questions:    questions,
		log:          slog.Default(),
		countdown:    DefaultCountdown,
		timeLimit:    domain.DefaultQuestionTimeLimit,
		maxQuestions: DefaultMaxQuestionCount,
		now:          time.Now,
		after:        time.After,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.bgCtx, s.bgCancel = context.WithCancel(context.Background())
	return s
}

// QuestionTimeLimit is the per-question limit used for scoring.
func (s *MatchService) QuestionTimeLimit() time.Duration {
	return s.timeLimit
}

// Wait blocks until background work (start sequences, settlement) has finished.
func (s *MatchService) Wait() {
	s.wg.Wait()
}

// Close aborts pending countdowns and waits for background work. Settlement already
// under way runs to completion.
func (s *MatchService) Close() {
	s.bgCancel()
	s.wg.Wait()
}

// GetRoom returns the current room snapshot.
func (s *MatchService) GetRoom(ctx context.Context, roomID string) (domain.Room, error) {
	return s.rooms.Get(ctx, roomID)
}

// Result returns the settled result of a room.
func (s *MatchService) Result(ctx context.Context, roomID string) (domain.MatchResult, error) {
	return s.results.Get(ctx, roomID)
}

// Stats returns a user's aggregate record.
func (s *MatchService) Stats(ctx context.Context, userID string) (domain.UserStats, error) {
	return s.stats.Get(ctx, userID)
}

// background runs fn detached from the triggering caller. Failures are logged only.
func (s *MatchService) background(task, roomID string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(s.bgCtx); err != nil {
			s.log.Error("background task failed", "task", task, "room", roomID, "error", err)
		}
	}()
}

func authorize(ctx context.Context, userID string) error {
	id, ok := auth.UserFromContext(ctx)
	if !ok || userID == "" || id.UserID != userID {
		return domain.ErrAuth
	}
	return nil
}
