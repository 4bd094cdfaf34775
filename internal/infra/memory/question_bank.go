package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quiz-battle-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// questionLoader mirrors app.QuestionLoader; app's own tests import this package.
type questionLoader interface {
	LoadQuestions(ctx context.Context, difficulty string) ([]domain.Question, error)
}

// QuestionBank caches difficulty pools with TTL to avoid repeated store hits and
// draws random questions from them.
type QuestionBank struct {
	loader questionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedPool
}

type cachedPool struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionBank(loader questionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPool),
	}
}

// Questions draws count distinct questions of the difficulty.
func (b *QuestionBank) Questions(ctx context.Context, difficulty string, count int) ([]domain.Question, error) {
	pool, err := b.pool(ctx, difficulty)
	if err != nil {
		return nil, err
	}
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return domain.DrawQuestions(pool, count, b.rnd)
}

func (b *QuestionBank) pool(ctx context.Context, difficulty string) ([]domain.Question, error) {
	now := b.clock()

	b.mu.RLock()
	if entry, ok := b.cache[difficulty]; ok && entry.expiresAt.After(now) {
		b.mu.RUnlock()
		return entry.questions, nil
	}
	b.mu.RUnlock()

	result, err, _ := b.sf.Do(difficulty, func() (interface{}, error) {
		now := b.clock()
		b.mu.RLock()
		if entry, ok := b.cache[difficulty]; ok && entry.expiresAt.After(now) {
			b.mu.RUnlock()
			return entry.questions, nil
		}
		b.mu.RUnlock()

		questions, err := b.loader.LoadQuestions(ctx, difficulty)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.cache[difficulty] = cachedPool{
			questions: questions,
			expiresAt: now.Add(b.ttlWithJitter()),
		}
		b.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuestionLoader struct {
	pools map[string][]domain.Question
}

func NewStaticQuestionLoader(pools map[string][]domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{pools: pools}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, difficulty string) ([]domain.Question, error) {
	if pool, ok := l.pools[difficulty]; ok {
		return pool, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrNotEnoughQuestions, difficulty)
}
