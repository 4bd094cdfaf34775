package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionBank caches each difficulty pool in Redis as one JSON document
// (battle:questions:{difficulty}) and falls back to a loader on cache miss.
// Instances share the cache; singleflight keeps each instance to one load per miss.
type QuestionBank struct {
	client *redis.Client
	loader app.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionBank(client *redis.Client, loader app.QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
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
	key := poolKey(difficulty)
	if pool, ok := b.cached(ctx, key); ok {
		return pool, nil
	}

	result, err, _ := b.sf.Do(difficulty, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if pool, ok := b.cached(ctx, key); ok {
			return pool, nil
		}

		pool, err := b.loader.LoadQuestions(ctx, difficulty)
		if err != nil {
			return nil, err
		}
		if payload, err := json.Marshal(pool); err == nil {
			_ = b.client.Set(ctx, key, payload, b.ttlWithJitter()).Err()
		}
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (b *QuestionBank) cached(ctx context.Context, key string) ([]domain.Question, bool) {
	// A cache error is treated as a miss; the loader still answers.
	raw, err := b.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var pool []domain.Question
	if err := json.Unmarshal(raw, &pool); err != nil || len(pool) == 0 {
		return nil, false
	}
	return pool, true
}

// Invalidate drops the cached pool so the next draw reloads it.
func (b *QuestionBank) Invalidate(ctx context.Context, difficulty string) error {
	return b.client.Del(ctx, poolKey(difficulty)).Err()
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	jitterMax := int64(b.ttl) / 10
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

func poolKey(difficulty string) string {
	return "battle:questions:" + difficulty
}
