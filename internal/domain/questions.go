package domain

import (
	"fmt"
	"math/rand"
)

// DrawQuestions returns count questions from pool in random order. The returned
// questions do not share option slices with the pool.
func DrawQuestions(pool []Question, count int, rnd *rand.Rand) ([]Question, error) {
	if count <= 0 || len(pool) < count {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrNotEnoughQuestions, len(pool), count)
	}
	out := make([]Question, 0, count)
	for _, i := range rnd.Perm(len(pool))[:count] {
		q := pool[i]
		q.Options = append([]string(nil), q.Options...)
		out = append(out, q)
	}
	return out, nil
}
