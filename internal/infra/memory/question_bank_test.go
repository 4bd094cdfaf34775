package memory

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"quiz-battle-service/internal/domain"
)

func TestQuestionBankCaches(t *testing.T) {
	loader := &countingLoader{questionLoader: NewStaticQuestionLoader(SampleQuestionPools())}
	bank := NewQuestionBank(loader, time.Minute)

	qs, err := bank.Questions(context.Background(), "Medium", 5)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(qs) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(qs))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := bank.Questions(context.Background(), "Medium", 3); err != nil {
		t.Fatalf("questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionBankNotEnough(t *testing.T) {
	bank := NewQuestionBank(NewStaticQuestionLoader(SampleQuestionPools()), time.Minute)
	if _, err := bank.Questions(context.Background(), "Medium", 50); !errors.Is(err, domain.ErrNotEnoughQuestions) {
		t.Fatalf("expected not enough questions, got %v", err)
	}
	if _, err := bank.Questions(context.Background(), "Legendary", 1); !errors.Is(err, domain.ErrNotEnoughQuestions) {
		t.Fatalf("expected unknown difficulty to fail, got %v", err)
	}
}

func TestSampleQuestionsDistinct(t *testing.T) {
	pool := SampleQuestionPools()["Hard"]
	qs, err := domain.DrawQuestions(pool, len(pool), rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	seen := map[string]bool{}
	for _, q := range qs {
		if seen[q.ID] {
			t.Fatalf("duplicate question %s", q.ID)
		}
		seen[q.ID] = true
	}
	qs[0].Options[0] = "changed"
	for _, q := range pool {
		for _, opt := range q.Options {
			if opt == "changed" {
				t.Fatalf("sample aliased pool options")
			}
		}
	}
}

func TestSamplePoolsAreConsistent(t *testing.T) {
	for difficulty, pool := range SampleQuestionPools() {
		for _, q := range pool {
			if !contains(q.Options, q.CorrectAnswer) {
				t.Fatalf("%s/%s: correct answer missing from options", difficulty, q.ID)
			}
		}
	}
}

type countingLoader struct {
	questionLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, difficulty string) ([]domain.Question, error) {
	l.calls++
	return l.questionLoader.LoadQuestions(ctx, difficulty)
}

func contains(options []string, want string) bool {
	for _, o := range options {
		if o == want {
			return true
		}
	}
	return false
}
