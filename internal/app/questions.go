package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"quiz-battle-service/internal/domain"
)

// DefaultSupplierAttempts bounds calls to the primary supplier before falling back.
const DefaultSupplierAttempts = 2

// FallbackSupplier asks a primary supplier a bounded number of times and otherwise
// returns locally generated placeholder questions. It never returns an error.
type FallbackSupplier struct {
	primary  QuestionSupplier
	attempts int
	log      *slog.Logger
}

func NewFallbackSupplier(primary QuestionSupplier, attempts int, logger *slog.Logger) *FallbackSupplier {
	if attempts <= 0 {
		attempts = DefaultSupplierAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackSupplier{primary: primary, attempts: attempts, log: logger}
}

func (f *FallbackSupplier) Questions(ctx context.Context, difficulty string, count int) ([]domain.Question, error) {
	if f.primary != nil {
		for attempt := 1; attempt <= f.attempts; attempt++ {
			qs, err := f.primary.Questions(ctx, difficulty, count)
			if err == nil && len(qs) == count && validQuestions(qs) {
				return qs, nil
			}
			if err == nil {
				err = fmt.Errorf("got %d usable questions, want %d", len(qs), count)
			}
			f.log.Warn("question supplier attempt failed", "attempt", attempt, "difficulty", difficulty, "error", err)
			if ctx.Err() != nil {
				break
			}
		}
	}
	return GenerateLocalQuestions(difficulty, count), nil
}

// GenerateLocalQuestions builds count deterministic placeholder questions.
func GenerateLocalQuestions(difficulty string, count int) []domain.Question {
	if count <= 0 {
		return nil
	}
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(difficulty), " ", "-"))
	if slug == "" {
		slug = "any"
	}
	labels := []string{"A", "B", "C", "D"}
	out := make([]domain.Question, count)
	for i := range out {
		options := make([]string, len(labels))
		for j, l := range labels {
			options[j] = fmt.Sprintf("Đáp án %s", l)
		}
		out[i] = domain.Question{
			ID:            fmt.Sprintf("local-%s-%d", slug, i+1),
			Prompt:        fmt.Sprintf("Câu hỏi lịch sử Việt Nam số %d (%s)", i+1, difficulty),
			Options:       options,
			CorrectAnswer: options[i%len(options)],
			Explanation:   "Câu hỏi dự phòng khi không tải được ngân hàng câu hỏi.",
		}
	}
	return out
}

func validQuestions(qs []domain.Question) bool {
	for _, q := range qs {
		found := false
		for _, opt := range q.Options {
			if opt == q.CorrectAnswer {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
