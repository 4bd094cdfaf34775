package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"quiz-battle-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionLoader loads difficulty pools from the questions table.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context, difficulty string) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, prompt, options, correct_answer, explanation, image_url
		   FROM questions WHERE difficulty=$1 ORDER BY id`, difficulty)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var (
			q       domain.Question
			options []byte
		)
		if err := rows.Scan(&q.ID, &q.Prompt, &options, &q.CorrectAnswer, &q.Explanation, &q.ImageURL); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options of %s: %w", q.ID, err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrNotEnoughQuestions, difficulty)
	}
	return out, nil
}

// SaveQuestions upserts a pool, keyed by question id.
func (l *QuestionLoader) SaveQuestions(ctx context.Context, difficulty string, questions []domain.Question) error {
	batch := &pgx.Batch{}
	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("marshal options of %s: %w", q.ID, err)
		}
		batch.Queue(`INSERT INTO questions (id, difficulty, prompt, options, correct_answer, explanation, image_url)
			VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET difficulty=EXCLUDED.difficulty, prompt=EXCLUDED.prompt,
				options=EXCLUDED.options, correct_answer=EXCLUDED.correct_answer,
				explanation=EXCLUDED.explanation, image_url=EXCLUDED.image_url`,
			q.ID, difficulty, q.Prompt, string(options), q.CorrectAnswer, q.Explanation, q.ImageURL)
	}
	results := l.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range questions {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("save questions: %w", err)
		}
	}
	return nil
}
