package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-bot/internal/domain"
)

const selectQuestions = `
SELECT text, category, difficulty, correct_answer, incorrect_answers
FROM questions
WHERE difficulty = $1
ORDER BY random()
LIMIT $2`

// QuestionBank serves random questions from the questions table.
type QuestionBank struct {
	pool *pgxpool.Pool
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

func (b *QuestionBank) Fetch(ctx context.Context, difficulty domain.Difficulty) (domain.Question, error) {
	questions, err := b.LoadQuestions(ctx, difficulty, 1)
	if err != nil {
		return domain.Question{}, err
	}
	return questions[0], nil
}

// LoadQuestions returns up to n random questions; rows that do not form a
// valid round are skipped.
func (b *QuestionBank) LoadQuestions(ctx context.Context, difficulty domain.Difficulty, n int) ([]domain.Question, error) {
	if n <= 0 {
		n = 1
	}
	rows, err := b.pool.Query(ctx, selectQuestions, string(difficulty), n)
	if err != nil {
		return nil, domain.NewProviderError(domain.NetworkError, fmt.Errorf("query questions: %w", err))
	}
	defer rows.Close()

	questions := make([]domain.Question, 0, n)
	for rows.Next() {
		var (
			q         domain.Question
			rawDiff   string
			incorrect []byte
		)
		if err := rows.Scan(&q.Text, &q.Category, &rawDiff, &q.CorrectAnswer, &incorrect); err != nil {
			return nil, domain.NewProviderError(domain.NetworkError, fmt.Errorf("scan question: %w", err))
		}
		q.Difficulty = domain.Difficulty(rawDiff)
		if err := json.Unmarshal(incorrect, &q.IncorrectAnswers); err != nil {
			continue
		}
		if q.Validate() != nil {
			continue
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewProviderError(domain.NetworkError, fmt.Errorf("read questions: %w", err))
	}
	if len(questions) == 0 {
		return nil, domain.NewProviderError(domain.EmptyResult, nil)
	}
	return questions, nil
}
