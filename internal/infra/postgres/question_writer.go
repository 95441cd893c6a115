package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"trivia-bot/internal/domain"
)

// QuestionModel is the bun mapping of the questions table.
type QuestionModel struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID               int64     `bun:"id,pk,autoincrement"`
	Text             string    `bun:"text,notnull,unique"`
	Category         string    `bun:"category,notnull"`
	Difficulty       string    `bun:"difficulty,notnull"`
	CorrectAnswer    string    `bun:"correct_answer,notnull"`
	IncorrectAnswers []string  `bun:"incorrect_answers,type:jsonb,notnull"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// QuestionWriter stores imported questions, skipping ones already present.
type QuestionWriter struct {
	db *bun.DB
}

func NewQuestionWriter(db *bun.DB) *QuestionWriter {
	return &QuestionWriter{db: db}
}

// Save inserts the valid questions and reports how many rows were added.
func (w *QuestionWriter) Save(ctx context.Context, questions []domain.Question) (int, error) {
	models := make([]QuestionModel, 0, len(questions))
	for _, q := range questions {
		if q.Validate() != nil {
			continue
		}
		models = append(models, QuestionModel{
			Text:             q.Text,
			Category:         q.Category,
			Difficulty:       string(q.Difficulty),
			CorrectAnswer:    q.CorrectAnswer,
			IncorrectAnswers: q.IncorrectAnswers,
		})
	}
	if len(models) == 0 {
		return 0, nil
	}

	res, err := w.db.NewInsert().
		Model(&models).
		On("CONFLICT (text) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("insert questions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return len(models), nil
	}
	return int(n), nil
}

// Count returns the number of stored questions per difficulty.
func (w *QuestionWriter) Count(ctx context.Context, difficulty domain.Difficulty) (int, error) {
	return w.db.NewSelect().
		Model((*QuestionModel)(nil)).
		Where("difficulty = ?", string(difficulty)).
		Count(ctx)
}
