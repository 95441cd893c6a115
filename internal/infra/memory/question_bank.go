package memory

import (
	"context"
	"math/rand"

	"trivia-bot/internal/domain"
)

// StaticQuestionBank serves questions from a fixed in-memory set (useful for
// tests and for running without network access).
type StaticQuestionBank struct {
	questions map[domain.Difficulty][]domain.Question
}

func NewStaticQuestionBank(questions []domain.Question) *StaticQuestionBank {
	bank := &StaticQuestionBank{questions: make(map[domain.Difficulty][]domain.Question)}
	for _, q := range questions {
		bank.questions[q.Difficulty] = append(bank.questions[q.Difficulty], q)
	}
	return bank
}

func (b *StaticQuestionBank) Fetch(_ context.Context, difficulty domain.Difficulty) (domain.Question, error) {
	qs := b.questions[difficulty]
	if len(qs) == 0 {
		return domain.Question{}, domain.NewProviderError(domain.EmptyResult, nil)
	}
	return qs[rand.Intn(len(qs))], nil
}

func (b *StaticQuestionBank) LoadQuestions(_ context.Context, difficulty domain.Difficulty, n int) ([]domain.Question, error) {
	qs := b.questions[difficulty]
	if len(qs) == 0 {
		return nil, domain.NewProviderError(domain.EmptyResult, nil)
	}
	out := make([]domain.Question, len(qs))
	copy(out, qs)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out, nil
}

// SampleQuestions is a minimal bank covering every difficulty; swap it for
// the OpenTDB or Postgres provider in production.
func SampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Text:             "What is the capital of France?",
			Category:         "Geography",
			Difficulty:       domain.DifficultyEasy,
			CorrectAnswer:    "Paris",
			IncorrectAnswers: []string{"London", "Berlin", "Madrid"},
		},
		{
			Text:             "How many legs does a spider have?",
			Category:         "Science & Nature",
			Difficulty:       domain.DifficultyEasy,
			CorrectAnswer:    "8",
			IncorrectAnswers: []string{"6", "10", "12"},
		},
		{
			Text:             "Which planet has the most moons?",
			Category:         "Science & Nature",
			Difficulty:       domain.DifficultyMedium,
			CorrectAnswer:    "Saturn",
			IncorrectAnswers: []string{"Jupiter", "Uranus", "Neptune"},
		},
		{
			Text:             "In which year did the Berlin Wall fall?",
			Category:         "History",
			Difficulty:       domain.DifficultyMedium,
			CorrectAnswer:    "1989",
			IncorrectAnswers: []string{"1987", "1991", "1993"},
		},
		{
			Text:             "Which element has the atomic number 74?",
			Category:         "Science & Nature",
			Difficulty:       domain.DifficultyHard,
			CorrectAnswer:    "Tungsten",
			IncorrectAnswers: []string{"Osmium", "Rhenium", "Tantalum"},
		},
		{
			Text:             "Who composed the opera \"Wozzeck\"?",
			Category:         "Entertainment: Music",
			Difficulty:       domain.DifficultyHard,
			CorrectAnswer:    "Alban Berg",
			IncorrectAnswers: []string{"Arnold Schoenberg", "Anton Webern", "Paul Hindemith"},
		},
	}
}
