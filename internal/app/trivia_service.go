package app

import (
	"context"
	"fmt"
	"log/slog"

	"trivia-bot/internal/domain"
)

// LeaderboardSize is how many entries the leaderboard command shows.
const LeaderboardSize = 10

// QuestionProvider supplies one question per call. Failures are
// *domain.ProviderError values; callers do not retry.
type QuestionProvider interface {
	Fetch(ctx context.Context, difficulty domain.Difficulty) (domain.Question, error)
}

// TriviaService contains the command-level use cases shared by every
// presentation adapter.
type TriviaService struct {
	provider QuestionProvider
	manager  *Manager
	scores   *ScoreBoard
	logger   *slog.Logger
	metrics  Recorder
}

func NewTriviaService(provider QuestionProvider, manager *Manager, scores *ScoreBoard, logger *slog.Logger, metrics Recorder) *TriviaService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &TriviaService{
		provider: provider,
		manager:  manager,
		scores:   scores,
		logger:   logger,
		metrics:  metrics,
	}
}

// StartRound validates the difficulty, fetches one question and opens a
// round for ownerID in channelID.
func (s *TriviaService) StartRound(ctx context.Context, ownerID, channelID, rawDifficulty string) (*Session, error) {
	difficulty, err := domain.ParseDifficulty(rawDifficulty)
	if err != nil {
		return nil, err
	}

	// Skip the provider call when the round would be rejected anyway.
	if _, ok := s.manager.Get(ownerID, channelID); ok {
		return nil, domain.ErrDuplicateSession
	}

	q, err := s.provider.Fetch(ctx, difficulty)
	if err != nil {
		s.metrics.ProviderFailed(err)
		s.logger.WarnContext(ctx, "trivia: fetch question failed",
			"owner", ownerID,
			"difficulty", difficulty,
			"error", err,
		)
		return nil, fmt.Errorf("fetch question: %w", err)
	}
	if q.Difficulty == "" {
		q.Difficulty = difficulty
	}

	return s.manager.Create(ctx, ownerID, channelID, q)
}

// SubmitAnswer routes a choice to the round with the given ID.
func (s *TriviaService) SubmitAnswer(ctx context.Context, sessionID, userID string, choice domain.AnswerOption) (domain.Outcome, error) {
	session, ok := s.manager.Lookup(sessionID)
	if !ok {
		return domain.Outcome{}, domain.ErrSessionNotFound
	}
	return session.SubmitAnswer(ctx, userID, choice)
}

// Round returns a live round by ID.
func (s *TriviaService) Round(sessionID string) (*Session, bool) {
	return s.manager.Lookup(sessionID)
}

// ActiveRound returns the owner's live round in a channel.
func (s *TriviaService) ActiveRound(ownerID, channelID string) (*Session, bool) {
	return s.manager.Get(ownerID, channelID)
}

// Leaderboard returns the top n players.
func (s *TriviaService) Leaderboard(n int) domain.Leaderboard {
	return s.scores.Leaderboard(n)
}

// Scores exposes the board for subscribers.
func (s *TriviaService) Scores() *ScoreBoard {
	return s.scores
}
