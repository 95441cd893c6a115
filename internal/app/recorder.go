package app

import "trivia-bot/internal/domain"

// Recorder receives round lifecycle signals for metrics.
type Recorder interface {
	RoundStarted(d domain.Difficulty)
	RoundFinished(out domain.Outcome)
	ProviderFailed(err error)
}

type nopRecorder struct{}

func (nopRecorder) RoundStarted(domain.Difficulty) {}
func (nopRecorder) RoundFinished(domain.Outcome)   {}
func (nopRecorder) ProviderFailed(error)           {}
