package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"trivia-bot/internal/app"
	"trivia-bot/internal/domain"
	"trivia-bot/internal/infra/memory"
)

// fakeClock hands out timers that only fire when the test says so.
type fakeClock struct {
	now time.Time

	mu     sync.Mutex
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 11, 22, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) NewTimer(d time.Duration) app.Timer {
	t := &fakeTimer{c: make(chan time.Time, 1), at: c.now.Add(d)}
	c.mu.Lock()
	c.timers = append(c.timers, t)
	c.mu.Unlock()
	return t
}

func (c *fakeClock) timer(i int) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers[i]
}

type fakeTimer struct {
	c  chan time.Time
	at time.Time

	mu      sync.Mutex
	stopped bool
}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

// Fire delivers the deadline unless the timer was stopped.
func (t *fakeTimer) Fire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	select {
	case t.c <- t.at:
	default:
	}
}

func (t *fakeTimer) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fixedOrder keeps the correct answer first so tests know every index.
func fixedOrder(int, func(i, j int)) {}

type fixture struct {
	clock   *fakeClock
	scores  *app.ScoreBoard
	store   *memory.SessionStore
	manager *app.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:  newFakeClock(),
		scores: app.NewScoreBoard(),
		store:  memory.NewSessionStore(),
	}
	f.manager = app.NewManager(app.ManagerConfig{
		Store:   f.store,
		Scores:  f.scores,
		Clock:   f.clock,
		Shuffle: fixedOrder,
	})
	t.Cleanup(func() { _ = f.manager.Shutdown(context.Background()) })
	return f
}

// newShuffledManager uses the default uniform shuffle.
func newShuffledManager(t *testing.T) *app.Manager {
	t.Helper()
	m := app.NewManager(app.ManagerConfig{
		Store:  memory.NewSessionStore(),
		Scores: app.NewScoreBoard(),
		Clock:  newFakeClock(),
	})
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m
}

func capitalQuestion() domain.Question {
	return domain.Question{
		Text:             "What is the capital of France?",
		Category:         "Geography",
		Difficulty:       domain.DifficultyMedium,
		CorrectAnswer:    "Paris",
		IncorrectAnswers: []string{"London", "Berlin", "Madrid"},
	}
}

func waitDone(t *testing.T, s *app.Session) domain.Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := s.Wait(ctx)
	if err != nil {
		t.Fatalf("round did not finish: %v", err)
	}
	return out
}

func newStore() *memory.SessionStore {
	return memory.NewSessionStore()
}
