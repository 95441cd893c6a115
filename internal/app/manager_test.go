package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trivia-bot/internal/app"
	"trivia-bot/internal/domain"
)

func TestDuplicateCreateKeepsFirstRound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.manager.Create(ctx, "1", "general", capitalQuestion())
	require.NoError(t, err)

	_, err = f.manager.Create(ctx, "1", "general", capitalQuestion())
	require.ErrorIs(t, err, domain.ErrDuplicateSession)

	got, ok := f.manager.Get("1", "general")
	require.True(t, ok)
	require.Same(t, first, got)
	require.Equal(t, domain.StateActive, first.State())
	require.Equal(t, 1, f.manager.Active())

	// Other channels and other owners are independent keys.
	_, err = f.manager.Create(ctx, "1", "random", capitalQuestion())
	require.NoError(t, err)
	_, err = f.manager.Create(ctx, "2", "general", capitalQuestion())
	require.NoError(t, err)
	require.Equal(t, 3, f.manager.Active())
}

func TestConcurrentCreateHasSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 32
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		created    int
		duplicates int
		start      = make(chan struct{})
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.manager.Create(ctx, "1", "general", capitalQuestion())
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
			} else if errors.Is(err, domain.ErrDuplicateSession) {
				duplicates++
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, 1, created)
	require.Equal(t, n-1, duplicates)
	require.Equal(t, 1, f.manager.Active())
}

func TestRoundSlotFreesAfterResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.manager.Create(ctx, "1", "general", capitalQuestion())
	require.NoError(t, err)

	found, ok := f.manager.Lookup(s.ID())
	require.True(t, ok)
	require.Same(t, s, found)

	_, err = s.SubmitAnswer(ctx, "1", domain.AnswerOption{Index: 0})
	require.NoError(t, err)

	_, ok = f.manager.Lookup(s.ID())
	require.False(t, ok)

	next, err := f.manager.Create(ctx, "1", "general", capitalQuestion())
	require.NoError(t, err)
	require.NotEqual(t, s.ID(), next.ID())
}

func TestReleaseIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := f.manager.Create(ctx, "1", "general", capitalQuestion())
	require.NoError(t, err)
	_, err = old.SubmitAnswer(ctx, "1", domain.AnswerOption{Index: 1})
	require.NoError(t, err)

	current, err := f.manager.Create(ctx, "1", "general", capitalQuestion())
	require.NoError(t, err)

	// A late release for the finished round must not evict its successor.
	out, _ := old.Outcome()
	f.manager.ReleaseForTest(old, out)
	f.manager.ReleaseForTest(old, out)

	got, ok := f.manager.Get("1", "general")
	require.True(t, ok)
	require.Same(t, current, got)
}

func TestInvalidQuestionIsRejected(t *testing.T) {
	f := newFixture(t)

	q := capitalQuestion()
	q.IncorrectAnswers = []string{"London", "Berlin"}
	_, err := f.manager.Create(context.Background(), "1", "general", q)
	require.ErrorIs(t, err, domain.ErrInvalidQuestion)

	q = capitalQuestion()
	q.IncorrectAnswers = []string{"London", "PARIS", "Madrid"}
	_, err = f.manager.Create(context.Background(), "1", "general", q)
	require.ErrorIs(t, err, domain.ErrInvalidQuestion)

	require.Equal(t, 0, f.manager.Active())
}

func TestShutdownExpiresActiveRounds(t *testing.T) {
	clock := newFakeClock()
	scores := app.NewScoreBoard()
	manager := app.NewManager(app.ManagerConfig{
		Store:  newStore(),
		Scores: scores,
		Clock:  clock,
	})
	ctx := context.Background()

	a, err := manager.Create(ctx, "1", "general", capitalQuestion())
	require.NoError(t, err)
	b, err := manager.Create(ctx, "2", "general", capitalQuestion())
	require.NoError(t, err)

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, manager.Shutdown(shutdownCtx))

	for i, s := range []*app.Session{a, b} {
		out, ok := s.Outcome()
		require.True(t, ok)
		require.Equal(t, domain.StateExpired, out.State)
		require.True(t, clock.timer(i).Stopped())
	}
	require.Equal(t, 0, manager.Active())
	require.Empty(t, scores.Top(10))

	_, err = manager.Create(ctx, "3", "general", capitalQuestion())
	require.ErrorIs(t, err, domain.ErrManagerClosed)
}

func TestManagerReportsToRecorder(t *testing.T) {
	rec := &recordingRecorder{}
	clock := newFakeClock()
	manager := app.NewManager(app.ManagerConfig{
		Store:   newStore(),
		Scores:  app.NewScoreBoard(),
		Clock:   clock,
		Shuffle: fixedOrder,
		Metrics: rec,
	})
	defer manager.Shutdown(context.Background())
	ctx := context.Background()

	s, err := manager.Create(ctx, "1", "general", capitalQuestion())
	require.NoError(t, err)
	_, err = s.SubmitAnswer(ctx, "1", domain.AnswerOption{Index: 0})
	require.NoError(t, err)

	s, err = manager.Create(ctx, "1", "general", capitalQuestion())
	require.NoError(t, err)
	clock.timer(1).Fire()
	waitDone(t, s)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Equal(t, 2, rec.started)
	require.Equal(t, []domain.State{domain.StateResolved, domain.StateExpired}, rec.finished)
}

type recordingRecorder struct {
	mu       sync.Mutex
	started  int
	finished []domain.State
	failures []error
}

func (r *recordingRecorder) RoundStarted(domain.Difficulty) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingRecorder) RoundFinished(out domain.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, out.State)
}

func (r *recordingRecorder) ProviderFailed(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}
