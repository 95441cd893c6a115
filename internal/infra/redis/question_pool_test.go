package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"trivia-bot/internal/domain"
	"trivia-bot/internal/infra/memory"
)

func TestQuestionPoolCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{BatchLoader: memory.NewStaticQuestionBank(memory.SampleQuestions())}
	pool := NewQuestionPool(client, loader, 2, time.Minute)

	q, err := pool.Fetch(context.Background(), domain.DifficultyMedium)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if q.Difficulty != domain.DifficultyMedium {
		t.Fatalf("expected medium question, got %q", q.Difficulty)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	key := "trivia:questions:medium"
	if !mr.Exists(key) {
		t.Fatalf("expected backlog list in redis")
	}
	if ttl := mr.TTL(key); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl with up to 10%% jitter, got %v", ttl)
	}

	// Second call should hit the backlog, loader not incremented.
	if _, err := pool.Fetch(context.Background(), domain.DifficultyMedium); err != nil {
		t.Fatalf("fetch 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

func TestQuestionPoolSkipsCorruptEntries(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	if _, err := mr.Push("trivia:questions:easy", "{not json", `{"text":"half a question"}`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	loader := &countingLoader{BatchLoader: memory.NewStaticQuestionBank(memory.SampleQuestions())}
	pool := NewQuestionPool(newClient(mr), loader, 2, time.Minute)

	q, err := pool.Fetch(context.Background(), domain.DifficultyEasy)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if err := q.Validate(); err != nil {
		t.Fatalf("expected valid question, got %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected refill after corrupt entries, loader calls=%d", loader.calls)
	}
}

func TestQuestionPoolEmptyLoader(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	pool := NewQuestionPool(newClient(mr), memory.NewStaticQuestionBank(nil), 2, time.Minute)
	_, err = pool.Fetch(context.Background(), domain.DifficultyHard)
	if !errors.Is(err, domain.ErrEmptyResult) {
		t.Fatalf("expected empty result, got %v", err)
	}
}

func TestQuestionPoolServesLoadedBatchWhenRedisFails(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	// Redis goes away between the empty pop and the refill.
	loader := &countingLoader{BatchLoader: breakingLoader{
		BatchLoader: memory.NewStaticQuestionBank(memory.SampleQuestions()),
		mr:          mr,
	}}
	pool := NewQuestionPool(newClient(mr), loader, 2, time.Minute)

	q, err := pool.Fetch(context.Background(), domain.DifficultyHard)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if q.Difficulty != domain.DifficultyHard {
		t.Fatalf("expected hard question, got %q", q.Difficulty)
	}
	if loader.calls != 1 {
		t.Fatalf("expected a single upstream call, got %d", loader.calls)
	}
}

func TestQuestionPoolInvalidBatchCallsLoaderOnce(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	broken := domain.Question{
		Text:             "Capital of France?",
		Difficulty:       domain.DifficultyEasy,
		CorrectAnswer:    "Paris",
		IncorrectAnswers: []string{"Paris", "Rome", "Oslo"},
	}
	loader := &countingLoader{BatchLoader: memory.NewStaticQuestionBank([]domain.Question{broken})}
	pool := NewQuestionPool(newClient(mr), loader, 2, time.Minute)

	_, err = pool.Fetch(context.Background(), domain.DifficultyEasy)
	if !errors.Is(err, domain.ErrEmptyResult) {
		t.Fatalf("expected empty result, got %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected a single upstream call, got %d", loader.calls)
	}
	if mr.Exists("trivia:questions:easy") {
		t.Fatalf("expected invalid questions to stay out of the backlog")
	}
}

type breakingLoader struct {
	memory.BatchLoader
	mr *miniredis.Miniredis
}

func (l breakingLoader) LoadQuestions(ctx context.Context, d domain.Difficulty, n int) ([]domain.Question, error) {
	l.mr.SetError("ERR server unavailable")
	return l.BatchLoader.LoadQuestions(ctx, d, n)
}

type countingLoader struct {
	memory.BatchLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, d domain.Difficulty, n int) ([]domain.Question, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.BatchLoader.LoadQuestions(ctx, d, n)
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
