package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-bot/internal/domain"
)

// BatchLoader fetches several questions of one difficulty in a single call
// (e.g. one OpenTDB request or one Postgres query).
type BatchLoader interface {
	LoadQuestions(ctx context.Context, difficulty domain.Difficulty, n int) ([]domain.Question, error)
}

// QuestionPool buffers batches from a loader and hands them out one per
// Fetch, so the upstream is hit once per batch instead of once per round.
type QuestionPool struct {
	loader BatchLoader
	batch  int
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu      sync.Mutex
	buffers map[domain.Difficulty]*pooledBatch
}

type pooledBatch struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionPool(loader BatchLoader, batch int, ttl time.Duration) *QuestionPool {
	if batch <= 0 {
		batch = 1
	}
	return &QuestionPool{
		loader:  loader,
		batch:   batch,
		ttl:     ttl,
		clock:   time.Now,
		buffers: make(map[domain.Difficulty]*pooledBatch),
	}
}

// Fetch hands out one buffered question. An empty or expired buffer is
// refilled with a single upstream call; if that batch yields nothing usable
// the call fails with EmptyResult instead of asking again.
func (p *QuestionPool) Fetch(ctx context.Context, difficulty domain.Difficulty) (domain.Question, error) {
	if q, ok := p.take(difficulty); ok {
		return q, nil
	}

	_, err, _ := p.sf.Do(string(difficulty), func() (interface{}, error) {
		// Re-check in case another goroutine refilled the buffer.
		if p.available(difficulty) {
			return nil, nil
		}

		questions, err := p.loader.LoadQuestions(ctx, difficulty, p.batch)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.buffers[difficulty] = &pooledBatch{
			questions: questions,
			expiresAt: p.clock().Add(p.ttlWithJitter()),
		}
		p.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return domain.Question{}, err
	}

	if q, ok := p.take(difficulty); ok {
		return q, nil
	}
	return domain.Question{}, domain.NewProviderError(domain.EmptyResult, nil)
}

// Buffered reports how many questions are waiting for a difficulty.
func (p *QuestionPool) Buffered(difficulty domain.Difficulty) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.buffers[difficulty]
	if !ok || !p.liveLocked(b) {
		return 0
	}
	return len(b.questions)
}

func (p *QuestionPool) take(difficulty domain.Difficulty) (domain.Question, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.buffers[difficulty]
	if !ok || !p.liveLocked(b) {
		delete(p.buffers, difficulty)
		return domain.Question{}, false
	}
	for len(b.questions) > 0 {
		q := b.questions[0]
		b.questions = b.questions[1:]
		if q.Validate() == nil {
			return q, true
		}
	}
	return domain.Question{}, false
}

func (p *QuestionPool) available(difficulty domain.Difficulty) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.buffers[difficulty]
	return ok && p.liveLocked(b) && len(b.questions) > 0
}

func (p *QuestionPool) liveLocked(b *pooledBatch) bool {
	return p.ttl <= 0 || b.expiresAt.After(p.clock())
}

func (p *QuestionPool) ttlWithJitter() time.Duration {
	if p.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(p.ttl) / 10
	return p.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
