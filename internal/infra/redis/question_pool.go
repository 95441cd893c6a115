package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-bot/internal/domain"
	"trivia-bot/internal/infra/memory"
)

// QuestionPool keeps a shared backlog of questions in Redis so several bot
// instances drain one batch instead of each calling the upstream provider.
// Questions are stored as JSON in a list per difficulty:
//
//	RPUSH trivia:questions:{difficulty} {json} ...
type QuestionPool struct {
	client *redis.Client
	loader memory.BatchLoader
	batch  int
	ttl    time.Duration
	sf     singleflight.Group
}

func NewQuestionPool(client *redis.Client, loader memory.BatchLoader, batch int, ttl time.Duration) *QuestionPool {
	if batch <= 0 {
		batch = 1
	}
	return &QuestionPool{
		client: client,
		loader: loader,
		batch:  batch,
		ttl:    ttl,
	}
}

// Fetch pops one question from the backlog. A drained backlog is refilled
// with a single upstream call per Fetch; when Redis cannot hold or return the
// batch, the question comes from the batch already loaded.
func (p *QuestionPool) Fetch(ctx context.Context, difficulty domain.Difficulty) (domain.Question, error) {
	key := p.key(difficulty)

	q, ok, err := p.pop(ctx, key)
	if err != nil {
		// Redis is only a cache; go straight to the loader.
		return p.loadOne(ctx, difficulty)
	}
	if ok {
		return q, nil
	}

	v, err, _ := p.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine refilled the list.
		if n, err := p.client.LLen(ctx, key).Result(); err == nil && n > 0 {
			return []domain.Question(nil), nil
		}

		questions, err := p.loader.LoadQuestions(ctx, difficulty, p.batch)
		if err != nil {
			return nil, err
		}
		p.store(ctx, key, questions)
		return questions, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	loaded, _ := v.([]domain.Question)

	q, ok, err = p.pop(ctx, key)
	switch {
	case err == nil && ok:
		return q, nil
	case err != nil && loaded == nil:
		// Another caller refilled the list; this Fetch has not gone upstream yet.
		return p.loadOne(ctx, difficulty)
	}
	for _, q := range loaded {
		if q.Validate() == nil {
			return q, nil
		}
	}
	return domain.Question{}, domain.NewProviderError(domain.EmptyResult, nil)
}

// store appends the batch to the backlog. Failures are logged by the client
// hook and otherwise ignored.
func (p *QuestionPool) store(ctx context.Context, key string, questions []domain.Question) {
	values := make([]interface{}, 0, len(questions))
	for _, q := range questions {
		if q.Validate() != nil {
			continue
		}
		raw, err := json.Marshal(q)
		if err != nil {
			continue
		}
		values = append(values, raw)
	}
	if len(values) == 0 {
		return
	}

	pipe := p.client.Pipeline()
	pipe.RPush(ctx, key, values...)
	if ttl := p.ttlWithJitter(); ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, _ = pipe.Exec(ctx)
}

// pop takes the next valid question; ok is false when the list is drained.
func (p *QuestionPool) pop(ctx context.Context, key string) (domain.Question, bool, error) {
	for {
		raw, err := p.client.LPop(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.Question{}, false, nil
		}
		if err != nil {
			return domain.Question{}, false, err
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil || q.Validate() != nil {
			continue
		}
		return q, true, nil
	}
}

func (p *QuestionPool) loadOne(ctx context.Context, difficulty domain.Difficulty) (domain.Question, error) {
	questions, err := p.loader.LoadQuestions(ctx, difficulty, 1)
	if err != nil {
		return domain.Question{}, err
	}
	for _, q := range questions {
		if q.Validate() == nil {
			return q, nil
		}
	}
	return domain.Question{}, domain.NewProviderError(domain.EmptyResult, nil)
}

func (p *QuestionPool) key(difficulty domain.Difficulty) string {
	return "trivia:questions:" + string(difficulty)
}

func (p *QuestionPool) ttlWithJitter() time.Duration {
	if p.ttl <= 0 {
		return 0
	}
	jitterMax := int64(p.ttl) / 10
	return p.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
