package app

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"trivia-bot/internal/domain"
)

// DefaultRoundTimeout is how long the owner has to answer.
const DefaultRoundTimeout = 20 * time.Second

// SessionStore indexes live rounds by (owner, channel) and by ID. Insert must
// be an atomic insert-if-absent on the (owner, channel) key.
type SessionStore interface {
	Insert(s *Session) bool
	Get(ownerID, channelID string) (*Session, bool)
	GetByID(id string) (*Session, bool)
	// Delete removes s only if the store still holds that exact round.
	Delete(s *Session) bool
	Len() int
}

type ManagerConfig struct {
	Store   SessionStore
	Scores  Scorer
	Timeout time.Duration
	Clock   Clock
	// Shuffle defaults to math/rand.Shuffle.
	Shuffle func(n int, swap func(i, j int))
	NewID   func() string
	Logger  *slog.Logger
	Metrics Recorder
}

// Manager creates rounds and keeps at most one active round per owner and
// channel.
type Manager struct {
	store   SessionStore
	scores  Scorer
	timeout time.Duration
	clock   Clock
	shuffle func(n int, swap func(i, j int))
	newID   func() string
	logger  *slog.Logger
	metrics Recorder

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewManager(c ManagerConfig) *Manager {
	m := &Manager{
		store:   c.Store,
		scores:  c.Scores,
		timeout: c.Timeout,
		clock:   c.Clock,
		shuffle: c.Shuffle,
		newID:   c.NewID,
		logger:  c.Logger,
		metrics: c.Metrics,
	}
	if m.timeout <= 0 {
		m.timeout = DefaultRoundTimeout
	}
	if m.clock == nil {
		m.clock = SystemClock{}
	}
	if m.shuffle == nil {
		m.shuffle = rand.Shuffle
	}
	if m.newID == nil {
		m.newID = newSessionID
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.metrics == nil {
		m.metrics = nopRecorder{}
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Create starts a round for ownerID in channelID. It fails with
// domain.ErrDuplicateSession when that owner already has an active round
// there; the rejected round is never visible to anyone.
func (m *Manager) Create(ctx context.Context, ownerID, channelID string, q domain.Question) (*Session, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	answers := q.Answers()
	perm := make([]int, len(answers))
	for i := range perm {
		perm[i] = i
	}
	m.shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })

	options := make([]string, len(answers))
	correct := 0
	for i, p := range perm {
		options[i] = answers[p]
		if p == 0 {
			correct = i
		}
	}

	now := m.clock.Now()
	s := newSession(m.newID(), ownerID, channelID, q, options, correct, now, now.Add(m.timeout), m.scores)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, domain.ErrManagerClosed
	}
	if !m.store.Insert(s) {
		return nil, domain.ErrDuplicateSession
	}

	timer := m.clock.NewTimer(m.timeout)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		s.run(m.ctx, timer, m.release)
	}()

	m.metrics.RoundStarted(q.Difficulty)
	m.logger.InfoContext(ctx, "trivia: round started",
		"session", s.ID(),
		"owner", ownerID,
		"channel", channelID,
		"difficulty", q.Difficulty,
	)
	return s, nil
}

// Get returns the active round for ownerID in channelID.
func (m *Manager) Get(ownerID, channelID string) (*Session, bool) {
	return m.store.Get(ownerID, channelID)
}

// Lookup returns an active round by ID.
func (m *Manager) Lookup(id string) (*Session, bool) {
	return m.store.GetByID(id)
}

// Active reports the number of live rounds.
func (m *Manager) Active() int {
	return m.store.Len()
}

// release drops a finished round from the index. Calling it again for the
// same round is a no-op.
func (m *Manager) release(s *Session, out domain.Outcome) {
	if !m.store.Delete(s) {
		return
	}
	m.metrics.RoundFinished(out)
	m.logger.Info("trivia: round finished",
		"session", s.ID(),
		"owner", s.OwnerID(),
		"state", out.State.String(),
		"correct", out.Correct,
	)
}

// Shutdown stops accepting rounds, expires every active round and waits for
// their goroutines and timers to finish.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
