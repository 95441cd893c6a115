package app

import (
	"sort"
	"sync"
	"time"

	"trivia-bot/internal/domain"
)

// Scorer is the part of the ScoreBoard a round needs.
type Scorer interface {
	Increment(userID string) int
}

// ScoreBoard accumulates correct answers per user for the lifetime of the
// process. Nothing is persisted: every score is lost on restart.
type ScoreBoard struct {
	now func() time.Time

	mu          sync.Mutex
	seq         uint64
	entries     map[string]*scoreEntry
	subscribers map[chan domain.Leaderboard]struct{}
}

type scoreEntry struct {
	userID    string
	score     int
	firstSeen uint64
}

func NewScoreBoard() *ScoreBoard {
	return NewScoreBoardWithClock(time.Now)
}

// NewScoreBoardWithClock allows deterministic UpdatedAt timestamps in tests.
func NewScoreBoardWithClock(now func() time.Time) *ScoreBoard {
	return &ScoreBoard{
		now:         now,
		entries:     make(map[string]*scoreEntry),
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// Increment adds one point to userID and returns the new total. A user seen
// for the first time is ranked after everyone already on the board at the
// same score.
func (b *ScoreBoard) Increment(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[userID]
	if !ok {
		b.seq++
		e = &scoreEntry{userID: userID, firstSeen: b.seq}
		b.entries[userID] = e
	}
	e.score++
	b.broadcastLocked()
	return e.score
}

// Score returns the current total for userID.
func (b *ScoreBoard) Score(userID string) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[userID]
	if !ok {
		return 0, false
	}
	return e.score, true
}

// Top returns the n best entries, highest score first. Equal scores keep
// first-seen order.
func (b *ScoreBoard) Top(n int) []domain.LeaderboardEntry {
	if n <= 0 {
		return []domain.LeaderboardEntry{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.topLocked(n)
}

// Leaderboard wraps Top with a timestamp.
func (b *ScoreBoard) Leaderboard(n int) domain.Leaderboard {
	return domain.Leaderboard{Entries: b.Top(n), UpdatedAt: b.now()}
}

// Subscribe returns a channel that receives the full leaderboard after every
// increment, starting with the current snapshot. The caller must invoke the
// returned cancel function to avoid leaks.
func (b *ScoreBoard) Subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	ch <- b.snapshotLocked()
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *ScoreBoard) broadcastLocked() {
	if len(b.subscribers) == 0 {
		return
	}
	lb := b.snapshotLocked()
	for ch := range b.subscribers {
		select {
		case ch <- lb:
		default:
			// Drop the oldest pending snapshot so a slow reader never blocks scoring.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

func (b *ScoreBoard) snapshotLocked() domain.Leaderboard {
	return domain.Leaderboard{
		Entries:   b.topLocked(len(b.entries)),
		UpdatedAt: b.now(),
	}
}

func (b *ScoreBoard) topLocked(n int) []domain.LeaderboardEntry {
	ranked := make([]*scoreEntry, 0, len(b.entries))
	for _, e := range b.entries {
		ranked = append(ranked, e)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].firstSeen < ranked[j].firstSeen
	})
	if n > len(ranked) {
		n = len(ranked)
	}

	out := make([]domain.LeaderboardEntry, 0, n)
	for i, e := range ranked[:n] {
		out = append(out, domain.LeaderboardEntry{
			Rank:   i + 1,
			UserID: e.userID,
			Score:  e.score,
		})
	}
	return out
}
