package app

import (
	"context"
	"sync"
	"time"

	"trivia-bot/internal/domain"
)

// Session is a single trivia round. All transitions happen on the round's
// own goroutine, which races incoming answers against the deadline timer;
// the first event it takes ends the round and every later answer gets
// domain.ErrAlreadyTerminal.
type Session struct {
	id         string
	ownerID    string
	channelID  string
	question   string
	category   string
	difficulty domain.Difficulty
	options    []string
	correct    int
	createdAt  time.Time
	deadline   time.Time

	scores  Scorer
	answers chan answerRequest
	done    chan struct{}

	mu      sync.RWMutex
	state   domain.State
	winner  string
	outcome domain.Outcome
}

type answerRequest struct {
	userID string
	choice domain.AnswerOption
	reply  chan answerReply
}

type answerReply struct {
	outcome domain.Outcome
	err     error
}

func newSession(id, ownerID, channelID string, q domain.Question, options []string, correct int, createdAt, deadline time.Time, scores Scorer) *Session {
	return &Session{
		id:         id,
		ownerID:    ownerID,
		channelID:  channelID,
		question:   q.Text,
		category:   q.Category,
		difficulty: q.Difficulty,
		options:    options,
		correct:    correct,
		createdAt:  createdAt,
		deadline:   deadline,
		scores:     scores,
		answers:    make(chan answerRequest),
		done:       make(chan struct{}),
		state:      domain.StateActive,
	}
}

func (s *Session) ID() string        { return s.id }
func (s *Session) OwnerID() string   { return s.ownerID }
func (s *Session) ChannelID() string { return s.channelID }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Deadline is when the round expires if nobody answered.
func (s *Session) Deadline() time.Time { return s.deadline }

// CorrectAnswer returns the text of the right option.
func (s *Session) CorrectAnswer() string { return s.options[s.correct] }

// State reports the lifecycle position. Once it is terminal the winner's
// score has already been incremented.
func (s *Session) State() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Winner returns the owner's ID once the round was resolved with the right answer.
func (s *Session) Winner() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.winner, s.winner != ""
}

// View returns what presentation adapters render.
func (s *Session) View() domain.RoundView {
	opts := make([]domain.AnswerOption, len(s.options))
	for i, o := range s.options {
		opts[i] = domain.AnswerOption{Index: i, Label: o}
	}
	return domain.RoundView{
		SessionID:  s.id,
		OwnerID:    s.ownerID,
		ChannelID:  s.channelID,
		Question:   s.question,
		Category:   s.category,
		Difficulty: s.difficulty,
		Options:    opts,
		Deadline:   s.deadline,
	}
}

// Done is closed once the round reached a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Outcome returns the final result; ok is false while the round is active.
func (s *Session) Outcome() (domain.Outcome, bool) {
	select {
	case <-s.done:
	default:
		return domain.Outcome{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outcome, true
}

// Wait blocks until the round ends or ctx is done.
func (s *Session) Wait(ctx context.Context) (domain.Outcome, error) {
	select {
	case <-s.done:
		out, _ := s.Outcome()
		return out, nil
	case <-ctx.Done():
		return domain.Outcome{}, ctx.Err()
	}
}

// SubmitAnswer hands the choice to the round goroutine. Only the owner's
// first valid answer resolves the round.
func (s *Session) SubmitAnswer(ctx context.Context, userID string, choice domain.AnswerOption) (domain.Outcome, error) {
	req := answerRequest{
		userID: userID,
		choice: choice,
		reply:  make(chan answerReply, 1),
	}
	select {
	case s.answers <- req:
	case <-s.done:
		return domain.Outcome{}, domain.ErrAlreadyTerminal
	case <-ctx.Done():
		return domain.Outcome{}, ctx.Err()
	}
	r := <-req.reply
	return r.outcome, r.err
}

// run is the race combinator: answers, the deadline and shutdown feed one
// select, and the first terminal event ends the loop.
func (s *Session) run(ctx context.Context, timer Timer, onEnd func(*Session, domain.Outcome)) {
	defer timer.Stop()
	for {
		select {
		case req := <-s.answers:
			out, ended, err := s.handle(req, timer, onEnd)
			req.reply <- answerReply{outcome: out, err: err}
			if ended {
				return
			}
		case <-timer.C():
			s.finish(s.expiredOutcome(), timer, onEnd)
			return
		case <-ctx.Done():
			s.finish(s.expiredOutcome(), timer, onEnd)
			return
		}
	}
}

func (s *Session) handle(req answerRequest, timer Timer, onEnd func(*Session, domain.Outcome)) (domain.Outcome, bool, error) {
	if s.State().IsTerminal() {
		return domain.Outcome{}, false, domain.ErrAlreadyTerminal
	}
	if req.userID != s.ownerID {
		return domain.Outcome{}, false, domain.ErrUnauthorized
	}
	idx, ok := s.match(req.choice)
	if !ok {
		return domain.Outcome{}, false, domain.ErrUnknownOption
	}

	out := domain.Outcome{
		SessionID:     s.id,
		OwnerID:       s.ownerID,
		State:         domain.StateResolved,
		Correct:       idx == s.correct,
		Chosen:        domain.AnswerOption{Index: idx, Label: s.options[idx]},
		CorrectAnswer: s.options[s.correct],
		CorrectIndex:  s.correct,
	}
	if out.Correct {
		out.Winner = s.ownerID
	}
	return s.finish(out, timer, onEnd), true, nil
}

func (s *Session) expiredOutcome() domain.Outcome {
	return domain.Outcome{
		SessionID:     s.id,
		OwnerID:       s.ownerID,
		State:         domain.StateExpired,
		Chosen:        domain.AnswerOption{Index: -1},
		CorrectAnswer: s.options[s.correct],
		CorrectIndex:  s.correct,
	}
}

// finish performs the single Active -> terminal transition.
func (s *Session) finish(out domain.Outcome, timer Timer, onEnd func(*Session, domain.Outcome)) domain.Outcome {
	if out.Winner != "" && s.scores != nil {
		out.Score = s.scores.Increment(out.Winner)
	}
	timer.Stop()

	// Publish only after the score landed, so a terminal State implies it.
	s.mu.Lock()
	s.state = out.State
	s.winner = out.Winner
	s.outcome = out
	s.mu.Unlock()

	if onEnd != nil {
		onEnd(s, out)
	}
	close(s.done)
	return out
}

func (s *Session) match(choice domain.AnswerOption) (int, bool) {
	if choice.Label != "" {
		want := domain.NormalizeAnswer(choice.Label)
		for i, o := range s.options {
			if domain.NormalizeAnswer(o) == want {
				return i, true
			}
		}
		return 0, false
	}
	if choice.Index < 0 || choice.Index >= len(s.options) {
		return 0, false
	}
	return choice.Index, true
}
