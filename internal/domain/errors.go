package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDifficulty is returned for difficulty input outside easy/medium/hard.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	// ErrInvalidQuestion indicates a question cannot form a four-option round.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrDuplicateSession is returned when the owner already has an active round in the channel.
	ErrDuplicateSession = errors.New("round already in progress")
	// ErrUnauthorized is returned when someone other than the owner answers.
	ErrUnauthorized = errors.New("not the round owner")
	// ErrAlreadyTerminal is returned for answers arriving after the round ended.
	ErrAlreadyTerminal = errors.New("round already over")
	// ErrUnknownOption is returned when the chosen option is not part of the round.
	ErrUnknownOption = errors.New("unknown answer option")
	// ErrSessionNotFound indicates no live round has the given ID.
	ErrSessionNotFound = errors.New("round not found")
	// ErrManagerClosed is returned by Create after shutdown started.
	ErrManagerClosed = errors.New("session manager closed")

	ErrNetwork     = errors.New("question provider unreachable")
	ErrBadStatus   = errors.New("question provider returned bad status")
	ErrEmptyResult = errors.New("question provider returned no question")
)

// ProviderErrorKind classifies question provider failures.
type ProviderErrorKind int

const (
	NetworkError ProviderErrorKind = iota
	BadStatus
	EmptyResult
)

func (k ProviderErrorKind) sentinel() error {
	switch k {
	case NetworkError:
		return ErrNetwork
	case BadStatus:
		return ErrBadStatus
	default:
		return ErrEmptyResult
	}
}

func (k ProviderErrorKind) String() string {
	switch k {
	case NetworkError:
		return "network"
	case BadStatus:
		return "bad_status"
	default:
		return "empty_result"
	}
}

// ProviderError wraps a failed question fetch. errors.Is matches the kind's
// sentinel (ErrNetwork, ErrBadStatus, ErrEmptyResult) as well as the cause.
type ProviderError struct {
	Kind       ProviderErrorKind
	StatusCode int
	Err        error
}

func NewProviderError(kind ProviderErrorKind, err error) *ProviderError {
	return &ProviderError{Kind: kind, Err: err}
}

func (e *ProviderError) Error() string {
	s := e.Kind.sentinel().Error()
	if e.StatusCode != 0 {
		s += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// UserMessage maps an error to the line shown to the user who triggered it.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidDifficulty):
		return "Invalid difficulty. Use `easy`, `medium`, or `hard`."
	case errors.Is(err, ErrNetwork):
		return "A connection error occurred with the trivia API. Please try again later."
	case errors.Is(err, ErrBadStatus):
		return "Could not contact the trivia API. Please try again later."
	case errors.Is(err, ErrEmptyResult), errors.Is(err, ErrInvalidQuestion):
		return "Couldn't find any questions for that difficulty. Please try again later."
	case errors.Is(err, ErrDuplicateSession):
		return "You already have a round in progress."
	case errors.Is(err, ErrUnauthorized):
		return "This isn't your trivia! Start your own with the command."
	case errors.Is(err, ErrAlreadyTerminal), errors.Is(err, ErrSessionNotFound):
		return "This round is already over."
	case errors.Is(err, ErrUnknownOption):
		return "That option is not part of this round."
	default:
		return "Something went wrong. Please try again later."
	}
}
