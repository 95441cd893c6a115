package domain

import (
	"html"
	"strings"
	"time"
)

// OptionCount is the number of answer options shown for every round.
const OptionCount = 4

// Difficulty selects which pool a question is drawn from.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists the accepted difficulty values in display order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty validates raw user input. Matching is case-insensitive and
// an empty value selects medium.
func ParseDifficulty(raw string) (Difficulty, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return DifficultyMedium, nil
	}
	for _, d := range Difficulties {
		if string(d) == v {
			return d, nil
		}
	}
	return "", ErrInvalidDifficulty
}

// Title returns the capitalized name, e.g. "Medium".
func (d Difficulty) Title() string {
	if d == "" {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}

// Question is a multiple-choice question with exactly one correct answer.
type Question struct {
	Text             string     `json:"text"`
	Category         string     `json:"category,omitempty"`
	Difficulty       Difficulty `json:"difficulty"`
	CorrectAnswer    string     `json:"correctAnswer"`
	IncorrectAnswers []string   `json:"incorrectAnswers"`
}

// Validate checks the shape required to build a round: three incorrect
// answers and four pairwise distinct answers overall.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" || strings.TrimSpace(q.CorrectAnswer) == "" {
		return ErrInvalidQuestion
	}
	if len(q.IncorrectAnswers) != OptionCount-1 {
		return ErrInvalidQuestion
	}
	seen := map[string]struct{}{NormalizeAnswer(q.CorrectAnswer): {}}
	for _, a := range q.IncorrectAnswers {
		n := NormalizeAnswer(a)
		if n == "" {
			return ErrInvalidQuestion
		}
		if _, dup := seen[n]; dup {
			return ErrInvalidQuestion
		}
		seen[n] = struct{}{}
	}
	return nil
}

// Answers returns the correct answer followed by the incorrect ones.
func (q Question) Answers() []string {
	out := make([]string, 0, len(q.IncorrectAnswers)+1)
	out = append(out, q.CorrectAnswer)
	return append(out, q.IncorrectAnswers...)
}

var markupReplacer = strings.NewReplacer(
	`\`, "",
	"*", "",
	"_", "",
	"~", "",
	"`", "",
	"|", "",
	">", "",
)

// NormalizeAnswer folds an answer for comparison: HTML entities decoded,
// markdown markers dropped, whitespace collapsed, case folded.
func NormalizeAnswer(s string) string {
	s = html.UnescapeString(s)
	s = markupReplacer.Replace(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// State is the lifecycle position of a round.
type State int

const (
	StateActive State = iota
	StateResolved
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateResolved:
		return "resolved"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateResolved || s == StateExpired
}

// MarshalText renders the state as its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// AnswerOption identifies one of the round's options. A non-empty Label
// takes precedence over Index when matching.
type AnswerOption struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// Outcome is what a round reports once it leaves the Active state.
type Outcome struct {
	SessionID     string       `json:"sessionId"`
	OwnerID       string       `json:"ownerId"`
	State         State        `json:"state"`
	Correct       bool         `json:"correct"`
	Winner        string       `json:"winner,omitempty"`
	Chosen        AnswerOption `json:"chosen"`
	CorrectAnswer string       `json:"correctAnswer"`
	CorrectIndex  int          `json:"correctIndex"`
	Score         int          `json:"score"`
}

// RoundView is the render-ready state handed to presentation adapters.
type RoundView struct {
	SessionID  string         `json:"sessionId"`
	OwnerID    string         `json:"ownerId"`
	ChannelID  string         `json:"channelId"`
	Question   string         `json:"question"`
	Category   string         `json:"category,omitempty"`
	Difficulty Difficulty     `json:"difficulty"`
	Options    []AnswerOption `json:"options"`
	Deadline   time.Time      `json:"deadline"`
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"userId"`
	Score  int    `json:"score"`
}

// Leaderboard captures the ordered scoreboard at a point in time.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
