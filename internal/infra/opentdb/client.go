package opentdb

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trivia-bot/internal/domain"
)

// DefaultBaseURL is the public Open Trivia Database endpoint.
const DefaultBaseURL = "https://opentdb.com"

// response codes documented at https://opentdb.com/api_config.php
const (
	codeSuccess      = 0
	codeNoResults    = 1
	codeRateLimited  = 5
	maxBatchQuestion = 50
)

// Client fetches multiple-choice questions from OpenTDB.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type apiResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Type             string   `json:"type"`
		Difficulty       string   `json:"difficulty"`
		Category         string   `json:"category"`
		Question         string   `json:"question"`
		CorrectAnswer    string   `json:"correct_answer"`
		IncorrectAnswers []string `json:"incorrect_answers"`
	} `json:"results"`
}

func (c *Client) Fetch(ctx context.Context, difficulty domain.Difficulty) (domain.Question, error) {
	questions, err := c.FetchBatch(ctx, difficulty, 1)
	if err != nil {
		return domain.Question{}, err
	}
	return questions[0], nil
}

// LoadQuestions lets the client back a question pool.
func (c *Client) LoadQuestions(ctx context.Context, difficulty domain.Difficulty, n int) ([]domain.Question, error) {
	return c.FetchBatch(ctx, difficulty, n)
}

// FetchBatch requests n questions in one call. Results that cannot form a
// round are dropped; if none are left the call fails with EmptyResult.
func (c *Client) FetchBatch(ctx context.Context, difficulty domain.Difficulty, n int) ([]domain.Question, error) {
	if n <= 0 {
		n = 1
	}
	if n > maxBatchQuestion {
		n = maxBatchQuestion
	}

	q := url.Values{}
	q.Set("amount", strconv.Itoa(n))
	q.Set("type", "multiple")
	q.Set("difficulty", string(difficulty))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api.php?"+q.Encode(), nil)
	if err != nil {
		return nil, domain.NewProviderError(domain.NetworkError, fmt.Errorf("create opentdb request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError(domain.NetworkError, fmt.Errorf("fetch opentdb questions: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := domain.NewProviderError(domain.BadStatus, fmt.Errorf("opentdb status %d", resp.StatusCode))
		perr.StatusCode = resp.StatusCode
		return nil, perr
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, domain.NewProviderError(domain.BadStatus, fmt.Errorf("decode opentdb response: %w", err))
	}

	switch parsed.ResponseCode {
	case codeSuccess:
	case codeNoResults:
		return nil, domain.NewProviderError(domain.EmptyResult, nil)
	case codeRateLimited:
		perr := domain.NewProviderError(domain.BadStatus, fmt.Errorf("opentdb rate limited"))
		perr.StatusCode = http.StatusTooManyRequests
		return nil, perr
	default:
		return nil, domain.NewProviderError(domain.BadStatus, fmt.Errorf("opentdb response code %d", parsed.ResponseCode))
	}

	questions := make([]domain.Question, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		incorrect := make([]string, len(r.IncorrectAnswers))
		for i, a := range r.IncorrectAnswers {
			incorrect[i] = html.UnescapeString(a)
		}
		question := domain.Question{
			Text:             html.UnescapeString(r.Question),
			Category:         html.UnescapeString(r.Category),
			Difficulty:       domain.Difficulty(r.Difficulty),
			CorrectAnswer:    html.UnescapeString(r.CorrectAnswer),
			IncorrectAnswers: incorrect,
		}
		if question.Difficulty == "" {
			question.Difficulty = difficulty
		}
		if question.Validate() != nil {
			continue
		}
		questions = append(questions, question)
	}
	if len(questions) == 0 {
		return nil, domain.NewProviderError(domain.EmptyResult, nil)
	}
	return questions, nil
}
