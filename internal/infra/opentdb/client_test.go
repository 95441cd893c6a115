package opentdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trivia-bot/internal/domain"
)

const sampleResponse = `{
  "response_code": 0,
  "results": [
    {
      "type": "multiple",
      "difficulty": "hard",
      "category": "Science &amp; Nature",
      "question": "Which element has the symbol &quot;W&quot;?",
      "correct_answer": "Tungsten",
      "incorrect_answers": ["Wolfram&#039;s Gold", "Osmium", "Rhenium"]
    }
  ]
}`

func TestFetchDecodesQuestion(t *testing.T) {
	var (
		gotPath  string
		gotQuery map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{
			"amount":     r.URL.Query().Get("amount"),
			"type":       r.URL.Query().Get("type"),
			"difficulty": r.URL.Query().Get("difficulty"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	q, err := client.Fetch(context.Background(), domain.DifficultyHard)
	require.NoError(t, err)

	require.Equal(t, "/api.php", gotPath)
	require.Equal(t, map[string]string{"amount": "1", "type": "multiple", "difficulty": "hard"}, gotQuery)
	require.Equal(t, `Which element has the symbol "W"?`, q.Text)
	require.Equal(t, "Science & Nature", q.Category)
	require.Equal(t, domain.DifficultyHard, q.Difficulty)
	require.Equal(t, "Tungsten", q.CorrectAnswer)
	require.Equal(t, []string{"Wolfram's Gold", "Osmium", "Rhenium"}, q.IncorrectAnswers)
}

func TestFetchErrors(t *testing.T) {
	tests := map[string]struct {
		status     int
		body       string
		want       error
		wantStatus int
	}{
		"server error": {
			status:     http.StatusServiceUnavailable,
			body:       "",
			want:       domain.ErrBadStatus,
			wantStatus: http.StatusServiceUnavailable,
		},
		"garbage body": {
			status: http.StatusOK,
			body:   "<html>",
			want:   domain.ErrBadStatus,
		},
		"no results code": {
			status: http.StatusOK,
			body:   `{"response_code":1,"results":[]}`,
			want:   domain.ErrEmptyResult,
		},
		"empty results": {
			status: http.StatusOK,
			body:   `{"response_code":0,"results":[]}`,
			want:   domain.ErrEmptyResult,
		},
		"rate limited": {
			status:     http.StatusOK,
			body:       `{"response_code":5,"results":[]}`,
			want:       domain.ErrBadStatus,
			wantStatus: http.StatusTooManyRequests,
		},
		"only unusable questions": {
			status: http.StatusOK,
			body:   `{"response_code":0,"results":[{"question":"Q","correct_answer":"A","incorrect_answers":["B"]}]}`,
			want:   domain.ErrEmptyResult,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Fetch(context.Background(), domain.DifficultyEasy)
			require.ErrorIs(t, err, tc.want)

			var perr *domain.ProviderError
			require.True(t, errors.As(err, &perr))
			require.Equal(t, tc.wantStatus, perr.StatusCode)
		})
	}
}

func TestFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Fetch(context.Background(), domain.DifficultyMedium)
	require.ErrorIs(t, err, domain.ErrNetwork)
}

func TestFetchBatchCapsAmount(t *testing.T) {
	var amount string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		amount = r.URL.Query().Get("amount")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	qs, err := NewClient(srv.URL, time.Second).FetchBatch(context.Background(), domain.DifficultyHard, 500)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	require.Equal(t, "50", amount)
}
