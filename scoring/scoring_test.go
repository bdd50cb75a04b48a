package scoring_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toxsky/config"
	"toxsky/models"
	"toxsky/scoring"
)

func newTestClient(url string) *scoring.Client {
	return scoring.NewClient(&config.Config{
		ScoringURL: url,
		Threshold:  0.5,
		Timeout:    5 * time.Second,
	})
}

type request struct {
	BatchId   string   `json:"batch_id"`
	Threshold float64  `json:"threshold"`
	Texts     []string `json:"texts"`
	Ids       []string `json:"ids"`
}

type entry struct {
	Id             string  `json:"id,omitempty"`
	Score          float64 `json:"score"`
	Label          string  `json:"label"`
	SentimentScore float64 `json:"sentiment_score,omitempty"`
	SentimentLabel string  `json:"sentiment_label,omitempty"`
}

func respond(t *testing.T, w http.ResponseWriter, entries []entry) {
	t.Helper()
	err := json.NewEncoder(w).Encode(map[string]interface{}{"results": entries})
	require.NoError(t, err)
}

func TestScoreBatchCorrelatesById(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "/score", r.URL.Path)
		assert.Equal(t, 0.5, req.Threshold)
		assert.NotEmpty(t, req.BatchId)
		require.Equal(t, len(req.Texts), len(req.Ids))

		// Echo results in reverse order; the client must restore input order
		entries := make([]entry, 0, len(req.Texts))
		for i := len(req.Texts) - 1; i >= 0; i-- {
			entries = append(entries, entry{
				Id:             req.Ids[i],
				Score:          float64(i) / 10,
				Label:          "non-toxic",
				SentimentScore: 0.1,
				SentimentLabel: "neutral",
			})
		}
		respond(t, w, entries)
	}))
	defer server.Close()

	results, err := newTestClient(server.URL).ScoreBatch(context.Background(),
		[]string{"first", "second", "third"})

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 0.0, results[0].Toxicity)
	assert.Equal(t, 0.1, results[1].Toxicity)
	assert.Equal(t, 0.2, results[2].Toxicity)
}

func TestScoreBatchPositionalFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// No ids in the response at all
		entries := make([]entry, 0, len(req.Texts))
		for i := range req.Texts {
			entries = append(entries, entry{
				Score:          float64(i) / 10,
				Label:          "non-toxic",
				SentimentScore: 0.1,
				SentimentLabel: "neutral",
			})
		}
		respond(t, w, entries)
	}))
	defer server.Close()

	results, err := newTestClient(server.URL).ScoreBatch(context.Background(),
		[]string{"first", "second"})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0.0, results[0].Toxicity)
	assert.Equal(t, 0.1, results[1].Toxicity)
}

func TestScoreBatchLengthMismatch(t *testing.T) {
	tests := []struct {
		name  string
		extra int
	}{
		{name: "one result short", extra: -1},
		{name: "one result extra", extra: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req request
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

				entries := []entry{}
				for i := 0; i < len(req.Texts)+tt.extra; i++ {
					entries = append(entries, entry{
						Id:    fmt.Sprintf("%d", i),
						Score: 0.1, Label: "non-toxic",
						SentimentLabel: "neutral",
					})
				}
				respond(t, w, entries)
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).ScoreBatch(context.Background(),
				[]string{"a", "b", "c"})

			assert.ErrorIs(t, err, models.ErrScoringMalformedResponse)
		})
	}
}

func TestScoreBatchDuplicateId(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, []entry{
			{Id: "0", Score: 0.1, Label: "non-toxic", SentimentLabel: "neutral"},
			{Id: "0", Score: 0.2, Label: "non-toxic", SentimentLabel: "neutral"},
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ScoreBatch(context.Background(), []string{"a", "b"})

	assert.ErrorIs(t, err, models.ErrScoringMalformedResponse)
}

func TestScoreBatchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ScoreBatch(context.Background(), []string{"a"})

	assert.ErrorIs(t, err, models.ErrScoringUnavailable)
}

func TestScoreBatchUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := newTestClient(server.URL).ScoreBatch(context.Background(), []string{"a"})

	assert.ErrorIs(t, err, models.ErrScoringUnavailable)
}

func TestScoreBatchEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty batch")
	}))
	defer server.Close()

	results, err := newTestClient(server.URL).ScoreBatch(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestScoreBatchSentimentFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Toxicity only, no sentiment fields
		entries := make([]entry, 0, len(req.Texts))
		for i := range req.Texts {
			entries = append(entries, entry{Id: req.Ids[i], Score: 0.1, Label: "non-toxic"})
		}
		respond(t, w, entries)
	}))
	defer server.Close()

	results, err := newTestClient(server.URL).ScoreBatch(context.Background(), []string{
		"I love this, what a wonderful and great day",
		"I hate this, it is terrible and awful",
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "positive", results[0].SentimentLabel)
	assert.Greater(t, results[0].Sentiment, 0.0)
	assert.Equal(t, "negative", results[1].SentimentLabel)
	assert.Less(t, results[1].Sentiment, 0.0)
}

func TestHealthy(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "healthy", status: http.StatusOK, wantErr: false},
		{name: "unhealthy", status: http.StatusServiceUnavailable, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/health", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			err := newTestClient(server.URL).Healthy(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrScoringUnavailable)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
