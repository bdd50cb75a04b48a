package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"toxsky/config"
	"toxsky/models"
)

var (
	scoringRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toxsky_scoring_requests_total",
		Help: "The total number of batch requests sent to the scoring endpoint",
	})

	scoringErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toxsky_scoring_errors_total",
		Help: "The total number of failed scoring requests",
	})

	scoringBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "toxsky_scoring_batch_size",
		Help:    "Number of texts per scoring request",
		Buckets: prometheus.ExponentialBuckets(1, 2, 8),
	})
)

// Result is the per-text fragment returned by the scoring endpoint, before it
// is correlated back to a post.
type Result struct {
	Toxicity       float64 `json:"score"`
	ToxicityLabel  string  `json:"label"`
	Sentiment      float64 `json:"sentiment_score"`
	SentimentLabel string  `json:"sentiment_label"`
}

// Scorer scores an ordered batch of texts. Implementations must return
// exactly one result per input text, in input order.
type Scorer interface {
	ScoreBatch(ctx context.Context, texts []string) ([]Result, error)
}

type scoreRequest struct {
	BatchId   string   `json:"batch_id"`
	Threshold float64  `json:"threshold"`
	Texts     []string `json:"texts"`
	Ids       []string `json:"ids"`
}

type scoreEntry struct {
	Id             string  `json:"id,omitempty"`
	Score          float64 `json:"score"`
	Label          string  `json:"label"`
	SentimentScore float64 `json:"sentiment_score"`
	SentimentLabel string  `json:"sentiment_label"`
}

type scoreResponse struct {
	Results []scoreEntry `json:"results"`
}

// Client calls the remote toxicity scoring endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	threshold  float64
}

var _ Scorer = (*Client)(nil)

func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.ScoringURL,
		threshold:  cfg.Threshold,
	}
}

// ScoreBatch sends one POST to <base>/score for the whole batch. Each text is
// tagged with a positional id; responses that echo the ids are correlated by
// id so a reordering endpoint cannot silently mis-attribute scores. Responses
// without ids fall back to positional correlation with a warning.
func (c *Client) ScoreBatch(ctx context.Context, texts []string) ([]Result, error) {
	if len(texts) == 0 {
		return []Result{}, nil
	}

	ids := make([]string, len(texts))
	for i := range texts {
		ids[i] = strconv.Itoa(i)
	}

	body, err := json.Marshal(scoreRequest{
		BatchId:   uuid.New().String(),
		Threshold: c.threshold,
		Texts:     texts,
		Ids:       ids,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scoring request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create scoring request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	scoringRequests.Inc()
	scoringBatchSize.Observe(float64(len(texts)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		scoringErrors.Inc()
		return nil, fmt.Errorf("%w: %v", models.ErrScoringUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		scoringErrors.Inc()
		return nil, fmt.Errorf("%w: scoring endpoint returned status %d", models.ErrScoringUnavailable, resp.StatusCode)
	}

	var decoded scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		scoringErrors.Inc()
		return nil, fmt.Errorf("%w: %v", models.ErrScoringMalformedResponse, err)
	}

	if len(decoded.Results) != len(texts) {
		scoringErrors.Inc()
		return nil, fmt.Errorf("%w: sent %d texts, got %d results",
			models.ErrScoringMalformedResponse, len(texts), len(decoded.Results))
	}

	results, err := correlate(decoded.Results, len(texts))
	if err != nil {
		scoringErrors.Inc()
		return nil, err
	}

	for i := range results {
		if results[i].SentimentLabel == "" {
			results[i].Sentiment, results[i].SentimentLabel = localSentiment(texts[i])
		}
	}

	return results, nil
}

// correlate orders entries by their echoed ids. If any entry lacks an id the
// whole batch is taken positionally.
func correlate(entries []scoreEntry, n int) ([]Result, error) {
	positional := false
	for _, entry := range entries {
		if entry.Id == "" {
			positional = true
			break
		}
	}

	results := make([]Result, n)
	if positional {
		log.Warn("Scoring response carries no entry ids, falling back to positional correlation")
		for i, entry := range entries {
			results[i] = resultFromEntry(entry)
		}
		return results, nil
	}

	seen := make(map[int]bool, n)
	for _, entry := range entries {
		idx, err := strconv.Atoi(entry.Id)
		if err != nil || idx < 0 || idx >= n || seen[idx] {
			return nil, fmt.Errorf("%w: unexpected entry id %q", models.ErrScoringMalformedResponse, entry.Id)
		}
		seen[idx] = true
		results[idx] = resultFromEntry(entry)
	}
	return results, nil
}

func resultFromEntry(entry scoreEntry) Result {
	return Result{
		Toxicity:       entry.Score,
		ToxicityLabel:  entry.Label,
		Sentiment:      entry.SentimentScore,
		SentimentLabel: entry.SentimentLabel,
	}
}

// Healthy probes the scoring endpoint's /health route.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrScoringUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health endpoint returned status %d", models.ErrScoringUnavailable, resp.StatusCode)
	}
	return nil
}

// WaitForHealthy polls /health with exponential backoff until the endpoint
// responds or maxWait elapses. Used at server startup only, the analysis
// pipeline itself never retries.
func (c *Client) WaitForHealthy(ctx context.Context, maxWait time.Duration) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxWait

	return backoff.Retry(func() error {
		if err := c.Healthy(ctx); err != nil {
			log.Infof("Scoring endpoint not ready: %s", err)
			return err
		}
		return nil
	}, backoff.WithContext(policy, ctx))
}
