package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toxsky/analyzer"
	"toxsky/models"
	"toxsky/server"
)

const testFeedUri = "at://did:plc:abc123/app.bsky.feed.generator/test"

type stubAnalyzer struct {
	lastSelector analyzer.Selector
	lastMaxPosts int
	outcomes     []models.FeedOutcome
	err          error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, selector analyzer.Selector, maxPostsPerFeed int) ([]models.FeedOutcome, error) {
	s.lastSelector = selector
	s.lastMaxPosts = maxPostsPerFeed
	return s.outcomes, s.err
}

type stubSource struct {
	feeds []models.Feed
	err   error
}

func (s *stubSource) DiscoverFeeds(ctx context.Context, limit int) ([]models.Feed, error) {
	return s.feeds, s.err
}

func (s *stubSource) FetchPosts(ctx context.Context, feedUri string, maxPosts int) ([]models.Post, error) {
	return nil, nil
}

type stubHealth struct {
	err error
}

func (s *stubHealth) Healthy(ctx context.Context) error {
	return s.err
}

func newConfig() (*server.ServerConfig, *stubAnalyzer) {
	a := &stubAnalyzer{
		outcomes: []models.FeedOutcome{
			{
				Feed: models.Feed{Uri: testFeedUri, Name: "Test Feed"},
				Report: &models.FeedReport{
					Feed:          models.Feed{Uri: testFeedUri, Name: "Test Feed"},
					PostsAnalyzed: 4,
					ToxicCount:    1,
					ToxicityRate:  0.25,
					Flagged:       []models.PostScore{},
				},
			},
		},
	}
	return &server.ServerConfig{
		Analyzer:        a,
		Source:          &stubSource{feeds: []models.Feed{{Uri: testFeedUri, Name: "Test Feed"}}},
		Scorer:          &stubHealth{},
		DefaultMaxPosts: 100,
		DefaultNumFeeds: 5,
	}, a
}

func TestGetFeeds(t *testing.T) {
	cfg, _ := newConfig()
	app := server.Server(cfg)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/feeds?limit=2", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var feeds []models.Feed
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&feeds))
	require.Len(t, feeds, 1)
	assert.Equal(t, "Test Feed", feeds[0].Name)
}

func TestGetFeedsUpstreamError(t *testing.T) {
	cfg, _ := newConfig()
	cfg.Source = &stubSource{err: models.ErrUpstreamUnavailable}
	app := server.Server(cfg)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/feeds", nil))
	require.NoError(t, err)
	assert.Equal(t, 502, resp.StatusCode)
}

func TestAnalyzeSpecificFeed(t *testing.T) {
	cfg, a := newConfig()
	app := server.Server(cfg)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/analyze?feed="+testFeedUri+"&maxPosts=10", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	require.Len(t, a.lastSelector.Feeds, 1)
	assert.Equal(t, testFeedUri, a.lastSelector.Feeds[0].Uri)
	assert.Equal(t, 10, a.lastMaxPosts)

	var decoded struct {
		Summary  models.RunSummary    `json:"summary"`
		Outcomes []models.FeedOutcome `json:"outcomes"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.Equal(t, 1, decoded.Summary.FeedsAnalyzed)
	assert.Equal(t, 4, decoded.Summary.TotalPosts)
	require.Len(t, decoded.Outcomes, 1)
	assert.Equal(t, 0.25, decoded.Outcomes[0].Report.ToxicityRate)
}

func TestAnalyzeInvalidFeedUri(t *testing.T) {
	cfg, _ := newConfig()
	app := server.Server(cfg)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/analyze?feed=not-a-uri", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestAnalyzeDefaultsToDiscovery(t *testing.T) {
	cfg, a := newConfig()
	app := server.Server(cfg)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/analyze", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	assert.Empty(t, a.lastSelector.Feeds)
	assert.Equal(t, 5, a.lastSelector.NumFeeds)
	assert.Equal(t, 100, a.lastMaxPosts)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		healthErr  error
		wantStatus int
	}{
		{name: "healthy", healthErr: nil, wantStatus: 200},
		{name: "scoring down", healthErr: errors.New("connection refused"), wantStatus: 503},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := newConfig()
			cfg.Scorer = &stubHealth{err: tt.healthErr}
			app := server.Server(cfg)

			resp, err := app.Test(httptest.NewRequest("GET", "/api/health", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestMetrics(t *testing.T) {
	cfg, _ := newConfig()
	app := server.Server(cfg)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
