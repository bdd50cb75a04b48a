// Package analyzer orchestrates the fetch -> batch -> score -> aggregate
// pipeline over a set of curated feeds.
package analyzer

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"toxsky/bluesky"
	"toxsky/models"
	"toxsky/scoring"
)

var (
	feedsAnalyzed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toxsky_feeds_analyzed_total",
		Help: "The total number of feeds analyzed successfully",
	})

	feedsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toxsky_feeds_failed_total",
		Help: "The total number of feeds whose analysis failed",
	})

	postsAnalyzed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toxsky_posts_analyzed_total",
		Help: "The total number of posts scored",
	})
)

// Selector picks the feeds for one analysis run: either an explicit set of
// feeds or auto-discovery of the top NumFeeds suggested feeds.
type Selector struct {
	Feeds    []models.Feed
	NumFeeds int
}

// Config holds the read-only knobs shared by all feed pipelines of a run.
type Config struct {
	// BatchSize caps the number of texts per scoring request.
	BatchSize int
	// Languages optionally restricts analysis to posts detected as one of
	// these ISO 639-1 codes.
	Languages []string
}

type Analyzer struct {
	source    bluesky.FeedSource
	scorer    scoring.Scorer
	batchSize int
	filter    *LanguageFilter
}

func New(source bluesky.FeedSource, scorer scoring.Scorer, cfg Config) *Analyzer {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Analyzer{
		source:    source,
		scorer:    scorer,
		batchSize: batchSize,
		filter:    NewLanguageFilter(cfg.Languages),
	}
}

// Analyze resolves the selector to a feed list and runs each feed's pipeline.
// A feed that fails is recorded as a failure outcome without aborting the
// rest of the run; only feed discovery itself failing fails the whole call.
func (a *Analyzer) Analyze(ctx context.Context, selector Selector, maxPostsPerFeed int) ([]models.FeedOutcome, error) {
	feeds := selector.Feeds
	if len(feeds) == 0 {
		discovered, err := a.source.DiscoverFeeds(ctx, selector.NumFeeds)
		if err != nil {
			return nil, fmt.Errorf("feed discovery failed: %w", err)
		}
		feeds = discovered
	}

	outcomes := make([]models.FeedOutcome, 0, len(feeds))
	for _, feed := range feeds {
		report, err := a.analyzeFeed(ctx, feed, maxPostsPerFeed)
		if err != nil {
			feedsFailed.Inc()
			log.WithFields(log.Fields{
				"feed":  feed.Uri,
				"error": err,
			}).Error("Feed analysis failed")
			outcomes = append(outcomes, models.FeedOutcome{
				Feed:    feed,
				Err:     err,
				Failure: err.Error(),
			})
			continue
		}
		feedsAnalyzed.Inc()
		outcomes = append(outcomes, models.FeedOutcome{Feed: feed, Report: report})
	}

	return outcomes, nil
}

// analyzeFeed runs the strictly sequential per-feed pipeline: fetch, score in
// batches, correlate, aggregate. Errors from either boundary propagate
// unchanged so the caller can attribute them to this feed.
func (a *Analyzer) analyzeFeed(ctx context.Context, feed models.Feed, maxPosts int) (*models.FeedReport, error) {
	posts, err := a.source.FetchPosts(ctx, feed.Uri, maxPosts)
	if err != nil {
		return nil, err
	}

	if a.filter != nil {
		posts = lo.Filter(posts, func(post models.Post, _ int) bool {
			return a.filter.Keep(post.Text)
		})
	}

	scores, err := a.scorePosts(ctx, posts)
	if err != nil {
		return nil, err
	}

	return buildReport(feed, posts, scores), nil
}

// scorePosts partitions posts into scoring batches and concatenates the
// results back into fetch order. Posts and texts are passed to the scorer in
// identical order, so index i of the merged results belongs to posts[i].
func (a *Analyzer) scorePosts(ctx context.Context, posts []models.Post) ([]models.ScoreResult, error) {
	scores := make([]models.ScoreResult, 0, len(posts))

	for _, batch := range lo.Chunk(posts, a.batchSize) {
		texts := lo.Map(batch, func(post models.Post, _ int) string {
			return post.Text
		})

		results, err := a.scorer.ScoreBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(results) != len(batch) {
			return nil, fmt.Errorf("%w: sent %d texts, got %d results",
				models.ErrScoringMalformedResponse, len(batch), len(results))
		}

		for i, result := range results {
			scores = append(scores, models.ScoreResult{
				PostUri:        batch[i].Uri,
				Toxicity:       result.Toxicity,
				ToxicityLabel:  result.ToxicityLabel,
				Sentiment:      result.Sentiment,
				SentimentLabel: result.SentimentLabel,
			})
		}
	}

	postsAnalyzed.Add(float64(len(scores)))
	return scores, nil
}

// buildReport aggregates per-post scores into the feed-level report. Rates
// are defined as 0.0 for feeds with no posts.
func buildReport(feed models.Feed, posts []models.Post, scores []models.ScoreResult) *models.FeedReport {
	report := &models.FeedReport{
		Feed:          feed,
		PostsAnalyzed: len(posts),
		Flagged:       []models.PostScore{},
	}

	if len(posts) == 0 {
		return report
	}

	var toxicitySum, sentimentSum float64
	for i, score := range scores {
		toxicitySum += score.Toxicity
		sentimentSum += score.Sentiment
		if score.Toxic() {
			report.ToxicCount++
			report.Flagged = append(report.Flagged, models.PostScore{
				Post:  posts[i],
				Score: score,
			})
		}
	}

	total := float64(len(posts))
	report.ToxicityRate = float64(report.ToxicCount) / total
	report.AvgToxicity = toxicitySum / total
	report.MeanSentiment = sentimentSum / total

	return report
}
