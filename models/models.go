package models

import "time"

// Feed is a curated Bluesky feed as returned by feed discovery.
type Feed struct {
	Uri           string `json:"uri"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	CreatorHandle string `json:"creatorHandle,omitempty"`
	LikeCount     int64  `json:"likeCount"`
}

// Post model with key fields from a post fetched under a feed
type Post struct {
	FeedUri      string    `json:"feedUri"`
	Uri          string    `json:"uri"`
	AuthorHandle string    `json:"authorHandle"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ScoreResult is the classifier output for a single post.
type ScoreResult struct {
	PostUri        string  `json:"postUri"`
	Toxicity       float64 `json:"toxicityScore"`
	ToxicityLabel  string  `json:"toxicityLabel"`
	Sentiment      float64 `json:"sentimentScore"`
	SentimentLabel string  `json:"sentimentLabel"`
}

// LabelToxic marks a post as toxic in ScoreResult.ToxicityLabel.
const LabelToxic = "toxic"

// Toxic reports whether the classifier flagged the post.
func (s ScoreResult) Toxic() bool {
	return s.ToxicityLabel == LabelToxic
}

// PostScore pairs a post with its score for drill-down views.
type PostScore struct {
	Post  Post        `json:"post"`
	Score ScoreResult `json:"score"`
}

// FeedReport is the terminal per-feed aggregate.
type FeedReport struct {
	Feed          Feed    `json:"feed"`
	PostsAnalyzed int     `json:"postsAnalyzed"`
	ToxicCount    int     `json:"toxicCount"`
	// ToxicityRate is a 0..1 fraction of posts labelled toxic, 0.0 for empty feeds.
	ToxicityRate  float64 `json:"toxicityRate"`
	AvgToxicity   float64 `json:"avgToxicityScore"`
	MeanSentiment float64 `json:"meanSentimentScore"`
	// Flagged holds the toxic posts in original fetch order.
	Flagged []PostScore `json:"flaggedPosts"`
}

// FeedOutcome records either a complete report or the failure reason for one
// feed of an analysis run. A feed is never reported partially.
type FeedOutcome struct {
	Feed    Feed        `json:"feed"`
	Report  *FeedReport `json:"report,omitempty"`
	Failure string      `json:"error,omitempty"`
	Err     error       `json:"-"`
}

// Failed reports whether the feed's analysis ended in an error.
func (o FeedOutcome) Failed() bool {
	return o.Err != nil
}

// RunSummary aggregates across all feeds of one analysis run.
type RunSummary struct {
	FeedsAnalyzed int     `json:"feedsAnalyzed"`
	FeedsFailed   int     `json:"feedsFailed"`
	TotalPosts    int     `json:"totalPosts"`
	TotalToxic    int     `json:"totalToxic"`
	OverallRate   float64 `json:"overallToxicityRate"`
}

// Summarize folds per-feed outcomes into corpus-level totals.
func Summarize(outcomes []FeedOutcome) RunSummary {
	summary := RunSummary{}
	for _, outcome := range outcomes {
		if outcome.Failed() {
			summary.FeedsFailed++
			continue
		}
		summary.FeedsAnalyzed++
		summary.TotalPosts += outcome.Report.PostsAnalyzed
		summary.TotalToxic += outcome.Report.ToxicCount
	}
	if summary.TotalPosts > 0 {
		summary.OverallRate = float64(summary.TotalToxic) / float64(summary.TotalPosts)
	}
	return summary
}
