package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"toxsky/models"
)

type analysisOutput struct {
	Summary  models.RunSummary    `json:"summary"`
	Outcomes []models.FeedOutcome `json:"outcomes"`
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func formatFeedTable(feeds []models.Feed) string {
	if len(feeds) == 0 {
		return "No feeds found."
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("%-30s %-25s %-10s", "Name", "Creator", "Likes"))
	lines = append(lines, strings.Repeat("-", 65))

	for _, feed := range feeds {
		lines = append(lines, fmt.Sprintf("%-30s %-25s %-10d",
			truncate(feed.Name, 30),
			truncate(feed.CreatorHandle, 25),
			feed.LikeCount,
		))
	}

	return strings.Join(lines, "\n")
}

func formatOutcomeTable(outcomes []models.FeedOutcome, summary models.RunSummary) string {
	if len(outcomes) == 0 {
		return "No results."
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("%-30s %-8s %-8s %-8s %-10s %-10s",
		"Feed", "Posts", "Toxic", "Rate", "Avg Score", "Sentiment"))
	lines = append(lines, strings.Repeat("-", 80))

	for _, outcome := range outcomes {
		name := truncate(outcome.Feed.Name, 30)
		if outcome.Failed() {
			lines = append(lines, fmt.Sprintf("%-30s FAILED: %s", name, outcome.Failure))
			continue
		}
		report := outcome.Report
		lines = append(lines, fmt.Sprintf("%-30s %-8d %-8d %6.1f%% %9.3f %9.3f",
			name,
			report.PostsAnalyzed,
			report.ToxicCount,
			report.ToxicityRate*100,
			report.AvgToxicity,
			report.MeanSentiment,
		))
	}

	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("Feeds: %d analyzed, %d failed. Posts: %d total, %d toxic (%.1f%%).",
		summary.FeedsAnalyzed,
		summary.FeedsFailed,
		summary.TotalPosts,
		summary.TotalToxic,
		summary.OverallRate*100,
	))

	return strings.Join(lines, "\n")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-2] + ".."
}
