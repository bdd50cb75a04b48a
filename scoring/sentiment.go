package scoring

import "github.com/jonreiter/govader"

var vader = govader.NewSentimentIntensityAnalyzer()

// localSentiment scores sentiment with VADER when the scoring endpoint does
// not return sentiment fields of its own.
func localSentiment(text string) (float64, string) {
	score := vader.PolarityScores(text).Compound
	return score, sentimentLabel(score)
}

func sentimentLabel(score float64) string {
	switch {
	case score >= 0.20:
		return "positive"
	case score <= -0.20:
		return "negative"
	default:
		return "neutral"
	}
}
