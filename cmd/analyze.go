package cmd

import (
	"fmt"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/urfave/cli/v2"

	"toxsky/analyzer"
	"toxsky/config"
	"toxsky/models"
	"toxsky/scoring"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Analyze feeds for toxicity and sentiment",
		Description: `Fetches posts from the selected feeds, scores them through the
configured scoring endpoint and prints per-feed toxicity and sentiment
metrics.

Feeds are selected one of three ways: auto-discovery of the top suggested
feeds (--num-feeds), a single explicit feed (--feed-uri), or a pinned set
from a TOML file (--feeds-config).

Exits non-zero when any feed's analysis fails, after printing the results
for the feeds that succeeded.`,
		Flags: append(append(bskyFlags(), scoringFlags()...),
			&cli.IntFlag{
				Name:    "num-feeds",
				Aliases: []string{"n"},
				Value:   config.DefaultNumFeeds,
				Usage:   "Number of suggested feeds to analyze",
			},
			&cli.StringFlag{
				Name:  "feed-uri",
				Usage: "Analyze a specific feed by AT URI",
			},
			&cli.StringFlag{
				Name:    "feeds-config",
				Usage:   "Path to a TOML file with pinned feeds to analyze",
				EnvVars: []string{"TOXSKY_FEEDS_CONFIG"},
			},
			&cli.IntFlag{
				Name:    "max-posts",
				Aliases: []string{"m"},
				Value:   config.DefaultMaxPosts,
				Usage:   "Maximum posts to analyze per feed",
			},
			&cli.StringSliceFlag{
				Name:    "lang",
				Usage:   "Only analyze posts detected as these ISO 639-1 languages",
				EnvVars: []string{"TOXSKY_LANGUAGES"},
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output as JSON",
			},
		),
		Action: func(ctx *cli.Context) error {
			cfg := configFromContext(ctx)

			source, err := newFeedSource(ctx, cfg)
			if err != nil {
				return err
			}

			selector, err := resolveSelector(ctx)
			if err != nil {
				return err
			}

			a := analyzer.New(source, scoring.NewClient(cfg), analyzer.Config{
				BatchSize: cfg.BatchSize,
				Languages: cfg.Languages,
			})

			outcomes, err := a.Analyze(ctx.Context, selector, ctx.Int("max-posts"))
			if err != nil {
				return fmt.Errorf("error analyzing feeds: %w", err)
			}

			summary := models.Summarize(outcomes)
			if ctx.Bool("json") {
				if err := printJSON(analysisOutput{Summary: summary, Outcomes: outcomes}); err != nil {
					return err
				}
			} else {
				fmt.Println(formatOutcomeTable(outcomes, summary))
			}

			if summary.FeedsFailed > 0 {
				return cli.Exit(fmt.Sprintf("%d feed(s) failed", summary.FeedsFailed), 1)
			}
			return nil
		},
	}
}

// resolveSelector turns the CLI flags into a feed selector.
func resolveSelector(ctx *cli.Context) (analyzer.Selector, error) {
	if feedUri := ctx.String("feed-uri"); feedUri != "" {
		uri, err := syntax.ParseATURI(feedUri)
		if err != nil {
			return analyzer.Selector{}, fmt.Errorf("invalid feed URI %q: %w", feedUri, err)
		}
		return analyzer.Selector{Feeds: []models.Feed{{
			Uri:  feedUri,
			Name: uri.RecordKey().String(),
		}}}, nil
	}

	if path := ctx.String("feeds-config"); path != "" {
		pinned, err := config.LoadFeeds(path)
		if err != nil {
			return analyzer.Selector{}, err
		}
		feeds := make([]models.Feed, 0, len(pinned.Feeds))
		for _, feed := range pinned.Feeds {
			feeds = append(feeds, models.Feed{Uri: feed.Uri, Name: feed.Name})
		}
		return analyzer.Selector{Feeds: feeds}, nil
	}

	return analyzer.Selector{NumFeeds: ctx.Int("num-feeds")}, nil
}
