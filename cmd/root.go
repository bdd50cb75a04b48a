package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"toxsky/config"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "toxsky",
		Usage: "Toxicity and sentiment analysis for Bluesky feeds",
		Description: `Fetches posts from curated Bluesky feeds, scores their text through a
		remote toxicity/sentiment classifier and aggregates the results into
		per-feed and corpus-level metrics.

		Results are printed as tables or JSON, or served to the dashboard via
		the HTTP API.

		Flags can generally be set via environment variables, e.g.:

		--scoring-url => TOXSKY_SCORING_URL=http://localhost:8000
		--threshold => TOXSKY_THRESHOLD=0.5
		`,
		Before: func(ctx *cli.Context) error {
			// Keep stdout clean for table/JSON output
			log.SetOutput(os.Stderr)
			config.LoadEnv()
			return nil
		},
		Commands: []*cli.Command{
			listFeedsCmd(),
			analyzeCmd(),
			serveCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
