package cmd

import (
	"github.com/urfave/cli/v2"

	"toxsky/config"
)

// bskyFlags configure the feed provider boundary.
func bskyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "appview",
			Usage:   "Bluesky appview host for unauthenticated access",
			Value:   config.DefaultAppviewHost,
			EnvVars: []string{"TOXSKY_APPVIEW"},
		},
		&cli.StringFlag{
			Name:    "pds",
			Usage:   "PDS host used for app-password sessions",
			Value:   config.DefaultPDSHost,
			EnvVars: []string{"TOXSKY_PDS"},
		},
		&cli.BoolFlag{
			Name:  "login",
			Usage: "Authenticate with Bluesky credentials (prompts when the env vars are unset)",
		},
		&cli.StringFlag{
			Name:    "identifier",
			Usage:   "Bluesky handle for authenticated access",
			EnvVars: []string{"TOXSKY_IDENTIFIER"},
		},
		&cli.StringFlag{
			Name:    "app-password",
			Usage:   "Bluesky app password for authenticated access",
			EnvVars: []string{"TOXSKY_APP_PASSWORD"},
		},
	}
}

// scoringFlags configure the scoring endpoint boundary.
func scoringFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "scoring-url",
			Usage:   "Base URL of the toxicity scoring endpoint",
			Value:   config.DefaultScoringURL,
			EnvVars: []string{"TOXSKY_SCORING_URL"},
		},
		&cli.Float64Flag{
			Name:    "threshold",
			Usage:   "Toxicity threshold forwarded to the scorer",
			Value:   config.DefaultThreshold,
			EnvVars: []string{"TOXSKY_THRESHOLD"},
		},
		&cli.IntFlag{
			Name:    "batch-size",
			Usage:   "Maximum number of texts per scoring request",
			Value:   config.DefaultBatchSize,
			EnvVars: []string{"TOXSKY_BATCH_SIZE"},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "HTTP timeout for remote calls",
			Value:   config.DefaultTimeout,
			EnvVars: []string{"TOXSKY_TIMEOUT"},
		},
	}
}

// configFromContext builds the process-wide configuration once per command.
func configFromContext(ctx *cli.Context) *config.Config {
	return &config.Config{
		AppviewHost: ctx.String("appview"),
		PDSHost:     ctx.String("pds"),
		ScoringURL:  ctx.String("scoring-url"),
		Threshold:   ctx.Float64("threshold"),
		BatchSize:   ctx.Int("batch-size"),
		Timeout:     ctx.Duration("timeout"),
		Identifier:  ctx.String("identifier"),
		AppPassword: ctx.String("app-password"),
		Languages:   ctx.StringSlice("lang"),
	}
}
