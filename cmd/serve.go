package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"toxsky/analyzer"
	"toxsky/config"
	"toxsky/scoring"
	"toxsky/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the dashboard API",
		Description: `Starts the HTTP server backing the dashboard.

Exposes feed discovery, on-demand analysis runs, a health probe for the
scoring endpoint and Prometheus metrics. Analysis responses are cached for
a few minutes.`,
		Flags: append(append(bskyFlags(), scoringFlags()...),
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   3000,
				Usage:   "Port to listen on",
				EnvVars: []string{"TOXSKY_PORT"},
			},
			&cli.IntFlag{
				Name:    "num-feeds",
				Value:   config.DefaultNumFeeds,
				Usage:   "Default number of suggested feeds per analysis run",
			},
			&cli.IntFlag{
				Name:    "max-posts",
				Value:   config.DefaultMaxPosts,
				Usage:   "Default cap on posts per feed",
			},
			&cli.StringSliceFlag{
				Name:    "lang",
				Usage:   "Only analyze posts detected as these ISO 639-1 languages",
				EnvVars: []string{"TOXSKY_LANGUAGES"},
			},
		),
		Action: func(ctx *cli.Context) error {
			cfg := configFromContext(ctx)

			source, err := newFeedSource(ctx, cfg)
			if err != nil {
				return err
			}

			scorer := scoring.NewClient(cfg)
			if err := scorer.WaitForHealthy(ctx.Context, 30*time.Second); err != nil {
				log.Warnf("Scoring endpoint not reachable at startup: %s", err)
			}

			app := server.Server(&server.ServerConfig{
				Analyzer: analyzer.New(source, scorer, analyzer.Config{
					BatchSize: cfg.BatchSize,
					Languages: cfg.Languages,
				}),
				Source:          source,
				Scorer:          scorer,
				DefaultMaxPosts: ctx.Int("max-posts"),
				DefaultNumFeeds: ctx.Int("num-feeds"),
			})

			// Graceful shutdown
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt)
			go func() {
				<-c
				log.Info("Gracefully shutting down...")
				app.ShutdownWithTimeout(60 * time.Second)
			}()

			log.Infof("Starting server on port %d...", ctx.Int("port"))
			return app.Listen(fmt.Sprintf(":%d", ctx.Int("port")))
		},
	}
}
