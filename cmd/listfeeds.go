package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func listFeedsCmd() *cli.Command {
	return &cli.Command{
		Name:  "list-feeds",
		Usage: "List suggested curated feeds",
		Description: `Lists the curated feeds suggested by the feed provider.

Pass --login to list feeds that are only visible to authenticated accounts.`,
		Flags: append(bskyFlags(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Value:   20,
				Usage:   "Maximum number of feeds to list",
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

			feeds, err := source.DiscoverFeeds(ctx.Context, ctx.Int("limit"))
			if err != nil {
				return fmt.Errorf("error fetching feeds: %w", err)
			}

			if ctx.Bool("json") {
				return printJSON(feeds)
			}

			fmt.Println(formatFeedTable(feeds))
			return nil
		},
	}
}
