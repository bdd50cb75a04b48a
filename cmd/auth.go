package cmd

import (
	"fmt"

	"github.com/cqroot/prompt"
	"github.com/cqroot/prompt/input"
	"github.com/urfave/cli/v2"

	"toxsky/bluesky"
	"toxsky/config"
)

// newFeedSource builds the feed provider client. Without --login the public
// appview is used; with --login an app-password session is created on the
// PDS, prompting for credentials that are missing from the configuration.
func newFeedSource(ctx *cli.Context, cfg *config.Config) (bluesky.FeedSource, error) {
	if !ctx.Bool("login") {
		return bluesky.NewClient(cfg.AppviewHost, nil), nil
	}

	identifier := cfg.Identifier
	password := cfg.AppPassword

	if identifier == "" {
		var err error
		identifier, err = prompt.New().Ask("Handle:").Input("myname.bsky.social")
		if err != nil {
			return nil, err
		}
	}

	if password == "" {
		var err error
		password, err = prompt.New().Ask("App password:").Input("", input.WithEchoMode(input.EchoNone))
		if err != nil {
			return nil, err
		}
	}

	client, err := bluesky.ClientFromCredentials(ctx.Context, cfg.PDSHost, &bluesky.Credentials{
		Identifier: identifier,
		Password:   password,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create client with provided credentials: %w", err)
	}

	return client, nil
}
