package bluesky

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/xrpc"
	"github.com/labstack/gommon/log"

	"toxsky/models"
)

// Page size limit enforced by app.bsky.feed.getFeed.
const maxPageSize = 100

// FeedSource discovers curated feeds and fetches their posts. The concrete
// adapter talks to a Bluesky appview; tests substitute a fixture source.
type FeedSource interface {
	// DiscoverFeeds returns up to limit suggested feeds.
	DiscoverFeeds(ctx context.Context, limit int) ([]models.Feed, error)
	// FetchPosts pages through a feed until maxPosts posts are collected or
	// the feed is exhausted.
	FetchPosts(ctx context.Context, feedUri string, maxPosts int) ([]models.Post, error)
}

type Credentials struct {
	Identifier string
	Password   string
}

type Client struct {
	xrpc *xrpc.Client
}

var _ FeedSource = (*Client)(nil)

// NewClient returns an unauthenticated client against the given appview host.
func NewClient(host string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{xrpc: &xrpc.Client{
		Host:   host,
		Client: httpClient,
	}}
}

// ClientFromCredentials creates an authenticated session on the given PDS
// host. Authenticated sessions see feeds the public appview does not.
func ClientFromCredentials(ctx context.Context, host string, creds *Credentials) (*Client, error) {
	auth, err := atproto.ServerCreateSession(ctx, &xrpc.Client{Host: host}, &atproto.ServerCreateSession_Input{
		Identifier: creds.Identifier,
		Password:   creds.Password,
	})

	if err != nil {
		return nil, fmt.Errorf("%w: failed to create session: %v", models.ErrAuthRequired, err)
	}

	xrpcClient := &xrpc.Client{
		Host: host,
		Auth: &xrpc.AuthInfo{
			AccessJwt:  auth.AccessJwt,
			RefreshJwt: auth.RefreshJwt,
			Handle:     auth.Handle,
			Did:        auth.Did,
		},
		Client: http.DefaultClient,
	}

	return &Client{xrpc: xrpcClient}, nil
}

func (c *Client) DiscoverFeeds(ctx context.Context, limit int) ([]models.Feed, error) {
	resp, err := bsky.FeedGetSuggestedFeeds(ctx, c.xrpc, "", int64(limit))
	if err != nil {
		log.Errorf("failed to get suggested feeds: %s", err)
		return nil, classifyError(err, false)
	}

	feeds := make([]models.Feed, 0, len(resp.Feeds))
	for _, view := range resp.Feeds {
		if view == nil {
			continue
		}
		feeds = append(feeds, feedFromView(view))
	}
	if len(feeds) > limit {
		feeds = feeds[:limit]
	}

	return feeds, nil
}

func (c *Client) FetchPosts(ctx context.Context, feedUri string, maxPosts int) ([]models.Post, error) {
	posts := make([]models.Post, 0, maxPosts)
	cursor := ""

	for len(posts) < maxPosts {
		pageSize := maxPosts - len(posts)
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		resp, err := bsky.FeedGetFeed(ctx, c.xrpc, cursor, feedUri, int64(pageSize))
		if err != nil {
			log.Errorf("failed to get feed %s: %s", feedUri, err)
			return nil, classifyError(err, true)
		}

		for _, item := range resp.Feed {
			if item == nil || item.Post == nil {
				continue
			}
			post, ok := postFromView(feedUri, item.Post)
			if !ok {
				continue
			}
			posts = append(posts, post)
			if len(posts) == maxPosts {
				break
			}
		}

		if resp.Cursor == nil || *resp.Cursor == "" || len(resp.Feed) == 0 {
			break
		}
		cursor = *resp.Cursor
	}

	return posts, nil
}

func feedFromView(view *bsky.FeedDefs_GeneratorView) models.Feed {
	feed := models.Feed{
		Uri:  view.Uri,
		Name: view.DisplayName,
	}
	if view.Description != nil {
		feed.Description = *view.Description
	}
	if view.Creator != nil {
		feed.CreatorHandle = view.Creator.Handle
	}
	if view.LikeCount != nil {
		feed.LikeCount = *view.LikeCount
	}
	return feed
}

// postFromView extracts the post record. Posts without text are skipped, the
// scorer has nothing to classify for image-only posts.
func postFromView(feedUri string, view *bsky.FeedDefs_PostView) (models.Post, bool) {
	if view.Record == nil {
		return models.Post{}, false
	}
	record, ok := view.Record.Val.(*bsky.FeedPost)
	if !ok || record.Text == "" {
		return models.Post{}, false
	}

	post := models.Post{
		FeedUri: feedUri,
		Uri:     view.Uri,
		Text:    record.Text,
	}
	if view.Author != nil {
		post.AuthorHandle = view.Author.Handle
	}
	if createdAt, err := time.Parse(time.RFC3339, record.CreatedAt); err == nil {
		post.CreatedAt = createdAt
	}

	return post, true
}

// classifyError maps transport and XRPC errors onto the shared taxonomy.
func classifyError(err error, fetchingFeed bool) error {
	var xrpcErr *xrpc.Error
	if errors.As(err, &xrpcErr) {
		switch {
		case xrpcErr.StatusCode == http.StatusUnauthorized || xrpcErr.StatusCode == http.StatusForbidden:
			return fmt.Errorf("%w: %v", models.ErrAuthRequired, err)
		case fetchingFeed && (xrpcErr.StatusCode == http.StatusBadRequest || xrpcErr.StatusCode == http.StatusNotFound):
			// getFeed reports unknown feed generators as InvalidRequest
			return fmt.Errorf("%w: %v", models.ErrFeedNotFound, err)
		}
	}
	return fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
}
