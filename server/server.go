package server

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"toxsky/analyzer"
	"toxsky/bluesky"
	"toxsky/models"
)

// Analyzer is the slice of toxsky/analyzer the server needs.
type Analyzer interface {
	Analyze(ctx context.Context, selector analyzer.Selector, maxPostsPerFeed int) ([]models.FeedOutcome, error)
}

// HealthChecker probes the scoring endpoint.
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

type ServerConfig struct {

	// The analyzer that runs the scoring pipeline
	Analyzer Analyzer

	// The feed source used for discovery listings
	Source bluesky.FeedSource

	// Health probe for the scoring endpoint
	Scorer HealthChecker

	// Default cap on posts per feed for dashboard-triggered runs
	DefaultMaxPosts int

	// Default number of feeds for auto-discovery runs
	DefaultNumFeeds int
}

type analyzeResponse struct {
	Summary  models.RunSummary    `json:"summary"`
	Outcomes []models.FeedOutcome `json:"outcomes"`
}

// Returns a fiber.App instance serving the dashboard API
func Server(config *ServerConfig) *fiber.App {

	app := fiber.New()

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"latency": time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:3001",
		AllowHeaders: "Cache-Control",
	}))

	// Analysis runs are expensive, cache them for a few minutes so dashboard
	// refreshes don't hammer the remote APIs.
	app.Use(cache.New(cache.Config{
		Expiration: 5 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			if c.Method() != "GET" {
				return true
			}
			return !strings.HasPrefix(c.Path(), "/api/analyze")
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.Request().URI().String()
		},
	}))

	app.Get("/api/feeds", func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "20"))
		if err != nil || limit < 1 || limit > 100 {
			limit = 20
		}

		feeds, err := config.Source.DiscoverFeeds(c.Context(), limit)
		if err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Error discovering feeds")
			return c.Status(502).SendString("Error discovering feeds")
		}

		return c.JSON(feeds)
	})

	app.Get("/api/analyze", func(c *fiber.Ctx) error {
		maxPosts, err := strconv.Atoi(c.Query("maxPosts", strconv.Itoa(config.DefaultMaxPosts)))
		if err != nil || maxPosts < 1 {
			maxPosts = config.DefaultMaxPosts
		}

		selector := analyzer.Selector{NumFeeds: config.DefaultNumFeeds}
		if feed := c.Query("feed", ""); feed != "" {
			uri, err := syntax.ParseATURI(feed)
			if err != nil {
				return c.Status(400).SendString("Invalid feed URI")
			}
			selector = analyzer.Selector{Feeds: []models.Feed{{
				Uri:  feed,
				Name: uri.RecordKey().String(),
			}}}
		} else if numFeeds, err := strconv.Atoi(c.Query("feeds", "")); err == nil && numFeeds > 0 {
			selector.NumFeeds = numFeeds
		}

		log.WithFields(log.Fields{
			"feeds":    len(selector.Feeds),
			"numFeeds": selector.NumFeeds,
			"maxPosts": maxPosts,
		}).Info("Run analysis with parameters")

		outcomes, err := config.Analyzer.Analyze(c.Context(), selector, maxPosts)
		if err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Error running analysis")
			return c.Status(502).SendString("Error running analysis")
		}

		return c.JSON(analyzeResponse{
			Summary:  models.Summarize(outcomes),
			Outcomes: outcomes,
		})
	})

	app.Get("/api/health", func(c *fiber.Ctx) error {
		if err := config.Scorer.Healthy(c.Context()); err != nil {
			return c.Status(503).JSON(map[string]interface{}{
				"status":  "degraded",
				"scoring": err.Error(),
			})
		}
		return c.JSON(map[string]interface{}{
			"status":  "ok",
			"scoring": "ok",
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}
