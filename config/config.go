package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
	"github.com/subosito/gotenv"
)

// Defaults mirror the public Bluesky endpoints and a locally running scorer.
const (
	DefaultAppviewHost = "https://public.api.bsky.app"
	DefaultPDSHost     = "https://bsky.social"
	DefaultScoringURL  = "http://localhost:8000"

	DefaultThreshold = 0.5
	DefaultBatchSize = 50
	DefaultNumFeeds  = 5
	DefaultMaxPosts  = 100
	DefaultTimeout   = 30 * time.Second
)

// Config holds all runtime configuration for one process. It is built once at
// startup from CLI flags and environment variables and passed by reference
// into the client constructors, so orchestration code never reads the
// environment itself.
type Config struct {
	// AppviewHost is the unauthenticated Bluesky appview endpoint.
	AppviewHost string
	// PDSHost is the PDS used for app-password sessions.
	PDSHost string
	// ScoringURL is the base URL of the toxicity scoring endpoint.
	ScoringURL string
	// Threshold is forwarded to the scorer to cut toxic vs non-toxic.
	Threshold float64
	// BatchSize caps the number of texts per scoring request.
	BatchSize int
	// Timeout applies to individual HTTP calls on both boundaries.
	Timeout time.Duration
	// Identifier and AppPassword are optional Bluesky credentials.
	Identifier  string
	AppPassword string
	// Languages optionally restricts analysis to posts detected as one of
	// these ISO 639-1 codes. Empty means no filtering.
	Languages []string
}

// LoadEnv loads a .env file into the process environment if one exists.
func LoadEnv() {
	if err := gotenv.Load(); err != nil {
		log.Debug("No .env file found, using OS environment")
	}
}

// TomlFeed pins a single feed for analysis
type TomlFeed struct {
	Uri  string `toml:"uri"`
	Name string `toml:"name"`
}

// TomlFeeds is the top-level pinned feeds configuration
type TomlFeeds struct {
	Feeds []TomlFeed `toml:"feeds"`
}

// LoadFeeds reads a pinned-feeds TOML file, e.g.:
//
//	[[feeds]]
//	uri = "at://did:plc:abc/app.bsky.feed.generator/catpics"
//	name = "Cat Pics"
func LoadFeeds(path string) (*TomlFeeds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading feeds file: %w", err)
	}

	var feeds TomlFeeds
	if err := toml.Unmarshal(data, &feeds); err != nil {
		return nil, fmt.Errorf("error parsing feeds file: %w", err)
	}

	return &feeds, nil
}
