package models

import "errors"

// Error taxonomy shared by the remote boundaries. Adapters wrap these
// sentinels with fmt.Errorf("%w: ...") so callers can match with errors.Is.
var (
	// ErrUpstreamUnavailable means the feed provider could not be reached
	// or returned a non-success status.
	ErrUpstreamUnavailable = errors.New("feed provider unavailable")

	// ErrAuthRequired means the feed needs credentials that were not supplied.
	ErrAuthRequired = errors.New("authentication required")

	// ErrFeedNotFound means the feed identifier is unknown or deleted.
	ErrFeedNotFound = errors.New("feed not found")

	// ErrScoringUnavailable means the scoring endpoint is unreachable or
	// returned a non-success status.
	ErrScoringUnavailable = errors.New("scoring service unavailable")

	// ErrScoringMalformedResponse means the scoring response shape did not
	// match the submitted batch.
	ErrScoringMalformedResponse = errors.New("malformed scoring response")
)
