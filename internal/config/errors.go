package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when neither arguments nor --list provide a candidate.
	ErrNoTarget = errors.New("no target specified: provide URLs as arguments or use --list")

	// ErrInvalidThreshold is returned when minSignalHits is below 1.
	ErrInvalidThreshold = errors.New("invalid minSignalHits: must be at least 1")

	// ErrInvalidTimeout is returned when a request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRetryAttempts is returned when retryAttempts is below 1.
	ErrInvalidRetryAttempts = errors.New("invalid retryAttempts: must be at least 1")

	// ErrInvalidRetryDelay is returned when the retry delay is negative.
	ErrInvalidRetryDelay = errors.New("invalid retry delay: must be non-negative")

	// ErrInvalidConcurrency is returned when subpageConcurrencyLimit is below 1.
	ErrInvalidConcurrency = errors.New("invalid subpageConcurrencyLimit: must be at least 1")

	// ErrInvalidDelayBounds is returned when the inter-candidate delay bounds are inverted or negative.
	ErrInvalidDelayBounds = errors.New("invalid interCandidateDelayBounds: need 0 <= min <= max")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidRate is returned when requestsPerSecond is negative.
	ErrInvalidRate = errors.New("invalid requestsPerSecond: must be non-negative")

	// ErrInvalidCooldown is returned when the probe cool-down is negative.
	ErrInvalidCooldown = errors.New("invalid probe cooldown: must be non-negative")

	// ErrMissingProbeURL is returned when the probe is enabled without a URL.
	ErrMissingProbeURL = errors.New("probe enabled but probe url is empty")
)
