// Package fetch resolves scan targets into payloads: HTTP GET with retry
// and backoff for URLs, file reads for paths, and passthrough for text.
package fetch

import "time"

// Config holds configuration for the fetcher
type Config struct {
	ProxyURL           string        // HTTP(S) proxy for URL targets; empty = direct
	MaxRetries         int           // extra attempts after the first request
	BaseBackoff        time.Duration // delay before the first retry
	MaxBackoff         time.Duration // cap on any single backoff delay (0 = no cap)
	Jitter             bool          // add up to 10% random delay to each backoff
	Timeout            time.Duration // per-request timeout
	UserAgent          string        // User-Agent header sent with every request
	MaxContentSize     int64         // bytes read per target (0 = unlimited)
	RateLimit          float64       // requests per second across the run (0 = unlimited)
	InsecureSkipVerify bool          // skip TLS certificate verification
}

// DefaultConfig returns the default fetcher configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		BaseBackoff: 500 * time.Millisecond,
		MaxBackoff:  30 * time.Second,
		Jitter:      true,
		Timeout:     20 * time.Second,
		UserAgent:   "gosek",
	}
}
