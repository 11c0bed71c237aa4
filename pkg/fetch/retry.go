package fetch

import (
	"context"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// retryState tracks one Fetch call's progress through its retries.
type retryState struct {
	attempt int           // requests issued so far
	delay   time.Duration // wait before the next request
}

// shouldRetryStatus reports whether an HTTP status is worth retrying.
func shouldRetryStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// maxRetryAfter bounds a server's Retry-After hint when MaxBackoff is unset.
const maxRetryAfter = 5 * time.Minute

// backoff calculates the delay before retry k (1-indexed) using exponential
// backoff: base * 2^(k-1), capped at max, plus optional jitter. A server hint
// from Retry-After raises the delay but never past the cap, or past
// maxRetryAfter when there is no cap.
func backoff(cfg Config, k int, retryAfter time.Duration) time.Duration {
	if cfg.MaxBackoff <= 0 && retryAfter > maxRetryAfter {
		retryAfter = maxRetryAfter
	}

	delay := cfg.BaseBackoff
	for i := 1; i < k && delay > 0; i++ {
		if delay > math.MaxInt64/2 {
			delay = math.MaxInt64
			break
		}
		delay *= 2
		if cfg.MaxBackoff > 0 && delay >= cfg.MaxBackoff {
			break
		}
	}
	if retryAfter > delay {
		delay = retryAfter
	}
	if cfg.MaxBackoff > 0 && delay > cfg.MaxBackoff {
		delay = cfg.MaxBackoff
	}

	// Add jitter to prevent thundering herd
	if cfg.Jitter && delay >= 10 && delay < math.MaxInt64/2 {
		delay += time.Duration(rand.Int64N(int64(delay)/10 + 1))
	}
	return delay
}

// parseRetryAfter reads a Retry-After header given as seconds or an HTTP date.
func parseRetryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
