package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	maxAttempts = 5

	// baseDelay feeds the exponential backoff for transient API errors.
	baseDelay = 5 * time.Second

	// rateLimitDelay is the flat wait after a 429. Provider quotas reset
	// on a one-minute window, so waiting just over a minute clears it.
	rateLimitDelay = 65 * time.Second
)

// callWithRetry runs fn up to maxAttempts times. Rate-limited calls wait a
// flat rateLimitDelay; other API failures back off exponentially. The last
// error is returned once attempts are exhausted or ctx is canceled.
func callWithRetry(ctx context.Context, provider string, fn func() (string, error), isRateLimit func(error) bool) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt == maxAttempts-1 {
			break
		}

		wait := baseDelay * (1 << attempt)
		if isRateLimit != nil && isRateLimit(err) {
			wait = rateLimitDelay
		}
		log.Warn().
			Str("provider", provider).
			Int("attempt", attempt+1).
			Dur("wait", wait).
			Err(err).
			Msg("LLM call failed, retrying")

		if err := sleepCtx(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
