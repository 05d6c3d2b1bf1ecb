package gateway

import (
	"context"
	"time"
)

// Retry policy: a fixed attempt cap with linearly increasing backoff.
const (
	maxRetries  = 3
	backoffBase = 2 * time.Second
	backoffStep = 2 * time.Second
)

// sleeper lets tests replace the backoff delay.
type sleeper func(ctx context.Context, d time.Duration)

func defaultSleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// withRetry runs fn up to maxRetries times. Retryable failures back off
// base + attempt*step between attempts; terminal failures stop at once.
// Every failure path emits exactly one alert through alertf and returns
// false so callers fall back to their documented empty value.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) bool {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return true
		}
		lastErr = err

		if classify(err) == classTerminal {
			c.alert.Sendf("[%s failed] %v", op, err)
			return false
		}
		if attempt < maxRetries-1 {
			c.sleep(ctx, backoffBase+time.Duration(attempt)*backoffStep)
		}
	}
	c.alert.Sendf("[%s failed] retries exhausted: %v", op, lastErr)
	return false
}
