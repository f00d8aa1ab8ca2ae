package llm

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// Retrying wraps a Generator and retries transient failures.
type Retrying struct {
	Next       Generator
	MaxRetries int
	Log        *slog.Logger

	backoff func(int) time.Duration
}

func NewRetrying(next Generator, maxRetries int, log *slog.Logger) *Retrying {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Retrying{Next: next, MaxRetries: maxRetries, Log: log, backoff: Backoff}
}

// Complete calls Next, retrying quota, timeout and server errors up to
// MaxRetries extra times.
func (r *Retrying) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		text, err := r.Next.Complete(ctx, prompt, opts)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == r.MaxRetries {
			break
		}
		wait := r.backoff(attempt)
		r.Log.Warn("retryable generation error", "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}
