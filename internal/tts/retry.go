package tts

import (
	"context"
	"errors"
	"time"
)

// Retry defaults used by the job orchestrator.
const (
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = time.Second
)

// SynthesizeWithRetry calls provider.Synthesize with bounded retry on rate
// limit errors.
//
// Only ErrRateLimited is retried, with exponential backoff
// (initialBackoff * 2^attempt). After maxRetries retries the original error
// is returned unchanged. Every other error class propagates immediately —
// auth and malformed-request failures will not resolve by waiting, so
// retrying them only delays the user-visible failure.
//
// onRetry, when non-nil, is invoked once per retry that is actually taken,
// before the backoff wait.
func SynthesizeWithRetry(ctx context.Context, provider Provider, req Request, maxRetries int, initialBackoff time.Duration, onRetry func()) (*SynthesisResult, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err := provider.Synthesize(ctx, req)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return nil, err
		}

		lastErr = err
		if attempt == maxRetries {
			break
		}
		if onRetry != nil {
			onRetry()
		}

		backoff := initialBackoff << attempt
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}
