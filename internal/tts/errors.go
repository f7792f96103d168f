package tts

import (
	"errors"
	"regexp"
)

// Error classes for synthesis failures. Providers wrap these so callers can
// branch with errors.Is.
var (
	// ErrAuth means the provider rejected our credentials. Never retried.
	ErrAuth = errors.New("provider authentication failed")

	// ErrRateLimited means the provider throttled the request. This is the
	// only class the retrying invoker retries — rate limits self-resolve,
	// other failures will not.
	ErrRateLimited = errors.New("provider rate limit exceeded")

	// ErrUpstream covers any other provider API failure. Never retried.
	ErrUpstream = errors.New("provider request failed")

	// ErrNotConfigured means the provider has no credentials set.
	ErrNotConfigured = errors.New("provider not configured")
)

var (
	keyLikePattern = regexp.MustCompile(`[A-Za-z0-9_\-]{20,}`)
	urlPattern     = regexp.MustCompile(`https?://\S+`)
)

// SanitizeError strips anything resembling an API key (long alphanumeric
// runs) or a URL with query parameters from an upstream error message, so
// credentials never reach logs or job status responses.
func SanitizeError(raw string) string {
	sanitized := keyLikePattern.ReplaceAllString(raw, "[REDACTED]")
	return urlPattern.ReplaceAllString(sanitized, "[URL REDACTED]")
}
