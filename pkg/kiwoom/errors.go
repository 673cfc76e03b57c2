package kiwoom

import (
	"errors"
	"fmt"
)

// The client classifies every failure into one of four kinds:
//
//   - ConfigError: missing or invalid static setup. Never retried, always
//     fatal to the calling operation.
//   - AuthError: credential or token acquisition failure. Not retried; the
//     caller must fix credentials.
//   - RateLimitError: upstream throttling (HTTP 429). Distinguishable from
//     generic API errors so callers can apply a different backoff policy.
//   - APIError: any other non-success outcome, including transport failures
//     and unparseable bodies. Retried up to the executor budget before
//     surfacing.

// ConfigError reports missing or invalid static configuration.
type ConfigError struct {
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// AuthError reports a failure to acquire or refresh an access token.
type AuthError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("authentication error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error { return e.Err }

// RateLimitError reports an HTTP 429 from the vendor.
type RateLimitError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit reached (status %d)", e.StatusCode)
}

// APIError reports a generic non-success API outcome. StatusCode is zero for
// transport-level failures that never produced a response. Body carries the
// raw response text for diagnostics.
type APIError struct {
	Message    string
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("kiwoom api error %d: %s", e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("kiwoom api error: %s: %v", e.Message, e.Err)
	default:
		return fmt.Sprintf("kiwoom api error: %s", e.Message)
	}
}

// Unwrap returns the underlying error.
func (e *APIError) Unwrap() error { return e.Err }

// IsRetryable reports whether err belongs to a class the request executor
// retries. Configuration and authentication errors propagate immediately.
func IsRetryable(err error) bool {
	var cfgErr *ConfigError
	var authErr *AuthError
	return !errors.As(err, &cfgErr) && !errors.As(err, &authErr)
}
