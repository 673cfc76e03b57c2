// Package ratelimit paces outbound requests against the Kiwoom REST API.
// Kiwoom throttles aggressively (HTTP 429) and repeated violations can lead
// to temporary key suspension, so every HTTP client in this module takes a
// token from a limiter before dialing out.
//
// The implementation wraps Uber's token bucket limiter behind a small
// interface so tests can substitute a no-op limiter and so the rate can be
// adjusted at runtime (for example when switching between the paper and live
// environments, which carry different quotas).
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/ratelimit"
)

// Rate describes an allowance of Limit operations per Interval.
type Rate struct {
	// Limit is the maximum number of operations allowed within Interval.
	Limit int

	// Interval is the window the limit applies to, e.g. time.Second.
	Interval time.Duration
}

// RateLimiter blocks callers until an operation is permitted.
type RateLimiter interface {
	// Wait blocks until a token is available or ctx is cancelled. It returns
	// a context error if cancelled before a token could be taken.
	Wait(ctx context.Context) error

	// SetLimit replaces the current rate. It returns an error for
	// non-positive limits or intervals.
	SetLimit(limit Rate) error
}

// uberLimiter implements RateLimiter over go.uber.org/ratelimit's token
// bucket.
type uberLimiter struct {
	limiter ratelimit.Limiter
	rate    Rate
}

// NewTokenBucketLimiter creates a limiter allowing rate.Limit operations per
// rate.Interval, normalized to operations per second for the underlying
// bucket.
func NewTokenBucketLimiter(rate Rate) RateLimiter {
	return &uberLimiter{
		limiter: ratelimit.New(perSecond(rate)),
		rate:    rate,
	}
}

// perSecond normalizes a Rate to whole operations per second, floored at 1.
// Zero-valued rates get the floor rather than a panic.
func perSecond(rate Rate) int {
	if rate.Limit <= 0 || rate.Interval <= 0 {
		return 1
	}
	rps := float64(rate.Limit) / rate.Interval.Seconds()
	if rps < 1 {
		return 1
	}
	return int(rps)
}

// Wait implements RateLimiter.
func (l *uberLimiter) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limit wait cancelled: %w", ctx.Err())
	default:
		l.limiter.Take()
		return nil
	}
}

// SetLimit implements RateLimiter.
func (l *uberLimiter) SetLimit(rate Rate) error {
	if rate.Limit <= 0 || rate.Interval <= 0 {
		return fmt.Errorf("invalid rate limit: %+v", rate)
	}
	l.limiter = ratelimit.New(perSecond(rate))
	l.rate = rate
	return nil
}

// Unlimited returns a limiter that never blocks. Used in tests and for
// endpoints exempt from vendor quotas.
func Unlimited() RateLimiter {
	return unlimited{}
}

type unlimited struct{}

func (unlimited) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	return nil
}

func (unlimited) SetLimit(Rate) error { return nil }
