// Package kiwoomconnector provides a client library for the Kiwoom
// securities REST API together with a candle synchronization pipeline.
//
// The core lives in pkg/kiwoom: a REST client handling the vendor's
// request/auth/pagination pipeline. It covers the access token lifecycle
// with an expiry safety margin, base URL resolution across paper and live
// environments, bounded retry with exponential backoff on transient
// failures, continuation-header pagination (cont-yn/next-key), and
// normalization of the vendor's inconsistent payload shapes.
//
// Failures are classified into four kinds:
//
//   - ConfigError: missing or invalid static setup, never retried
//
//   - AuthError: credential or token acquisition failure, propagated
//     immediately so the caller can fix credentials
//
//   - RateLimitError: upstream throttling (HTTP 429), distinguishable from
//     generic errors so callers can apply a different backoff policy
//
//   - APIError: any other non-success outcome, retried up to the executor
//     budget before surfacing with status code and raw body
//
// Supporting packages: pkg/settings loads configuration from YAML and the
// environment; pkg/notify pushes terminal failures to operators; pkg/common
// is the shared rate-limited HTTP transport; pkg/pipeline synchronizes
// candles to disk and derives basic features; pkg/symbols is the CSV-backed
// symbol registry; pkg/risk gates order submission.
//
// The cmd/kiwoom-sync binary drives a synchronization run from a watchlist
// file.
package kiwoomconnector
