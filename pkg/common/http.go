// Package common provides the shared HTTP transport used by the Kiwoom
// connector and the webhook notifier: a rate-limited, timeout-bounded
// net/http wrapper. Retry policy does not live here: the request executor
// in pkg/kiwoom retries the whole authenticated build-and-classify sequence
// so a token refresh is picked up between attempts.
package common

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mlstock/kiwoom-connector/pkg/logging"
	"github.com/mlstock/kiwoom-connector/pkg/ratelimit"
)

// HTTPClient is the transport interface for making HTTP requests.
type HTTPClient interface {
	// Do executes a single HTTP request after taking a rate limit token.
	Do(ctx context.Context, req *http.Request) (*http.Response, error)

	// Get is a convenience method for GET requests.
	Get(ctx context.Context, url string) (*http.Response, error)

	// Post is a convenience method for POST requests with a JSON body.
	Post(ctx context.Context, url string, body interface{}) (*http.Response, error)

	// SetRateLimit updates the rate limiter configuration.
	SetRateLimit(limit ratelimit.Rate) error

	// CloseIdleConnections releases pooled connections. Safe to call more
	// than once and safe to call on a client that never dialed.
	CloseIdleConnections()
}

// ClientConfig holds configuration for the HTTP client.
type ClientConfig struct {
	Timeout   time.Duration
	RateLimit ratelimit.Rate
	Logger    logging.Logger
}

// DefaultConfig returns a default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Timeout: 30 * time.Second,
		RateLimit: ratelimit.Rate{
			Limit:    10,
			Interval: time.Second,
		},
		Logger: logging.NewLogger(),
	}
}

// client implements the HTTPClient interface.
type client struct {
	config     *ClientConfig
	httpClient *http.Client
	limiter    ratelimit.RateLimiter
	logger     logging.Logger
}

// NewHTTPClient creates a new HTTP client with the given configuration.
func NewHTTPClient(config *ClientConfig) HTTPClient {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = logging.NewLogger()
	}

	return &client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: ratelimit.NewTokenBucketLimiter(config.RateLimit),
		logger:  config.Logger,
	}
}

// Do implements HTTPClient.
func (c *client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait error: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		c.logger.Debug("http request failed",
			logging.String("method", req.Method),
			logging.String("url", req.URL.String()),
			logging.Duration("elapsed", time.Since(start)),
			logging.Error(err),
		)
		return nil, err
	}

	c.logger.Debug("http request completed",
		logging.String("method", req.Method),
		logging.String("url", req.URL.String()),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}

// Get implements HTTPClient.
func (c *client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	return c.Do(ctx, req)
}

// Post implements HTTPClient.
func (c *client) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.Do(ctx, req)
}

// SetRateLimit implements HTTPClient.
func (c *client) SetRateLimit(limit ratelimit.Rate) error {
	return c.limiter.SetLimit(limit)
}

// CloseIdleConnections implements HTTPClient.
func (c *client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}
