// Package kiwoom implements a client for the Kiwoom securities REST API:
// token lifecycle management, environment-aware endpoint resolution,
// retry-on-transient-failure, continuation-header pagination, and
// normalization of the vendor's inconsistent payload shapes.
package kiwoom

import (
	"context"
	"sync"
	"time"

	"github.com/mlstock/kiwoom-connector/pkg/common"
	"github.com/mlstock/kiwoom-connector/pkg/logging"
	"github.com/mlstock/kiwoom-connector/pkg/notify"
	"github.com/mlstock/kiwoom-connector/pkg/ratelimit"
	"github.com/mlstock/kiwoom-connector/pkg/settings"
)

// Client is the Kiwoom REST API client. One Client owns one HTTP connection
// pool and one token cache. Public operations are synchronous and blocking
// over one round trip (or a bounded sequence for paginated reads).
//
// Concurrent use from multiple goroutines is safe at the transport level.
// The token cache does not deduplicate concurrent refreshes: callers racing
// past an expired-token check may each authenticate once.
type Client struct {
	settings *settings.Settings
	logger   logging.Logger
	notifier notify.Notifier
	http     common.HTTPClient
	tokens   *tokenManager

	baseURL        string
	endpoints      map[string]string
	defaultHeaders map[string]string
	trIDOverrides  map[string]string

	closeOnce sync.Once
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	logger     logging.Logger
	notifier   notify.Notifier
	httpClient common.HTTPClient
}

// WithLogger sets the logger used by the client.
func WithLogger(logger logging.Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

// WithNotifier sets the notifier receiving terminal API failures.
func WithNotifier(notifier notify.Notifier) Option {
	return func(o *clientOptions) { o.notifier = notifier }
}

// WithHTTPClient replaces the transport. Used by tests and by callers that
// need custom pooling or proxying.
func WithHTTPClient(client common.HTTPClient) Option {
	return func(o *clientOptions) { o.httpClient = client }
}

// NewClient constructs a client from an explicit settings value. The base
// URL resolves from the per-environment hosts table with flat-string and
// hard-coded fallbacks, so construction only fails on malformed settings.
func NewClient(s *settings.Settings, options ...Option) (*Client, error) {
	opts := &clientOptions{}
	for _, opt := range options {
		opt(opts)
	}

	logger := opts.logger
	if logger == nil {
		logger = logging.NewLogger()
	}

	notifier := opts.notifier
	if notifier == nil {
		notifier = notify.NewConsoleNotifier(logger)
	}

	baseURL, err := resolveBaseURL(s.Kiwoom.BaseURL, s.IsLive())
	if err != nil {
		return nil, err
	}

	httpClient := opts.httpClient
	if httpClient == nil {
		rps := s.Kiwoom.RequestsPerSecond
		if rps <= 0 {
			rps = 10
		}
		timeout := s.RESTTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = common.NewHTTPClient(&common.ClientConfig{
			Timeout:   timeout,
			RateLimit: ratelimit.Rate{Limit: rps, Interval: time.Second},
			Logger:    logger,
		})
	}

	endpoints := make(map[string]string, len(s.Kiwoom.Endpoints))
	for k, v := range s.Kiwoom.Endpoints {
		endpoints[k] = v
	}

	c := &Client{
		settings:       s,
		logger:         logger,
		notifier:       notifier,
		http:           httpClient,
		baseURL:        baseURL,
		endpoints:      endpoints,
		defaultHeaders: normalizeHeaders(s.Kiwoom.DefaultHeaders),
		trIDOverrides:  s.Kiwoom.TRIDOverrides,
	}
	c.tokens = newTokenManager(s.Credentials, httpClient, baseURL, endpoints, logger)

	logger.Info("kiwoom client initialized",
		logging.String("base_url", baseURL),
		logging.Bool("live", s.IsLive()),
		logging.Any("credentials", s.Credentials.Masked()),
	)
	return c, nil
}

// BaseURL returns the resolved base URL for the active environment.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Authenticate acquires an access token, reusing a cached token that is not
// expiring within the 60-second safety margin unless force is set.
func (c *Client) Authenticate(ctx context.Context, force bool) (string, error) {
	return c.tokens.Authenticate(ctx, force)
}

// UpdateCredentials replaces the stored credentials and invalidates any
// cached token so the next call authenticates under the new identity.
func (c *Client) UpdateCredentials(appKey, secretKey, accountNo string) {
	c.tokens.UpdateCredentials(appKey, secretKey, accountNo)
}

// Revoke best-effort logs out the current token and clears local token
// state. Network failures during revocation are logged, not returned.
func (c *Client) Revoke(ctx context.Context) {
	c.tokens.Revoke(ctx)
}

// Close revokes any outstanding token and releases pooled connections.
// Idempotent and safe to call on a client that never authenticated.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.tokens.Revoke(ctx)
		c.http.CloseIdleConnections()
	})
	return nil
}
