package common

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/mlstock/kiwoom-connector/pkg/logging"
	"github.com/mlstock/kiwoom-connector/pkg/ratelimit"
)

// DebugClientConfig holds configuration for the HTTP debug client.
type DebugClientConfig struct {
	*ClientConfig

	LogRequestBody  bool
	LogResponseBody bool

	// MaxBodyLogSize caps how many body bytes are logged per message so a
	// large candle payload cannot flood the log.
	MaxBodyLogSize int
}

// DefaultDebugConfig returns a default debug client configuration.
func DefaultDebugConfig() *DebugClientConfig {
	return &DebugClientConfig{
		ClientConfig:    DefaultConfig(),
		LogRequestBody:  true,
		LogResponseBody: true,
		MaxBodyLogSize:  4096,
	}
}

// NewDebugHTTPClient wraps the standard client with verbose request/response
// logging. Intended for diagnosing vendor payload-shape surprises; not for
// production use since it buffers bodies in memory.
func NewDebugHTTPClient(config *DebugClientConfig) HTTPClient {
	if config == nil {
		config = DefaultDebugConfig()
	}
	if config.Logger == nil {
		config.Logger = logging.NewZapLogger(logging.WithDebugLevel())
	}

	return &debugClient{
		inner:  NewHTTPClient(config.ClientConfig),
		config: config,
	}
}

type debugClient struct {
	inner  HTTPClient
	config *DebugClientConfig
}

// Do implements HTTPClient with body logging around the inner client.
func (c *debugClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	fields := []logging.Field{
		logging.String("method", req.Method),
		logging.String("url", req.URL.String()),
	}
	if c.config.LogRequestBody && req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err == nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
			fields = append(fields, logging.String("request_body", c.truncate(body)))
		}
	}
	c.config.Logger.Debug("outgoing request", fields...)

	start := time.Now()
	resp, err := c.inner.Do(ctx, req)
	if err != nil {
		c.config.Logger.Debug("request error",
			logging.String("url", req.URL.String()),
			logging.Duration("elapsed", time.Since(start)),
			logging.Error(err),
		)
		return nil, err
	}

	respFields := []logging.Field{
		logging.String("url", req.URL.String()),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(start)),
	}
	if c.config.LogResponseBody && resp.Body != nil {
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err == nil {
			resp.Body = io.NopCloser(bytes.NewReader(body))
			respFields = append(respFields, logging.String("response_body", c.truncate(body)))
		}
	}
	c.config.Logger.Debug("incoming response", respFields...)

	return resp, nil
}

// Get implements HTTPClient.
func (c *debugClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// Post implements HTTPClient.
func (c *debugClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	return c.inner.Post(ctx, url, body)
}

// SetRateLimit implements HTTPClient.
func (c *debugClient) SetRateLimit(limit ratelimit.Rate) error {
	return c.inner.SetRateLimit(limit)
}

// CloseIdleConnections implements HTTPClient.
func (c *debugClient) CloseIdleConnections() {
	c.inner.CloseIdleConnections()
}

func (c *debugClient) truncate(body []byte) string {
	if c.config.MaxBodyLogSize > 0 && len(body) > c.config.MaxBodyLogSize {
		return string(body[:c.config.MaxBodyLogSize]) + "...(truncated)"
	}
	return string(body)
}
