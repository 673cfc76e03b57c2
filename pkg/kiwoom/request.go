package kiwoom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"

	"github.com/mlstock/kiwoom-connector/pkg/logging"
	"github.com/mlstock/kiwoom-connector/pkg/notify"
)

// Payload is a decoded vendor JSON response body. Vendor payload shapes vary
// per endpoint family, so bodies stay dynamic and row extraction works over
// ordered field-name candidates (see paginate.go).
type Payload map[string]interface{}

// Retry policy of the request executor: three attempts total with
// exponential backoff starting at 500ms, doubling, capped at 4s.
const (
	retryAttempts  = 3
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 4 * time.Second
)

// statusKind tags the classification of a single HTTP exchange. Branching on
// the tag keeps classification separate from the error values handed to
// callers.
type statusKind int

const (
	statusSuccess statusKind = iota
	statusRateLimited
	statusClientError
	statusServerError
	statusNetworkError
	statusParseError
)

// callOutcome is the classified result of one HTTP exchange.
type callOutcome struct {
	kind    statusKind
	status  int
	body    []byte
	payload Payload
	header  http.Header
}

// err maps a non-success outcome onto the error taxonomy.
func (o *callOutcome) err(cause error) error {
	switch o.kind {
	case statusSuccess:
		return nil
	case statusRateLimited:
		return &RateLimitError{StatusCode: o.status, Body: string(o.body)}
	case statusNetworkError:
		return &APIError{Message: "network error", Err: cause}
	case statusParseError:
		return &APIError{Message: "failed to parse JSON response", Body: string(o.body), Err: cause}
	default:
		return &APIError{
			Message:    strings.TrimSpace(string(o.body)),
			StatusCode: o.status,
			Body:       string(o.body),
		}
	}
}

// requestSpec carries everything needed to build one authenticated request.
type requestSpec struct {
	method      string
	endpoint    string
	params      map[string]string
	jsonBody    interface{}
	headers     map[string]string
	includeAuth bool
}

// execute runs one logical API operation: it builds the authenticated
// request, performs the HTTP exchange, and classifies the outcome, retrying
// the whole sequence on retryable failures so a token refreshed mid-flight
// is picked up on the next attempt. It returns the decoded body and the
// response headers (the pagination cursor travels in headers).
//
// An empty endpoint is a configuration error and never reaches the network.
// Retries are silent; the notifier fires exactly once per terminal failure.
func (c *Client) execute(ctx context.Context, spec requestSpec) (Payload, http.Header, error) {
	if spec.endpoint == "" {
		return nil, nil, &ConfigError{Message: "endpoint path is required"}
	}

	var payload Payload
	var respHeader http.Header

	err := retry.Do(
		func() error {
			outcome, err := c.attempt(ctx, spec)
			if err != nil {
				return err
			}
			if outcome.kind != statusSuccess {
				return outcome.err(nil)
			}
			payload = outcome.payload
			respHeader = outcome.header
			return nil
		},
		retry.Attempts(retryAttempts),
		retry.Delay(retryBaseDelay),
		retry.MaxDelay(retryMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying kiwoom request",
				logging.Int("attempt", int(n)+1),
				logging.String("endpoint", spec.endpoint),
				logging.Error(err),
			)
		}),
	)
	if err != nil {
		c.notifyTerminalFailure(spec, err)
		return nil, nil, err
	}

	return payload, respHeader, nil
}

// attempt performs a single authenticated exchange and classifies it. Header
// construction happens inside the attempt so a retry re-acquires the token.
func (c *Client) attempt(ctx context.Context, spec requestSpec) (*callOutcome, error) {
	headers, err := c.buildHeaders(ctx, spec.headers, spec.includeAuth)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, spec, headers)
	if err != nil {
		return nil, &ConfigError{Message: fmt.Sprintf("building request for %s: %v", spec.endpoint, err)}
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		out := &callOutcome{kind: statusNetworkError}
		return nil, out.err(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		out := &callOutcome{kind: statusNetworkError}
		return nil, out.err(err)
	}

	outcome := &callOutcome{
		status: resp.StatusCode,
		body:   body,
		header: resp.Header,
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		outcome.kind = statusRateLimited
	case resp.StatusCode >= 500:
		outcome.kind = statusServerError
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		outcome.kind = statusClientError
	default:
		var decoded Payload
		if err := json.Unmarshal(body, &decoded); err != nil {
			outcome.kind = statusParseError
			return nil, outcome.err(err)
		}
		outcome.kind = statusSuccess
		outcome.payload = decoded
	}

	return outcome, nil
}

// buildHeaders merges the normalized defaults, the bearer token, and the
// caller's overrides. Caller overrides win. With includeAuth false only the
// caller headers apply.
func (c *Client) buildHeaders(ctx context.Context, extra map[string]string, includeAuth bool) (map[string]string, error) {
	if !includeAuth {
		merged := make(map[string]string, len(extra))
		for k, v := range extra {
			merged[k] = v
		}
		return merged, nil
	}

	token, err := c.tokens.Authenticate(ctx, false)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]string, len(c.defaultHeaders)+len(extra)+1)
	merged["Authorization"] = "Bearer " + token
	for k, v := range c.defaultHeaders {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged, nil
}

func (c *Client) newRequest(ctx context.Context, spec requestSpec, headers map[string]string) (*http.Request, error) {
	reqURL := joinURL(c.baseURL, spec.endpoint)
	if len(spec.params) > 0 {
		u, err := url.Parse(reqURL)
		if err != nil {
			return nil, err
		}
		q := u.Query()
		for k, v := range spec.params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
		reqURL = u.String()
	}

	var bodyReader io.Reader
	if spec.jsonBody != nil {
		data, err := json.Marshal(spec.jsonBody)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(spec.method), reqURL, bodyReader)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// notifyTerminalFailure pushes a terminal API failure through the notifier.
// Configuration and authentication failures are surfaced to the caller only;
// the operator channel carries upstream API trouble.
func (c *Client) notifyTerminalFailure(spec requestSpec, err error) {
	if !IsRetryable(err) {
		return
	}

	payload := map[string]interface{}{
		"endpoint": spec.endpoint,
		"method":   strings.ToUpper(spec.method),
	}
	switch e := err.(type) {
	case *RateLimitError:
		payload["status"] = e.StatusCode
	case *APIError:
		if e.StatusCode != 0 {
			payload["status"] = e.StatusCode
		}
		if e.Body != "" {
			payload["body"] = e.Body
		}
	}
	c.logger.Error("kiwoom API request failed", logging.String("endpoint", spec.endpoint), logging.Error(err))
	c.notifier.Notify("Kiwoom API error", notify.LevelError, payload)
}

// joinURL joins the base URL and an endpoint path without doubling slashes.
func joinURL(base, endpoint string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(endpoint, "/")
}
