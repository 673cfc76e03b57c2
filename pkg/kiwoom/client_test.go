package kiwoom

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlstock/kiwoom-connector/pkg/common"
	"github.com/mlstock/kiwoom-connector/pkg/ratelimit"
	"github.com/mlstock/kiwoom-connector/pkg/settings"
)

func TestNewClient_ResolvesEnvironmentBaseURL(t *testing.T) {
	s := &settings.Settings{Mode: "paper"}
	s.Kiwoom.BaseURL = settings.BaseURL{Hosts: map[string]string{
		"live":  "https://api.x",
		"paper": "https://mock.x",
	}}

	client, err := NewClient(s)
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, "https://mock.x", client.BaseURL())

	s2 := &settings.Settings{Mode: "live"}
	s2.Kiwoom.BaseURL = settings.BaseURL{Hosts: map[string]string{
		"live":  "https://api.x",
		"paper": "https://mock.x",
	}}
	client2, err := NewClient(s2)
	require.NoError(t, err)
	defer client2.Close()
	assert.Equal(t, "https://api.x", client2.BaseURL())
}

func TestNewClient_DefaultsWithoutConfig(t *testing.T) {
	client, err := NewClient(&settings.Settings{})
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, defaultPaperBaseURL, client.BaseURL())
	assert.Equal(t, defaultContentType, client.defaultHeaders["Content-Type"])
}

type stubHTTPClient struct {
	requests int
}

func (s *stubHTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	s.requests++
	return nil, context.DeadlineExceeded
}

func (s *stubHTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	return s.Do(ctx, req)
}

func (s *stubHTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	return s.Do(ctx, req)
}

func (s *stubHTTPClient) SetRateLimit(ratelimit.Rate) error { return nil }
func (s *stubHTTPClient) CloseIdleConnections()             {}

var _ common.HTTPClient = (*stubHTTPClient)(nil)

func TestWithHTTPClient_ReplacesTransport(t *testing.T) {
	stub := &stubHTTPClient{}
	s := &settings.Settings{
		Mode:        "paper",
		RESTTimeout: time.Second,
		Credentials: settings.Credentials{AppKey: "k", SecretKey: "s"},
	}
	s.Kiwoom.Endpoints = map[string]string{"authenticate": "/oauth2/token"}

	client, err := NewClient(s, WithHTTPClient(stub))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Authenticate(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, 1, stub.requests, "the injected transport handles the auth call")
}
