package kiwoom

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mlstock/kiwoom-connector/pkg/logging"
	"github.com/mlstock/kiwoom-connector/pkg/notify"
	"github.com/mlstock/kiwoom-connector/pkg/settings"
)

// testEndpoints is the endpoint table used by client tests.
var testEndpoints = map[string]string{
	"authenticate":     "/oauth2/token",
	"revoke":           "/oauth2/revoke",
	"candles":          "/api/candles",
	"supply":           "/api/supply",
	"market_condition": "/api/market-condition",
	"account_overview": "/api/account",
	"order":            "/api/order",
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	levels   []notify.Level
	payloads []map[string]interface{}
}

func (n *recordingNotifier) Notify(message string, level notify.Level, payload map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	n.levels = append(n.levels, level)
	n.payloads = append(n.payloads, payload)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

// authHandler serves a minimal successful token response and counts calls.
type authHandler struct {
	mu    sync.Mutex
	calls int
	body  map[string]interface{}
}

func (h *authHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.calls++
	body := h.body
	h.mu.Unlock()

	if body == nil {
		body = map[string]interface{}{"access_token": "test-token", "expires_in": 3600}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func (h *authHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

// newTestClient builds a client pointed at the given test server with a high
// rate limit so tests do not stall on pacing.
func newTestClient(t *testing.T, server *httptest.Server, notifier notify.Notifier) *Client {
	t.Helper()

	s := &settings.Settings{
		Mode:        "paper",
		RESTTimeout: 2 * time.Second,
		Credentials: settings.Credentials{
			AppKey:    "test-app-key",
			SecretKey: "test-secret-key",
			AccountNo: "12345678-01",
		},
	}
	s.Kiwoom = settings.KiwoomConfig{
		BaseURL:           settings.BaseURL{Hosts: map[string]string{"paper": server.URL}},
		Endpoints:         testEndpoints,
		RequestsPerSecond: 1000,
	}

	opts := []Option{WithLogger(logging.NewLogger())}
	if notifier != nil {
		opts = append(opts, WithNotifier(notifier))
	}

	client, err := NewClient(s, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

// newTestMux returns a mux pre-wired with a successful auth handler.
func newTestMux() (*http.ServeMux, *authHandler) {
	mux := http.NewServeMux()
	auth := &authHandler{}
	mux.Handle("/oauth2/token", auth)
	mux.HandleFunc("/oauth2/revoke", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	})
	return mux, auth
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
