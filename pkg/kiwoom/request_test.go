package kiwoom

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlstock/kiwoom-connector/pkg/notify"
)

func TestExecute_EmptyEndpointFailsBeforeNetwork(t *testing.T) {
	var mu sync.Mutex
	var hits int
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.Write([]byte(`{}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)

	_, _, err := client.execute(context.Background(), requestSpec{
		method:      http.MethodGet,
		endpoint:    "",
		includeAuth: true,
	})

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)

	mu.Lock()
	assert.Zero(t, hits)
	mu.Unlock()
}

func TestExecute_ReturnsPayloadAndResponseHeaders(t *testing.T) {
	mux, _ := newTestMux()
	mux.HandleFunc("/api/candles", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("next-key", "cursor-123")
		writeJSON(w, http.StatusOK, map[string]interface{}{"output": []interface{}{}, "rt_cd": "0"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)

	payload, header, err := client.execute(context.Background(), requestSpec{
		method:      http.MethodGet,
		endpoint:    testEndpoints["candles"],
		includeAuth: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "0", payload["rt_cd"])
	assert.Equal(t, "cursor-123", headerValue(header, headerNextKey))
}

func TestExecute_RateLimitErrorDistinguishable(t *testing.T) {
	var mu sync.Mutex
	var calls int
	mux, _ := newTestMux()
	mux.HandleFunc("/api/candles", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"msg": "slow down"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)

	_, err := client.GetCandles(context.Background(), "005930", "1m", 10)
	require.Error(t, err)

	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, http.StatusTooManyRequests, rateErr.StatusCode)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))

	mu.Lock()
	assert.Equal(t, retryAttempts, calls)
	mu.Unlock()
}

func TestExecute_ServerErrorRetriedThenSurfaced(t *testing.T) {
	var mu sync.Mutex
	var calls int
	mux, _ := newTestMux()
	mux.HandleFunc("/api/candles", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		writeJSON(w, http.StatusInternalServerError, map[string]string{"msg": "boom"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	notifier := &recordingNotifier{}
	client := newTestClient(t, server, notifier)

	_, err := client.GetCandles(context.Background(), "005930", "1m", 10)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)

	mu.Lock()
	assert.Equal(t, retryAttempts, calls)
	mu.Unlock()

	// One notification per terminal failure, not one per attempt.
	assert.Equal(t, 1, notifier.count())
	assert.Equal(t, notify.LevelError, notifier.levels[0])
}

func TestExecute_RecoversOnSecondAttempt(t *testing.T) {
	var mu sync.Mutex
	var calls int
	mux, _ := newTestMux()
	mux.HandleFunc("/api/candles", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"msg": "warming up"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"output": []interface{}{}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	notifier := &recordingNotifier{}
	client := newTestClient(t, server, notifier)

	_, err := client.GetCandles(context.Background(), "005930", "1m", 10)
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, 2, calls)
	mu.Unlock()
	assert.Zero(t, notifier.count())
}

func TestExecute_NetworkErrorWrapsAPIError(t *testing.T) {
	mux, _ := newTestMux()
	mux.HandleFunc("/api/candles", func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		conn.Close()
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)

	_, err := client.GetCandles(context.Background(), "005930", "1m", 10)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "network error")
}

func TestExecute_NonJSONSuccessBodyIsParseError(t *testing.T) {
	mux, _ := newTestMux()
	mux.HandleFunc("/api/candles", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html>maintenance</html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)

	_, err := client.GetCandles(context.Background(), "005930", "1m", 10)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "parse")
	assert.Contains(t, apiErr.Body, "maintenance")
}

func TestExecute_AuthFailureNotRetried(t *testing.T) {
	var mu sync.Mutex
	var authCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		authCalls++
		mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "bad key"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	notifier := &recordingNotifier{}
	client := newTestClient(t, server, notifier)

	_, err := client.GetCandles(context.Background(), "005930", "1m", 10)
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)

	mu.Lock()
	assert.Equal(t, 1, authCalls)
	mu.Unlock()

	// Credential problems are the caller's to fix, not operator noise.
	assert.Zero(t, notifier.count())
}

func TestExecute_CallerHeadersOverrideDefaults(t *testing.T) {
	var mu sync.Mutex
	var gotContentType, gotAuth, gotExtra string
	mux, _ := newTestMux()
	mux.HandleFunc("/api/candles", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotExtra = r.Header.Get("X-Extra")
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)

	_, _, err := client.execute(context.Background(), requestSpec{
		method:   http.MethodGet,
		endpoint: testEndpoints["candles"],
		headers: map[string]string{
			"Content-Type": "text/custom",
			"X-Extra":      "1",
		},
		includeAuth: true,
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "text/custom", gotContentType)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "1", gotExtra)
}

func TestExecute_QueryParamsEncoded(t *testing.T) {
	var mu sync.Mutex
	var query string
	mux, _ := newTestMux()
	mux.HandleFunc("/api/candles", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		query = r.URL.Query().Get("fid_input_iscd")
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)

	_, err := client.GetCandles(context.Background(), "005930", "1m", 10)
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, "005930", query)
	mu.Unlock()
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "https://api.example.com/oauth2/token", joinURL("https://api.example.com/", "/oauth2/token"))
	assert.Equal(t, "https://api.example.com/oauth2/token", joinURL("https://api.example.com", "oauth2/token"))
}
