package kiwoom

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCandles_MinuteChartParams(t *testing.T) {
	var mu sync.Mutex
	var query url.Values
	var trID string
	mux, _ := newTestMux()
	mux.HandleFunc("/api/candles", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		query = r.URL.Query()
		trID = r.Header.Get("tr_id")
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{"output": []interface{}{}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)

	_, err := client.GetCandles(context.Background(), "005930", "15m", 100)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "J", query.Get("fid_cond_mrkt_div_code"))
	assert.Equal(t, "005930", query.Get("fid_input_iscd"))
	assert.Equal(t, "15", query.Get("fid_input_hour_1"))
	assert.Equal(t, "100", query.Get("count"))
	assert.Equal(t, trIDMinuteChart, trID)
}

func TestGetCandles_DailyChartPassesTimeframeToken(t *testing.T) {
	var mu sync.Mutex
	var granularity, trID string
	mux, _ := newTestMux()
	mux.HandleFunc("/api/candles", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		granularity = r.URL.Query().Get("fid_input_hour_1")
		trID = r.Header.Get("tr_id")
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{"output": []interface{}{}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)

	_, err := client.GetCandles(context.Background(), "005930", "day", 30)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "day", granularity)
	assert.Equal(t, trIDDailyChart, trID)
}

func TestGetSupplyData(t *testing.T) {
	var mu sync.Mutex
	var query url.Values
	mux, _ := newTestMux()
	mux.HandleFunc("/api/supply", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		query = r.URL.Query()
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{"output": []interface{}{map[string]interface{}{"frgn_ntby_qty": "1000"}}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)

	payload, err := client.GetSupplyData(context.Background(), "005930")
	require.NoError(t, err)
	require.Len(t, payload.Rows(CandleRowFields()...), 1)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "J", query.Get("fid_cond_mrkt_div_code"))
	assert.Equal(t, "005930", query.Get("fid_input_iscd"))
}

func TestGetMarketIndex_FallsBackToCandlesEndpoint(t *testing.T) {
	var mu sync.Mutex
	var path string
	var division string
	mux, _ := newTestMux()
	mux.HandleFunc("/api/candles", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		path = r.URL.Path
		division = r.URL.Query().Get("fid_cond_mrkt_div_code")
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{"output": map[string]interface{}{"bstp_nmix_prpr": "2500.12"}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)

	payload, err := client.GetMarketIndex(context.Background(), "0001")
	require.NoError(t, err)
	assert.NotNil(t, payload["output"])

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/api/candles", path)
	assert.Equal(t, "U", division, "index lookups use market division U")
}

func TestGetMarketIndex_DedicatedEndpointPreferred(t *testing.T) {
	var mu sync.Mutex
	var path string
	mux, _ := newTestMux()
	mux.HandleFunc("/api/index", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		path = r.URL.Path
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)
	client.endpoints["market_index"] = "/api/index"

	_, err := client.GetMarketIndex(context.Background(), "0001")
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, "/api/index", path)
	mu.Unlock()
}
