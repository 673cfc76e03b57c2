package kiwoom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMarketCondition_PeriodSelectsAPIID(t *testing.T) {
	var mu sync.Mutex
	var apiID string
	var body map[string]string
	mux, _ := newTestMux()
	mux.HandleFunc("/api/market-condition", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		apiID = r.Header.Get("api-id")
		json.NewDecoder(r.Body).Decode(&body)
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"stk_ddwkmm": []interface{}{map[string]interface{}{"cur_prc": "71200"}},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)

	for period, wantAPIID := range marketConditionAPIIDs {
		rows, pages, err := client.GetMarketCondition(context.Background(), "005930", period)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Len(t, pages, 1)
		assert.Equal(t, "71200", rows[0]["cur_prc"])

		mu.Lock()
		assert.Equal(t, wantAPIID, apiID)
		assert.Equal(t, "005930", body["stk_cd"])
		assert.Equal(t, "1", body["upd_stkpc_tp"])
		assert.Len(t, body["base_dt"], 8)
		mu.Unlock()
	}
}

func TestGetMarketCondition_UnsupportedPeriod(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	client := newTestClient(t, server, nil)

	_, _, err := client.GetMarketCondition(context.Background(), "005930", "hour")

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestGetMarketCondition_FollowsContinuation(t *testing.T) {
	mux, _ := newTestMux()
	mux.HandleFunc("/api/market-condition", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("next-key") == "" {
			w.Header().Set("cont-yn", "Y")
			w.Header().Set("next-key", "more")
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"stk_ddwkmm": []interface{}{map[string]interface{}{"cur_prc": "1"}},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)

	rows, pages, err := client.GetMarketCondition(context.Background(), "005930", "day")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Len(t, pages, 2)
}
