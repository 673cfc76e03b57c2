package kiwoom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrder_FieldMapping(t *testing.T) {
	var mu sync.Mutex
	var body map[string]string
	var trID string
	mux, _ := newTestMux()
	mux.HandleFunc("/api/order", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		trID = r.Header.Get("tr_id")
		json.NewDecoder(r.Body).Decode(&body)
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{"odno": "0001"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)
	client.trIDOverrides = map[string]string{"order": "TTTC0802U"}

	payload, err := client.PlaceOrder(context.Background(), OrderRequest{
		Symbol:   "005930",
		Side:     "buy",
		Quantity: 10,
		Price:    decimal.RequireFromString("71200"),
	})
	require.NoError(t, err)
	assert.Equal(t, "0001", payload["odno"])

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "TTTC0802U", trID)
	assert.Equal(t, "12345678", body["CANO"])
	assert.Equal(t, "01", body["ACNT_PRDT_CD"])
	assert.Equal(t, "005930", body["PDNO"])
	assert.Equal(t, "00", body["ORD_DVSN"], "empty order type defaults to limit")
	assert.Equal(t, "10", body["ORD_QTY"])
	assert.Equal(t, "71200", body["ORD_UNPR"])
	assert.Equal(t, "BUY", body["ORD_DVSN_CD"])
}

func TestPlaceOrder_ExplicitOrderType(t *testing.T) {
	var mu sync.Mutex
	var body map[string]string
	mux, _ := newTestMux()
	mux.HandleFunc("/api/order", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		json.NewDecoder(r.Body).Decode(&body)
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)

	_, err := client.PlaceOrder(context.Background(), OrderRequest{
		Symbol:    "000660",
		Side:      "SELL",
		Quantity:  3,
		Price:     decimal.Zero,
		OrderType: "01",
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "01", body["ORD_DVSN"])
	assert.Equal(t, "0", body["ORD_UNPR"], "market orders submit a zero price")
	assert.Equal(t, "SELL", body["ORD_DVSN_CD"])
}

func TestPlaceOrder_InvalidAccountFailsBeforeNetwork(t *testing.T) {
	var mu sync.Mutex
	var orderCalls int
	mux, _ := newTestMux()
	mux.HandleFunc("/api/order", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		orderCalls++
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, nil)
	client.UpdateCredentials("test-app-key", "test-secret-key", "1234")

	_, err := client.PlaceOrder(context.Background(), OrderRequest{
		Symbol:   "005930",
		Side:     "BUY",
		Quantity: 1,
		Price:    decimal.Zero,
	})

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)

	mu.Lock()
	assert.Zero(t, orderCalls)
	mu.Unlock()
}
