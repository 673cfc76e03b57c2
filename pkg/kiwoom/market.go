package kiwoom

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Market condition (day/week/month bar) API IDs. This endpoint family
// identifies transactions with an api-id header instead of tr_id.
var marketConditionAPIIDs = map[string]string{
	"day":   "ka10081",
	"week":  "ka10082",
	"month": "ka10083",
}

// marketConditionRowFields are the row-list candidates for market condition
// payloads.
var marketConditionRowFields = []string{"stk_ddwkmm", "output", "output1"}

// GetMarketCondition fetches daily, weekly, or monthly bars for a symbol,
// following continuation pages up to the candle page cap. period must be
// "day", "week", or "month".
func (c *Client) GetMarketCondition(ctx context.Context, symbol, period string) ([]map[string]interface{}, []Payload, error) {
	apiID, ok := marketConditionAPIIDs[period]
	if !ok {
		return nil, nil, &ConfigError{Message: fmt.Sprintf("unsupported market condition period %q", period)}
	}

	body := map[string]string{
		"stk_cd":       symbol,
		"base_dt":      time.Now().UTC().Format("20060102"),
		"upd_stkpc_tp": "1",
	}

	page := func(ctx context.Context, cursor pageCursor) (Payload, http.Header, error) {
		headers := cursor.headers()
		headers["api-id"] = apiID
		return c.execute(ctx, requestSpec{
			method:      http.MethodPost,
			endpoint:    c.endpoints["market_condition"],
			jsonBody:    body,
			headers:     headers,
			includeAuth: true,
		})
	}

	return c.fetchAllPages(ctx, page, marketConditionRowFields, maxCandlePages)
}
