package kiwoom

import (
	"context"
	"net/http"
	"strconv"
)

// candleRowFields are the field-name candidates, in order, under which the
// vendor returns candle rows depending on the endpoint revision.
var candleRowFields = []string{"output", "output1", "stk_ddwkmm"}

// GetCandles fetches a single page of candle data for a symbol. The
// timeframe token ("1m", "15m", "1h", "day", ...) selects the vendor minute
// code and transaction ID; unknown tokens fall back to the daily chart.
func (c *Client) GetCandles(ctx context.Context, symbol, timeframe string, count int) (Payload, error) {
	payload, _, err := c.candlePage(ctx, symbol, timeframe, count, pageCursor{ContYN: "N"})
	return payload, err
}

// GetCandlesAll fetches candle data across continuation pages, following the
// cont-yn/next-key cursor up to the candle page cap. It returns the
// accumulated rows and the raw per-page payloads.
func (c *Client) GetCandlesAll(ctx context.Context, symbol, timeframe string, count int) ([]map[string]interface{}, []Payload, error) {
	page := func(ctx context.Context, cursor pageCursor) (Payload, http.Header, error) {
		return c.candlePage(ctx, symbol, timeframe, count, cursor)
	}
	return c.fetchAllPages(ctx, page, candleRowFields, maxCandlePages)
}

func (c *Client) candlePage(ctx context.Context, symbol, timeframe string, count int, cursor pageCursor) (Payload, http.Header, error) {
	spec := c.resolveTimeframe(timeframe)

	granularity := spec.MinuteCode
	if granularity == "" {
		granularity = timeframe
	}

	params := map[string]string{
		"fid_cond_mrkt_div_code": "J",
		"fid_input_iscd":         symbol,
		"fid_input_hour_1":       granularity,
		"count":                  strconv.Itoa(count),
	}

	headers := cursor.headers()
	headers["tr_id"] = spec.TRID

	return c.execute(ctx, requestSpec{
		method:      http.MethodGet,
		endpoint:    c.endpoints["candles"],
		params:      params,
		headers:     headers,
		includeAuth: true,
	})
}

// GetSupplyData fetches investor supply/demand data for a symbol.
func (c *Client) GetSupplyData(ctx context.Context, symbol string) (Payload, error) {
	payload, _, err := c.execute(ctx, requestSpec{
		method:   http.MethodGet,
		endpoint: c.endpoints["supply"],
		params: map[string]string{
			"fid_cond_mrkt_div_code": "J",
			"fid_input_iscd":         symbol,
		},
		includeAuth: true,
	})
	return payload, err
}

// GetMarketIndex fetches market index information. Configurations without a
// dedicated market_index endpoint reuse the candles endpoint, which serves
// index codes under market division "U".
func (c *Client) GetMarketIndex(ctx context.Context, indexCode string) (Payload, error) {
	endpoint := c.endpoints["market_index"]
	if endpoint == "" {
		endpoint = c.endpoints["candles"]
	}

	payload, _, err := c.execute(ctx, requestSpec{
		method:   http.MethodGet,
		endpoint: endpoint,
		params: map[string]string{
			"fid_cond_mrkt_div_code": "U",
			"fid_input_iscd":         indexCode,
		},
		includeAuth: true,
	})
	return payload, err
}
