package kiwoom

import (
	"context"
	"net/http"

	"github.com/mlstock/kiwoom-connector/pkg/logging"
)

// Pagination header names. The vendor echoes the request cursor back in the
// response headers with inconsistent casing, so reads are case-insensitive.
const (
	headerContYN  = "cont-yn"
	headerNextKey = "next-key"
)

// Page caps per operation family. On cap exhaustion pagination returns the
// rows accumulated so far instead of failing: partial success is preferred
// to total failure for multi-page reads.
const (
	maxCandlePages  = 200
	maxAccountPages = 50
)

// pageCursor is the continuation cursor carried in request and response
// headers. It is transient and never persisted.
type pageCursor struct {
	ContYN  string
	NextKey string
}

// done reports whether the cursor terminates pagination: any flag other than
// "Y" or an empty key stops the loop.
func (c pageCursor) done() bool {
	return c.ContYN != "Y" || c.NextKey == ""
}

// headers renders the cursor as request headers.
func (c pageCursor) headers() map[string]string {
	return map[string]string{
		headerContYN:  c.ContYN,
		headerNextKey: c.NextKey,
	}
}

// readCursor extracts the next cursor from response headers.
func readCursor(h http.Header) pageCursor {
	return pageCursor{
		ContYN:  headerValue(h, headerContYN),
		NextKey: headerValue(h, headerNextKey),
	}
}

// pageFunc executes one page request with the given cursor and returns the
// decoded payload plus the response headers carrying the next cursor.
type pageFunc func(ctx context.Context, cursor pageCursor) (Payload, http.Header, error)

// fetchAllPages drives a bounded pagination loop: it starts with an empty
// cursor, extracts rows from each page via the ordered rowFields candidates,
// and follows the continuation cursor until the vendor stops signalling more
// pages or maxPages is reached. It returns the accumulated rows together
// with every raw page payload for callers that need vendor-specific fields.
func (c *Client) fetchAllPages(ctx context.Context, page pageFunc, rowFields []string, maxPages int) ([]map[string]interface{}, []Payload, error) {
	cursor := pageCursor{ContYN: "N", NextKey: ""}

	var rows []map[string]interface{}
	var pages []Payload

	for i := 0; i < maxPages; i++ {
		payload, header, err := page(ctx, cursor)
		if err != nil {
			return nil, nil, err
		}

		pages = append(pages, payload)
		rows = append(rows, extractRows(payload, rowFields)...)

		cursor = readCursor(header)
		if cursor.done() {
			return rows, pages, nil
		}
	}

	c.logger.Warn("pagination page cap reached, returning partial results",
		logging.Int("max_pages", maxPages),
		logging.Int("rows", len(rows)),
	)
	return rows, pages, nil
}

// Rows returns the row list behind the first candidate field present in the
// payload; see extractRows. Exposed for callers that work with raw payloads
// (e.g. the sync pipeline).
func (p Payload) Rows(candidates ...string) []map[string]interface{} {
	return extractRows(p, candidates)
}

// CandleRowFields returns the default row-field candidates for candle
// payloads.
func CandleRowFields() []string {
	return append([]string(nil), candleRowFields...)
}

// extractRows returns the row list behind the first candidate field present
// in the payload. A field holding a single object counts as a one-row list
// (some summary groups arrive as an object rather than a list). Rows that
// are not objects are skipped.
func extractRows(payload Payload, candidates []string) []map[string]interface{} {
	for _, field := range candidates {
		v, ok := payload[field]
		if !ok || v == nil {
			continue
		}
		switch value := v.(type) {
		case []interface{}:
			rows := make([]map[string]interface{}, 0, len(value))
			for _, item := range value {
				if row, ok := item.(map[string]interface{}); ok {
					rows = append(rows, row)
				}
			}
			return rows
		case map[string]interface{}:
			return []map[string]interface{}{value}
		}
	}
	return nil
}
