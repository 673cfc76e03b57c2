package kiwoom

import (
	"context"
	"net/http"
	"strings"
)

// accountOverviewAPIID identifies the account evaluation transaction.
const accountOverviewAPIID = "kt00018"

// Row-group candidates for the account overview payload. Holdings and the
// summary arrive under different fields depending on the endpoint revision,
// and the summary is sometimes a single object rather than a list.
var (
	accountHoldingFields = []string{"stk_acnt_evlt_prst", "output1", "output"}
	accountSummaryFields = []string{"acnt_evlt_smry", "output2"}
)

// AccountOverview is the merged multi-page account evaluation: the combined
// holdings and summary row groups plus the raw per-page payloads for callers
// that need vendor-specific fields the normalizer does not know about.
type AccountOverview struct {
	Holdings []map[string]interface{}
	Summary  []map[string]interface{}
	Pages    []Payload
}

// GetAccountOverview fetches the account evaluation, always following
// continuation pages up to the account page cap and merging each page's
// holdings and summary groups.
func (c *Client) GetAccountOverview(ctx context.Context) (*AccountOverview, error) {
	overview := &AccountOverview{}

	body := map[string]string{
		"qry_tp":       "1",
		"dmst_stex_tp": "KRX",
	}

	page := func(ctx context.Context, cursor pageCursor) (Payload, http.Header, error) {
		headers := cursor.headers()
		headers["api-id"] = accountOverviewAPIID
		payload, header, err := c.execute(ctx, requestSpec{
			method:      http.MethodPost,
			endpoint:    c.endpoints["account_overview"],
			jsonBody:    body,
			headers:     headers,
			includeAuth: true,
		})
		if err != nil {
			return nil, nil, err
		}
		overview.Holdings = append(overview.Holdings, extractRows(payload, accountHoldingFields)...)
		overview.Summary = append(overview.Summary, extractRows(payload, accountSummaryFields)...)
		return payload, header, nil
	}

	// fetchAllPages extracts the holdings group; the page closure above
	// accumulates both groups, so the aggregate row result is discarded.
	_, pages, err := c.fetchAllPages(ctx, page, accountHoldingFields, maxAccountPages)
	if err != nil {
		return nil, err
	}
	overview.Pages = pages

	return overview, nil
}

// splitAccountNumber derives the 8-digit account prefix and the 2-character
// product code from the raw configured account number. Non-digits are
// stripped first. Fewer than 8 digits is a configuration error; exactly 8
// digits yields the default product code "01"; a 9th digit is left-padded to
// two characters.
func splitAccountNumber(raw string) (prefix, productCode string, err error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	s := digits.String()
	if len(s) < 8 {
		return "", "", &ConfigError{Message: "account number must include at least 8 digits (e.g. 12345678-01)"}
	}

	prefix = s[:8]
	switch rest := s[8:]; len(rest) {
	case 0:
		productCode = "01"
	case 1:
		productCode = "0" + rest
	default:
		productCode = rest[:2]
	}
	return prefix, productCode, nil
}
