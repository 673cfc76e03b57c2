package kiwoom

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mlstock/kiwoom-connector/pkg/logging"
)

// OrderRequest describes an order to submit.
type OrderRequest struct {
	// Symbol is the instrument code (PDNO).
	Symbol string

	// Side is the order direction, e.g. "BUY" or "SELL". Sent upper-cased.
	Side string

	// Quantity is the order quantity in shares.
	Quantity int

	// Price is the limit price. A zero price submits "0", which the vendor
	// interprets according to the order type (market orders ignore it).
	Price decimal.Decimal

	// OrderType is the vendor order division code. Empty defaults to "00"
	// (limit order).
	OrderType string
}

// PlaceOrder submits an order. The account prefix and product code derive
// from the configured account number.
//
// Order submission flows through the same executor as every other call and
// therefore shares its transient-failure retry. A retry after an ambiguous
// failure can double-submit; the vendor offers no idempotency key, so
// callers needing stronger guarantees must reconcile against the account
// overview after a terminal failure.
func (c *Client) PlaceOrder(ctx context.Context, order OrderRequest) (Payload, error) {
	prefix, productCode, err := splitAccountNumber(c.tokens.Credentials().AccountNo)
	if err != nil {
		return nil, err
	}

	orderType := order.OrderType
	if orderType == "" {
		orderType = "00"
	}

	body := map[string]string{
		"CANO":         prefix,
		"ACNT_PRDT_CD": productCode,
		"PDNO":         order.Symbol,
		"ORD_DVSN":     orderType,
		"ORD_QTY":      strconv.Itoa(order.Quantity),
		"ORD_UNPR":     order.Price.String(),
		"ORD_DVSN_CD":  strings.ToUpper(order.Side),
	}

	headers := map[string]string{}
	if trID := c.trIDOverrides["order"]; trID != "" {
		headers["tr_id"] = trID
	}

	payload, _, err := c.execute(ctx, requestSpec{
		method:      http.MethodPost,
		endpoint:    c.endpoints["order"],
		jsonBody:    body,
		headers:     headers,
		includeAuth: true,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("order submitted",
		logging.String("symbol", order.Symbol),
		logging.String("side", strings.ToUpper(order.Side)),
		logging.Int("quantity", order.Quantity),
		logging.String("price", order.Price.String()),
	)
	return payload, nil
}
