package pipeline

import (
	"context"

	"github.com/mlstock/kiwoom-connector/pkg/kiwoom"
	"github.com/mlstock/kiwoom-connector/pkg/logging"
)

// CandleCollector pulls candle data for one timeframe via the Kiwoom client.
type CandleCollector struct {
	Client    *kiwoom.Client
	Timeframe string
	Count     int
	Logger    logging.Logger
}

// NewCandleCollector creates a collector. Count defaults to 200 when zero.
func NewCandleCollector(client *kiwoom.Client, timeframe string, count int, logger logging.Logger) *CandleCollector {
	if count <= 0 {
		count = 200
	}
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &CandleCollector{
		Client:    client,
		Timeframe: timeframe,
		Count:     count,
		Logger:    logger,
	}
}

// Run fetches a single page of candles for symbol.
func (c *CandleCollector) Run(ctx context.Context, symbol string) (kiwoom.Payload, error) {
	c.Logger.Info("collecting candles",
		logging.String("symbol", symbol),
		logging.String("timeframe", c.Timeframe),
	)

	payload, err := c.Client.GetCandles(ctx, symbol, c.Timeframe, c.Count)
	if err != nil {
		return nil, err
	}

	c.Logger.Info("collected candles",
		logging.String("symbol", symbol),
		logging.Int("rows", len(payload.Rows(kiwoom.CandleRowFields()...))),
	)
	return payload, nil
}

// RunFullHistory fetches every continuation page for symbol and returns the
// merged rows as a single payload under the "output" field.
func (c *CandleCollector) RunFullHistory(ctx context.Context, symbol string) (kiwoom.Payload, error) {
	c.Logger.Info("collecting full candle history",
		logging.String("symbol", symbol),
		logging.String("timeframe", c.Timeframe),
	)

	rows, pages, err := c.Client.GetCandlesAll(ctx, symbol, c.Timeframe, c.Count)
	if err != nil {
		return nil, err
	}

	c.Logger.Info("collected full candle history",
		logging.String("symbol", symbol),
		logging.Int("rows", len(rows)),
		logging.Int("pages", len(pages)),
	)

	merged := make([]interface{}, len(rows))
	for i, row := range rows {
		merged[i] = row
	}
	return kiwoom.Payload{"output": merged, "symbol": symbol, "timeframe": c.Timeframe}, nil
}
