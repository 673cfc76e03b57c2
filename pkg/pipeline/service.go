package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mlstock/kiwoom-connector/pkg/kiwoom"
	"github.com/mlstock/kiwoom-connector/pkg/logging"
	"github.com/mlstock/kiwoom-connector/pkg/symbols"
)

// SyncConfig describes one synchronization run.
type SyncConfig struct {
	Symbols           []string
	Timeframes        []string
	CandlesPerRequest int

	// FullHistory follows continuation pages back to the start of the
	// vendor's history instead of fetching a single page.
	FullHistory bool
}

// SyncResult summarizes one symbol/timeframe sync.
type SyncResult struct {
	Symbol    string
	Timeframe string
	Rows      int
	RawPath   string
	CSVPath   string
	Synthetic bool
}

// Summary aggregates the results of a run.
type Summary struct {
	Synced []SyncResult
}

// SyncService coordinates collectors, storage, and feature engineering.
type SyncService struct {
	client   *kiwoom.Client
	storage  *Storage
	features *FeatureStore
	registry *symbols.Registry
	logger   logging.Logger
}

// NewSyncService wires a sync service. registry may be nil, in which case
// listing-date filtering is skipped.
func NewSyncService(client *kiwoom.Client, storage *Storage, registry *symbols.Registry, logger logging.Logger) *SyncService {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &SyncService{
		client:   client,
		storage:  storage,
		features: NewFeatureStore(storage, logger),
		registry: registry,
		logger:   logger,
	}
}

// Run synchronizes candles for every requested symbol and timeframe,
// persisting raw payloads and processed feature tables. A collector failure
// for one pair falls back to synthetic candles rather than aborting the
// whole run; context cancellation does abort.
func (s *SyncService) Run(ctx context.Context, cfg SyncConfig) (*Summary, error) {
	summary := &Summary{}

	for _, symbol := range cfg.Symbols {
		for _, timeframe := range cfg.Timeframes {
			if err := ctx.Err(); err != nil {
				return summary, fmt.Errorf("sync aborted: %w", err)
			}

			s.logger.Info("sync start",
				logging.String("symbol", symbol),
				logging.String("timeframe", timeframe),
			)

			result, err := s.syncOne(ctx, symbol, timeframe, cfg)
			if err != nil {
				return summary, err
			}
			summary.Synced = append(summary.Synced, *result)
		}
	}
	return summary, nil
}

func (s *SyncService) syncOne(ctx context.Context, symbol, timeframe string, cfg SyncConfig) (*SyncResult, error) {
	collector := NewCandleCollector(s.client, timeframe, cfg.CandlesPerRequest, s.logger)

	var payload kiwoom.Payload
	var err error
	if cfg.FullHistory {
		payload, err = collector.RunFullHistory(ctx, symbol)
	} else {
		payload, err = collector.Run(ctx, symbol)
	}

	synthetic := false
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		// Offline development still needs deterministic data to exercise
		// the rest of the pipeline against.
		s.logger.Error("collector failed, generating synthetic candles", logging.Error(err))
		payload = SyntheticCandles(symbol, timeframe, cfg.CandlesPerRequest)
		synthetic = true
	}

	rawPath, err := s.storage.SaveRaw(symbol, timeframe, payload)
	if err != nil {
		return nil, err
	}

	rows := payload.Rows(kiwoom.CandleRowFields()...)
	rows = s.filterBeforeListing(symbol, rows)

	features, err := s.features.BuildFeatures(symbol, timeframe, rows)
	if err != nil {
		return nil, err
	}

	csvPath, err := s.storage.SaveRowsCSV(symbol, timeframe, rows)
	if err != nil {
		return nil, err
	}

	return &SyncResult{
		Symbol:    symbol,
		Timeframe: timeframe,
		Rows:      len(features),
		RawPath:   rawPath,
		CSVPath:   csvPath,
		Synthetic: synthetic,
	}, nil
}

// filterBeforeListing drops rows timestamped before the symbol's listing
// date when the registry knows the symbol.
func (s *SyncService) filterBeforeListing(symbol string, rows []map[string]interface{}) []map[string]interface{} {
	if s.registry == nil {
		return rows
	}
	record := s.registry.Get(symbol)
	if record == nil || record.ListingDate.IsZero() {
		return rows
	}

	filtered := rows[:0]
	for _, row := range rows {
		date := rowField(row, "stck_bsop_date", "date")
		clock := rowField(row, "stck_cntg_hour", "time")
		ts, ok := RowTimestamp(date, clock)
		if !ok || !ts.Before(record.ListingDate) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

func rowField(row map[string]interface{}, names ...string) string {
	for _, name := range names {
		if v, ok := row[name].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// SyntheticCandles generates a deterministic placeholder payload shaped like
// a vendor candle response. The price follows a sine wave so feature
// computations have non-trivial input.
func SyntheticCandles(symbol, timeframe string, count int) kiwoom.Payload {
	if count <= 0 {
		count = 200
	}

	base := time.Now().UTC()
	rows := make([]interface{}, 0, count)
	for i := count - 1; i >= 0; i-- {
		t := base.Add(-time.Duration(i) * time.Minute)
		price := 70000 + 1000*math.Sin(float64(i)/5)
		rows = append(rows, map[string]interface{}{
			"stck_prpr":      fmt.Sprintf("%.0f", price),
			"stck_oprc":      fmt.Sprintf("%.0f", price-50),
			"stck_hgpr":      fmt.Sprintf("%.0f", price+100),
			"stck_lwpr":      fmt.Sprintf("%.0f", price-100),
			"cntg_vol":       fmt.Sprintf("%d", 1000+i),
			"stck_bsop_date": t.Format("20060102"),
			"stck_cntg_hour": t.Format("150405"),
		})
	}

	return kiwoom.Payload{
		"output":    rows,
		"symbol":    symbol,
		"timeframe": timeframe,
		"synthetic": true,
	}
}
