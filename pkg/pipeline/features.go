package pipeline

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mlstock/kiwoom-connector/pkg/logging"
)

// Candle is a normalized OHLCV row parsed from a vendor payload.
type Candle struct {
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// FeatureRow is a candle enriched with the basic engineered features kept by
// the feature store: simple return, short/long moving averages, and rolling
// return volatility.
type FeatureRow struct {
	Candle
	Return     decimal.Decimal
	SMA5       decimal.Decimal
	SMA20      decimal.Decimal
	Volatility float64
}

// vendorFieldAliases maps the vendor's field spellings onto canonical
// column names. Different endpoint revisions use different names for the
// same column.
var vendorFieldAliases = map[string]string{
	"stck_prpr":      "close",
	"stck_oprc":      "open",
	"stck_hgpr":      "high",
	"stck_lwpr":      "low",
	"cntg_vol":       "volume",
	"stck_bsop_date": "date",
	"stck_cntg_hour": "time",
	"open_pric":      "open",
	"high_pric":      "high",
	"low_pric":       "low",
	"close_pric":     "close",
	"trde_qty":       "volume",
}

// FeatureStore transforms raw candle rows into feature tables and persists
// them through Storage.
type FeatureStore struct {
	Storage *Storage
	Logger  logging.Logger
}

// NewFeatureStore creates a feature store writing through storage.
func NewFeatureStore(storage *Storage, logger logging.Logger) *FeatureStore {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &FeatureStore{Storage: storage, Logger: logger}
}

// BuildFeatures normalizes raw rows, computes features, and persists the
// resulting table. Rows without a parseable timestamp or close price are
// dropped. An empty input yields an empty table and no file.
func (fs *FeatureStore) BuildFeatures(symbol, timeframe string, rows []map[string]interface{}) ([]FeatureRow, error) {
	candles := NormalizeRows(rows)
	if len(candles) == 0 {
		fs.Logger.Warn("empty candle set",
			logging.String("symbol", symbol),
			logging.String("timeframe", timeframe),
		)
		return nil, nil
	}

	features := enrich(candles)

	path, err := fs.Storage.SaveProcessed(symbol, timeframe, features)
	if err != nil {
		return nil, err
	}
	fs.Logger.Info("features saved",
		logging.String("symbol", symbol),
		logging.String("timeframe", timeframe),
		logging.String("path", path),
	)
	return features, nil
}

// NormalizeRows converts raw vendor rows to candles sorted by timestamp.
func NormalizeRows(rows []map[string]interface{}) []Candle {
	candles := make([]Candle, 0, len(rows))
	for _, row := range rows {
		normalized := map[string]string{}
		for key, value := range row {
			name := key
			if alias, ok := vendorFieldAliases[key]; ok {
				name = alias
			}
			normalized[name] = cellString(value)
		}

		ts, ok := RowTimestamp(normalized["date"], normalized["time"])
		if !ok {
			continue
		}
		closePrice, err := decimal.NewFromString(strings.TrimSpace(normalized["close"]))
		if err != nil {
			continue
		}

		candles = append(candles, Candle{
			Timestamp: ts,
			Open:      parseDecimal(normalized["open"]),
			High:      parseDecimal(normalized["high"]),
			Low:       parseDecimal(normalized["low"]),
			Close:     closePrice,
			Volume:    parseDecimal(normalized["volume"]),
		})
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
	return candles
}

// RowTimestamp parses the vendor date (YYYYMMDD) and optional time (HHMMSS,
// zero-padded to six digits when shorter) into a timestamp.
func RowTimestamp(date, clock string) (time.Time, bool) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}, false
	}
	clock = strings.TrimSpace(clock)
	if clock == "" {
		t, err := time.Parse("20060102", date)
		return t, err == nil
	}
	for len(clock) < 6 {
		clock = "0" + clock
	}
	t, err := time.Parse("20060102150405", date+clock)
	return t, err == nil
}

// enrich computes per-row return, moving averages, and rolling volatility.
// Moving averages are backfilled with the first complete window value, and
// volatility is zero until its window fills, matching the historical
// behavior of the processed tables.
func enrich(candles []Candle) []FeatureRow {
	features := make([]FeatureRow, len(candles))
	returns := make([]float64, len(candles))

	for i, c := range candles {
		features[i].Candle = c
		if i > 0 && !candles[i-1].Close.IsZero() {
			prev := candles[i-1].Close
			features[i].Return = c.Close.Sub(prev).Div(prev)
		} else {
			features[i].Return = decimal.Zero
		}
		returns[i], _ = features[i].Return.Float64()
	}

	sma5 := rollingMean(candles, 5)
	sma20 := rollingMean(candles, 20)
	for i := range features {
		features[i].SMA5 = sma5[i]
		features[i].SMA20 = sma20[i]
		features[i].Volatility = rollingStd(returns, i, 20)
	}
	return features
}

// rollingMean computes a trailing mean over window rows, backfilling rows
// before the first complete window with that first complete value (or the
// overall mean when the series is shorter than the window).
func rollingMean(candles []Candle, window int) []decimal.Decimal {
	out := make([]decimal.Decimal, len(candles))
	if len(candles) == 0 {
		return out
	}

	sum := decimal.Zero
	firstComplete := -1
	for i, c := range candles {
		sum = sum.Add(c.Close)
		if i >= window {
			sum = sum.Sub(candles[i-window].Close)
		}
		if i >= window-1 {
			out[i] = sum.Div(decimal.NewFromInt(int64(window)))
			if firstComplete == -1 {
				firstComplete = i
			}
		}
	}

	if firstComplete == -1 {
		mean := decimal.Zero
		for _, c := range candles {
			mean = mean.Add(c.Close)
		}
		mean = mean.Div(decimal.NewFromInt(int64(len(candles))))
		for i := range out {
			out[i] = mean
		}
		return out
	}

	for i := 0; i < firstComplete; i++ {
		out[i] = out[firstComplete]
	}
	return out
}

// rollingStd computes the sample standard deviation of the trailing window
// ending at index i, returning 0 until the window fills.
func rollingStd(values []float64, i, window int) float64 {
	if i+1 < window {
		return 0
	}
	start := i + 1 - window

	var mean float64
	for _, v := range values[start : i+1] {
		mean += v
	}
	mean /= float64(window)

	var variance float64
	for _, v := range values[start : i+1] {
		d := v - mean
		variance += d * d
	}
	variance /= float64(window - 1)
	return math.Sqrt(variance)
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func cellString(v interface{}) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return decimal.NewFromFloat(value).String()
	case nil:
		return ""
	default:
		return strings.TrimSpace(stringifyCell(value))
	}
}
