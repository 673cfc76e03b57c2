// Package pipeline orchestrates candle synchronization: collecting pages
// from the Kiwoom client, persisting raw payloads for traceability, and
// deriving basic per-row features from the normalized candles.
package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mlstock/kiwoom-connector/pkg/kiwoom"
)

// Storage persists raw API payloads and processed feature tables under a
// root directory:
//
//	<root>/raw/<symbol>/<timeframe>/<timestamp>.json
//	<root>/raw/csv/<symbol>/<timeframe>.csv
//	<root>/processed/<symbol>/<timeframe>.csv
type Storage struct {
	Root string
}

// NewStorage creates a Storage rooted at dir.
func NewStorage(dir string) *Storage {
	return &Storage{Root: dir}
}

func (s *Storage) rawDir() string       { return filepath.Join(s.Root, "raw") }
func (s *Storage) processedDir() string { return filepath.Join(s.Root, "processed") }

// SaveRaw persists a raw JSON payload for traceability and returns the file
// path.
func (s *Storage) SaveRaw(symbol, timeframe string, payload kiwoom.Payload) (string, error) {
	dir := filepath.Join(s.rawDir(), symbol, timeframe)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating raw directory: %w", err)
	}

	path := filepath.Join(dir, time.Now().UTC().Format("20060102T150405")+".json")
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding raw payload: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing raw payload: %w", err)
	}
	return path, nil
}

// SaveRowsCSV exports raw rows as CSV for offline inspection. Columns are
// the union of row keys, sorted for a stable layout. Returns an empty path
// for an empty row set.
func (s *Storage) SaveRowsCSV(symbol, timeframe string, rows []map[string]interface{}) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}

	dir := filepath.Join(s.rawDir(), "csv", symbol)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating csv directory: %w", err)
	}

	keySet := map[string]struct{}{}
	for _, row := range rows {
		for k := range row {
			keySet[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(keySet))
	for k := range keySet {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	path := filepath.Join(dir, timeframe+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("writing csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return "", err
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = stringifyCell(row[col])
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, nil
}

// SaveProcessed persists a feature table as CSV and returns the file path.
func (s *Storage) SaveProcessed(symbol, timeframe string, features []FeatureRow) (string, error) {
	dir := filepath.Join(s.processedDir(), symbol)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating processed directory: %w", err)
	}

	path := filepath.Join(dir, timeframe+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("writing processed table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "open", "high", "low", "close", "volume", "return", "sma_5", "sma_20", "volatility"}); err != nil {
		return "", err
	}
	for _, row := range features {
		record := []string{
			row.Timestamp.Format(time.RFC3339),
			row.Open.String(),
			row.High.String(),
			row.Low.String(),
			row.Close.String(),
			row.Volume.String(),
			row.Return.String(),
			row.SMA5.String(),
			row.SMA20.String(),
			fmt.Sprintf("%g", row.Volatility),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, nil
}

func stringifyCell(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return fmt.Sprintf("%g", value)
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(data)
	}
}
