// Package symbols manages instrument metadata loaded from a CSV registry:
// lookup by code, keyword search, and upserts written back to disk.
package symbols

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mlstock/kiwoom-connector/pkg/logging"
)

// Record is one symbol entry in the registry.
type Record struct {
	Symbol      string
	Name        string
	Market      string
	ListingDate time.Time
}

// Registry loads symbol metadata from a CSV file (columns: symbol, name,
// market, listing_date) and provides search utilities. A missing file is
// seeded with a small placeholder set so downstream code always has data to
// work with.
type Registry struct {
	csvPath string
	logger  logging.Logger
	records []Record
}

var placeholderRecords = []Record{
	{Symbol: "005930", Name: "삼성전자", Market: "KRX", ListingDate: mustDate("1975-06-11")},
	{Symbol: "000660", Name: "SK하이닉스", Market: "KRX", ListingDate: mustDate("1996-12-26")},
	{Symbol: "035420", Name: "NAVER", Market: "KRX", ListingDate: mustDate("2008-11-28")},
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// NewRegistry loads the registry from csvPath, creating a placeholder file
// when none exists.
func NewRegistry(csvPath string, logger logging.Logger) (*Registry, error) {
	if logger == nil {
		logger = logging.NewLogger()
	}
	r := &Registry{csvPath: csvPath, logger: logger}

	if _, err := os.Stat(csvPath); os.IsNotExist(err) {
		logger.Warn("symbol CSV not found, creating a placeholder", logging.String("path", csvPath))
		r.records = append([]Record(nil), placeholderRecords...)
		if err := r.save(); err != nil {
			return nil, err
		}
		return r, nil
	}

	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) load() error {
	f, err := os.Open(r.csvPath)
	if err != nil {
		return fmt.Errorf("opening symbol CSV: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("reading symbol CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	// Column order from the header row; files written by older tools vary.
	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := Record{
			Symbol: field(row, col, "symbol"),
			Name:   field(row, col, "name"),
			Market: field(row, col, "market"),
		}
		if raw := field(row, col, "listing_date"); raw != "" {
			if t, err := time.Parse("2006-01-02", raw); err == nil {
				rec.ListingDate = t
			}
		}
		if rec.Symbol != "" {
			records = append(records, rec)
		}
	}
	r.records = records
	return nil
}

func field(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (r *Registry) save() error {
	if err := os.MkdirAll(filepath.Dir(r.csvPath), 0o755); err != nil {
		return fmt.Errorf("creating symbol directory: %w", err)
	}

	f, err := os.Create(r.csvPath)
	if err != nil {
		return fmt.Errorf("writing symbol CSV: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"symbol", "name", "market", "listing_date"}); err != nil {
		return err
	}
	for _, rec := range r.records {
		if err := w.Write([]string{rec.Symbol, rec.Name, rec.Market, rec.ListingDate.Format("2006-01-02")}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Get returns the record for a symbol code, or nil when unknown.
func (r *Registry) Get(symbol string) *Record {
	for i := range r.records {
		if r.records[i].Symbol == symbol {
			rec := r.records[i]
			return &rec
		}
	}
	return nil
}

// Search returns up to limit records whose code contains keyword or whose
// name contains it case-insensitively, optionally restricted to a market.
func (r *Registry) Search(keyword, market string, limit int) []Record {
	if limit <= 0 {
		limit = 20
	}
	lowerKeyword := strings.ToLower(keyword)

	var results []Record
	for _, rec := range r.records {
		if market != "" && !strings.EqualFold(rec.Market, market) {
			continue
		}
		if strings.Contains(rec.Symbol, keyword) || strings.Contains(strings.ToLower(rec.Name), lowerKeyword) {
			results = append(results, rec)
			if len(results) >= limit {
				break
			}
		}
	}
	return results
}

// AddOrUpdate upserts records and persists the registry sorted by symbol.
func (r *Registry) AddOrUpdate(records ...Record) error {
	for _, rec := range records {
		replaced := false
		for i := range r.records {
			if r.records[i].Symbol == rec.Symbol {
				r.records[i] = rec
				replaced = true
				break
			}
		}
		if !replaced {
			r.records = append(r.records, rec)
		}
	}
	sort.Slice(r.records, func(i, j int) bool {
		return r.records[i].Symbol < r.records[j].Symbol
	})
	return r.save()
}
