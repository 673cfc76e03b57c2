package settings

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Watchlist is the watchlist.yaml document driving sync runs.
type Watchlist struct {
	Symbols           []string `yaml:"symbols"`
	DefaultTimeframes []string `yaml:"default_timeframes"`

	// MaxCandlesPerRequest is the per-request candle count. Zero means the
	// vendor default of 200.
	MaxCandlesPerRequest int `yaml:"max_candles_per_request"`
}

// LoadWatchlist reads a watchlist YAML file.
func LoadWatchlist(path string) (*Watchlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading watchlist: %w", err)
	}

	var w Watchlist
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parsing watchlist: %w", err)
	}
	if w.MaxCandlesPerRequest == 0 {
		w.MaxCandlesPerRequest = 200
	}
	return &w, nil
}
