// Command kiwoom-sync synchronizes candle data from the Kiwoom REST API to
// local storage and builds feature tables.
//
// Usage:
//
//	kiwoom-sync -config configs -symbols 005930,000660 -timeframes 1m,15m
//	kiwoom-sync -full-history
//
// Symbols, timeframes, and the per-request count default to the watchlist
// file under the config directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mlstock/kiwoom-connector/pkg/kiwoom"
	"github.com/mlstock/kiwoom-connector/pkg/logging"
	"github.com/mlstock/kiwoom-connector/pkg/notify"
	"github.com/mlstock/kiwoom-connector/pkg/pipeline"
	"github.com/mlstock/kiwoom-connector/pkg/settings"
	"github.com/mlstock/kiwoom-connector/pkg/symbols"
)

func main() {
	configDir := flag.String("config", "configs", "directory holding data_sources.yaml, risk.yaml, watchlist.yaml")
	dataDir := flag.String("data", "data", "root directory for raw and processed data")
	symbolList := flag.String("symbols", "", "comma-separated symbol codes (default from watchlist)")
	timeframeList := flag.String("timeframes", "", "comma-separated timeframes such as 1m,15m,1h (default from watchlist)")
	count := flag.Int("count", 0, "candles per request (default from watchlist)")
	fullHistory := flag.Bool("full-history", false, "fetch the entire history following continuation pages")
	flag.Parse()

	if err := run(*configDir, *dataDir, *symbolList, *timeframeList, *count, *fullHistory); err != nil {
		fmt.Fprintf(os.Stderr, "kiwoom-sync: %v\n", err)
		os.Exit(1)
	}
}

func run(configDir, dataDir, symbolList, timeframeList string, count int, fullHistory bool) error {
	s, err := settings.Load(configDir)
	if err != nil {
		return err
	}

	logger := logging.NewZapLogger(
		logging.WithLogLevel(logging.ParseLevel(s.LogLevel)),
		logging.WithRotatingFile(filepath.Join("logs", "app", "kiwoom-sync.log"), 5, 5),
	)

	var notifier notify.Notifier
	if s.Kiwoom.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(s.Kiwoom.WebhookURL, nil, logger)
	} else {
		notifier = notify.NewConsoleNotifier(logger)
	}

	client, err := kiwoom.NewClient(s, kiwoom.WithLogger(logger), kiwoom.WithNotifier(notifier))
	if err != nil {
		return err
	}
	defer client.Close()

	watchlist, err := settings.LoadWatchlist(filepath.Join(configDir, "watchlist.yaml"))
	if err != nil {
		return err
	}

	cfg := pipeline.SyncConfig{
		Symbols:           splitList(symbolList, watchlist.Symbols),
		Timeframes:        splitList(timeframeList, watchlist.DefaultTimeframes),
		CandlesPerRequest: count,
		FullHistory:       fullHistory,
	}
	if cfg.CandlesPerRequest <= 0 {
		cfg.CandlesPerRequest = watchlist.MaxCandlesPerRequest
	}
	if len(cfg.Symbols) == 0 {
		return fmt.Errorf("no symbols to sync: pass -symbols or fill the watchlist")
	}
	if len(cfg.Timeframes) == 0 {
		return fmt.Errorf("no timeframes to sync: pass -timeframes or fill the watchlist")
	}

	registry, err := symbols.NewRegistry(filepath.Join(dataDir, "symbols", "symbols.csv"), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service := pipeline.NewSyncService(client, pipeline.NewStorage(dataDir), registry, logger)
	summary, err := service.Run(ctx, cfg)
	if err != nil {
		return err
	}

	for _, entry := range summary.Synced {
		fmt.Printf("%s %s -> rows=%d raw=%s\n", entry.Symbol, entry.Timeframe, entry.Rows, entry.RawPath)
	}
	return nil
}

func splitList(raw string, fallback []string) []string {
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
