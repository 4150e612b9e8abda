package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"eve-hauler/internal/adam4eve"
	"eve-hauler/internal/config"
	"eve-hauler/internal/db"
	"eve-hauler/internal/engine"
	"eve-hauler/internal/everef"
	"eve-hauler/internal/hub"
	"eve-hauler/internal/logger"
	"eve-hauler/internal/report"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "hauler.toml", "TOML config file (missing file uses defaults)")
	dataDir := flag.String("data", "", "data directory override")
	outPath := flag.String("out", "", "trade table output path override")
	refresh := flag.Bool("refresh", false, "re-download the orders snapshot even if the cached one is fresh")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("eve-hauler " + version)
		return
	}

	logger.Banner(version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Config", err.Error())
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Config", err.Error())
		os.Exit(1)
	}
	hubs, err := cfg.Registry()
	if err != nil {
		logger.Error("Config", err.Error())
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Error("Setup", fmt.Sprintf("Create data dir: %v", err))
		os.Exit(1)
	}

	database, err := db.Open(cfg.DBPath())
	if err != nil {
		logger.Error("DB", err.Error())
		os.Exit(1)
	}
	defer database.Close()

	if n, err := database.ClearRuns(90); err != nil {
		logger.Warn("DB", fmt.Sprintf("Ledger cleanup failed: %v", err))
	} else if n > 0 {
		logger.Info("DB", fmt.Sprintf("Pruned %d old run(s) from the ledger", n))
	}

	// Ctrl-C aborts in-flight downloads; the analysis itself runs to
	// completion or fails atomically before anything is committed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, hubs, database, *outPath, *refresh); err != nil {
		logger.Error("Run", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, hubs *hub.Registry, database *db.DB, outPath string, refresh bool) error {
	started := time.Now()

	// History first: it degrades to an empty table, so a broken history host
	// never wastes a snapshot download.
	history, err := adam4eve.NewClient(cfg, hubs, database).Table(ctx)
	if err != nil {
		logger.Warn("Adam4EVE", fmt.Sprintf("No weekly history available, analyzing without it: %v", err))
		history = adam4eve.TableFromRecords(nil)
	}

	snapshot, err := everef.NewClient(cfg, database).Snapshot(ctx, refresh)
	if err != nil {
		return fmt.Errorf("orders snapshot: %w", err)
	}

	logger.Info("Engine", fmt.Sprintf("Aggregating orders across %d hubs...", hubs.Len()))
	var stats everef.LoadStats
	acc, err := engine.Fold(
		engine.FoldParams{Band: cfg.SupplyBand, MaxPoints: cfg.MaxPricePoints, Workers: cfg.Workers},
		func(emit func([]everef.SellOrder) error) error {
			var readErr error
			stats, readErr = everef.ReadOrders(snapshot, hubs, cfg.ChunkSize, emit)
			return readErr
		},
	)
	snapshot.Close()
	if err != nil {
		return fmt.Errorf("aggregate orders: %w", err)
	}
	if stats.Malformed > 0 {
		logger.Warn("Engine", fmt.Sprintf("Dropped %s malformed order row(s)", humanize.Comma(stats.Malformed)))
	}

	quotes := acc.Quotes()
	enriched := engine.Enrich(quotes, history)
	pairs := engine.Analyzer{MinMargin: cfg.MinMargin, Workers: cfg.Workers}.Pairs(enriched)

	tradePath := outPath
	if tradePath == "" {
		tradePath = filepath.Join(cfg.ProcessedPath(), "trade_analysis.csv")
	}
	quotePath := filepath.Join(cfg.ProcessedPath(), "current_market_data.csv")
	historyPath := filepath.Join(cfg.ProcessedPath(), "historic_market_data.csv")

	if err := report.Commit(quotePath, func(w io.Writer) error {
		return report.WriteQuotes(w, quotes)
	}); err != nil {
		return fmt.Errorf("commit quote table: %w", err)
	}
	if err := report.Commit(historyPath, func(w io.Writer) error {
		return report.WriteHistory(w, history.Records())
	}); err != nil {
		return fmt.Errorf("commit history table: %w", err)
	}
	if err := report.Commit(tradePath, func(w io.Writer) error {
		return report.WriteTrades(w, pairs)
	}); err != nil {
		return fmt.Errorf("commit trade table: %w", err)
	}
	logger.Success("Report", fmt.Sprintf("Committed %s", tradePath))

	topProfit := 0.0
	if len(pairs) > 0 {
		topProfit = pairs[0].EstimatedProfit
	}
	runID := database.InsertRun(db.RunRecord{
		StartedAt:     started.UTC().Format(time.RFC3339),
		DurationMs:    time.Since(started).Milliseconds(),
		RowsScanned:   stats.Rows,
		OrdersKept:    stats.Kept,
		MalformedRows: stats.Malformed,
		QuoteCount:    len(quotes),
		PairCount:     len(pairs),
		TopProfit:     topProfit,
	})
	kept := pairs
	if cfg.KeepResults > 0 && len(kept) > cfg.KeepResults {
		kept = kept[:cfg.KeepResults]
	}
	database.InsertHaulResults(runID, kept)

	logger.Section("Run summary")
	logger.Stats("Rows scanned", humanize.Comma(stats.Rows))
	logger.Stats("Sell orders kept", humanize.Comma(stats.Kept))
	logger.Stats("Malformed rows", humanize.Comma(stats.Malformed))
	logger.Stats("Station quotes", humanize.Comma(int64(len(quotes))))
	logger.Stats("History records", humanize.Comma(int64(history.Len())))
	logger.Stats("Trade pairs", humanize.Comma(int64(len(pairs))))
	if len(pairs) > 0 {
		best := pairs[0]
		logger.Stats("Top haul", fmt.Sprintf("type %d: %s -> %s (margin %.1f%%)",
			best.TypeID, hubs.Name(best.SourceStationID), hubs.Name(best.DestinationStationID), best.Margin*100))
	}
	logger.Stats("Duration", time.Since(started).Round(time.Millisecond))
	return nil
}
