package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barsim/internal/config"
	"barsim/internal/gather"
	"barsim/internal/store"
	"barsim/internal/util"
)

func main() {
	cfgFlag := flag.String("config", "config/barsim.yaml", "path to YAML config")
	symbolFlag := flag.String("symbol", "", "override the symbol to backfill")
	flag.Parse()

	cfgPath := *cfgFlag
	if p := os.Getenv("BARSIM_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	symbol := cfg.Symbol.ID
	if *symbolFlag != "" {
		symbol = *symbolFlag
	}
	if symbol == "" {
		log.Fatal("no symbol configured; set symbol.id or pass -symbol")
	}

	dr, err := parseRange(cfg.Gather)
	if err != nil {
		log.Fatalf("invalid gather range: %v", err)
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)

	gatherer := gather.NewMinuteBarGatherer(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		pstore,
		symbol,
		dr,
		cfg.Gather.BatchSize,
		cfg.Gather.RateLimitPerMin,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := gatherer.Run(ctx); err != nil {
		log.Fatalf("gather error: %v", err)
	}
}

// parseRange resolves the configured backfill window. An empty end date
// means yesterday.
func parseRange(g config.GatherConfig) (gather.DateRange, error) {
	if g.StartDate == "" {
		return gather.DateRange{}, fmt.Errorf("gather.start_date is required")
	}
	start, err := time.Parse("2006-01-02", g.StartDate)
	if err != nil {
		return gather.DateRange{}, fmt.Errorf("parsing start date %q: %w", g.StartDate, err)
	}

	end := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	if g.EndDate != "" {
		end, err = time.Parse("2006-01-02", g.EndDate)
		if err != nil {
			return gather.DateRange{}, fmt.Errorf("parsing end date %q: %w", g.EndDate, err)
		}
	}
	if end.Before(start) {
		return gather.DateRange{}, fmt.Errorf("end date %s before start date %s", g.EndDate, g.StartDate)
	}
	return gather.DateRange{Start: start, End: end}, nil
}
