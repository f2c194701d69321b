package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barsim/internal/backtest"
	"barsim/internal/config"
	"barsim/internal/marketdata"
	"barsim/internal/store"
	"barsim/internal/strategy"
	"barsim/internal/util"
)

func main() {
	cfgFlag := flag.String("config", "config/barsim.yaml", "path to YAML config")
	noSave := flag.Bool("no-save", false, "skip persisting the run record to SQLite")
	flag.Parse()

	cfgPath := *cfgFlag
	if p := os.Getenv("BARSIM_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := run(ctx, cfg, !*noSave)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	fmt.Printf("run %s (%s on %s, %s)\n", result.ID, result.Strategy, result.SymbolID, result.Timeframe)
	fmt.Printf("  final balance:     %.2f\n", result.FinalBalance)
	fmt.Printf("  final equity:      %.2f\n", result.FinalEquity)
	fmt.Printf("  total return:      %.2f%%\n", result.TotalReturn*100)
	fmt.Printf("  max drawdown:      %.2f%%\n", result.MaxDrawdown*100)
	fmt.Printf("  sharpe (per bar):  %.4f\n", result.SharpeRatio)
	fmt.Printf("  trades:            %d\n", result.TotalTrades)
	fmt.Printf("  commissions:       %.2f\n", result.TotalCommissions)
}

func run(ctx context.Context, cfg *config.Config, save bool) (*backtest.Result, error) {
	start, err := time.Parse("2006-01-02", cfg.Simulation.StartDate)
	if err != nil {
		return nil, fmt.Errorf("parsing start date %q: %w", cfg.Simulation.StartDate, err)
	}
	end, err := time.Parse("2006-01-02", cfg.Simulation.EndDate)
	if err != nil {
		return nil, fmt.Errorf("parsing end date %q: %w", cfg.Simulation.EndDate, err)
	}
	// Inclusive end date.
	end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)

	bars, err := store.NewParquetStore(cfg.Storage.DataDir).
		ReadBars(ctx, cfg.Simulation.SymbolID, start, end)
	if err != nil {
		return nil, fmt.Errorf("reading bars: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars for %s between %s and %s; run barsim-gather first",
			cfg.Simulation.SymbolID, cfg.Simulation.StartDate, cfg.Simulation.EndDate)
	}
	slog.Info("bars loaded",
		slog.String("symbol", cfg.Simulation.SymbolID),
		slog.Int("count", len(bars)))

	repo := marketdata.NewRepository(cfg.Symbol, cfg.Simulation)
	if err := repo.SaveBars(marketdata.TimeframeBase, bars); err != nil {
		return nil, err
	}
	if cfg.Simulation.Timeframe != marketdata.TimeframeBase {
		coarse, err := marketdata.Resample(bars, cfg.Simulation.Timeframe)
		if err != nil {
			return nil, err
		}
		if err := repo.SaveBars(cfg.Simulation.Timeframe, coarse); err != nil {
			return nil, err
		}
	}
	data := marketdata.NewService(repo)

	registry := strategy.NewRegistry()
	registry.Register(strategy.NewMACDCross(cfg.Simulation.Timeframe, 1, marketdata.MACDParams{
		FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9,
	}))

	strat, ok := registry.Get(cfg.Simulation.Strategy)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (have %v)", cfg.Simulation.Strategy, registry.List())
	}

	result, err := backtest.New(data, strat).Run(ctx)
	if err != nil {
		return nil, err
	}

	if save && cfg.Storage.SQLitePath != "" {
		db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening run store: %w", err)
		}
		defer db.Close()

		record := store.RunRecord{
			ID:               result.ID,
			Strategy:         result.Strategy,
			SymbolID:         result.SymbolID,
			Timeframe:        result.Timeframe,
			InitialEquity:    result.InitialEquity,
			FinalBalance:     result.FinalBalance,
			FinalEquity:      result.FinalEquity,
			TotalReturn:      result.TotalReturn,
			MaxDrawdown:      result.MaxDrawdown,
			TotalTrades:      result.TotalTrades,
			TotalCommissions: result.TotalCommissions,
			CreatedAt:        time.Now().UTC(),
			BalanceHistory:   result.BalanceHistory,
			EquityHistory:    result.EquityHistory,
		}
		if err := db.SaveRun(ctx, record); err != nil {
			return nil, fmt.Errorf("saving run: %w", err)
		}
		slog.Info("run saved", slog.String("run_id", result.ID), slog.String("db", cfg.Storage.SQLitePath))
	}

	return result, nil
}
