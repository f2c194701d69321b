package gather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"barsim/internal/domain"
	"barsim/internal/store"
	"barsim/internal/util"
)

// Compile-time interface check.
var _ Gatherer = (*MinuteBarGatherer)(nil)

// MinuteBarGatherer backfills minute OHLCV bars for one symbol via the
// Alpaca market-data API. Fetches proceed one day at a time so a partial run
// leaves complete days behind; re-runs merge over existing data.
type MinuteBarGatherer struct {
	client    *marketdata.Client
	store     store.BarStore
	symbol    string
	dateRange DateRange
	batchSize int
	limiter   *util.RateLimiter
	log       *slog.Logger
}

// NewMinuteBarGatherer creates a MinuteBarGatherer configured with the given
// Alpaca credentials, target store, and fetch parameters.
func NewMinuteBarGatherer(apiKey, apiSecret, dataURL string, s store.BarStore, symbol string, dr DateRange, batchSize, rateLimitPerMin int) *MinuteBarGatherer {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if batchSize <= 0 {
		batchSize = 10000
	}
	if rateLimitPerMin <= 0 {
		rateLimitPerMin = 200
	}

	return &MinuteBarGatherer{
		client:    marketdata.NewClient(opts),
		store:     s,
		symbol:    strings.ToUpper(symbol),
		dateRange: dr,
		batchSize: batchSize,
		limiter:   util.NewRateLimiter(rateLimitPerMin),
		log:       slog.Default().With("gatherer", "minute-bars", "symbol", strings.ToUpper(symbol)),
	}
}

// Name returns the gatherer identifier.
func (g *MinuteBarGatherer) Name() string { return "minute-bars" }

// Run fetches minute bars day by day for the configured range and writes
// each day to the store.
func (g *MinuteBarGatherer) Run(ctx context.Context) error {
	runStart := time.Now()
	var total int

	g.log.Info("starting backfill",
		slog.Time("start", g.dateRange.Start),
		slog.Time("end", g.dateRange.End))

	for day := g.dateRange.Start; !day.After(g.dateRange.End); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}

		bars, err := g.fetchDay(ctx, day)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", day.Format("2006-01-02"), err)
		}
		if len(bars) == 0 {
			continue
		}

		if err := g.store.WriteBars(ctx, bars); err != nil {
			return fmt.Errorf("writing %s: %w", day.Format("2006-01-02"), err)
		}
		total += len(bars)

		g.log.Debug("day done",
			slog.String("day", day.Format("2006-01-02")),
			slog.Int("bars", len(bars)))
	}

	g.log.Info("backfill complete",
		slog.Int("bars", total),
		slog.Duration("elapsed", time.Since(runStart).Round(time.Second)))
	return nil
}

// fetchDay fetches one calendar day of minute bars, retrying transient API
// failures with backoff.
func (g *MinuteBarGatherer) fetchDay(ctx context.Context, day time.Time) ([]domain.Bar, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	var alpacaBars []marketdata.Bar
	err := util.Retry(ctx, 3, time.Second, func() error {
		var ferr error
		alpacaBars, ferr = g.client.GetBars(g.symbol, marketdata.GetBarsRequest{
			TimeFrame:  marketdata.OneMin,
			Start:      start,
			End:        end,
			TotalLimit: g.batchSize,
			Feed:       "sip",
		})
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars: %w", err)
	}

	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, domain.Bar{
			SymbolID:  g.symbol,
			Timestamp: ab.Timestamp.UTC(),
			Open:      ab.Open,
			High:      ab.High,
			Low:       ab.Low,
			Close:     ab.Close,
			Volume:    int64(ab.Volume),
		})
	}
	return bars, nil
}
