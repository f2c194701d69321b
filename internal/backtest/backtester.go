// Package backtest drives a strategy over historical bars through the
// simulation engine and collects the run's results.
package backtest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"barsim/internal/broker"
	"barsim/internal/domain"
	"barsim/internal/engine"
	"barsim/internal/marketdata"
	"barsim/internal/strategy"
)

// Backtester owns one simulation run: the account, the order log, the
// engine, and the strategy under test. The base (1m) timeframe is the
// simulation clock; the strategy is invoked on its own coarser-or-equal
// timeframe boundaries.
type Backtester struct {
	data     *marketdata.Service
	account  *domain.Account
	book     *broker.OrderBook
	handle   broker.Broker
	exchange *engine.Exchange
	strat    strategy.Strategy
	log      *slog.Logger
}

// New wires a Backtester for one run over a loaded market-data service. The
// repository behind data must hold the base 1m series and, when the
// configured strategy timeframe differs, that series too.
func New(data *marketdata.Service, strat strategy.Strategy) *Backtester {
	cfg := data.Config()
	account := domain.NewAccount(cfg.InitialEquity)
	book := broker.NewOrderBook()
	orders := broker.NewOrderService(book, data)
	validator := broker.NewValidator(book, data)
	risk := engine.NewRiskEngine(book, account, data)
	filter := engine.NewAdmissionFilter(data)
	matcher := engine.NewMatcher(data)
	clearing := engine.NewClearingEngine(account, data)
	exchange := engine.NewExchange(book, account, data, orders, risk, filter, matcher, clearing)
	handle := broker.NewGate(validator, risk, orders, book, cfg.SymbolID)

	return &Backtester{
		data:     data,
		account:  account,
		book:     book,
		handle:   handle,
		exchange: exchange,
		strat:    strat,
		log:      slog.Default().With("component", "backtest"),
	}
}

// Account exposes the run's account state, mainly for tests and reporting.
func (bt *Backtester) Account() *domain.Account { return bt.account }

// Orders exposes the run's order log.
func (bt *Backtester) Orders() *broker.OrderBook { return bt.book }

// Run replays the base-timeframe series bar by bar. On each base tick it
// invokes the strategy when its timeframe boundary has been reached (then
// runs the simulation cycle), advances the data cursor, refreshes the
// balance against the new bar's close, examines the account for forced
// liquidation, and marks the balance/equity history. The final base tick is
// never simulated: there is no next bar to match against.
func (bt *Backtester) Run(ctx context.Context) (*Result, error) {
	cfg := bt.data.Config()

	if err := bt.strat.Init(bt.data); err != nil {
		return nil, fmt.Errorf("initializing strategy %s: %w", bt.strat.Name(), err)
	}

	baseTimes, err := bt.data.Times(marketdata.TimeframeBase)
	if err != nil {
		return nil, err
	}
	strategyTimes, err := bt.data.Times(cfg.Timeframe)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ID:            uuid.NewString(),
		Strategy:      bt.strat.Name(),
		SymbolID:      cfg.SymbolID,
		Timeframe:     cfg.Timeframe,
		InitialEquity: cfg.InitialEquity,
	}

	bt.log.Info("starting backtest",
		slog.String("run_id", result.ID),
		slog.String("strategy", result.Strategy),
		slog.Int("base_bars", len(baseTimes)))

	stratIdx := 0
	for i, now := range baseTimes {
		if i == len(baseTimes)-1 {
			bt.log.Info("backtest finished", slog.String("run_id", result.ID))
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if stratIdx >= len(strategyTimes) {
			bt.log.Info("strategy timeframe exhausted, backtest finished",
				slog.String("run_id", result.ID))
			break
		}
		if !now.Before(strategyTimes[stratIdx]) {
			stratIdx++
			if err := bt.strat.OnBar(bt.handle); err != nil {
				return nil, fmt.Errorf("strategy %s at bar %d: %w", bt.strat.Name(), i, err)
			}
			if err := bt.exchange.MatchAndClearAll(); err != nil {
				return nil, fmt.Errorf("simulation cycle at bar %d: %w", i, err)
			}
		}

		if err := bt.data.AdvanceBar(); err != nil {
			return nil, err
		}
		if err := bt.exchange.RefreshBalanceOnBar(); err != nil {
			return nil, err
		}
		if err := bt.exchange.ExamineAndForceClose(); err != nil {
			return nil, err
		}

		result.BalanceHistory = append(result.BalanceHistory, bt.account.Balance)
		result.EquityHistory = append(result.EquityHistory, bt.account.Equity)
	}

	result.finalize(bt.account, bt.book.All())
	return result, nil
}
