// Package store defines storage interfaces for historical bars, symbol
// definitions, and backtest run records, with SQLite and Parquet
// implementations.
package store

import (
	"context"
	"time"

	"barsim/internal/domain"
)

// BarStore persists and retrieves minute-bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol within [start, end],
	// ordered by timestamp.
	ReadBars(ctx context.Context, symbolID string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols with bar data.
	ListSymbols(ctx context.Context) ([]string, error)
}

// SymbolStore persists and retrieves symbol contract definitions.
type SymbolStore interface {
	// SaveSymbol inserts or replaces a symbol definition.
	SaveSymbol(ctx context.Context, sym domain.Symbol) error

	// GetSymbol retrieves a symbol definition by ID.
	GetSymbol(ctx context.Context, id string) (domain.Symbol, error)
}

// RunRecord is the persisted summary of one backtest run.
type RunRecord struct {
	ID               string
	Strategy         string
	SymbolID         string
	Timeframe        string
	InitialEquity    float64
	FinalBalance     float64
	FinalEquity      float64
	TotalReturn      float64
	MaxDrawdown      float64
	TotalTrades      int
	TotalCommissions float64
	CreatedAt        time.Time

	// Per-bar balance/equity marks, stored alongside the summary.
	BalanceHistory []float64
	EquityHistory  []float64
}

// RunStore persists backtest run records.
type RunStore interface {
	// SaveRun persists a run summary and its balance/equity curves.
	SaveRun(ctx context.Context, run RunRecord) error

	// ListRuns returns the most recent run summaries, newest first, without
	// their curves.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
