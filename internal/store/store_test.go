package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"barsim/internal/domain"
)

func testBars(n int, start time.Time) []domain.Bar {
	bars := make([]domain.Bar, n)
	for i := range bars {
		price := 100.0 + float64(i)
		bars[i] = domain.Bar{
			SymbolID:  "TEST",
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      price, High: price + 0.5, Low: price - 0.5, Close: price + 0.1,
			Volume: int64(1000 + i),
			Bid:    price - 0.05, Ask: price + 0.05,
		}
	}
	return bars
}

func TestSQLiteBarRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() returned error: %v", err)
	}
	defer s.Close()

	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	bars := testBars(5, start)
	if err := s.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars() returned error: %v", err)
	}

	got, err := s.ReadBars(ctx, "TEST", start, start.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("ReadBars() returned error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("ReadBars() returned %d bars, want 5", len(got))
	}
	if !got[0].Timestamp.Equal(start) {
		t.Errorf("first timestamp = %s, want %s", got[0].Timestamp, start)
	}
	if got[2].Close != bars[2].Close || got[2].Bid != bars[2].Bid {
		t.Errorf("bar[2] = %+v, want %+v", got[2], bars[2])
	}

	// Range filter.
	got, err = s.ReadBars(ctx, "TEST", start.Add(2*time.Minute), start.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("ReadBars() returned error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("ranged ReadBars() returned %d bars, want 2", len(got))
	}

	// Upsert: rewriting the same bars must not duplicate.
	if err := s.WriteBars(ctx, bars); err != nil {
		t.Fatalf("second WriteBars() returned error: %v", err)
	}
	got, _ = s.ReadBars(ctx, "TEST", start, start.Add(10*time.Minute))
	if len(got) != 5 {
		t.Errorf("after rewrite ReadBars() returned %d bars, want 5", len(got))
	}

	symbols, err := s.ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols() returned error: %v", err)
	}
	if len(symbols) != 1 || symbols[0] != "TEST" {
		t.Errorf("ListSymbols() = %v, want [TEST]", symbols)
	}
}

func TestSQLiteSymbolRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() returned error: %v", err)
	}
	defer s.Close()

	sym := domain.Symbol{
		ID: "CU2405", MinimumTickSize: 0.01, Multiplier: 10,
		MarginRate: 0.1, CommissionRate: 0.0002, CommissionFee: 1.5,
		UpperLimit: 10, LowerLimit: -10,
	}
	if err := s.SaveSymbol(ctx, sym); err != nil {
		t.Fatalf("SaveSymbol() returned error: %v", err)
	}

	got, err := s.GetSymbol(ctx, "CU2405")
	if err != nil {
		t.Fatalf("GetSymbol() returned error: %v", err)
	}
	if got != sym {
		t.Errorf("GetSymbol() = %+v, want %+v", got, sym)
	}

	if _, err := s.GetSymbol(ctx, "NOPE"); err == nil {
		t.Error("GetSymbol(NOPE) returned no error")
	}
}

func TestSQLiteRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() returned error: %v", err)
	}
	defer s.Close()

	run := RunRecord{
		ID: "run-1", Strategy: "macd-cross", SymbolID: "TEST", Timeframe: "15m",
		InitialEquity: 100000, FinalBalance: 104200, FinalEquity: 104200,
		TotalReturn: 0.042, MaxDrawdown: 0.013, TotalTrades: 7, TotalCommissions: 55.5,
		CreatedAt:      time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC),
		BalanceHistory: []float64{100000, 101000, 104200},
		EquityHistory:  []float64{100000, 100900, 104200},
	}
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() returned error: %v", err)
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns() returned error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListRuns() returned %d runs, want 1", len(runs))
	}
	got := runs[0]
	if got.ID != "run-1" || got.Strategy != "macd-cross" || got.TotalTrades != 7 {
		t.Errorf("run = %+v, want summary of run-1", got)
	}
	if got.TotalReturn != 0.042 {
		t.Errorf("TotalReturn = %f, want 0.042", got.TotalReturn)
	}
}

func TestParquetBarRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewParquetStore(t.TempDir())

	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	bars := testBars(5, start)
	if err := s.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars() returned error: %v", err)
	}

	got, err := s.ReadBars(ctx, "TEST", start, start.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("ReadBars() returned error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("ReadBars() returned %d bars, want 5", len(got))
	}
	if got[3].Close != bars[3].Close || got[3].Ask != bars[3].Ask {
		t.Errorf("bar[3] = %+v, want %+v", got[3], bars[3])
	}

	symbols, err := s.ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols() returned error: %v", err)
	}
	if len(symbols) != 1 || symbols[0] != "TEST" {
		t.Errorf("ListSymbols() = %v, want [TEST]", symbols)
	}
}

func TestParquetMergeDeduplicates(t *testing.T) {
	ctx := context.Background()
	s := NewParquetStore(t.TempDir())

	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	if err := s.WriteBars(ctx, testBars(5, start)); err != nil {
		t.Fatalf("WriteBars() returned error: %v", err)
	}

	// Overlapping rewrite with updated closes wins over the old records.
	updated := testBars(5, start.Add(3*time.Minute))
	for i := range updated {
		updated[i].Close = 999
	}
	if err := s.WriteBars(ctx, updated); err != nil {
		t.Fatalf("second WriteBars() returned error: %v", err)
	}

	got, err := s.ReadBars(ctx, "TEST", start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("ReadBars() returned error: %v", err)
	}
	if len(got) != 8 {
		t.Fatalf("ReadBars() returned %d bars, want 8 merged", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Fatal("merged bars not sorted by timestamp")
		}
	}
	if got[3].Close != 999 {
		t.Errorf("overlapping bar close = %f, want 999 (new record wins)", got[3].Close)
	}
}

func TestParquetSpansYears(t *testing.T) {
	ctx := context.Background()
	s := NewParquetStore(t.TempDir())

	dec := time.Date(2023, 12, 31, 23, 58, 0, 0, time.UTC)
	if err := s.WriteBars(ctx, testBars(4, dec)); err != nil {
		t.Fatalf("WriteBars() returned error: %v", err)
	}

	got, err := s.ReadBars(ctx, "TEST", dec, dec.Add(time.Hour))
	if err != nil {
		t.Fatalf("ReadBars() returned error: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("ReadBars() across the year boundary returned %d bars, want 4", len(got))
	}
}
