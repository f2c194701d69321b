package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"barsim/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ BarStore = (*SQLiteStore)(nil)
var _ SymbolStore = (*SQLiteStore)(nil)
var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore implements BarStore, SymbolStore, and RunStore backed by a
// SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, runs the
// schema migration, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %s: %w", dbPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrating sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol_id  TEXT    NOT NULL,
	ts         INTEGER NOT NULL, -- Unix ms
	open       REAL    NOT NULL,
	high       REAL    NOT NULL,
	low        REAL    NOT NULL,
	close      REAL    NOT NULL,
	volume     INTEGER NOT NULL,
	bid        REAL    NOT NULL DEFAULT 0,
	ask        REAL    NOT NULL DEFAULT 0,
	PRIMARY KEY (symbol_id, ts)
);

CREATE TABLE IF NOT EXISTS symbols (
	id                TEXT PRIMARY KEY,
	minimum_tick_size REAL    NOT NULL,
	multiplier        INTEGER NOT NULL,
	margin_rate       REAL    NOT NULL,
	commission_rate   REAL    NOT NULL,
	commission_fee    REAL    NOT NULL,
	upper_limit       REAL    NOT NULL,
	lower_limit       REAL    NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id                TEXT PRIMARY KEY,
	strategy          TEXT    NOT NULL,
	symbol_id         TEXT    NOT NULL,
	timeframe         TEXT    NOT NULL,
	initial_equity    REAL    NOT NULL,
	final_balance     REAL    NOT NULL,
	final_equity      REAL    NOT NULL,
	total_return      REAL    NOT NULL,
	max_drawdown      REAL    NOT NULL,
	total_trades      INTEGER NOT NULL,
	total_commissions REAL    NOT NULL,
	created_at        INTEGER NOT NULL -- Unix ms
);

CREATE TABLE IF NOT EXISTS run_marks (
	run_id  TEXT    NOT NULL REFERENCES runs(id),
	bar     INTEGER NOT NULL,
	balance REAL    NOT NULL,
	equity  REAL    NOT NULL,
	PRIMARY KEY (run_id, bar)
);
`

// ---------------------------------------------------------------------------
// BarStore implementation
// ---------------------------------------------------------------------------

// WriteBars upserts a batch of bars inside one transaction.
func (s *SQLiteStore) WriteBars(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol_id, ts, open, high, low, close, volume, bid, ask)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, b.SymbolID, b.Timestamp.UnixMilli(),
			b.Open, b.High, b.Low, b.Close, b.Volume, b.Bid, b.Ask); err != nil {
			return fmt.Errorf("inserting bar %s@%s: %w", b.SymbolID, b.Timestamp, err)
		}
	}
	return tx.Commit()
}

// ReadBars returns bars for symbolID within [start, end], ordered by
// timestamp.
func (s *SQLiteStore) ReadBars(ctx context.Context, symbolID string, start, end time.Time) ([]domain.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol_id, ts, open, high, low, close, volume, bid, ask
		FROM bars
		WHERE symbol_id = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC`,
		symbolID, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var b domain.Bar
		var ts int64
		if err := rows.Scan(&b.SymbolID, &ts, &b.Open, &b.High, &b.Low, &b.Close,
			&b.Volume, &b.Bid, &b.Ask); err != nil {
			return nil, err
		}
		b.Timestamp = time.UnixMilli(ts).UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// ListSymbols returns all distinct symbols with bar data.
func (s *SQLiteStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol_id FROM bars ORDER BY symbol_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		symbols = append(symbols, id)
	}
	return symbols, rows.Err()
}

// ---------------------------------------------------------------------------
// SymbolStore implementation
// ---------------------------------------------------------------------------

// SaveSymbol inserts or replaces a symbol definition.
func (s *SQLiteStore) SaveSymbol(ctx context.Context, sym domain.Symbol) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO symbols
		(id, minimum_tick_size, multiplier, margin_rate, commission_rate, commission_fee, upper_limit, lower_limit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sym.ID, sym.MinimumTickSize, sym.Multiplier, sym.MarginRate,
		sym.CommissionRate, sym.CommissionFee, sym.UpperLimit, sym.LowerLimit)
	return err
}

// GetSymbol retrieves a symbol definition by ID.
func (s *SQLiteStore) GetSymbol(ctx context.Context, id string) (domain.Symbol, error) {
	var sym domain.Symbol
	err := s.db.QueryRowContext(ctx, `
		SELECT id, minimum_tick_size, multiplier, margin_rate, commission_rate, commission_fee, upper_limit, lower_limit
		FROM symbols WHERE id = ?`, id).
		Scan(&sym.ID, &sym.MinimumTickSize, &sym.Multiplier, &sym.MarginRate,
			&sym.CommissionRate, &sym.CommissionFee, &sym.UpperLimit, &sym.LowerLimit)
	if err == sql.ErrNoRows {
		return domain.Symbol{}, fmt.Errorf("symbol %s not found", id)
	}
	return sym, err
}

// ---------------------------------------------------------------------------
// RunStore implementation
// ---------------------------------------------------------------------------

// SaveRun persists a run summary and its balance/equity curves in one
// transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, strategy, symbol_id, timeframe, initial_equity, final_balance, final_equity,
		 total_return, max_drawdown, total_trades, total_commissions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Strategy, run.SymbolID, run.Timeframe, run.InitialEquity,
		run.FinalBalance, run.FinalEquity, run.TotalReturn, run.MaxDrawdown,
		run.TotalTrades, run.TotalCommissions, createdAt.UnixMilli()); err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_marks (run_id, bar, balance, equity) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range run.BalanceHistory {
		equity := 0.0
		if i < len(run.EquityHistory) {
			equity = run.EquityHistory[i]
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i, run.BalanceHistory[i], equity); err != nil {
			return fmt.Errorf("inserting run mark %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent run summaries, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, strategy, symbol_id, timeframe, initial_equity, final_balance, final_equity,
		       total_return, max_drawdown, total_trades, total_commissions, created_at
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.Strategy, &r.SymbolID, &r.Timeframe, &r.InitialEquity,
			&r.FinalBalance, &r.FinalEquity, &r.TotalReturn, &r.MaxDrawdown,
			&r.TotalTrades, &r.TotalCommissions, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt = time.UnixMilli(createdAt).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
