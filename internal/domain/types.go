// Package domain defines the core data types shared across the simulator:
// bars, orders, positions, accounts, and symbol definitions.
package domain

import "time"

// OrderDirection is the side of an order or position.
type OrderDirection string

const (
	DirectionBuy  OrderDirection = "BUY"
	DirectionSell OrderDirection = "SELL"
)

// Opposite returns the other side.
func (d OrderDirection) Opposite() OrderDirection {
	if d == DirectionBuy {
		return DirectionSell
	}
	return DirectionBuy
}

// OrderType distinguishes limit orders from stop orders.
type OrderType string

const (
	OrderTypeLimit OrderType = "LMT"
	OrderTypeStop  OrderType = "STP"
)

// OrderStatus tracks the order lifecycle. PENDING is the only non-terminal
// state; FILLED and CANCELLED are final.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order is a single simulated order. Orders are created PENDING, assigned a
// sequential ID by the order book, and mutated in place by the match and
// clearing engines. Commissions and ExecutionPrice are meaningful only once
// Status is FILLED.
type Order struct {
	ID             int64
	SymbolID       string
	Price          float64
	Amount         int64
	Direction      OrderDirection
	Type           OrderType
	Status         OrderStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Commissions    float64
	ExecutionPrice float64
}

// IsPending reports whether the order is still eligible for matching.
func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}

// Position is the single open exposure of an account. Amount is always
// positive while the position exists; a flat account holds no Position at
// all rather than a zero-amount one.
type Position struct {
	SymbolID     string
	Amount       int64
	Direction    OrderDirection
	AveragePrice float64
}

// Account holds the simulated account state. Equity moves only on commission
// deduction and realized PnL; Balance additionally reflects the unrealized
// mark against the latest close.
type Account struct {
	Balance  float64
	Equity   float64
	Position *Position
}

// NewAccount creates a flat account funded with initialEquity.
func NewAccount(initialEquity float64) *Account {
	return &Account{Balance: initialEquity, Equity: initialEquity}
}

// Bar is a single OHLCV bar. Bid and Ask may be zero when the data source
// does not carry quote data; consumers fall back to Close in that case.
type Bar struct {
	SymbolID  string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
	Bid       float64
	Ask       float64
}

// Symbol is the static contract definition for the instrument under test.
// UpperLimit and LowerLimit are percent-change bounds used by the match
// admission filter; LowerLimit is negative.
type Symbol struct {
	ID              string  `yaml:"id"`
	MinimumTickSize float64 `yaml:"minimum_tick_size"`
	Multiplier      int64   `yaml:"multiplier"`
	MarginRate      float64 `yaml:"margin_rate"`
	CommissionRate  float64 `yaml:"commission_rate"`
	CommissionFee   float64 `yaml:"commission_fee"`
	UpperLimit      float64 `yaml:"upper_limit"`
	LowerLimit      float64 `yaml:"lower_limit"`
}

// SimConfig carries the per-run simulation parameters. SpreadTicks and
// SlippageTicks are expressed in units of the symbol's minimum tick size.
// MarginRequirement is the fraction of balance reserved, so available margin
// is balance × (1 − MarginRequirement).
type SimConfig struct {
	SymbolID          string  `yaml:"symbol_id"`
	Timeframe         string  `yaml:"timeframe"`
	StartDate         string  `yaml:"start_date"`
	EndDate           string  `yaml:"end_date"`
	InitialEquity     float64 `yaml:"initial_equity"`
	SpreadTicks       int     `yaml:"spread_ticks"`
	SlippageTicks     int     `yaml:"slippage_ticks"`
	MarginRequirement float64 `yaml:"margin_requirement"`
	Strategy          string  `yaml:"strategy"`
}

// UnrealizedPnL marks the position against price. The sign follows the
// position holder: a long position gains when price rises.
func (p *Position) UnrealizedPnL(price float64, multiplier int64) float64 {
	pnl := (price - p.AveragePrice) * float64(p.Amount) * float64(multiplier)
	if p.Direction == DirectionSell {
		pnl = -pnl
	}
	return pnl
}
