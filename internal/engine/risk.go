// Package engine implements the order matching, risk, and clearing engine
// plus the per-bar simulation cycle that sequences them. All engine state is
// exclusively owned by one simulation run; nothing here is safe for
// concurrent use, and match/clear must never be parallelized across orders
// within a bar because cross-order margin offsetting depends on strict
// sequencing.
package engine

import (
	"fmt"
	"log/slog"

	"barsim/internal/broker"
	"barsim/internal/domain"
	"barsim/internal/marketdata"
)

// RiskEngine computes used and available margin and gates order mutations
// and the account as a whole.
//
// Used margin is summed per side over the open position and all PENDING
// orders; the required margin is the larger side, since opposite exposures
// partially offset collateral rather than adding. A check passes only while
// required margin is strictly below available margin.
type RiskEngine struct {
	book    *broker.OrderBook
	account *domain.Account
	data    *marketdata.Service
	log     *slog.Logger
}

// Compile-time interface check.
var _ broker.RiskChecker = (*RiskEngine)(nil)

// NewRiskEngine creates a RiskEngine over the run's order log, account, and
// market data.
func NewRiskEngine(book *broker.OrderBook, account *domain.Account, data *marketdata.Service) *RiskEngine {
	return &RiskEngine{
		book:    book,
		account: account,
		data:    data,
		log:     slog.Default().With("component", "risk"),
	}
}

// CheckAccount reports whether the account as it stands fits within the
// available margin. Evaluated once per pending order each bar.
func (r *RiskEngine) CheckAccount() bool {
	buy, sell := r.usedMargins()
	return r.validate(max(buy, sell))
}

// CheckNewOrder reports whether a prospective order fits, with its margin
// added to its own side before taking the side maximum.
func (r *RiskEngine) CheckNewOrder(price float64, amount int64, direction domain.OrderDirection) bool {
	buy, sell := r.usedMargins()
	m := r.margin(price, amount)
	if direction == domain.DirectionBuy {
		buy += m
	} else {
		sell += m
	}
	return r.validate(max(buy, sell))
}

// CheckUpdateOrder reports whether an amend fits, replacing the order's
// current margin contribution with the new one on the order's side. Nil
// fields keep the order's current value.
func (r *RiskEngine) CheckUpdateOrder(id int64, newPrice *float64, newAmount *int64) (bool, error) {
	order, ok := r.book.ByID(id)
	if !ok {
		return false, fmt.Errorf("risk check for order %d: %w", id, broker.ErrOrderNotFound)
	}

	buy, sell := r.usedMargins()

	price := order.Price
	if newPrice != nil {
		price = *newPrice
	}
	amount := order.Amount
	if newAmount != nil {
		amount = *newAmount
	}
	diff := r.margin(price, amount) - r.margin(order.Price, order.Amount)
	if order.Direction == domain.DirectionBuy {
		buy += diff
	} else {
		sell += diff
	}
	return r.validate(max(buy, sell)), nil
}

// validate applies the strict-inequality margin rule.
func (r *RiskEngine) validate(required float64) bool {
	available := r.availableMargin()
	if required >= available {
		r.log.Error("required margin exceeds available margin",
			slog.Float64("required", required),
			slog.Float64("available", available))
		return false
	}
	return true
}

func (r *RiskEngine) availableMargin() float64 {
	cfg := r.data.Config()
	return r.account.Balance * (1 - cfg.MarginRequirement)
}

func (r *RiskEngine) margin(price float64, amount int64) float64 {
	sym := r.data.Symbol()
	return price * float64(amount) * float64(sym.Multiplier) * sym.MarginRate
}

// usedMargins sums the position and pending-order margins per side.
func (r *RiskEngine) usedMargins() (buy, sell float64) {
	if pos := r.account.Position; pos != nil {
		m := r.margin(pos.AveragePrice, pos.Amount)
		if pos.Direction == domain.DirectionBuy {
			buy += m
		} else {
			sell += m
		}
	}
	for _, o := range r.book.ByStatus(domain.OrderStatusPending) {
		m := r.margin(o.Price, o.Amount)
		if o.Direction == domain.DirectionBuy {
			buy += m
		} else {
			sell += m
		}
	}
	return buy, sell
}
