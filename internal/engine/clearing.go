package engine

import (
	"fmt"
	"log/slog"

	"barsim/internal/domain"
	"barsim/internal/marketdata"
)

// ClearingEngine settles a fill against the account: commission, realized
// PnL against an opposing position, the position update itself, and the
// balance recomputation. Clear is invoked exactly once per fill by the
// simulation cycle, immediately after the match.
type ClearingEngine struct {
	account *domain.Account
	data    *marketdata.Service
	log     *slog.Logger
}

// NewClearingEngine creates a ClearingEngine over the run's account and
// market data.
func NewClearingEngine(account *domain.Account, data *marketdata.Service) *ClearingEngine {
	return &ClearingEngine{
		account: account,
		data:    data,
		log:     slog.Default().With("component", "clearing"),
	}
}

// Clear settles the filled order. The order must be FILLED with a valid
// execution price.
func (c *ClearingEngine) Clear(order *domain.Order) error {
	c.setCommission(order)
	c.applyEquity(order)
	c.applyPosition(order)
	return c.refreshBalance()
}

// setCommission computes and stores the fill's commission on the order.
func (c *ClearingEngine) setCommission(order *domain.Order) {
	sym := c.data.Symbol()
	commission := sym.CommissionRate * float64(order.Amount) * order.ExecutionPrice * float64(sym.Multiplier)
	commission += sym.CommissionFee * float64(order.Amount)
	order.Commissions = commission
}

// applyEquity deducts the commission and, when the fill opposes the open
// position, recognizes realized PnL.
//
// The realized amount uses max(order amount, position amount) rather than
// the overlapping min. That is the behavior this engine has always had, and
// downstream results depend on it; see DESIGN.md before touching it.
func (c *ClearingEngine) applyEquity(order *domain.Order) {
	c.account.Equity -= order.Commissions

	pos := c.account.Position
	if pos == nil || pos.Direction == order.Direction {
		return
	}
	sym := c.data.Symbol()
	closed := max(order.Amount, pos.Amount)
	realized := (order.ExecutionPrice - pos.AveragePrice) * float64(closed) * float64(sym.Multiplier)
	if pos.Direction == domain.DirectionSell {
		realized = -realized
	}
	c.log.Info("realized pnl",
		slog.Int64("order_id", order.ID),
		slog.Float64("realized", realized))
	c.account.Equity += realized
}

// applyPosition folds the fill into the account's position: open a new one,
// average into the same side, or reduce/flip/remove against the opposite
// side.
func (c *ClearingEngine) applyPosition(order *domain.Order) {
	pos := c.account.Position
	switch {
	case pos == nil:
		c.account.Position = &domain.Position{
			SymbolID:     order.SymbolID,
			Amount:       order.Amount,
			Direction:    order.Direction,
			AveragePrice: order.ExecutionPrice,
		}
	case pos.Direction == order.Direction:
		newAmount := pos.Amount + order.Amount
		pos.AveragePrice = (pos.AveragePrice*float64(pos.Amount) +
			order.ExecutionPrice*float64(order.Amount)) / float64(newAmount)
		pos.Amount = newAmount
	default:
		net := pos.Amount - order.Amount
		switch {
		case net == 0:
			c.account.Position = nil
		case net < 0:
			// The fill crossed through the position: the remainder is a new
			// position on the order's side, opened at the crossing price.
			pos.Amount = -net
			pos.Direction = order.Direction
			pos.AveragePrice = order.ExecutionPrice
		default:
			pos.Amount = net
		}
	}
}

// refreshBalance recomputes balance as equity plus the unrealized mark
// against the current close, or plain equity for a flat account.
func (c *ClearingEngine) refreshBalance() error {
	pos := c.account.Position
	if pos == nil {
		c.account.Balance = c.account.Equity
		return nil
	}
	closePrice, err := c.data.Current(marketdata.FieldClose, marketdata.TimeframeBase)
	if err != nil {
		return fmt.Errorf("refreshing balance: %w", err)
	}
	sym := c.data.Symbol()
	c.account.Balance = c.account.Equity + pos.UnrealizedPnL(closePrice, sym.Multiplier)
	return nil
}
