package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"barsim/internal/broker"
	"barsim/internal/domain"
	"barsim/internal/marketdata"
)

// ErrForceCloseFailed aborts the run: a synthesized liquidation order did
// not fill, so the account cannot be flattened and the simulation cannot
// continue to mean anything.
var ErrForceCloseFailed = errors.New("engine: forced liquidation order did not fill")

// Exchange sequences the per-bar simulation cycle over the pending orders:
// account risk gate, admission filter, match, clear — each order handled to
// completion before the next, in creation order.
type Exchange struct {
	book     *broker.OrderBook
	account  *domain.Account
	data     *marketdata.Service
	orders   *broker.OrderService
	risk     *RiskEngine
	filter   *AdmissionFilter
	matcher  *Matcher
	clearing *ClearingEngine
	log      *slog.Logger
}

// NewExchange wires the simulation cycle over the run's shared state.
func NewExchange(book *broker.OrderBook, account *domain.Account, data *marketdata.Service,
	orders *broker.OrderService, risk *RiskEngine, filter *AdmissionFilter,
	matcher *Matcher, clearing *ClearingEngine) *Exchange {

	return &Exchange{
		book:     book,
		account:  account,
		data:     data,
		orders:   orders,
		risk:     risk,
		filter:   filter,
		matcher:  matcher,
		clearing: clearing,
		log:      slog.Default().With("component", "exchange"),
	}
}

// MatchAndClearAll runs one simulation cycle over the pending orders. When
// the account-level risk check fails mid-cycle, everything pending is
// cancelled, the position is force-closed, and the remaining orders are not
// processed this bar.
func (e *Exchange) MatchAndClearAll() error {
	pending := e.book.ByStatus(domain.OrderStatusPending)
	for _, order := range pending {
		if !e.risk.CheckAccount() {
			return e.forceCloseAccount()
		}
		admitted, err := e.filter.Admit(order)
		if err != nil {
			return err
		}
		if !admitted {
			continue
		}
		matched, err := e.matcher.TryMatch(order)
		if err != nil {
			return err
		}
		if matched {
			if err := e.clearing.Clear(order); err != nil {
				return err
			}
		}
	}
	return nil
}

// ExamineAndForceClose force-closes the whole account if it no longer fits
// within the available margin. Invoked once per bar, independent of order
// flow.
func (e *Exchange) ExamineAndForceClose() error {
	if e.risk.CheckAccount() {
		return nil
	}
	return e.forceCloseAccount()
}

// RefreshBalanceOnBar recomputes balance from equity and the unrealized
// mark against the current bar's close. Runs every bar whether or not any
// order fills.
func (e *Exchange) RefreshBalanceOnBar() error {
	pos := e.account.Position
	if pos == nil {
		e.account.Balance = e.account.Equity
		return nil
	}
	closePrice, err := e.data.Current(marketdata.FieldClose, marketdata.TimeframeBase)
	if err != nil {
		return fmt.Errorf("refreshing balance on bar: %w", err)
	}
	sym := e.data.Symbol()
	e.account.Balance = e.account.Equity + pos.UnrealizedPnL(closePrice, sym.Multiplier)
	return nil
}

// forceCloseAccount cancels every pending order and flattens the position
// with a synthesized opposite-direction limit order at the current bid/ask.
// The synthesized order bypasses the strategy-facing gates on purpose: risk
// has already been breached and the account must be flattened regardless.
func (e *Exchange) forceCloseAccount() error {
	e.log.Warn("force-closing account")
	for _, order := range e.book.ByStatus(domain.OrderStatusPending) {
		if err := e.orders.Cancel(order.ID); err != nil {
			return fmt.Errorf("force close: %w", err)
		}
	}

	pos := e.account.Position
	if pos == nil {
		return nil
	}

	direction := pos.Direction.Opposite()
	priceField := marketdata.FieldBid
	if direction == domain.DirectionBuy {
		priceField = marketdata.FieldAsk
	}
	price, err := e.data.Current(priceField, marketdata.TimeframeBase)
	if err != nil {
		return fmt.Errorf("force close: %w", err)
	}

	order, err := e.orders.Create(pos.SymbolID, price, pos.Amount, direction, domain.OrderTypeLimit)
	if err != nil {
		return fmt.Errorf("force close: %w", err)
	}

	matched, err := e.matcher.TryMatch(order)
	if err != nil {
		return fmt.Errorf("force close: %w", err)
	}
	if !matched || order.Status != domain.OrderStatusFilled {
		e.log.Error("force close failed", slog.Int64("order_id", order.ID))
		return fmt.Errorf("%w: order %d", ErrForceCloseFailed, order.ID)
	}
	return e.clearing.Clear(order)
}
