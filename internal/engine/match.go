package engine

import (
	"fmt"
	"log/slog"

	"barsim/internal/domain"
	"barsim/internal/marketdata"
)

// Matcher decides whether a pending order fills against the current bar and
// at what price. A successful match mutates the order to FILLED with an
// execution price; settlement is the clearing engine's job.
//
// Spread and slippage are fixed tick-denominated adjustments. Spread shifts
// the bar prices the order is compared against; slippage is applied last,
// always against the order holder. When the bar gapped through the order's
// price entirely, the fill happens at the bar's open (adjusted by spread)
// rather than the requested price — the gap branch is evaluated second and
// overwrites the primary fill price when both hold.
type Matcher struct {
	data *marketdata.Service
	log  *slog.Logger
}

// NewMatcher creates a Matcher reading bars from data.
func NewMatcher(data *marketdata.Service) *Matcher {
	return &Matcher{
		data: data,
		log:  slog.Default().With("component", "match"),
	}
}

// ohlc is the current base bar's price extent.
type ohlc struct {
	open, high, low, close float64
}

// TryMatch dispatches on the order's (direction, type) pair. It returns
// true and mutates the order on a fill, and returns false leaving the order
// untouched otherwise. Unknown pairs and missing bar data are errors.
func (m *Matcher) TryMatch(order *domain.Order) (bool, error) {
	switch {
	case order.Direction == domain.DirectionBuy && order.Type == domain.OrderTypeLimit:
		return m.matchLimitBuy(order)
	case order.Direction == domain.DirectionSell && order.Type == domain.OrderTypeLimit:
		return m.matchLimitSell(order)
	case order.Direction == domain.DirectionBuy && order.Type == domain.OrderTypeStop:
		return m.matchStopBuy(order)
	case order.Direction == domain.DirectionSell && order.Type == domain.OrderTypeStop:
		return m.matchStopSell(order)
	default:
		return false, fmt.Errorf("matching order %d: unsupported direction/type %s/%s",
			order.ID, order.Direction, order.Type)
	}
}

// matchLimitBuy fills when the bar traded at or below the limit price. If
// even the bar's high (plus spread) stayed at or below the limit, the bar
// gapped below it and the fill happens at the open.
func (m *Matcher) matchLimitBuy(order *domain.Order) (bool, error) {
	bar, spread, slippage, err := m.snapshot()
	if err != nil {
		return false, err
	}

	matched := false
	var price float64
	if bar.low+spread <= order.Price {
		matched = true
		price = order.Price
	}
	if bar.high+spread <= order.Price {
		matched = true
		price = bar.open + spread
	}
	if !matched {
		return false, nil
	}
	return true, m.fill(order, price+slippage)
}

// matchLimitSell mirrors matchLimitBuy on the sell side.
func (m *Matcher) matchLimitSell(order *domain.Order) (bool, error) {
	bar, spread, slippage, err := m.snapshot()
	if err != nil {
		return false, err
	}

	matched := false
	var price float64
	if bar.high-spread >= order.Price {
		matched = true
		price = order.Price
	}
	if bar.low-spread >= order.Price {
		matched = true
		price = bar.open - spread
	}
	if !matched {
		return false, nil
	}
	return true, m.fill(order, price-slippage)
}

// matchStopBuy triggers once the bar traded at or above the stop price. If
// even the bar's low (plus spread) reached the stop, the bar gapped above it
// and the fill happens at the open.
func (m *Matcher) matchStopBuy(order *domain.Order) (bool, error) {
	bar, spread, slippage, err := m.snapshot()
	if err != nil {
		return false, err
	}

	matched := false
	var price float64
	if bar.high+spread >= order.Price {
		matched = true
		price = order.Price
	}
	if bar.low+spread >= order.Price {
		matched = true
		price = bar.open + spread
	}
	if !matched {
		return false, nil
	}
	return true, m.fill(order, price+slippage)
}

// matchStopSell mirrors matchStopBuy on the sell side.
func (m *Matcher) matchStopSell(order *domain.Order) (bool, error) {
	bar, spread, slippage, err := m.snapshot()
	if err != nil {
		return false, err
	}

	matched := false
	var price float64
	if bar.low-spread <= order.Price {
		matched = true
		price = order.Price
	}
	if bar.high-spread <= order.Price {
		matched = true
		price = bar.open - spread
	}
	if !matched {
		return false, nil
	}
	return true, m.fill(order, price-slippage)
}

// snapshot reads the current bar and the tick-denominated spread and
// slippage adjustments.
func (m *Matcher) snapshot() (ohlc, float64, float64, error) {
	var bar ohlc
	var err error
	read := func(f marketdata.Field) float64 {
		if err != nil {
			return 0
		}
		var v float64
		v, err = m.data.Current(f, marketdata.TimeframeBase)
		return v
	}
	bar.open = read(marketdata.FieldOpen)
	bar.high = read(marketdata.FieldHigh)
	bar.low = read(marketdata.FieldLow)
	bar.close = read(marketdata.FieldClose)
	if err != nil {
		return ohlc{}, 0, 0, fmt.Errorf("reading current bar: %w", err)
	}

	sym := m.data.Symbol()
	cfg := m.data.Config()
	spread := float64(cfg.SpreadTicks) * sym.MinimumTickSize
	slippage := float64(cfg.SlippageTicks) * sym.MinimumTickSize
	return bar, spread, slippage, nil
}

// fill transitions the order to FILLED at price, stamped with the current
// bar's timestamp.
func (m *Matcher) fill(order *domain.Order, price float64) error {
	now, err := m.data.CurrentTime(marketdata.TimeframeBase)
	if err != nil {
		return fmt.Errorf("filling order %d: %w", order.ID, err)
	}
	order.ExecutionPrice = price
	order.UpdatedAt = now
	order.Status = domain.OrderStatusFilled
	m.log.Info("order matched",
		slog.Int64("id", order.ID),
		slog.Float64("price", price))
	return nil
}
