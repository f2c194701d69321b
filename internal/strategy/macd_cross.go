package strategy

import (
	"errors"
	"log/slog"
	"math"

	"barsim/internal/broker"
	"barsim/internal/domain"
	"barsim/internal/marketdata"
)

// Compile-time interface check.
var _ Strategy = (*MACDCross)(nil)

// MACDCross is a demonstration strategy: buy one lot when the MACD line
// crosses above its signal line, flatten when it crosses back below. It
// trades with limit orders at the latest strategy-timeframe close.
type MACDCross struct {
	timeframe string
	amount    int64
	params    marketdata.MACDParams

	data   *marketdata.Service
	macd   *marketdata.Window
	signal *marketdata.Window
	closes *marketdata.Window

	prevAbove bool
	primed    bool
	held      int64
	log       *slog.Logger
}

// NewMACDCross creates a MACDCross trading `amount` contracts on the given
// timeframe.
func NewMACDCross(timeframe string, amount int64, params marketdata.MACDParams) *MACDCross {
	return &MACDCross{
		timeframe: timeframe,
		amount:    amount,
		params:    params,
		log:       slog.Default().With("strategy", "macd-cross"),
	}
}

// Name returns "macd-cross".
func (s *MACDCross) Name() string { return "macd-cross" }

// Init subscribes the MACD indicator and a close-price window on the
// strategy timeframe.
func (s *MACDCross) Init(data *marketdata.Service) error {
	s.data = data
	macd, signal, err := data.MACD(s.timeframe, 2, s.params)
	if err != nil {
		return err
	}
	closes, err := data.BarWindow(marketdata.FieldClose, s.timeframe, 1)
	if err != nil {
		return err
	}
	s.macd = macd
	s.signal = signal
	s.closes = closes
	return nil
}

// OnBar trades the MACD/signal crossover.
func (s *MACDCross) OnBar(b broker.Broker) error {
	macd, ok1 := s.macd.Last()
	sig, ok2 := s.signal.Last()
	closePrice, ok3 := s.closes.Last()
	if !ok1 || !ok2 || !ok3 {
		return nil
	}

	above := macd > sig
	defer func() {
		s.prevAbove = above
		s.primed = true
	}()
	if !s.primed {
		return nil
	}

	switch {
	case above && !s.prevAbove && s.held == 0:
		price := s.alignToTick(closePrice)
		order, err := b.CreateOrder(price, s.amount, domain.DirectionBuy, domain.OrderTypeLimit)
		if err != nil {
			// Validation and risk refusals are routine; anything else is not.
			if errors.Is(err, broker.ErrRiskRejected) || errors.Is(err, broker.ErrInvalidPrice) {
				s.log.Info("entry refused", slog.String("reason", err.Error()))
				return nil
			}
			return err
		}
		s.held = s.amount
		s.log.Info("entry placed", slog.Int64("order_id", order.ID), slog.Float64("price", price))

	case !above && s.prevAbove && s.held > 0:
		price := s.alignToTick(closePrice)
		order, err := b.CreateOrder(price, s.held, domain.DirectionSell, domain.OrderTypeLimit)
		if err != nil {
			if errors.Is(err, broker.ErrRiskRejected) || errors.Is(err, broker.ErrInvalidPrice) {
				s.log.Info("exit refused", slog.String("reason", err.Error()))
				return nil
			}
			return err
		}
		s.held = 0
		s.log.Info("exit placed", slog.Int64("order_id", order.ID), slog.Float64("price", price))
	}
	return nil
}

// alignToTick rounds price to the symbol's minimum tick size.
func (s *MACDCross) alignToTick(price float64) float64 {
	tick := s.data.Symbol().MinimumTickSize
	return math.Round(price/tick) * tick
}
