package marketdata

import (
	"fmt"
	"time"
)

// MACDParams configures a moving-average-convergence indicator.
type MACDParams struct {
	FastPeriod   int
	SlowPeriod   int
	SignalPeriod int
}

// macdHandler exposes rolling MACD and signal lines for one timeframe. The
// full lines are precomputed from the close series at construction and
// released bar by bar as the clock advances, so a strategy can only ever see
// values up to the current bar.
type macdHandler struct {
	macd   []float64
	signal []float64
	times  []time.Time
	next   int

	macdWindow   *Window
	signalWindow *Window
}

func newMACDHandler(repo *Repository, timeframe string, size int, params MACDParams) (*macdHandler, error) {
	if params.FastPeriod <= 0 || params.SlowPeriod <= 0 || params.SignalPeriod <= 0 {
		return nil, fmt.Errorf("marketdata: macd periods must be positive, got %+v", params)
	}
	if params.FastPeriod >= params.SlowPeriod {
		return nil, fmt.Errorf("marketdata: macd fast period %d must be shorter than slow period %d",
			params.FastPeriod, params.SlowPeriod)
	}

	closes, err := repo.History(FieldClose, timeframe)
	if err != nil {
		return nil, err
	}
	times, err := repo.Times(timeframe)
	if err != nil {
		return nil, err
	}

	fast := ema(closes, params.FastPeriod)
	slow := ema(closes, params.SlowPeriod)
	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = fast[i] - slow[i]
	}
	signal := ema(macd, params.SignalPeriod)

	return &macdHandler{
		macd:         macd,
		signal:       signal,
		times:        times,
		macdWindow:   NewWindow(size),
		signalWindow: NewWindow(size),
	}, nil
}

// Advance releases the next MACD/signal pair once its bar has been reached.
func (h *macdHandler) Advance(now time.Time) {
	if h.next >= len(h.macd) {
		return
	}
	if !now.Before(h.times[h.next]) {
		h.macdWindow.Push(h.macd[h.next])
		h.signalWindow.Push(h.signal[h.next])
		h.next++
	}
}

// MACD returns the rolling MACD line.
func (h *macdHandler) MACD() *Window { return h.macdWindow }

// Signal returns the rolling signal line.
func (h *macdHandler) Signal() *Window { return h.signalWindow }

// ema computes an exponential moving average with alpha = 2/(span+1), seeded
// with the first value.
func ema(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}
