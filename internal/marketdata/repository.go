// Package marketdata holds the historical bar series a simulation run reads
// from, keyed by field name and timeframe, plus the rolling handlers and
// indicators strategies subscribe to before a run starts.
package marketdata

import (
	"errors"
	"fmt"
	"time"

	"barsim/internal/domain"
)

// Field names a per-bar value series.
type Field string

const (
	FieldOpen          Field = "open"
	FieldHigh          Field = "high"
	FieldLow           Field = "low"
	FieldClose         Field = "close"
	FieldVolume        Field = "volume"
	FieldPercentChange Field = "percent_change"
	FieldBid           Field = "bid"
	FieldAsk           Field = "ask"
)

// TimeframeBase is the simulation clock timeframe. The engine always matches
// against base-timeframe bars.
const TimeframeBase = "1m"

// timeframeMinutes maps the supported timeframe labels to their length in
// base (1m) bars.
var timeframeMinutes = map[string]int{
	"1m":  1,
	"5m":  5,
	"15m": 15,
	"30m": 30,
	"1h":  60,
	"4h":  240,
}

// ErrNoData is returned when a requested series or bar index does not exist.
// The simulation loop never steps past the available data, so hitting this
// from inside the engine means the run must abort.
var ErrNoData = errors.New("marketdata: no data")

// ErrUnknownTimeframe is returned for timeframe labels outside the supported
// set.
var ErrUnknownTimeframe = errors.New("marketdata: unknown timeframe")

// Repository owns the immutable bar series for one run together with the
// current base-bar cursor. It is exclusively owned by a single simulation
// run and is not safe for concurrent use.
type Repository struct {
	symbol   domain.Symbol
	cfg      domain.SimConfig
	barCount int

	series    map[string]map[Field][]float64
	datetimes map[string][]time.Time
}

// NewRepository creates an empty repository for the given symbol and run
// configuration. Series are loaded afterwards with SaveBars.
func NewRepository(symbol domain.Symbol, cfg domain.SimConfig) *Repository {
	return &Repository{
		symbol:    symbol,
		cfg:       cfg,
		series:    make(map[string]map[Field][]float64),
		datetimes: make(map[string][]time.Time),
	}
}

// SaveBars decomposes bars into per-field series under the given timeframe.
// percent_change is derived from consecutive closes (first bar is 0), and
// bid/ask fall back to the close when the source carries no quote data.
func (r *Repository) SaveBars(timeframe string, bars []domain.Bar) error {
	if _, ok := timeframeMinutes[timeframe]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTimeframe, timeframe)
	}
	if _, ok := r.series[timeframe]; ok {
		return fmt.Errorf("marketdata: series for timeframe %s already loaded", timeframe)
	}

	n := len(bars)
	fields := map[Field][]float64{
		FieldOpen:          make([]float64, n),
		FieldHigh:          make([]float64, n),
		FieldLow:           make([]float64, n),
		FieldClose:         make([]float64, n),
		FieldVolume:        make([]float64, n),
		FieldPercentChange: make([]float64, n),
		FieldBid:           make([]float64, n),
		FieldAsk:           make([]float64, n),
	}
	times := make([]time.Time, n)

	for i, b := range bars {
		fields[FieldOpen][i] = b.Open
		fields[FieldHigh][i] = b.High
		fields[FieldLow][i] = b.Low
		fields[FieldClose][i] = b.Close
		fields[FieldVolume][i] = float64(b.Volume)
		if i > 0 && bars[i-1].Close != 0 {
			fields[FieldPercentChange][i] = (b.Close - bars[i-1].Close) / bars[i-1].Close * 100
		}
		bid, ask := b.Bid, b.Ask
		if bid == 0 {
			bid = b.Close
		}
		if ask == 0 {
			ask = b.Close
		}
		fields[FieldBid][i] = bid
		fields[FieldAsk][i] = ask
		times[i] = b.Timestamp
	}

	r.series[timeframe] = fields
	r.datetimes[timeframe] = times
	return nil
}

// Current returns the value of field at the bar the cursor points to,
// mapped into the given timeframe.
func (r *Repository) Current(field Field, timeframe string) (float64, error) {
	values, err := r.History(field, timeframe)
	if err != nil {
		return 0, err
	}
	idx, err := r.mappedIndex(timeframe, len(values))
	if err != nil {
		return 0, err
	}
	return values[idx], nil
}

// CurrentTime returns the timestamp of the current bar in the given
// timeframe.
func (r *Repository) CurrentTime(timeframe string) (time.Time, error) {
	times, err := r.Times(timeframe)
	if err != nil {
		return time.Time{}, err
	}
	idx, err := r.mappedIndex(timeframe, len(times))
	if err != nil {
		return time.Time{}, err
	}
	return times[idx], nil
}

// History returns the full series for field in the given timeframe.
func (r *Repository) History(field Field, timeframe string) ([]float64, error) {
	tf, ok := r.series[timeframe]
	if !ok {
		return nil, fmt.Errorf("%w: no series for timeframe %s", ErrNoData, timeframe)
	}
	values, ok := tf[field]
	if !ok {
		return nil, fmt.Errorf("%w: no %s series in timeframe %s", ErrNoData, field, timeframe)
	}
	return values, nil
}

// Times returns the timestamp series for the given timeframe.
func (r *Repository) Times(timeframe string) ([]time.Time, error) {
	times, ok := r.datetimes[timeframe]
	if !ok {
		return nil, fmt.Errorf("%w: no datetime series for timeframe %s", ErrNoData, timeframe)
	}
	return times, nil
}

// mappedIndex converts the base-bar cursor into an index within the given
// timeframe's series.
func (r *Repository) mappedIndex(timeframe string, length int) (int, error) {
	minutes, ok := timeframeMinutes[timeframe]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTimeframe, timeframe)
	}
	idx := r.barCount / minutes
	if idx >= length {
		return 0, fmt.Errorf("%w: timeframe %s exhausted at bar %d", ErrNoData, timeframe, r.barCount)
	}
	return idx, nil
}

// Symbol returns the run's symbol definition.
func (r *Repository) Symbol() domain.Symbol { return r.symbol }

// Config returns the run's simulation parameters.
func (r *Repository) Config() domain.SimConfig { return r.cfg }

// BarCount returns the base-bar cursor position.
func (r *Repository) BarCount() int { return r.barCount }

// setBarCount moves the base-bar cursor. Only the Service advances it.
func (r *Repository) setBarCount(n int) { r.barCount = n }
