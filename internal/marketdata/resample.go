package marketdata

import (
	"fmt"
	"time"

	"barsim/internal/domain"
)

// Resample aggregates base (1m) bars into the given coarser timeframe.
// Buckets are aligned to the timeframe length; open is the first bar's open,
// close the last bar's close, high/low the extremes, volume the sum, and
// bid/ask carry the last bar's quote. Input must be sorted by timestamp.
func Resample(bars []domain.Bar, timeframe string) ([]domain.Bar, error) {
	minutes, ok := timeframeMinutes[timeframe]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTimeframe, timeframe)
	}
	if minutes == 1 {
		return bars, nil
	}
	span := time.Duration(minutes) * time.Minute

	var out []domain.Bar
	for _, b := range bars {
		bucket := b.Timestamp.Truncate(span)
		if len(out) == 0 || !out[len(out)-1].Timestamp.Equal(bucket) {
			nb := b
			nb.Timestamp = bucket
			out = append(out, nb)
			continue
		}
		cur := &out[len(out)-1]
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
		cur.Bid = b.Bid
		cur.Ask = b.Ask
	}
	return out, nil
}
