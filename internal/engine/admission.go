package engine

import (
	"fmt"
	"log/slog"

	"barsim/internal/domain"
	"barsim/internal/marketdata"
)

// AdmissionFilter rejects orders that cannot trade on the current bar:
// orders on the restricted side of a session price limit, and orders larger
// than the bar's traded volume. Rejection is a same-bar deferral, not an
// error — the order stays PENDING and is re-evaluated next bar.
type AdmissionFilter struct {
	data *marketdata.Service
	log  *slog.Logger
}

// NewAdmissionFilter creates a filter reading the current bar from data.
func NewAdmissionFilter(data *marketdata.Service) *AdmissionFilter {
	return &AdmissionFilter{
		data: data,
		log:  slog.Default().With("component", "admission"),
	}
}

// Admit reports whether the order may be handed to the match engine on this
// bar. An error means the current bar's data is missing, which the loop
// contract rules out.
func (f *AdmissionFilter) Admit(order *domain.Order) (bool, error) {
	okLimit, err := f.withinPriceLimit(order)
	if err != nil {
		return false, err
	}
	okVolume, err := f.withinVolume(order)
	if err != nil {
		return false, err
	}
	return okLimit && okVolume, nil
}

// withinPriceLimit rejects buys into an up-limit move and sells into a
// down-limit move. The non-restricted side always passes.
func (f *AdmissionFilter) withinPriceLimit(order *domain.Order) (bool, error) {
	pct, err := f.data.Current(marketdata.FieldPercentChange, marketdata.TimeframeBase)
	if err != nil {
		return false, fmt.Errorf("admission price-limit check: %w", err)
	}
	sym := f.data.Symbol()

	if order.Direction == domain.DirectionBuy {
		if pct > 0 && pct > sym.UpperLimit {
			f.log.Info("order rejected: upper limit breached",
				slog.Int64("id", order.ID),
				slog.Float64("percent_change", pct))
			return false, nil
		}
	} else {
		if pct < 0 && pct < sym.LowerLimit {
			f.log.Info("order rejected: lower limit breached",
				slog.Int64("id", order.ID),
				slog.Float64("percent_change", pct))
			return false, nil
		}
	}
	return true, nil
}

// withinVolume rejects orders larger than the bar's traded volume.
func (f *AdmissionFilter) withinVolume(order *domain.Order) (bool, error) {
	volume, err := f.data.Current(marketdata.FieldVolume, marketdata.TimeframeBase)
	if err != nil {
		return false, fmt.Errorf("admission volume check: %w", err)
	}
	if float64(order.Amount) > volume {
		f.log.Info("order rejected: insufficient volume",
			slog.Int64("id", order.ID),
			slog.Int64("amount", order.Amount),
			slog.Float64("volume", volume))
		return false, nil
	}
	return true, nil
}
