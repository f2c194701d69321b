package backtest

import (
	"math"

	"barsim/internal/domain"
)

// Result summarizes one backtest run.
type Result struct {
	ID            string
	Strategy      string
	SymbolID      string
	Timeframe     string
	InitialEquity float64

	FinalBalance     float64
	FinalEquity      float64
	TotalReturn      float64
	MaxDrawdown      float64
	SharpeRatio      float64 // per-bar, not annualized
	TotalTrades      int
	TotalCommissions float64

	BalanceHistory []float64
	EquityHistory  []float64
	Orders         []*domain.Order
}

// finalize fills in the summary metrics from the terminal account state and
// the full order log.
func (r *Result) finalize(account *domain.Account, orders []*domain.Order) {
	r.FinalBalance = account.Balance
	r.FinalEquity = account.Equity
	if r.InitialEquity != 0 {
		r.TotalReturn = account.Balance/r.InitialEquity - 1
	}
	r.MaxDrawdown = maxDrawdown(r.BalanceHistory)
	r.SharpeRatio = sharpe(r.BalanceHistory)

	r.Orders = orders
	for _, o := range orders {
		if o.Status == domain.OrderStatusFilled {
			r.TotalTrades++
			r.TotalCommissions += o.Commissions
		}
	}
}

// maxDrawdown returns the largest peak-to-trough decline in the series as a
// positive fraction of the peak.
func maxDrawdown(series []float64) float64 {
	var peak, worst float64
	for i, v := range series {
		if i == 0 || v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// sharpe computes mean/stddev of per-bar returns. Zero when the series is
// too short or flat.
func sharpe(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		if series[i-1] == 0 {
			continue
		}
		returns = append(returns, series[i]/series[i-1]-1)
	}
	if len(returns) < 2 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance)
}
