package backtest

import (
	"math"
)

const (
	tradingDaysPerYear = 252
	returnEpsilon      = 1e-12
)

// Metrics are the aggregate statistics of a finished run.
type Metrics struct {
	CAGR          float64 `json:"cagr"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	Sharpe        float64 `json:"sharpe"`
	Sortino       float64 `json:"sortino"`
	WinRate       float64 `json:"win_rate"`
	ProfitFactor  float64 `json:"profit_factor"`
	Expectancy    float64 `json:"expectancy"`
	Exposure      float64 `json:"exposure"`
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
}

// ComputeMetrics derives the run statistics. exposedBars is the number of
// equity points that ended with an open position. Degenerate inputs yield
// zero values instead of errors.
func ComputeMetrics(initialCapital float64, trades []Trade, equity []EquityPoint, exposedBars int) Metrics {
	if len(equity) < 2 {
		return Metrics{}
	}

	var m Metrics
	fillTradeStats(&m, trades)

	first, last := equity[0], equity[len(equity)-1]
	days := math.Max(1, math.Round(last.Date.Sub(first.Date).Hours()/24))
	if initialCapital > 0 {
		growth := last.Equity / initialCapital
		if growth > 0 {
			m.CAGR = math.Pow(growth, 365/days) - 1
		} else {
			m.CAGR = -1
		}
	}

	returns := dailyReturns(equity)
	m.MaxDrawdown = maxDrawdown(equity)

	mean := meanOf(returns)
	if sd := popStdev(returns); sd > 0 {
		m.Sharpe = mean / sd * math.Sqrt(tradingDaysPerYear)
	}

	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if sd := popStdev(downside); len(downside) > 0 && sd > 0 {
		m.Sortino = mean / sd * math.Sqrt(tradingDaysPerYear)
	}

	m.Exposure = float64(exposedBars) / float64(len(equity))
	return m
}

func fillTradeStats(m *Metrics, trades []Trade) {
	m.TotalTrades = len(trades)
	if len(trades) == 0 {
		return
	}

	var gains, losses, net float64
	for _, t := range trades {
		net += t.PnLNet
		switch {
		case t.PnLNet > 0:
			m.WinningTrades++
			gains += t.PnLNet
		case t.PnLNet < 0:
			m.LosingTrades++
			losses += t.PnLNet
		}
	}

	m.WinRate = float64(m.WinningTrades) / float64(len(trades))
	m.Expectancy = net / float64(len(trades))
	if losses != 0 {
		m.ProfitFactor = gains / math.Abs(losses)
	}
}

func dailyReturns(equity []EquityPoint) []float64 {
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if math.Abs(prev) < returnEpsilon {
			prev = returnEpsilon
		}
		out = append(out, (equity[i].Equity-equity[i-1].Equity)/prev)
	}
	return out
}

func maxDrawdown(equity []EquityPoint) float64 {
	peak, worst := math.Inf(-1), 0.0
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak <= 0 {
			continue
		}
		if dd := (p.Equity - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return worst
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func popStdev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := meanOf(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}
