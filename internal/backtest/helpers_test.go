package backtest

import (
	"time"

	"golang-backtest/pkg/utils"
)

var day0 = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func dayN(n int) time.Time {
	return day0.AddDate(0, 0, n)
}

func ohlc(n int, open, high, low, last float64) PriceBar {
	return PriceBar{
		Date:  dayN(n),
		Open:  utils.ToPointer(open),
		High:  utils.ToPointer(high),
		Low:   utils.ToPointer(low),
		Close: utils.ToPointer(last),
	}
}

func closeOnly(n int, last float64) PriceBar {
	return PriceBar{Date: dayN(n), Close: utils.ToPointer(last)}
}

func baseRequest(universe ...string) Request {
	return Request{
		StrategyID:           StrategyTrendBreakout,
		Universe:             universe,
		StartDate:            day0,
		EndDate:              dayN(365),
		InitialCapital:       10000,
		RiskPerTradePct:      1,
		BreakoutLookbackBuy:  20,
		BreakoutLookbackSell: 10,
		ATRMultiplier:        2,
	}
}

// flatThenBreakout returns 20 bars ranging 99..101 around a 100 close,
// then a breakout bar closing at 102 and a final bar closing at last.
func flatThenBreakout(last float64) []PriceBar {
	bars := make([]PriceBar, 0, 22)
	for i := 0; i < 20; i++ {
		bars = append(bars, ohlc(i, 100, 101, 99, 100))
	}
	bars = append(bars, ohlc(20, 100, 102, 100, 102))
	bars = append(bars, ohlc(21, 101, 100, last-0.5, last))
	return bars
}

func runSimulator(req Request, series ...Series) *Simulator {
	sim := NewSimulator(req, series)
	sim.Run(BuildTimeline(series))
	return sim
}
