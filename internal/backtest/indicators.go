package backtest

import "math"

// ATRPeriod is the window of the average true range used for stop placement.
const ATRPeriod = 14

// Highest returns the maximum high (close when high is missing) of the
// lookback bars strictly before idx. ok is false when fewer than lookback
// prior bars exist or none of them carries a usable price.
func Highest(bars []PriceBar, idx, lookback int) (float64, bool) {
	if lookback < 1 || idx < lookback || idx > len(bars) {
		return 0, false
	}
	best, found := math.Inf(-1), false
	for i := idx - lookback; i < idx; i++ {
		v, ok := bars[i].HighOrClose()
		if !ok {
			continue
		}
		if v > best {
			best = v
		}
		found = true
	}
	return best, found
}

// Lowest mirrors Highest using the low, falling back to the close.
func Lowest(bars []PriceBar, idx, lookback int) (float64, bool) {
	if lookback < 1 || idx < lookback || idx > len(bars) {
		return 0, false
	}
	best, found := math.Inf(1), false
	for i := idx - lookback; i < idx; i++ {
		v, ok := bars[i].LowOrClose()
		if !ok {
			continue
		}
		if v < best {
			best = v
		}
		found = true
	}
	return best, found
}

// TrueRange of bars[i] against the previous bar's close.
func TrueRange(bars []PriceBar, i int) (float64, bool) {
	if i < 1 || i >= len(bars) {
		return 0, false
	}
	high, okHigh := finite(bars[i].High)
	low, okLow := finite(bars[i].Low)
	prevClose, okPrev := finite(bars[i-1].Close)
	if !okHigh || !okLow || !okPrev {
		return 0, false
	}
	return math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose))), true
}

// ATR is the arithmetic mean of the true ranges of the period bars ending at
// idx. It is undefined when fewer than period/2 true ranges are available.
func ATR(bars []PriceBar, idx, period int) (float64, bool) {
	if period < 1 || idx < 0 || idx >= len(bars) {
		return 0, false
	}
	from := idx - period + 1
	if from < 0 {
		from = 0
	}
	sum, n := 0.0, 0
	for i := from; i <= idx; i++ {
		tr, ok := TrueRange(bars, i)
		if !ok {
			continue
		}
		sum += tr
		n++
	}
	if n == 0 || n < period/2 {
		return 0, false
	}
	return sum / float64(n), true
}
