package backtest

import (
	"math"
	"testing"

	"golang-backtest/pkg/utils"

	"github.com/stretchr/testify/assert"
)

func TestHighestLowest(t *testing.T) {
	bars := []PriceBar{
		ohlc(0, 10, 11, 9, 10),
		ohlc(1, 10, 14, 8, 12),
		closeOnly(2, 13),
		ohlc(3, 12, 20, 1, 15),
	}

	tests := []struct {
		name     string
		idx      int
		lookback int
		wantHigh float64
		wantLow  float64
		wantOK   bool
	}{
		{name: "not enough prior bars", idx: 2, lookback: 3, wantOK: false},
		{name: "window excludes the current bar", idx: 3, lookback: 3, wantHigh: 14, wantLow: 8, wantOK: true},
		{name: "close fills a missing high and low", idx: 3, lookback: 1, wantHigh: 13, wantLow: 13, wantOK: true},
		{name: "zero lookback", idx: 3, lookback: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			high, ok := Highest(bars, tt.idx, tt.lookback)
			assert.Equal(t, tt.wantOK, ok)
			low, ok := Lowest(bars, tt.idx, tt.lookback)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantHigh, high)
				assert.Equal(t, tt.wantLow, low)
			}
		})
	}
}

func TestTrueRange(t *testing.T) {
	bars := []PriceBar{
		ohlc(0, 10, 10, 10, 10),
		ohlc(1, 12, 13, 12, 12),
		ohlc(2, 8, 9, 7, 8),
		closeOnly(3, 8),
	}

	tr, ok := TrueRange(bars, 0)
	assert.False(t, ok)
	assert.Zero(t, tr)

	tr, ok = TrueRange(bars, 1)
	assert.True(t, ok)
	assert.Equal(t, 3.0, tr, "gap up measured from the previous close")

	tr, ok = TrueRange(bars, 2)
	assert.True(t, ok)
	assert.Equal(t, 5.0, tr, "gap down measured from the previous close")

	_, ok = TrueRange(bars, 3)
	assert.False(t, ok, "missing high and low")
}

func TestATR(t *testing.T) {
	var bars []PriceBar
	for i := 0; i < 20; i++ {
		bars = append(bars, ohlc(i, 100, 101, 99, 100))
	}

	atr, ok := ATR(bars, 19, ATRPeriod)
	assert.True(t, ok)
	assert.InDelta(t, 2.0, atr, 1e-12)

	_, ok = ATR(bars, 5, ATRPeriod)
	assert.False(t, ok, "five true ranges are fewer than half the period")

	atr, ok = ATR(bars, 7, ATRPeriod)
	assert.True(t, ok, "seven true ranges are enough")
	assert.InDelta(t, 2.0, atr, 1e-12)

	closes := []PriceBar{closeOnly(0, 1), closeOnly(1, 2), closeOnly(2, 3)}
	_, ok = ATR(closes, 2, ATRPeriod)
	assert.False(t, ok)
}

func TestIndicators_IgnoreNonFinitePrices(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(-1)
	bars := []PriceBar{
		ohlc(0, 10, 11, 9, 10),
		{Date: dayN(1), High: &nan, Low: &inf, Close: utils.ToPointer(12.0)},
		{Date: dayN(2), High: &nan, Low: &nan, Close: &nan},
		ohlc(3, 12, 13, 11, 12),
	}

	high, ok := Highest(bars, 3, 3)
	assert.True(t, ok)
	assert.Equal(t, 12.0, high, "NaN high falls back to the close")
	low, ok := Lowest(bars, 3, 3)
	assert.True(t, ok)
	assert.Equal(t, 9.0, low, "infinite low falls back to the close")

	_, ok = Highest(bars, 3, 1)
	assert.False(t, ok, "a bar with only NaN prices is not usable")

	_, ok = TrueRange(bars, 1)
	assert.False(t, ok)
	_, ok = TrueRange(bars, 3)
	assert.False(t, ok, "NaN previous close")

	_, ok = bars[2].ClosePrice()
	assert.False(t, ok)
	px, ok := bars[1].ClosePrice()
	assert.True(t, ok)
	assert.Equal(t, 12.0, px)
}
