package backtest

import (
	"context"
	"math"
	"sort"
	"time"

	"golang-backtest/pkg/utils"
)

// PriceBar is one daily OHLCV observation. A nil price field means the
// provider did not report it; it is never treated as zero.
type PriceBar struct {
	Symbol string
	Date   time.Time
	Open   *float64
	High   *float64
	Low    *float64
	Close  *float64
	Volume int64
}

// finite dereferences p. NaN and infinite prices count as missing.
func finite(p *float64) (float64, bool) {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0, false
	}
	return *p, true
}

// ClosePrice returns the close when it is present and finite.
func (b PriceBar) ClosePrice() (float64, bool) {
	return finite(b.Close)
}

// HighOrClose returns the high, falling back to the close.
func (b PriceBar) HighOrClose() (float64, bool) {
	if v, ok := finite(b.High); ok {
		return v, true
	}
	return finite(b.Close)
}

// LowOrClose returns the low, falling back to the close.
func (b PriceBar) LowOrClose() (float64, bool) {
	if v, ok := finite(b.Low); ok {
		return v, true
	}
	return finite(b.Close)
}

// Series is a symbol's bars sorted by strictly increasing date.
type Series struct {
	Symbol string
	Bars   []PriceBar
}

func (s Series) Len() int {
	return len(s.Bars)
}

// PriceSeriesSource provides the full daily history of a symbol for a date range.
type PriceSeriesSource interface {
	GetSeries(ctx context.Context, symbol string, start, end time.Time) (Series, error)
}

// NormalizeSeries sorts bars by date, keeps only [start, end], and collapses
// duplicate dates keeping the last one reported.
func NormalizeSeries(symbol string, bars []PriceBar, start, end time.Time) Series {
	kept := make([]PriceBar, 0, len(bars))
	for _, b := range bars {
		b.Date = utils.StartOfDayUTC(b.Date)
		b.Symbol = symbol
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		kept = append(kept, b)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Date.Before(kept[j].Date)
	})

	out := kept[:0]
	for _, b := range kept {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return Series{Symbol: symbol, Bars: out}
}

// StaticSource serves series held in memory, keyed by symbol.
type StaticSource map[string][]PriceBar

func (s StaticSource) GetSeries(_ context.Context, symbol string, start, end time.Time) (Series, error) {
	return NormalizeSeries(symbol, s[symbol], start, end), nil
}
