package backtest

import (
	"sort"
	"time"
)

// BuildTimeline returns the sorted union of every series' dates.
func BuildTimeline(series []Series) []time.Time {
	total := 0
	for _, s := range series {
		total += s.Len()
	}

	dates := make([]time.Time, 0, total)
	for _, s := range series {
		for _, b := range s.Bars {
			dates = append(dates, b.Date)
		}
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})

	out := dates[:0]
	for _, d := range dates {
		if n := len(out); n > 0 && out[n-1].Equal(d) {
			continue
		}
		out = append(out, d)
	}
	return out
}
