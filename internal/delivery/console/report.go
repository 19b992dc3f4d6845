package console

import (
	"fmt"
	"io"
	"strconv"

	"golang-backtest/internal/backtest"
	"golang-backtest/pkg/utils"

	"github.com/olekukonko/tablewriter"
)

// PrintResult writes the summary, metrics and closed trades of a run as tables.
func PrintResult(w io.Writer, runID uint, result *backtest.Result) error {
	s := result.Summary
	if runID > 0 {
		fmt.Fprintf(w, "Run #%d (%s)\n", runID, result.Hash)
	} else {
		fmt.Fprintf(w, "Run %s\n", result.Hash)
	}
	fmt.Fprintf(w, "%s %s to %s, %d bars, %d symbols\n",
		s.StrategyID, utils.FormatDate(s.StartDate), utils.FormatDate(s.EndDate), s.Bars, len(s.Symbols))
	if len(s.DroppedSymbols) > 0 {
		fmt.Fprintf(w, "No data for: %v\n", s.DroppedSymbols)
	}

	summary := tablewriter.NewWriter(w)
	summary.Header("Initial", "Final equity", "Cash", "Return", "Trades", "Open", "Rejected")
	summary.Append(
		money(s.InitialCapital),
		money(s.FinalEquity),
		money(s.FinalCash),
		percent(s.TotalReturn),
		strconv.Itoa(s.TotalTrades),
		strconv.Itoa(s.OpenPositions),
		strconv.Itoa(s.RejectedEntries),
	)
	if err := summary.Render(); err != nil {
		return err
	}

	m := result.Metrics
	metrics := tablewriter.NewWriter(w)
	metrics.Header("CAGR", "Max DD", "Sharpe", "Sortino", "Win rate", "Profit factor", "Expectancy", "Exposure")
	metrics.Append(
		percent(m.CAGR),
		percent(m.MaxDrawdown),
		ratio(m.Sharpe),
		ratio(m.Sortino),
		percent(m.WinRate),
		ratio(m.ProfitFactor),
		money(m.Expectancy),
		percent(m.Exposure),
	)
	if err := metrics.Render(); err != nil {
		return err
	}

	if len(result.Trades) == 0 {
		fmt.Fprintln(w, "No closed trades.")
		return nil
	}
	trades := tablewriter.NewWriter(w)
	trades.Header("#", "Symbol", "Entry", "Entry px", "Exit", "Exit px", "Qty", "PnL net", "Reason")
	for i, t := range result.Trades {
		trades.Append(
			strconv.Itoa(i+1),
			t.Symbol,
			utils.FormatDate(t.EntryDate),
			ratio(t.EntryPrice),
			utils.FormatDate(t.ExitDate),
			ratio(t.ExitPrice),
			strconv.FormatInt(t.Qty, 10),
			money(t.PnLNet),
			string(t.ExitReason),
		)
	}
	return trades.Render()
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func ratio(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func percent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 2, 64) + "%"
}
