package console

import (
	"bytes"
	"testing"
	"time"

	"golang-backtest/internal/backtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintResult(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	result := &backtest.Result{
		Hash: "deadbeef",
		Summary: backtest.Summary{
			StrategyID:     backtest.StrategyTrendBreakout,
			StartDate:      day,
			EndDate:        day.AddDate(0, 1, 0),
			InitialCapital: 10000,
			FinalEquity:    10250.5,
			FinalCash:      10250.5,
			TotalReturn:    0.025,
			TotalTrades:    1,
			Bars:           22,
			Symbols:        []string{"AAPL"},
			DroppedSymbols: []string{"ZZZZ"},
		},
		Trades: []backtest.Trade{{
			Symbol:     "AAPL",
			EntryDate:  day,
			EntryPrice: 100,
			ExitDate:   day.AddDate(0, 0, 5),
			ExitPrice:  110,
			Qty:        25,
			PnLNet:     250.5,
			ExitReason: backtest.ExitSignal,
		}},
		Metrics: backtest.Metrics{CAGR: 0.3, ProfitFactor: 0, WinRate: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, PrintResult(&buf, 12, result))
	out := buf.String()

	assert.Contains(t, out, "Run #12 (deadbeef)")
	assert.Contains(t, out, "2024-01-02 to 2024-02-02")
	assert.Contains(t, out, "No data for: [ZZZZ]")
	assert.Contains(t, out, "10250.50")
	assert.Contains(t, out, "2.50%")
	assert.Contains(t, out, "30.00%")
	assert.Contains(t, out, "250.50")
	assert.Contains(t, out, "signal")
}

func TestPrintResult_NoTrades(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintResult(&buf, 0, &backtest.Result{Hash: "cafe"}))
	assert.Contains(t, buf.String(), "Run cafe")
	assert.Contains(t, buf.String(), "No closed trades.")
}
