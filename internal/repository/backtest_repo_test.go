package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"golang-backtest/internal/backtest"
	"golang-backtest/internal/model"
	"golang-backtest/pkg/common"
	"golang-backtest/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repoDay = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

func testRequest(userID *uint) backtest.Request {
	return backtest.Request{
		StrategyID:           backtest.StrategyTrendBreakout,
		Universe:             []string{"AAPL", "MSFT"},
		StartDate:            repoDay,
		EndDate:              repoDay.AddDate(0, 1, 0),
		InitialCapital:       10000,
		RiskPerTradePct:      1,
		BreakoutLookbackBuy:  20,
		BreakoutLookbackSell: 10,
		ATRMultiplier:        2,
		UserID:               userID,
	}
}

func testResult() (backtest.Summary, []backtest.Trade, []backtest.EquityPoint, backtest.Metrics) {
	summary := backtest.Summary{
		StrategyID:      backtest.StrategyTrendBreakout,
		InitialCapital:  10000,
		FinalEquity:     10250,
		FinalCash:       9000,
		TotalReturn:     0.025,
		TotalTrades:     2,
		OpenPositions:   1,
		Bars:            3,
		RejectedEntries: 4,
		Symbols:         []string{"AAPL", "MSFT"},
	}
	trades := []backtest.Trade{
		{Symbol: "MSFT", EntryDate: repoDay, EntryPrice: 10, ExitDate: repoDay.AddDate(0, 0, 1), ExitPrice: 12, Qty: 10, PnLGross: 20, Costs: 2, PnLNet: 18, ExitReason: backtest.ExitSignal},
		{Symbol: "AAPL", EntryDate: repoDay, EntryPrice: 20, ExitDate: repoDay.AddDate(0, 0, 2), ExitPrice: 19, Qty: 5, PnLGross: -5, Costs: 1, PnLNet: -6, ExitReason: backtest.ExitStop},
	}
	equity := []backtest.EquityPoint{
		{Date: repoDay, Equity: 10000},
		{Date: repoDay.AddDate(0, 0, 1), Equity: 10100},
		{Date: repoDay.AddDate(0, 0, 2), Equity: 10250},
	}
	metrics := backtest.Metrics{CAGR: 0.4, MaxDrawdown: -0.01, WinRate: 0.5, ProfitFactor: 3, Expectancy: 6, Exposure: 1, TotalTrades: 2, WinningTrades: 1, LosingTrades: 1}
	return summary, trades, equity, metrics
}

func TestBacktestRepository_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewBacktestRepository(db, NewUnitOfWork(db))
	ctx := context.Background()
	req := testRequest(utils.ToPointer(uint(3)))

	runID, err := repo.CreateRun(ctx, req, "hash-1")
	require.NoError(t, err)
	require.NotZero(t, runID)

	run, err := repo.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, common.RUN_STATUS_RUNNING, run.Status)
	assert.Nil(t, run.FinalEquity)
	var params map[string]interface{}
	require.NoError(t, json.Unmarshal(run.Params, &params))
	assert.Equal(t, "trend_breakout", params["strategy_id"])

	none, err := repo.FindCompletedByHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.Nil(t, none, "running runs are not reusable")

	summary, trades, equity, metrics := testResult()
	require.NoError(t, repo.Persist(ctx, runID, summary, trades, equity, metrics))

	run, err = repo.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, common.RUN_STATUS_COMPLETED, run.Status)
	require.NotNil(t, run.FinalEquity)
	assert.Equal(t, 10250.0, *run.FinalEquity)
	assert.Equal(t, 2, run.TotalTrades)
	assert.Equal(t, 1, run.OpenPositions)
	assert.Equal(t, 4, run.RejectedEntries)
	assert.NotNil(t, run.CompletedAt)

	storedTrades, err := repo.GetTrades(ctx, runID)
	require.NoError(t, err)
	require.Len(t, storedTrades, 2)
	assert.Equal(t, "MSFT", storedTrades[0].Symbol)
	assert.Equal(t, 1, storedTrades[0].Seq)
	assert.Equal(t, "stop", storedTrades[1].ExitReason)

	points, err := repo.GetEquity(ctx, runID)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, 10250.0, points[2].Equity)

	metric, err := repo.GetMetrics(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, metric.ProfitFactor)
	assert.Equal(t, 1, metric.LosingTrades)

	found, err := repo.FindCompletedByHash(ctx, "hash-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, runID, found.ID)
}

func TestBacktestRepository_PersistReplacesPreviousAttempt(t *testing.T) {
	db := newTestDB(t)
	repo := NewBacktestRepository(db, NewUnitOfWork(db))
	ctx := context.Background()

	runID, err := repo.CreateRun(ctx, testRequest(nil), "hash-2")
	require.NoError(t, err)

	summary, trades, equity, metrics := testResult()
	require.NoError(t, repo.Persist(ctx, runID, summary, trades, equity, metrics))
	require.NoError(t, repo.Persist(ctx, runID, summary, trades[:1], equity, metrics))

	storedTrades, err := repo.GetTrades(ctx, runID)
	require.NoError(t, err)
	assert.Len(t, storedTrades, 1)
	points, err := repo.GetEquity(ctx, runID)
	require.NoError(t, err)
	assert.Len(t, points, 3)
}

func TestBacktestRepository_PersistUnknownRunRollsBack(t *testing.T) {
	db := newTestDB(t)
	repo := NewBacktestRepository(db, NewUnitOfWork(db))
	ctx := context.Background()

	summary, trades, equity, metrics := testResult()
	err := repo.Persist(ctx, 404, summary, trades, equity, metrics)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var count int64
	require.NoError(t, db.Model(&model.BacktestTrade{}).Where("run_id = ?", 404).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&model.BacktestMetric{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestBacktestRepository_MarkFailed(t *testing.T) {
	db := newTestDB(t)
	repo := NewBacktestRepository(db, NewUnitOfWork(db))
	ctx := context.Background()

	runID, err := repo.CreateRun(ctx, testRequest(nil), "hash-3")
	require.NoError(t, err)
	require.NoError(t, repo.MarkFailed(ctx, runID, "no price data available"))

	run, err := repo.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, common.RUN_STATUS_FAILED, run.Status)
	require.NotNil(t, run.ErrorMessage)
	assert.Equal(t, "no price data available", *run.ErrorMessage)

	assert.ErrorIs(t, repo.MarkFailed(ctx, runID+100, "x"), ErrNotFound)
	_, err = repo.GetRun(ctx, runID+100)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetMetrics(ctx, runID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBacktestRepository_List(t *testing.T) {
	db := newTestDB(t)
	repo := NewBacktestRepository(db, NewUnitOfWork(db))
	ctx := context.Background()

	alice, bob := uint(1), uint(2)
	var ids []uint
	for _, user := range []*uint{&alice, &bob, &alice, nil} {
		id, err := repo.CreateRun(ctx, testRequest(user), "h")
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, repo.MarkFailed(ctx, ids[2], "boom"))

	tests := []struct {
		name  string
		param model.GetBacktestRunParam
		want  []uint
	}{
		{name: "all, newest first", param: model.GetBacktestRunParam{}, want: []uint{ids[3], ids[2], ids[1], ids[0]}},
		{name: "by user", param: model.GetBacktestRunParam{UserID: &alice}, want: []uint{ids[2], ids[0]}},
		{name: "by status", param: model.GetBacktestRunParam{Status: utils.ToPointer(common.RUN_STATUS_FAILED)}, want: []uint{ids[2]}},
		{name: "limited", param: model.GetBacktestRunParam{Limit: 2}, want: []uint{ids[3], ids[2]}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := repo.List(ctx, tt.param)
			require.NoError(t, err)
			got := make([]uint, 0, len(runs))
			for _, r := range runs {
				got = append(got, r.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
