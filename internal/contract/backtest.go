package contract

import (
	"context"
	"golang-backtest/internal/backtest"
	"golang-backtest/internal/model"
)

// ResultSink records a run and its outcome. Persist is atomic: either every
// row of the result commits together with the completed status, or none does.
type ResultSink interface {
	CreateRun(ctx context.Context, req backtest.Request, hash string) (uint, error)
	Persist(ctx context.Context, runID uint, summary backtest.Summary, trades []backtest.Trade, equity []backtest.EquityPoint, metrics backtest.Metrics) error
	MarkFailed(ctx context.Context, runID uint, message string) error
	GetRun(ctx context.Context, runID uint) (*model.BacktestRun, error)
	GetTrades(ctx context.Context, runID uint) ([]model.BacktestTrade, error)
	GetEquity(ctx context.Context, runID uint) ([]model.BacktestEquityPoint, error)
	GetMetrics(ctx context.Context, runID uint) (*model.BacktestMetric, error)
}

// BacktestRunner executes a single run in memory.
type BacktestRunner interface {
	Run(ctx context.Context, req backtest.Request) (*backtest.Result, error)
}
