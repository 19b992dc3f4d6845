package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"golang-backtest/internal/backtest"
	"golang-backtest/internal/contract"
	"golang-backtest/internal/model"
	"golang-backtest/pkg/common"
	"golang-backtest/pkg/utils"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const insertBatchSize = 500

// BacktestRepository stores runs and their results. Persist writes every
// result row and the completed status in a single transaction.
type BacktestRepository interface {
	contract.ResultSink
	FindCompletedByHash(ctx context.Context, hash string) (*model.BacktestRun, error)
	List(ctx context.Context, param model.GetBacktestRunParam, opts ...utils.DBOption) ([]model.BacktestRun, error)
}

type backtestRepository struct {
	db  *gorm.DB
	uow UnitOfWork
}

func NewBacktestRepository(db *gorm.DB, uow UnitOfWork) BacktestRepository {
	return &backtestRepository{
		db:  db,
		uow: uow,
	}
}

func (r *backtestRepository) CreateRun(ctx context.Context, req backtest.Request, hash string) (uint, error) {
	params, err := req.CanonicalJSON()
	if err != nil {
		return 0, fmt.Errorf("failed to encode run params: %w", err)
	}

	run := model.BacktestRun{
		UserID:         req.UserID,
		StrategyID:     req.StrategyID,
		RequestHash:    hash,
		Params:         datatypes.JSON(params),
		Status:         common.RUN_STATUS_RUNNING,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		InitialCapital: req.InitialCapital,
	}
	if err := r.db.WithContext(ctx).Create(&run).Error; err != nil {
		return 0, fmt.Errorf("failed to create backtest run: %w", err)
	}
	return run.ID, nil
}

func (r *backtestRepository) Persist(ctx context.Context, runID uint, summary backtest.Summary, trades []backtest.Trade, equity []backtest.EquityPoint, metrics backtest.Metrics) error {
	symbols, err := json.Marshal(summary.Symbols)
	if err != nil {
		return fmt.Errorf("failed to encode symbols: %w", err)
	}
	dropped, err := json.Marshal(summary.DroppedSymbols)
	if err != nil {
		return fmt.Errorf("failed to encode dropped symbols: %w", err)
	}

	return r.uow.Run(ctx, func(opts ...utils.DBOption) error {
		tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)

		// A retried persist replaces whatever an earlier attempt left behind.
		for _, m := range []interface{}{&model.BacktestTrade{}, &model.BacktestEquityPoint{}, &model.BacktestMetric{}} {
			if err := tx.Where("run_id = ?", runID).Delete(m).Error; err != nil {
				return fmt.Errorf("failed to clear previous results: %w", err)
			}
		}

		if rows := toTradeModels(runID, trades); len(rows) > 0 {
			if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert trades: %w", err)
			}
		}
		if rows := toEquityModels(runID, equity); len(rows) > 0 {
			if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert equity points: %w", err)
			}
		}
		metricRow := toMetricModel(runID, metrics)
		if err := tx.Create(&metricRow).Error; err != nil {
			return fmt.Errorf("failed to insert metrics: %w", err)
		}

		now := time.Now().UTC()
		res := tx.Model(&model.BacktestRun{}).Where("id = ?", runID).Updates(map[string]interface{}{
			"status":           common.RUN_STATUS_COMPLETED,
			"error_message":    nil,
			"final_equity":     summary.FinalEquity,
			"final_cash":       summary.FinalCash,
			"total_return":     summary.TotalReturn,
			"total_trades":     summary.TotalTrades,
			"open_positions":   summary.OpenPositions,
			"bars":             summary.Bars,
			"rejected_entries": summary.RejectedEntries,
			"symbols":          datatypes.JSON(symbols),
			"dropped_symbols":  datatypes.JSON(dropped),
			"completed_at":     now,
		})
		if res.Error != nil {
			return fmt.Errorf("failed to complete backtest run: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("backtest run %d: %w", runID, ErrNotFound)
		}
		return nil
	})
}

func (r *backtestRepository) MarkFailed(ctx context.Context, runID uint, message string) error {
	res := r.db.WithContext(ctx).Model(&model.BacktestRun{}).Where("id = ?", runID).Updates(map[string]interface{}{
		"status":        common.RUN_STATUS_FAILED,
		"error_message": message,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to mark backtest run failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("backtest run %d: %w", runID, ErrNotFound)
	}
	return nil
}

func (r *backtestRepository) GetRun(ctx context.Context, runID uint) (*model.BacktestRun, error) {
	var run model.BacktestRun
	if err := r.db.WithContext(ctx).First(&run, runID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("backtest run %d: %w", runID, ErrNotFound)
		}
		return nil, err
	}
	return &run, nil
}

func (r *backtestRepository) GetTrades(ctx context.Context, runID uint) ([]model.BacktestTrade, error) {
	var trades []model.BacktestTrade
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).Order("seq ASC").Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

func (r *backtestRepository) GetEquity(ctx context.Context, runID uint) ([]model.BacktestEquityPoint, error) {
	var points []model.BacktestEquityPoint
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).Order("date ASC").Find(&points).Error; err != nil {
		return nil, err
	}
	return points, nil
}

func (r *backtestRepository) GetMetrics(ctx context.Context, runID uint) (*model.BacktestMetric, error) {
	var metric model.BacktestMetric
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&metric).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("metrics of backtest run %d: %w", runID, ErrNotFound)
		}
		return nil, err
	}
	return &metric, nil
}

// FindCompletedByHash returns the latest completed run with hash, or nil when there is none.
func (r *backtestRepository) FindCompletedByHash(ctx context.Context, hash string) (*model.BacktestRun, error) {
	var runs []model.BacktestRun
	err := r.db.WithContext(ctx).
		Where("request_hash = ? AND status = ?", hash, common.RUN_STATUS_COMPLETED).
		Order("id DESC").
		Limit(1).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

func (r *backtestRepository) List(ctx context.Context, param model.GetBacktestRunParam, opts ...utils.DBOption) ([]model.BacktestRun, error) {
	var runs []model.BacktestRun
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	if param.UserID != nil {
		db = db.Where("user_id = ?", *param.UserID)
	}
	if param.Status != nil {
		db = db.Where("status = ?", *param.Status)
	}
	db = utils.WithLimit(param.Limit)(db)
	if err := db.Order("id DESC").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func toTradeModels(runID uint, trades []backtest.Trade) []model.BacktestTrade {
	rows := make([]model.BacktestTrade, 0, len(trades))
	for i, t := range trades {
		rows = append(rows, model.BacktestTrade{
			RunID:      runID,
			Seq:        i + 1,
			Symbol:     t.Symbol,
			EntryDate:  t.EntryDate,
			EntryPrice: t.EntryPrice,
			ExitDate:   t.ExitDate,
			ExitPrice:  t.ExitPrice,
			Qty:        t.Qty,
			PnLGross:   t.PnLGross,
			Costs:      t.Costs,
			PnLNet:     t.PnLNet,
			ExitReason: string(t.ExitReason),
		})
	}
	return rows
}

func toEquityModels(runID uint, equity []backtest.EquityPoint) []model.BacktestEquityPoint {
	rows := make([]model.BacktestEquityPoint, 0, len(equity))
	for _, p := range equity {
		rows = append(rows, model.BacktestEquityPoint{
			RunID:  runID,
			Date:   p.Date,
			Equity: p.Equity,
		})
	}
	return rows
}

func toMetricModel(runID uint, m backtest.Metrics) model.BacktestMetric {
	return model.BacktestMetric{
		RunID:         runID,
		CAGR:          m.CAGR,
		MaxDrawdown:   m.MaxDrawdown,
		Sharpe:        m.Sharpe,
		Sortino:       m.Sortino,
		WinRate:       m.WinRate,
		ProfitFactor:  m.ProfitFactor,
		Expectancy:    m.Expectancy,
		Exposure:      m.Exposure,
		TotalTrades:   m.TotalTrades,
		WinningTrades: m.WinningTrades,
		LosingTrades:  m.LosingTrades,
	}
}
