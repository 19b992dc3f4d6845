package repository

import (
	"context"
	"fmt"
	"golang-backtest/internal/backtest"
	"golang-backtest/internal/model"
	"golang-backtest/pkg/utils"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PriceBarRepository interface {
	GetSeries(ctx context.Context, symbol string, start, end time.Time) (backtest.Series, error)
	Upsert(ctx context.Context, bars []model.PriceBar, opts ...utils.DBOption) error
}

type priceBarRepository struct {
	db *gorm.DB
}

func NewPriceBarRepository(db *gorm.DB) PriceBarRepository {
	return &priceBarRepository{db: db}
}

func (r *priceBarRepository) GetSeries(ctx context.Context, symbol string, start, end time.Time) (backtest.Series, error) {
	var rows []model.PriceBar
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND date >= ? AND date <= ?", symbol, utils.StartOfDayUTC(start), utils.EndOfDayUTC(end)).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return backtest.Series{}, fmt.Errorf("failed to query price bars for %s: %w", symbol, err)
	}

	bars := make([]backtest.PriceBar, 0, len(rows))
	for _, row := range rows {
		bars = append(bars, backtest.PriceBar{
			Symbol: row.Symbol,
			Date:   row.Date,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}
	return backtest.Series{Symbol: symbol, Bars: bars}, nil
}

// Upsert inserts bars, overwriting prices already stored for the same symbol and date.
func (r *priceBarRepository) Upsert(ctx context.Context, bars []model.PriceBar, opts ...utils.DBOption) error {
	if len(bars) == 0 {
		return nil
	}
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "source", "updated_at"}),
		}).
		CreateInBatches(bars, insertBatchSize).Error
}
