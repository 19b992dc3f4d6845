package repository

import (
	"errors"
	"golang-backtest/config"
	"golang-backtest/pkg/cache"
	"golang-backtest/pkg/logger"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

type Repository struct {
	BacktestRepo     BacktestRepository
	PriceBarRepo     PriceBarRepository
	YahooFinanceRepo YahooFinanceRepository
	PriceSeriesRepo  PriceSeriesRepository
	UnitOfWork       UnitOfWork
}

func NewRepository(cfg *config.Config, inmemoryCache cache.Cache, db *gorm.DB, log *logger.Logger) *Repository {
	uow := NewUnitOfWork(db)
	priceBarRepo := NewPriceBarRepository(db)

	var yahooRepo YahooFinanceRepository
	if cfg.YahooFinance.Enabled {
		yahooRepo = NewYahooFinanceRepository(cfg, log)
	}

	return &Repository{
		BacktestRepo:     NewBacktestRepository(db, uow),
		PriceBarRepo:     priceBarRepo,
		YahooFinanceRepo: yahooRepo,
		PriceSeriesRepo:  NewPriceSeriesRepository(cfg, log, inmemoryCache, priceBarRepo, yahooRepo),
		UnitOfWork:       uow,
	}
}
