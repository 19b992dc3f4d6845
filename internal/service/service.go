package service

import (
	"golang-backtest/config"
	"golang-backtest/internal/backtest"
	"golang-backtest/internal/repository"
	"golang-backtest/pkg/logger"
)

type Service struct {
	BacktestService BacktestService
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
) *Service {
	engine := backtest.NewEngine(repo.PriceSeriesRepo, log, backtest.WithLoadConcurrency(cfg.Backtest.LoadConcurrency))
	return &Service{
		BacktestService: NewBacktestService(cfg, log, engine, repo.BacktestRepo),
	}
}
