package service

import (
	"context"
	"golang-backtest/config"
	"golang-backtest/internal/backtest"
	"golang-backtest/internal/contract"
	"golang-backtest/internal/model"
	"golang-backtest/internal/repository"
	"golang-backtest/pkg/common"
	"golang-backtest/pkg/logger"
	"golang-backtest/pkg/utils"

	"golang.org/x/sync/semaphore"
)

// RunOutcome is what a run request produced. Exactly one of Result and
// Existing is set: Existing when a completed run with the same hash was reused.
type RunOutcome struct {
	RunID    uint
	Hash     string
	Status   string
	Reused   bool
	Result   *backtest.Result
	Existing *model.BacktestRun
}

// BacktestService mendefinisikan interface untuk layanan backtesting.
type BacktestService interface {
	Run(ctx context.Context, req backtest.Request) (*RunOutcome, error)
	RetryPersist(ctx context.Context, runID uint, result *backtest.Result) error
	GetRun(ctx context.Context, runID uint) (*model.BacktestRun, error)
	GetTrades(ctx context.Context, runID uint) ([]model.BacktestTrade, error)
	GetEquity(ctx context.Context, runID uint) ([]model.BacktestEquityPoint, error)
	GetMetrics(ctx context.Context, runID uint) (*model.BacktestMetric, error)
	ListRuns(ctx context.Context, param model.GetBacktestRunParam) ([]model.BacktestRun, error)
}

type backtestService struct {
	cfg    *config.Config
	log    *logger.Logger
	runner contract.BacktestRunner
	repo   repository.BacktestRepository
	slots  *semaphore.Weighted
}

// NewBacktestService membuat instance baru dari backtestService.
func NewBacktestService(
	cfg *config.Config,
	log *logger.Logger,
	runner contract.BacktestRunner,
	repo repository.BacktestRepository,
) BacktestService {
	maxRuns := cfg.Backtest.MaxConcurrentRuns
	if maxRuns <= 0 {
		maxRuns = 1
	}
	return &backtestService{
		cfg:    cfg,
		log:    log,
		runner: runner,
		repo:   repo,
		slots:  semaphore.NewWeighted(int64(maxRuns)),
	}
}

// Run validates req, records the run, simulates it and persists the result.
// When persisting fails the in-memory result is still returned together with
// a persistence error so the caller can retry with RetryPersist.
func (s *backtestService) Run(ctx context.Context, req backtest.Request) (*RunOutcome, error) {
	valid, err := backtest.Validate(req)
	if err != nil {
		s.log.InfoContext(ctx, "Rejected backtest request", logger.ErrorField(err))
		return nil, err
	}
	hash, err := valid.Hash()
	if err != nil {
		return nil, backtest.NewValidationError("hash", err)
	}

	if s.cfg.Backtest.ReuseCompletedRuns {
		existing, err := s.repo.FindCompletedByHash(ctx, hash)
		if err != nil {
			s.log.WarnContext(ctx, "Failed to look up completed run, running again", logger.ErrorField(err), logger.StringField("hash", hash))
		} else if existing != nil {
			s.log.InfoContext(ctx, "Reusing completed backtest run", logger.UintField("run_id", existing.ID), logger.StringField("hash", hash))
			return &RunOutcome{RunID: existing.ID, Hash: hash, Status: existing.Status, Reused: true, Existing: existing}, nil
		}
	}

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.slots.Release(1)
	if !utils.ShouldContinue(ctx, s.log) {
		return nil, ctx.Err()
	}

	runID, err := s.repo.CreateRun(ctx, valid, hash)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to create backtest run", logger.ErrorField(err), logger.StringField("hash", hash))
		return nil, backtest.NewPersistenceError("create run", err)
	}
	ctx = logger.NewContext(ctx, s.log.With(logger.UintField("run_id", runID), logger.StringField("hash", hash)))
	s.log.InfoContext(ctx, "Backtest run started", logger.Field("universe", valid.Universe))

	result, err := s.runner.Run(ctx, valid)
	if err != nil {
		s.log.WarnContext(ctx, "Backtest run failed", logger.ErrorField(err), logger.StringField("kind", string(backtest.KindOf(err))))
		s.markFailed(ctx, runID, err)
		return nil, err
	}

	outcome := &RunOutcome{RunID: runID, Hash: hash, Status: common.RUN_STATUS_COMPLETED, Result: result}
	if err := s.persist(ctx, runID, result); err != nil {
		outcome.Status = common.RUN_STATUS_FAILED
		s.markFailed(ctx, runID, err)
		return outcome, err
	}
	return outcome, nil
}

func (s *backtestService) RetryPersist(ctx context.Context, runID uint, result *backtest.Result) error {
	if result == nil {
		return backtest.NewValidationError("retry persist", backtest.ErrValidation)
	}
	if err := s.persist(ctx, runID, result); err != nil {
		s.markFailed(ctx, runID, err)
		return err
	}
	return nil
}

func (s *backtestService) persist(ctx context.Context, runID uint, result *backtest.Result) error {
	err := s.repo.Persist(ctx, runID, result.Summary, result.Trades, result.Equity, result.Metrics)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to persist backtest result", logger.ErrorField(err))
		return backtest.NewPersistenceError("persist", err)
	}
	s.log.InfoContext(ctx, "Backtest result persisted",
		logger.IntField("total_trades", len(result.Trades)),
		logger.IntField("equity_points", len(result.Equity)),
	)
	return nil
}

func (s *backtestService) markFailed(ctx context.Context, runID uint, cause error) {
	msg := utils.TruncateRunes(cause.Error(), s.cfg.Backtest.FailureMessageMaxLen)
	if err := s.repo.MarkFailed(ctx, runID, msg); err != nil {
		s.log.ErrorContext(ctx, "Failed to mark backtest run as failed", logger.ErrorField(err))
	}
}

func (s *backtestService) GetRun(ctx context.Context, runID uint) (*model.BacktestRun, error) {
	return s.repo.GetRun(ctx, runID)
}

func (s *backtestService) GetTrades(ctx context.Context, runID uint) ([]model.BacktestTrade, error) {
	if _, err := s.repo.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.repo.GetTrades(ctx, runID)
}

func (s *backtestService) GetEquity(ctx context.Context, runID uint) ([]model.BacktestEquityPoint, error) {
	if _, err := s.repo.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.repo.GetEquity(ctx, runID)
}

func (s *backtestService) GetMetrics(ctx context.Context, runID uint) (*model.BacktestMetric, error) {
	return s.repo.GetMetrics(ctx, runID)
}

func (s *backtestService) ListRuns(ctx context.Context, param model.GetBacktestRunParam) ([]model.BacktestRun, error) {
	if param.Limit <= 0 {
		param.Limit = s.cfg.API.DefaultListLimit
	}
	return s.repo.List(ctx, param)
}
