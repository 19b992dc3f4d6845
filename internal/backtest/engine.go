package backtest

import (
	"context"
	"fmt"
	"time"

	"golang-backtest/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const defaultLoadConcurrency = 4

// Summary is the headline of a run, persisted next to the detailed rows.
type Summary struct {
	StrategyID      string    `json:"strategy_id"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	InitialCapital  float64   `json:"initial_capital"`
	FinalEquity     float64   `json:"final_equity"`
	FinalCash       float64   `json:"final_cash"`
	TotalReturn     float64   `json:"total_return"`
	TotalTrades     int       `json:"total_trades"`
	OpenPositions   int       `json:"open_positions"`
	Bars            int       `json:"bars"`
	RejectedEntries int       `json:"rejected_entries"`
	Symbols         []string  `json:"symbols"`
	DroppedSymbols  []string  `json:"dropped_symbols"`
}

// Result holds everything a run produced. It stays valid when persisting it fails.
type Result struct {
	Request       Request       `json:"request"`
	Hash          string        `json:"hash"`
	Summary       Summary       `json:"summary"`
	Trades        []Trade       `json:"trades"`
	Equity        []EquityPoint `json:"equity"`
	Metrics       Metrics       `json:"metrics"`
	OpenPositions []Position    `json:"open_positions"`
}

type Option func(*Engine)

// WithLoadConcurrency bounds the number of series fetched at once.
func WithLoadConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.loadConcurrency = n
		}
	}
}

// Engine runs backtests against a price source. It keeps no per-run state, so
// one Engine may serve concurrent runs.
type Engine struct {
	source          PriceSeriesSource
	log             *logger.Logger
	loadConcurrency int
}

func NewEngine(source PriceSeriesSource, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		source:          source,
		log:             log,
		loadConcurrency: defaultLoadConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run validates req, loads every series, then simulates bar by bar. ctx only
// bounds loading; once the loop has started no I/O happens and the run
// completes.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	valid, err := Validate(req)
	if err != nil {
		return nil, err
	}
	hash, err := valid.Hash()
	if err != nil {
		return nil, NewValidationError("hash", err)
	}

	series, dropped, err := e.LoadSeries(ctx, valid)
	if err != nil {
		return nil, err
	}
	if len(dropped) > 0 {
		e.log.InfoContext(ctx, "Dropped symbols without price data",
			logger.StringField("hash", hash),
			logger.Field("symbols", dropped),
		)
	}

	timeline := BuildTimeline(series)
	sim := NewSimulator(valid, series)
	sim.Run(timeline)

	result := buildResult(valid, hash, series, dropped, timeline, sim)
	e.log.DebugContext(ctx, "Backtest entries rejected",
		logger.StringField("hash", hash),
		logger.IntField("rejected_entries", sim.RejectedEntries()),
	)
	e.log.InfoContext(ctx, "Backtest simulation completed",
		logger.StringField("hash", hash),
		logger.IntField("bars", len(timeline)),
		logger.IntField("total_trades", len(result.Trades)),
		logger.Float64Field("final_equity", result.Summary.FinalEquity),
	)
	return result, nil
}

// LoadSeries fetches the series of every universe symbol. The returned series
// keep universe order; symbols without bars are reported as dropped.
func (e *Engine) LoadSeries(ctx context.Context, req Request) ([]Series, []string, error) {
	loaded := make([]Series, len(req.Universe))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.loadConcurrency)
	for i, symbol := range req.Universe {
		g.Go(func() error {
			s, err := e.source.GetSeries(gctx, symbol, req.StartDate, req.EndDate)
			if err != nil {
				return fmt.Errorf("failed to load series for %s: %w", symbol, err)
			}
			loaded[i] = NormalizeSeries(symbol, s.Bars, req.StartDate, req.EndDate)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		series  []Series
		dropped []string
	)
	for i, s := range loaded {
		if s.Len() == 0 {
			dropped = append(dropped, req.Universe[i])
			continue
		}
		series = append(series, s)
	}
	if len(series) == 0 {
		return nil, dropped, NewDataUnavailableError("load series",
			fmt.Errorf("%w for %v between %s and %s", ErrDataUnavailable, req.Universe,
				req.StartDate.Format(DateLayout), req.EndDate.Format(DateLayout)))
	}
	return series, dropped, nil
}

func buildResult(req Request, hash string, series []Series, dropped []string, timeline []time.Time, sim *Simulator) *Result {
	trades := sim.Trades()
	equity := sim.Equity()
	open := sim.OpenPositions()

	symbols := make([]string, 0, len(series))
	for _, s := range series {
		symbols = append(symbols, s.Symbol)
	}

	finalEquity := req.InitialCapital
	if n := len(equity); n > 0 {
		finalEquity = equity[n-1].Equity
	}

	return &Result{
		Request: req,
		Hash:    hash,
		Summary: Summary{
			StrategyID:      req.StrategyID,
			StartDate:       req.StartDate,
			EndDate:         req.EndDate,
			InitialCapital:  req.InitialCapital,
			FinalEquity:     finalEquity,
			FinalCash:       sim.Cash(),
			TotalReturn:     finalEquity/req.InitialCapital - 1,
			TotalTrades:     len(trades),
			OpenPositions:   len(open),
			Bars:            len(timeline),
			RejectedEntries: sim.RejectedEntries(),
			Symbols:         symbols,
			DroppedSymbols:  dropped,
		},
		Trades:        trades,
		Equity:        equity,
		Metrics:       ComputeMetrics(req.InitialCapital, trades, equity, sim.ExposedBars()),
		OpenPositions: open,
	}
}
