package dto

import (
	"golang-backtest/internal/backtest"
	"golang-backtest/pkg/utils"
)

// BacktestRequest is the JSON body of a run request.
type BacktestRequest struct {
	StrategyID           string   `json:"strategy_id" validate:"required"`
	Universe             []string `json:"universe" validate:"required,min=1,dive,required"`
	Start                string   `json:"start" validate:"required,datetime=2006-01-02"`
	End                  string   `json:"end" validate:"required,datetime=2006-01-02"`
	InitialCapital       float64  `json:"initial_capital" validate:"gt=0"`
	RiskPerTradePct      float64  `json:"risk_per_trade_pct" validate:"gt=0,lte=100"`
	CommissionPct        float64  `json:"commission_pct" validate:"gte=0"`
	MinFee               float64  `json:"min_fee" validate:"gte=0"`
	SlippageBps          float64  `json:"slippage_bps" validate:"gte=0"`
	SpreadBps            float64  `json:"spread_bps" validate:"gte=0"`
	BreakoutLookbackBuy  int      `json:"breakout_lookback_buy" validate:"min=1"`
	BreakoutLookbackSell int      `json:"breakout_lookback_sell" validate:"min=1"`
	ATRMultiplier        float64  `json:"atr_multiplier" validate:"gt=0"`
	UserID               *uint    `json:"user_id,omitempty"`
}

// ToEngineRequest parses the dates and maps the body onto the engine request.
func (r BacktestRequest) ToEngineRequest() (backtest.Request, error) {
	start, err := utils.ParseDate(r.Start)
	if err != nil {
		return backtest.Request{}, backtest.NewValidationError("parse start", err)
	}
	end, err := utils.ParseDate(r.End)
	if err != nil {
		return backtest.Request{}, backtest.NewValidationError("parse end", err)
	}
	return backtest.Request{
		StrategyID:           r.StrategyID,
		Universe:             append([]string(nil), r.Universe...),
		StartDate:            start,
		EndDate:              end,
		InitialCapital:       r.InitialCapital,
		RiskPerTradePct:      r.RiskPerTradePct,
		CommissionPct:        r.CommissionPct,
		MinFee:               r.MinFee,
		SlippageBps:          r.SlippageBps,
		SpreadBps:            r.SpreadBps,
		BreakoutLookbackBuy:  r.BreakoutLookbackBuy,
		BreakoutLookbackSell: r.BreakoutLookbackSell,
		ATRMultiplier:        r.ATRMultiplier,
		UserID:               r.UserID,
	}, nil
}

type BacktestRunResponse struct {
	RunID         uint                `json:"run_id"`
	Hash          string              `json:"hash"`
	Status        string              `json:"status"`
	Reused        bool                `json:"reused"`
	Summary       *backtest.Summary   `json:"summary,omitempty"`
	Metrics       *backtest.Metrics   `json:"metrics,omitempty"`
	OpenPositions []backtest.Position `json:"open_positions,omitempty"`
	Trades        []backtest.Trade    `json:"trades,omitempty"`
}

// ListBacktestRunsParam filters the run listing. A zero UserID lists every user.
type ListBacktestRunsParam struct {
	UserID uint   `query:"user_id"`
	Status string `query:"status" validate:"omitempty,oneof=running completed failed"`
	Limit  int    `query:"limit" validate:"gte=0,lte=500"`
}
