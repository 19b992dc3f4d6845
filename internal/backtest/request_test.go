package backtest

import (
	"errors"
	"testing"
	"time"

	"golang-backtest/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_Normalize(t *testing.T) {
	req := baseRequest(" aapl", "MSFT ", "AAPL", "", "msft", "tsla")
	req.StrategyID = " Trend_Breakout "
	req.StartDate = time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC)
	req.UserID = utils.ToPointer(uint(7))

	n := req.Normalize()

	assert.Equal(t, StrategyTrendBreakout, n.StrategyID)
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, n.Universe)
	assert.Equal(t, day0, n.StartDate)
	require.NotNil(t, n.UserID)
	assert.NotSame(t, req.UserID, n.UserID)
	assert.Equal(t, []string{" aapl", "MSFT ", "AAPL", "", "msft", "tsla"}, req.Universe, "input is left untouched")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Request)
		wantErr string
	}{
		{name: "valid", mutate: func(r *Request) {}},
		{name: "unknown strategy", mutate: func(r *Request) { r.StrategyID = "mean_reversion" }, wantErr: "strategy_id"},
		{name: "empty universe", mutate: func(r *Request) { r.Universe = []string{" ", ""} }, wantErr: "universe"},
		{name: "end before start", mutate: func(r *Request) { r.EndDate = r.StartDate.AddDate(0, 0, -1) }, wantErr: "end"},
		{name: "zero capital", mutate: func(r *Request) { r.InitialCapital = 0 }, wantErr: "initial_capital"},
		{name: "risk above 100", mutate: func(r *Request) { r.RiskPerTradePct = 101 }, wantErr: "risk_per_trade_pct"},
		{name: "negative commission", mutate: func(r *Request) { r.CommissionPct = -0.1 }, wantErr: "commission_pct"},
		{name: "negative spread", mutate: func(r *Request) { r.SpreadBps = -1 }, wantErr: "spread_bps"},
		{name: "zero buy lookback", mutate: func(r *Request) { r.BreakoutLookbackBuy = 0 }, wantErr: "breakout_lookback_buy"},
		{name: "zero atr multiplier", mutate: func(r *Request) { r.ATRMultiplier = 0 }, wantErr: "atr_multiplier"},
		{name: "same start and end", mutate: func(r *Request) { r.EndDate = r.StartDate }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest("AAPL")
			tt.mutate(&req)

			_, err := Validate(req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestRequest_Hash(t *testing.T) {
	a := baseRequest("AAPL", "MSFT")
	b := baseRequest(" aapl", "msft", "AAPL")
	b.StrategyID = "TREND_BREAKOUT"
	b.StartDate = b.StartDate.Add(9 * time.Hour)

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	assert.Equal(t, ha, hb, "equivalent requests share a hash")

	tokyo := baseRequest("AAPL", "MSFT")
	tokyo.StartDate = time.Date(2024, time.January, 1, 8, 0, 0, 0, time.FixedZone("JST", 9*3600))
	ht, err := tokyo.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, ha, ht, "a non-UTC start is read as its UTC day")
	n, err := Validate(tokyo)
	require.NoError(t, err)
	assert.Equal(t, utils.StartOfDayUTC(tokyo.StartDate), n.StartDate)
	assert.Equal(t, day0.AddDate(0, 0, -1), n.StartDate)
	assert.Len(t, ha, 64)

	c := baseRequest("MSFT", "AAPL")
	hc, err := c.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc, "universe order is part of the identity")

	d := baseRequest("AAPL", "MSFT")
	d.UserID = utils.ToPointer(uint(1))
	hd, err := d.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, ha, hd)

	raw, err := a.CanonicalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"start":"2024-01-01"`)
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name     string
		err      error
		kind     Kind
		sentinel error
	}{
		{name: "validation", err: NewValidationError("validate", cause), kind: KindValidation, sentinel: ErrValidation},
		{name: "data", err: NewDataUnavailableError("load", cause), kind: KindDataUnavailable, sentinel: ErrDataUnavailable},
		{name: "persistence", err: NewPersistenceError("persist", cause), kind: KindPersistence, sentinel: ErrPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.ErrorIs(t, tt.err, cause)
		})
	}

	assert.Equal(t, KindInternal, KindOf(cause))
	assert.Equal(t, KindInternal, KindOf(nil))
}
