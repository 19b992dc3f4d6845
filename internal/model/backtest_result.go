package model

import "time"

type BacktestTrade struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RunID      uint      `gorm:"not null;index" json:"run_id"`
	Seq        int       `gorm:"not null" json:"seq"`
	Symbol     string    `gorm:"type:varchar(32);not null" json:"symbol"`
	EntryDate  time.Time `gorm:"type:date;not null" json:"entry_date"`
	EntryPrice float64   `gorm:"not null" json:"entry_price"`
	ExitDate   time.Time `gorm:"type:date;not null" json:"exit_date"`
	ExitPrice  float64   `gorm:"not null" json:"exit_price"`
	Qty        int64     `gorm:"not null" json:"qty"`
	PnLGross   float64   `gorm:"column:pnl_gross;not null" json:"pnl_gross"`
	Costs      float64   `gorm:"not null" json:"costs"`
	PnLNet     float64   `gorm:"column:pnl_net;not null" json:"pnl_net"`
	ExitReason string    `gorm:"type:varchar(16);not null" json:"exit_reason"`
}

func (BacktestTrade) TableName() string {
	return "backtest_trades"
}

type BacktestEquityPoint struct {
	ID     uint      `gorm:"primaryKey" json:"-"`
	RunID  uint      `gorm:"not null;index" json:"run_id"`
	Date   time.Time `gorm:"type:date;not null" json:"date"`
	Equity float64   `gorm:"not null" json:"equity"`
}

func (BacktestEquityPoint) TableName() string {
	return "backtest_equity_points"
}

type BacktestMetric struct {
	RunID         uint      `gorm:"primaryKey" json:"run_id"`
	CAGR          float64   `gorm:"column:cagr;not null" json:"cagr"`
	MaxDrawdown   float64   `gorm:"not null" json:"max_drawdown"`
	Sharpe        float64   `gorm:"not null" json:"sharpe"`
	Sortino       float64   `gorm:"not null" json:"sortino"`
	WinRate       float64   `gorm:"not null" json:"win_rate"`
	ProfitFactor  float64   `gorm:"not null" json:"profit_factor"`
	Expectancy    float64   `gorm:"not null" json:"expectancy"`
	Exposure      float64   `gorm:"not null" json:"exposure"`
	TotalTrades   int       `gorm:"not null" json:"total_trades"`
	WinningTrades int       `gorm:"not null" json:"winning_trades"`
	LosingTrades  int       `gorm:"not null" json:"losing_trades"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (BacktestMetric) TableName() string {
	return "backtest_metrics"
}
