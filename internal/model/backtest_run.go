package model

import (
	"time"

	"gorm.io/datatypes"
)

type BacktestRun struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UserID          *uint          `gorm:"index" json:"user_id"`
	StrategyID      string         `gorm:"type:varchar(64);not null" json:"strategy_id"`
	RequestHash     string         `gorm:"type:char(64);not null;index" json:"request_hash"`
	Params          datatypes.JSON `gorm:"type:jsonb;not null" json:"params"`
	Status          string         `gorm:"type:varchar(16);not null;index" json:"status"`
	ErrorMessage    *string        `gorm:"type:text" json:"error_message,omitempty"`
	StartDate       time.Time      `gorm:"type:date;not null" json:"start_date"`
	EndDate         time.Time      `gorm:"type:date;not null" json:"end_date"`
	InitialCapital  float64        `gorm:"not null" json:"initial_capital"`
	FinalEquity     *float64       `json:"final_equity,omitempty"`
	FinalCash       *float64       `json:"final_cash,omitempty"`
	TotalReturn     *float64       `json:"total_return,omitempty"`
	TotalTrades     int            `gorm:"not null;default:0" json:"total_trades"`
	OpenPositions   int            `gorm:"not null;default:0" json:"open_positions"`
	Bars            int            `gorm:"not null;default:0" json:"bars"`
	RejectedEntries int            `gorm:"not null;default:0" json:"rejected_entries"`
	Symbols         datatypes.JSON `gorm:"type:jsonb" json:"symbols,omitempty"`
	DroppedSymbols  datatypes.JSON `gorm:"type:jsonb" json:"dropped_symbols,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (BacktestRun) TableName() string {
	return "backtest_runs"
}

type GetBacktestRunParam struct {
	UserID *uint   `json:"user_id"`
	Status *string `json:"status"`
	Limit  int     `json:"limit"`
}
