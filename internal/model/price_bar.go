package model

import "time"

// PriceBar is a stored daily bar. Missing prices stay NULL.
type PriceBar struct {
	Symbol    string    `gorm:"primaryKey;type:varchar(32)" json:"symbol"`
	Date      time.Time `gorm:"primaryKey;type:date" json:"date"`
	Open      *float64  `json:"open"`
	High      *float64  `json:"high"`
	Low       *float64  `json:"low"`
	Close     *float64  `json:"close"`
	Volume    int64     `gorm:"not null;default:0" json:"volume"`
	Source    string    `gorm:"type:varchar(16);not null" json:"source"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PriceBar) TableName() string {
	return "price_bars"
}
