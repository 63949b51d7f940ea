package models

import (
	"time"

	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

// TickRecord is the stored form of a bar in the ticks table.
type TickRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Symbol    string    `gorm:"column:symbol;type:varchar(16);not null;index:idx_ticks_symbol_timestamp,priority:1"`
	Timestamp time.Time `gorm:"column:timestamp;type:timestamptz;not null;index:idx_ticks_symbol_timestamp,priority:2"`
	Open      float64   `gorm:"column:open;type:numeric;not null"`
	High      float64   `gorm:"column:high;type:numeric;not null"`
	Low       float64   `gorm:"column:low;type:numeric;not null"`
	Close     float64   `gorm:"column:close;type:numeric;not null"`
	Volume    float64   `gorm:"column:volume;type:numeric;not null"`
}

func (TickRecord) TableName() string {
	return "ticks"
}

func (r TickRecord) ToTick(tradeType TradeType) Tick {
	return NewTick(eventmodels.NewStockSymbol(r.Symbol), r.Timestamp, r.Open, r.High, r.Low, r.Close, r.Volume, tradeType)
}

func NewTickRecord(tick Tick) TickRecord {
	return TickRecord{
		Symbol:    tick.Symbol.String(),
		Timestamp: tick.Timestamp,
		Open:      tick.Open,
		High:      tick.High,
		Low:       tick.Low,
		Close:     tick.Close,
		Volume:    tick.Volume,
	}
}
