package models

import (
	"fmt"
	"time"

	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

// Tick is one market observation for a symbol. It is passed by value and never mutated.
type Tick struct {
	Symbol    eventmodels.StockSymbol
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	// Price is the tradable price picked by the trade type.
	Price float64
}

// Before orders ticks by timestamp, then symbol.
func (t Tick) Before(other Tick) bool {
	if !t.Timestamp.Equal(other.Timestamp) {
		return t.Timestamp.Before(other.Timestamp)
	}

	return t.Symbol < other.Symbol
}

func (t Tick) String() string {
	return fmt.Sprintf("%s@%s price=%.4f volume=%.0f", t.Symbol, t.Timestamp.Format(time.RFC3339), t.Price, t.Volume)
}

func NewTick(symbol eventmodels.StockSymbol, timestamp time.Time, open, high, low, close, volume float64, tradeType TradeType) Tick {
	price := close
	if tradeType == TradeTypeOpen {
		price = open
	}

	return Tick{
		Symbol:    symbol,
		Timestamp: timestamp,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
		Price:     price,
	}
}

// Within reports whether the tick falls inside [start, end]. A zero bound is open.
// An end at midnight in its own location covers that whole day.
func (t Tick) Within(start, end time.Time) bool {
	if !start.IsZero() && t.Timestamp.Before(start) {
		return false
	}

	if end.IsZero() {
		return true
	}

	if end.Hour() == 0 && end.Minute() == 0 && end.Second() == 0 && end.Nanosecond() == 0 {
		return t.Timestamp.Before(end.AddDate(0, 0, 1))
	}

	return !t.Timestamp.After(end)
}
