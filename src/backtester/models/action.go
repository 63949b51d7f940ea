package models

import (
	"fmt"
	"time"

	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

// Action is a strategy decision derived from a single tick.
type Action struct {
	Symbol     eventmodels.StockSymbol
	Side       OrderSide
	Quantity   float64
	Timestamp  time.Time
	IsBacktest bool
}

// IsEmpty reports whether the action requires no execution.
func (a *Action) IsEmpty() bool {
	return a == nil || a.Side == OrderSideHold
}

func (a *Action) Validate() error {
	if !a.Side.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidOrderSide, a.Side)
	}

	if a.Side != OrderSideHold && a.Quantity <= 0 {
		return ErrInvalidOrderVolumeZero
	}

	return nil
}

func (a Action) String() string {
	return fmt.Sprintf("%s %.4f %s @ %s", a.Side, a.Quantity, a.Symbol, a.Timestamp.Format(time.RFC3339))
}

func NewBuyAction(symbol eventmodels.StockSymbol, quantity float64, timestamp time.Time) *Action {
	return &Action{Symbol: symbol, Side: OrderSideBuy, Quantity: quantity, Timestamp: timestamp}
}

func NewSellAction(symbol eventmodels.StockSymbol, quantity float64, timestamp time.Time) *Action {
	return &Action{Symbol: symbol, Side: OrderSideSell, Quantity: quantity, Timestamp: timestamp}
}
