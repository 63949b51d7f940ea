package models

import (
	"fmt"
	"time"

	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

// Order is a filled action recorded in an account's order history.
type Order struct {
	ID         uint
	Symbol     eventmodels.StockSymbol
	Side       OrderSide
	Quantity   float64
	Price      float64
	Timestamp  time.Time
	IsBacktest bool
}

func (o *Order) Value() float64 {
	return o.Price * o.Quantity
}

func (o *Order) String() string {
	return fmt.Sprintf("order #%d: %s %.4f %s @ %.4f (%s)", o.ID, o.Side, o.Quantity, o.Symbol, o.Price, o.Timestamp.Format(time.RFC3339))
}
