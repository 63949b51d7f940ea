package models

import "github.com/jiaming2012/tick-backtester/src/eventmodels"

// Balance is a read-only view of an account's cash and holdings.
type Balance struct {
	InitialCash float64
	Cash        float64
	Holdings    Holdings
}

func (b Balance) Quantity(symbol eventmodels.StockSymbol) float64 {
	return b.Holdings[symbol]
}
