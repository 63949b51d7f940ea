package strategies

import (
	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

// BuyAndHold buys an equal share of every symbol on its first tick and never sells.
type BuyAndHold struct {
	params Params
	bought map[eventmodels.StockSymbol]bool
}

func (s *BuyAndHold) Update(tick models.Tick) (*models.Action, error) {
	if s.bought[tick.Symbol] {
		return nil, nil
	}

	action, err := allocate(s.params, tick)
	if err != nil {
		return nil, err
	}

	if action != nil {
		s.bought[tick.Symbol] = true
	}

	return action, nil
}

func NewBuyAndHold(params Params) (Strategy, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	return &BuyAndHold{
		params: params,
		bought: make(map[eventmodels.StockSymbol]bool),
	}, nil
}
