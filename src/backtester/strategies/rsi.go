package strategies

import (
	"fmt"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/eventmodels"
	"github.com/jiaming2012/tick-backtester/src/indicators"
)

// RsiStrategy buys oversold symbols and sells them once overbought.
type RsiStrategy struct {
	params     Params
	period     int
	oversold   float64
	overbought float64
	rsi        map[eventmodels.StockSymbol]*indicators.Rsi
}

func (s *RsiStrategy) Update(tick models.Tick) (*models.Action, error) {
	rsi, ok := s.rsi[tick.Symbol]
	if !ok {
		rsi = indicators.NewRsi(s.period)
		s.rsi[tick.Symbol] = rsi
	}

	value := rsi.Update(tick.Price)
	if !rsi.Ready() {
		return nil, nil
	}

	held, err := holds(s.params, tick.Symbol)
	if err != nil {
		return nil, err
	}

	switch {
	case !held && value < s.oversold:
		return allocate(s.params, tick)
	case held && value > s.overbought:
		return liquidate(s.params, tick)
	}

	return nil, nil
}

func NewRsiStrategy(params Params) (Strategy, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	period := params.Int("period", 14)
	oversold := params.Float("oversold", 30)
	overbought := params.Float("overbought", 70)

	if period < 1 {
		return nil, fmt.Errorf("%w: period must be positive", ErrInvalidParam)
	}

	if oversold >= overbought {
		return nil, fmt.Errorf("%w: oversold %.2f must be below overbought %.2f", ErrInvalidParam, oversold, overbought)
	}

	return &RsiStrategy{
		params:     params,
		period:     period,
		oversold:   oversold,
		overbought: overbought,
		rsi:        make(map[eventmodels.StockSymbol]*indicators.Rsi),
	}, nil
}
