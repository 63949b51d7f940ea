package strategies

import (
	"fmt"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/indicators"
)

// Bollinger buys when the price closes below the lower band and sells the position above the upper band.
// Bands are computed over the history window that ends at the current tick.
type Bollinger struct {
	params Params
	period int
	bands  *indicators.BollingerBands
}

func (s *Bollinger) Update(tick models.Tick) (*models.Action, error) {
	prices := s.params.History.Prices(tick.Symbol, s.period, tick.Timestamp)
	if len(prices) < s.period {
		return nil, nil
	}

	stats, err := s.bands.Calculate(prices)
	if err != nil {
		return nil, fmt.Errorf("Bollinger.Update: %w", err)
	}

	held, err := holds(s.params, tick.Symbol)
	if err != nil {
		return nil, err
	}

	switch {
	case !held && tick.Price < stats.Lower:
		return allocate(s.params, tick)
	case held && tick.Price > stats.Upper:
		return liquidate(s.params, tick)
	}

	return nil, nil
}

func NewBollinger(params Params) (Strategy, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	if params.History == nil {
		return nil, ErrNoHistory
	}

	period := params.Int("period", 20)
	width := params.Float("width", 2)

	if period < 2 || period > params.History.Size() {
		return nil, fmt.Errorf("%w: period %d must be between 2 and the history size %d", ErrInvalidParam, period, params.History.Size())
	}

	if width <= 0 {
		return nil, fmt.Errorf("%w: width must be positive", ErrInvalidParam)
	}

	return &Bollinger{
		params: params,
		period: period,
		bands:  indicators.NewBollingerBands(period, width),
	}, nil
}
