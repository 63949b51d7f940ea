package indicators

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

type BollingerBands struct {
	SmaPeriod         int
	StandardDeviation float64
	prices            []float64
}

type BollingerBandsStats struct {
	Upper         float64
	Lower         float64
	MovingAverage float64
}

// Update adds a price to the rolling window. The bands are only reported once the window holds more than SmaPeriod prices.
func (b *BollingerBands) Update(price float64) (bool, BollingerBandsStats, error) {
	if len(b.prices) < b.SmaPeriod {
		b.prices = append(b.prices, price)
		return false, BollingerBandsStats{}, nil
	}

	b.prices = append(b.prices[1:], price)

	result, err := b.Calculate(b.prices)
	if err != nil {
		return false, BollingerBandsStats{}, err
	}

	return true, result, nil
}

// Calculate computes the bands over prices without touching the rolling window.
func (b *BollingerBands) Calculate(prices []float64) (BollingerBandsStats, error) {
	movingAverage, err := stats.Mean(prices)
	if err != nil {
		return BollingerBandsStats{}, fmt.Errorf("failed to calculate mean: %w", err)
	}

	sd, err := stats.StandardDeviation(prices)
	if err != nil {
		return BollingerBandsStats{}, fmt.Errorf("failed to calculate the standard deviation: %w", err)
	}

	return BollingerBandsStats{
		Upper:         movingAverage + (b.StandardDeviation * sd),
		Lower:         movingAverage - (b.StandardDeviation * sd),
		MovingAverage: movingAverage,
	}, nil
}

func NewBollingerBands(smaPeriod int, standardDeviation float64) *BollingerBands {
	return &BollingerBands{
		SmaPeriod:         smaPeriod,
		StandardDeviation: standardDeviation,
	}
}
