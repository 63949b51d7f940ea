package indicators

import (
	"math"
)

// Rsi is Wilder's relative strength index over a stream of prices.
//
// The first reading seeds the average gain and loss with the plain mean of the
// first Period price changes. Every later change is folded in with Wilder
// smoothing, avg = (avg*(Period-1) + change) / Period, so no price window is kept.
type Rsi struct {
	Period int

	last    float64
	seen    int
	avgGain float64
	avgLoss float64
}

// Ready reports whether Update has produced a reading.
func (r *Rsi) Ready() bool {
	return r.seen > r.Period
}

// Update adds a price and returns the current RSI, or 0 until Period+1 prices have been seen.
// A stream with no losses reads as an RS of 100. One with no gains reads 0.
func (r *Rsi) Update(price float64) float64 {
	r.seen++

	delta := price - r.last
	r.last = price
	if r.seen == 1 {
		return 0
	}

	gain := math.Max(delta, 0)
	loss := math.Max(-delta, 0)
	n := float64(r.Period)

	if r.seen <= r.Period+1 {
		r.avgGain += gain / n
		r.avgLoss += loss / n
		if r.seen <= r.Period {
			return 0
		}
	} else {
		r.avgGain = (r.avgGain*(n-1) + gain) / n
		r.avgLoss = (r.avgLoss*(n-1) + loss) / n
	}

	return r.value()
}

func (r *Rsi) value() float64 {
	rs := 100.0
	if r.avgLoss != 0 {
		rs = r.avgGain / r.avgLoss
	}

	if rs == 0 {
		return 0
	}

	return 100 - (100 / (1 + rs))
}

// NewRsi returns an Rsi over period price changes.
func NewRsi(period int) *Rsi {
	return &Rsi{
		Period: period,
	}
}
