package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

func TestHistory(t *testing.T) {
	symbol := eventmodels.StockSymbol("AAPL")
	start := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)

	newHistory := func(size int, prices ...float64) *History {
		h := NewHistory(size)
		for i, p := range prices {
			h.Append(Tick{Symbol: symbol, Timestamp: start.Add(time.Duration(i) * time.Minute), Price: p})
		}
		return h
	}

	t.Run("window returns latest ticks oldest first", func(t *testing.T) {
		h := newHistory(10, 1, 2, 3, 4)

		assert.Equal(t, []float64{2, 3, 4}, h.Prices(symbol, 3, start.Add(time.Hour)))
	})

	t.Run("window hides ticks after asOf", func(t *testing.T) {
		h := newHistory(10, 1, 2, 3, 4)

		assert.Equal(t, []float64{1, 2}, h.Prices(symbol, 3, start.Add(time.Minute)))

		last, ok := h.Last(symbol, start.Add(2*time.Minute))
		assert.True(t, ok)
		assert.Equal(t, 3.0, last.Price)
	})

	t.Run("window is bounded", func(t *testing.T) {
		h := newHistory(2, 1, 2, 3, 4)

		assert.Equal(t, []float64{3, 4}, h.Prices(symbol, 10, start.Add(time.Hour)))
		assert.Equal(t, 4, h.Count(symbol))
	})

	t.Run("unknown symbol", func(t *testing.T) {
		h := newHistory(2, 1)

		assert.Empty(t, h.Window("MSFT", 3, start))
		_, ok := h.Last("MSFT", start)
		assert.False(t, ok)
	})

	t.Run("default size", func(t *testing.T) {
		assert.Equal(t, DefaultHistorySize, NewHistory(0).Size())
	})
}
