package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

func TestResultName(t *testing.T) {
	t.Run("single symbol", func(t *testing.T) {
		name := ResultName([]eventmodels.StockSymbol{"AAPL"}, "x", t0, time.Time{})
		assert.Equal(t, "AAPL__x__20210104__Now", name)
	})

	t.Run("symbol count", func(t *testing.T) {
		name := ResultName([]eventmodels.StockSymbol{"AAPL", "MSFT", "IBM"}, "rsi", t0, day(30))
		assert.Equal(t, "3__rsi__20210104__20210203", name)
	})

	t.Run("open start", func(t *testing.T) {
		name := ResultName([]eventmodels.StockSymbol{"MSFT"}, "bollinger", time.Time{}, time.Time{})
		assert.Equal(t, "MSFT__bollinger__0__Now", name)
	})
}
