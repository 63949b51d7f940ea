package models

import (
	"sync"
	"time"

	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

const DefaultHistorySize = 500

// History keeps the most recent ticks per symbol for strategy lookbacks.
// The feeder appends while the engine worker reads, so access is synchronized.
type History struct {
	mutex  sync.RWMutex
	size   int
	ticks  map[eventmodels.StockSymbol][]Tick
	counts map[eventmodels.StockSymbol]int
}

func (h *History) Append(tick Tick) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	ticks := append(h.ticks[tick.Symbol], tick)
	if len(ticks) > h.size {
		ticks = ticks[len(ticks)-h.size:]
	}

	h.ticks[tick.Symbol] = ticks
	h.counts[tick.Symbol]++
}

// Window returns up to n of the latest ticks for symbol with a timestamp at or before asOf, oldest first.
// Ticks appended after asOf are invisible, so a lookback never sees the future.
func (h *History) Window(symbol eventmodels.StockSymbol, n int, asOf time.Time) []Tick {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	ticks := h.ticks[symbol]

	end := len(ticks)
	for end > 0 && ticks[end-1].Timestamp.After(asOf) {
		end--
	}

	start := end - n
	if start < 0 {
		start = 0
	}

	result := make([]Tick, end-start)
	copy(result, ticks[start:end])

	return result
}

// Prices is Window reduced to tick prices.
func (h *History) Prices(symbol eventmodels.StockSymbol, n int, asOf time.Time) []float64 {
	window := h.Window(symbol, n, asOf)

	prices := make([]float64, len(window))
	for i, tick := range window {
		prices[i] = tick.Price
	}

	return prices
}

func (h *History) Last(symbol eventmodels.StockSymbol, asOf time.Time) (Tick, bool) {
	window := h.Window(symbol, 1, asOf)
	if len(window) == 0 {
		return Tick{}, false
	}

	return window[0], true
}

// Count returns how many ticks were ever appended for symbol, including those evicted from the window.
func (h *History) Count(symbol eventmodels.StockSymbol) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return h.counts[symbol]
}

func (h *History) Size() int {
	return h.size
}

func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}

	return &History{
		size:   size,
		ticks:  make(map[eventmodels.StockSymbol][]Tick),
		counts: make(map[eventmodels.StockSymbol]int),
	}
}
