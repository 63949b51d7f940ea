package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

// MemoryDataSource serves ticks held in memory.
type MemoryDataSource struct {
	mutex sync.RWMutex
	ticks map[eventmodels.StockSymbol][]models.Tick
}

func (m *MemoryDataSource) Add(ticks ...models.Tick) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, tick := range ticks {
		m.ticks[tick.Symbol] = append(m.ticks[tick.Symbol], tick)
	}
}

// ReadTicks re-prices stored ticks for tradeType.
func (m *MemoryDataSource) ReadTicks(ctx context.Context, symbol eventmodels.StockSymbol, start, end time.Time, tradeType models.TradeType) ([]models.Tick, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stored, ok := m.ticks[symbol]
	if !ok {
		return nil, fmt.Errorf("MemoryDataSource.ReadTicks: %w: %s", ErrSymbolNotFound, symbol)
	}

	var result []models.Tick
	for _, t := range stored {
		if !t.Within(start, end) {
			continue
		}

		result = append(result, models.NewTick(t.Symbol, t.Timestamp, t.Open, t.High, t.Low, t.Close, t.Volume, tradeType))
	}

	return result, nil
}

func NewMemoryDataSource(ticks ...models.Tick) *MemoryDataSource {
	m := &MemoryDataSource{
		ticks: make(map[eventmodels.StockSymbol][]models.Tick),
	}

	m.Add(ticks...)

	return m
}
