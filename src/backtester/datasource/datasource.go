package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

// DataSource retrieves the historical ticks of one symbol over a date range.
// Implementations return ticks in any order; the feeder sorts them.
type DataSource interface {
	ReadTicks(ctx context.Context, symbol eventmodels.StockSymbol, start, end time.Time, tradeType models.TradeType) ([]models.Tick, error)
}

// Params locates the backend's data. DB is a directory for csv, a DSN for postgres and an API key for polygon.
type Params struct {
	DB string
}

type Factory func(params Params) (DataSource, error)

var (
	registryMutex sync.RWMutex
	registry      = map[string]Factory{}
)

// Register makes a backend available by name. Registering a name twice is an error.
func Register(name string, factory Factory) error {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if _, ok := registry[name]; ok {
		return fmt.Errorf("datasource.Register: %w: %s", ErrAlreadyRegistered, name)
	}

	registry[name] = factory
	return nil
}

func New(name string, params Params) (DataSource, error) {
	registryMutex.RLock()
	factory, ok := registry[name]
	registryMutex.RUnlock()

	if !ok {
		return nil, fmt.Errorf("datasource.New: %w: %q", ErrUnknownDataSource, name)
	}

	source, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("datasource.New: %s: %w", name, err)
	}

	return source, nil
}

func Names() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func init() {
	for name, factory := range map[string]Factory{
		"csv":      newCsvDataSource,
		"postgres": newPostgresDataSource,
		"polygon":  newPolygonDataSource,
	} {
		if err := Register(name, factory); err != nil {
			panic(err)
		}
	}
}
