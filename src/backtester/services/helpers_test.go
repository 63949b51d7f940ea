package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/tick-backtester/src/backtester/config"
	"github.com/jiaming2012/tick-backtester/src/backtester/datasource"
	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/backtester/saver"
	"github.com/jiaming2012/tick-backtester/src/backtester/strategies"
	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

const (
	testDataSourceName = "services-test-memory"
	scriptedStrategy   = "services-test-scripted"
	blockingStrategy   = "services-test-blocking"
	failingStrategy    = "services-test-failing"
	failingCommitSaver = "services-test-failing-commit"
)

var errDiskFull = fmt.Errorf("disk full")

var (
	t0 = time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC)

	scenarioPrices = []float64{100, 105, 95, 110, 90}

	blockers struct {
		mutex    sync.Mutex
		channels []chan struct{}
	}

	prefixCounter atomic.Uint64
)

func day(i int) time.Time {
	return t0.AddDate(0, 0, i)
}

func priceTick(symbol eventmodels.StockSymbol, i int, price float64) models.Tick {
	return models.NewTick(symbol, day(i), price, price, price, price, 1000, models.TradeTypeClose)
}

func priceTicks(symbol eventmodels.StockSymbol, prices ...float64) []models.Tick {
	ticks := make([]models.Tick, len(prices))
	for i, p := range prices {
		ticks[i] = priceTick(symbol, i, p)
	}

	return ticks
}

// scripted buys buy_qty on tick number buy_at and sells everything on tick number sell_at, counting from 1.
type scripted struct {
	params strategies.Params
	n      int
}

func (s *scripted) Update(tick models.Tick) (*models.Action, error) {
	s.n++

	switch s.n {
	case s.params.Int("buy_at", 0):
		return models.NewBuyAction(tick.Symbol, s.params.Float("buy_qty", 0), tick.Timestamp), nil
	case s.params.Int("sell_at", 0):
		balance, err := s.params.Accounts.GetBalance(s.params.AccountID)
		if err != nil {
			return nil, err
		}

		return models.NewSellAction(tick.Symbol, s.params.Float("sell_qty", balance.Quantity(tick.Symbol)), tick.Timestamp), nil
	}

	return nil, nil
}

// blocking never returns from Update until releaseBlockingStrategies is called.
type blocking struct {
	release chan struct{}
}

func (b blocking) Update(tick models.Tick) (*models.Action, error) {
	<-b.release
	return nil, nil
}

func newBlocking() blocking {
	blockers.mutex.Lock()
	defer blockers.mutex.Unlock()

	b := blocking{release: make(chan struct{})}
	blockers.channels = append(blockers.channels, b.release)

	return b
}

func releaseBlockingStrategies() {
	blockers.mutex.Lock()
	defer blockers.mutex.Unlock()

	for _, ch := range blockers.channels {
		close(ch)
	}

	blockers.channels = nil
}

type failingCommit struct{}

func (failingCommit) WriteMetrics(ctx context.Context, record models.MetricsRecord) error {
	return nil
}

func (failingCommit) Commit(ctx context.Context) error {
	return errDiskFull
}

type failing struct{}

func (failing) Update(tick models.Tick) (*models.Action, error) {
	if tick.Price > 100 {
		panic("price too high")
	}

	return nil, fmt.Errorf("cannot decide on %s", tick.Symbol)
}

func init() {
	source := datasource.NewMemoryDataSource()
	source.Add(priceTicks("AAPL", scenarioPrices...)...)
	source.Add(priceTicks("MSFT", 200, 210, 190, 220, 180)...)
	source.Add(priceTicks("IBM", 50, 51, 52, 53, 54)...)
	source.Add(priceTicks("SPX", 1000, 1050, 950, 1100, 900)...)

	mustRegister := func(err error) {
		if err != nil {
			panic(err)
		}
	}

	mustRegister(datasource.Register(testDataSourceName, func(params datasource.Params) (datasource.DataSource, error) {
		return source, nil
	}))

	mustRegister(strategies.Register(scriptedStrategy, func(params strategies.Params) (strategies.Strategy, error) {
		return &scripted{params: params}, nil
	}))

	mustRegister(strategies.Register(blockingStrategy, func(params strategies.Params) (strategies.Strategy, error) {
		return newBlocking(), nil
	}))

	mustRegister(strategies.Register(failingStrategy, func(params strategies.Params) (strategies.Strategy, error) {
		return failing{}, nil
	}))

	mustRegister(saver.Register(failingCommitSaver, func(params saver.Params) (saver.StateSaver, error) {
		return failingCommit{}, nil
	}))
}

// uniquePrefix keeps results of repeated test runs apart in the shared memory store.
func uniquePrefix(t *testing.T) string {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return fmt.Sprintf("%s_%d_", name, prefixCounter.Add(1))
}

func newTestConfig(t *testing.T, extra string) *config.Config {
	t.Helper()

	doc := fmt.Sprintf(`
backtest:
  init_cash: 10000
  input_dam: %s
  strategy_name: %s
  strategy_params:
    buy_at: 1
    buy_qty: 10
    sell_at: 5
  worker_timeout: 5s
%s`, testDataSourceName, scriptedStrategy, extra)

	cfg, err := config.Parse([]byte(doc), t.TempDir())
	require.NoError(t, err)

	return cfg
}
