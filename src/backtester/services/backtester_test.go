package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/tick-backtester/src/backtester/config"
	"github.com/jiaming2012/tick-backtester/src/backtester/datasource"
	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

func writeSymbolFile(t *testing.T, cfg *config.Config, contents string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Dir(), "symbols.txt"), []byte(contents), 0644))
}

type eventLog struct {
	mutex  sync.Mutex
	events []string
}

func (l *eventLog) listen(b *Backtester) {
	record := func(prefix string) func(*RunEvent) {
		return func(e *RunEvent) {
			l.mutex.Lock()
			defer l.mutex.Unlock()

			l.events = append(l.events, prefix+":"+e.Symbols)
		}
	}

	b.On(EventRunStarted, record("started"))
	b.On(EventRunCompleted, record("completed"))
	b.On(EventRunFailed, record("failed"))
	b.On(EventBatchDone, record("done"))
}

func TestBacktester(t *testing.T) {
	t.Run("failed run is skipped", func(t *testing.T) {
		cfg := newTestConfig(t, "  symbol_file: symbols.txt")
		writeSymbolFile(t, cfg, "AAPL\n\nBAD\nMSFT\nAAPL\n")

		b := NewBacktester(cfg, BacktesterOptions{})
		events := &eventLog{}
		events.listen(b)

		require.NoError(t, b.Setup())
		assert.Len(t, b.SymbolLists(), 3)

		require.NoError(t, b.RunAll(context.Background()))

		metrics := b.GetMetrics()
		assert.Contains(t, metrics, "AAPL")
		assert.Contains(t, metrics, "MSFT")
		assert.NotContains(t, metrics, "BAD")

		failed := b.Failed()
		require.Contains(t, failed, "BAD")
		assert.ErrorIs(t, failed["BAD"], datasource.ErrSymbolNotFound)
		assert.ErrorIs(t, b.Err(), datasource.ErrSymbolNotFound)

		assert.Len(t, b.Accounts(), 2)
		assert.Len(t, b.Reports(), 2)

		assert.Equal(t, []string{
			"started:AAPL", "completed:AAPL",
			"started:BAD", "failed:BAD",
			"started:MSFT", "completed:MSFT",
			"done:",
		}, events.events)
	})

	t.Run("explicit symbol lists skip the symbol file", func(t *testing.T) {
		cfg := newTestConfig(t, "")

		b := NewBacktester(cfg, BacktesterOptions{
			SymbolLists: [][]eventmodels.StockSymbol{{"IBM"}},
			Cash:        5000,
		})

		require.NoError(t, b.Setup())
		require.NoError(t, b.RunAll(context.Background()))
		assert.NoError(t, b.Err())

		accounts := b.Accounts()
		require.Len(t, accounts, 1)
		assert.Equal(t, 5000.0, accounts[0].InitialCash)
	})

	t.Run("run that cannot be saved is absent from the metrics", func(t *testing.T) {
		cfg := newTestConfig(t, "")
		cfg.Backtest.Saver = failingCommitSaver

		b := NewBacktester(cfg, BacktesterOptions{
			SymbolLists: [][]eventmodels.StockSymbol{{"AAPL"}},
		})
		require.NoError(t, b.Setup())
		require.NoError(t, b.RunAll(context.Background()))

		failed := b.Failed()
		require.Contains(t, failed, "AAPL")
		assert.ErrorIs(t, failed["AAPL"], errDiskFull)

		assert.NotContains(t, b.GetMetrics(), "AAPL")
		assert.Empty(t, b.Reports())
		assert.Empty(t, b.Accounts())

		var out bytes.Buffer
		b.PrintMetrics(&out)
		assert.Contains(t, out.String(), "failed runs: AAPL")
	})

	t.Run("missing symbol file", func(t *testing.T) {
		b := NewBacktester(newTestConfig(t, ""), BacktesterOptions{})
		assert.ErrorIs(t, b.Setup(), config.ErrMissingSymbolFile)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := newTestConfig(t, "")
		cfg.Backtest.StrategyName = ""

		b := NewBacktester(cfg, BacktesterOptions{SymbolLists: [][]eventmodels.StockSymbol{{"AAPL"}}})
		assert.ErrorIs(t, b.Setup(), config.ErrMissingStrategy)
	})

	t.Run("run before setup", func(t *testing.T) {
		b := NewBacktester(newTestConfig(t, ""), BacktesterOptions{})
		assert.ErrorIs(t, b.RunAll(context.Background()), ErrInvalidRunState)
	})

	t.Run("interrupted before the first run", func(t *testing.T) {
		b := NewBacktester(newTestConfig(t, ""), BacktesterOptions{
			SymbolLists: [][]eventmodels.StockSymbol{{"AAPL"}, {"MSFT"}},
		})
		require.NoError(t, b.Setup())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, b.RunAll(ctx), ErrInterrupted)
		assert.Empty(t, b.Reports())
		assert.Empty(t, b.Failed())
	})

	t.Run("interrupted during a run", func(t *testing.T) {
		b := NewBacktester(newTestConfig(t, ""), BacktesterOptions{
			SymbolLists: [][]eventmodels.StockSymbol{{"AAPL"}, {"MSFT"}, {"IBM"}},
		})
		require.NoError(t, b.Setup())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		b.On(EventRunStarted, func(e *RunEvent) {
			if e.Index == 1 {
				cancel()
			}
		})

		assert.ErrorIs(t, b.RunAll(ctx), ErrInterrupted)

		reports := b.Reports()
		require.Len(t, reports, 1)
		assert.Equal(t, []eventmodels.StockSymbol{"AAPL"}, reports[0].Symbols)
		assert.Empty(t, b.Failed())
	})

	t.Run("print metrics", func(t *testing.T) {
		b := NewBacktester(newTestConfig(t, ""), BacktesterOptions{
			SymbolLists: [][]eventmodels.StockSymbol{{"AAPL"}, {"BAD"}},
		})
		require.NoError(t, b.Setup())
		require.NoError(t, b.RunAll(context.Background()))

		var out bytes.Buffer
		b.PrintMetrics(&out)

		assert.Contains(t, out.String(), "AAPL")
		assert.Contains(t, out.String(), "$9,900.00")
		assert.Contains(t, out.String(), "failed runs: BAD")
	})
}
