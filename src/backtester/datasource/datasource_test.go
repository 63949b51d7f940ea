package datasource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

var day = time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC)

func bar(symbol eventmodels.StockSymbol, i int, open, close float64) models.Tick {
	return models.NewTick(symbol, day.AddDate(0, 0, i), open, close+1, open-1, close, 1000, models.TradeTypeClose)
}

func TestRegistry(t *testing.T) {
	t.Run("builtin backends", func(t *testing.T) {
		assert.Subset(t, Names(), []string{"csv", "polygon", "postgres"})
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := New("nope", Params{})
		assert.ErrorIs(t, err, ErrUnknownDataSource)
	})

	t.Run("duplicate registration", func(t *testing.T) {
		assert.ErrorIs(t, Register("csv", newCsvDataSource), ErrAlreadyRegistered)
	})

	t.Run("custom backend", func(t *testing.T) {
		source := NewMemoryDataSource(bar("AAPL", 0, 1, 2))

		// registered names cannot be removed
		name := fmt.Sprintf("datasource-test-memory-%d", len(Names()))
		require.NoError(t, Register(name, func(params Params) (DataSource, error) {
			return source, nil
		}))

		got, err := New(name, Params{})
		require.NoError(t, err)
		assert.Same(t, source, got)
	})

	t.Run("csv requires a directory", func(t *testing.T) {
		_, err := New("csv", Params{})
		assert.ErrorIs(t, err, ErrMissingDB)

		_, err = New("csv", Params{DB: filepath.Join(t.TempDir(), "missing")})
		assert.Error(t, err)
	})
}

func TestMemoryDataSource(t *testing.T) {
	source := NewMemoryDataSource(bar("AAPL", 0, 10, 11), bar("AAPL", 1, 12, 13), bar("AAPL", 2, 14, 15))

	t.Run("trade type picks the price", func(t *testing.T) {
		ticks, err := source.ReadTicks(context.Background(), "AAPL", time.Time{}, time.Time{}, models.TradeTypeOpen)
		require.NoError(t, err)
		require.Len(t, ticks, 3)
		assert.Equal(t, 10.0, ticks[0].Price)

		ticks, err = source.ReadTicks(context.Background(), "AAPL", time.Time{}, time.Time{}, models.TradeTypeClose)
		require.NoError(t, err)
		assert.Equal(t, 11.0, ticks[0].Price)
	})

	t.Run("range is inclusive", func(t *testing.T) {
		ticks, err := source.ReadTicks(context.Background(), "AAPL", day.AddDate(0, 0, 1), day.AddDate(0, 0, 2), models.TradeTypeClose)
		require.NoError(t, err)
		assert.Len(t, ticks, 2)
	})

	t.Run("unknown symbol", func(t *testing.T) {
		_, err := source.ReadTicks(context.Background(), "MSFT", time.Time{}, time.Time{}, models.TradeTypeClose)
		assert.ErrorIs(t, err, ErrSymbolNotFound)
	})
}

func TestCsvDataSource(t *testing.T) {
	dir := t.TempDir()
	expected := []models.Tick{bar("AAPL", 0, 100, 101.5), bar("AAPL", 1, 102.25, 99)}
	require.NoError(t, WriteCsvBars(dir, "AAPL", expected))

	source, err := New("csv", Params{DB: dir})
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		ticks, err := source.ReadTicks(context.Background(), "AAPL", time.Time{}, time.Time{}, models.TradeTypeClose)
		require.NoError(t, err)
		require.Len(t, ticks, 2)

		for i := range expected {
			assert.True(t, expected[i].Timestamp.Equal(ticks[i].Timestamp))
			assert.Equal(t, expected[i].Open, ticks[i].Open)
			assert.Equal(t, expected[i].Close, ticks[i].Close)
			assert.Equal(t, expected[i].Price, ticks[i].Price)
			assert.Equal(t, eventmodels.StockSymbol("AAPL"), ticks[i].Symbol)
		}
	})

	t.Run("date only rows", func(t *testing.T) {
		content := "time,open,high,low,close,volume\n20210104,1,2,0.5,1.5,10\n2021-01-05,2,3,1.5,2.5,20\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "MSFT.csv"), []byte(content), 0o644))

		ticks, err := source.ReadTicks(context.Background(), "msft", day.AddDate(0, 0, 1), time.Time{}, models.TradeTypeOpen)
		require.NoError(t, err)
		require.Len(t, ticks, 1)
		assert.Equal(t, 2.0, ticks[0].Price)
	})

	t.Run("missing symbol", func(t *testing.T) {
		_, err := source.ReadTicks(context.Background(), "IBM", time.Time{}, time.Time{}, models.TradeTypeClose)
		assert.ErrorIs(t, err, ErrSymbolNotFound)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "BAD.csv"), []byte("time,open,high,low,close,volume\nyesterday,1,2,0.5,1.5,10\n"), 0o644))

		_, err := source.ReadTicks(context.Background(), "BAD", time.Time{}, time.Time{}, models.TradeTypeClose)
		assert.Error(t, err)
	})
}
