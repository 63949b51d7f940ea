package integrationtesting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/tick-backtester/src/backtester/config"
	"github.com/jiaming2012/tick-backtester/src/backtester/datasource"
	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/backtester/saver"
	"github.com/jiaming2012/tick-backtester/src/backtester/services"
	"github.com/jiaming2012/tick-backtester/src/dbutils"
	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

func dailyTicks(symbol eventmodels.StockSymbol, start time.Time, prices ...float64) []models.Tick {
	ticks := make([]models.Tick, len(prices))
	for i, p := range prices {
		ticks[i] = models.NewTick(symbol, start.AddDate(0, 0, i), p, p, p, p, 1000, models.TradeTypeClose)
	}

	return ticks
}

func TestBacktestWithPostgres(t *testing.T) {
	skipUnlessIntegration(t)

	ctx := context.Background()
	dsn := setupPostgres(t, ctx)

	db, err := dbutils.InitPostgresWithUrl(dsn)
	require.NoError(t, err)
	defer dbutils.Close(db)

	start := time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC)
	require.NoError(t, dbutils.InsertTicks(db, dailyTicks("AAPL", start, 100, 105, 95, 110, 90)))
	require.NoError(t, dbutils.InsertTicks(db, dailyTicks("SPX", start, 1000, 1050, 950, 1100, 900)))

	t.Run("data source reads imported ticks", func(t *testing.T) {
		source := datasource.NewPostgresDataSource(db)

		ticks, err := source.ReadTicks(ctx, "AAPL", start.AddDate(0, 0, 1), start.AddDate(0, 0, 3), models.TradeTypeClose)
		require.NoError(t, err)
		require.Len(t, ticks, 3)
		assert.Equal(t, 105.0, ticks[0].Price)
		assert.Equal(t, 110.0, ticks[2].Price)

		_, err = source.ReadTicks(ctx, "BAD", time.Time{}, time.Time{}, models.TradeTypeClose)
		assert.ErrorIs(t, err, datasource.ErrSymbolNotFound)
	})

	t.Run("buy and hold persists metrics", func(t *testing.T) {
		cfg := config.Backtest{
			TradeType:      models.TradeTypeClose,
			InitCash:       10000,
			Index:          "SPX",
			InputDAM:       "postgres",
			InputDB:        dsn,
			Saver:          "postgres",
			OutputDSN:      dsn,
			OutputDBPrefix: "it_",
			StrategyName:   "buy_and_hold",
		}

		runner := services.NewTestRunner(cfg, []eventmodels.StockSymbol{"AAPL"}, services.NewMetricManager())

		report, err := runner.Run(ctx)
		require.NoError(t, err)

		assert.True(t, report.Persisted)
		assert.True(t, report.TerminatedCleanly)
		assert.InDelta(t, 9000.0, report.Account.TotalValue(), 1e-9)
		assert.InDelta(t, 1.0, report.Metrics.RSquared, 1e-9)

		store, err := saver.NewPostgresSaver(db, "it_"+runner.Name())
		require.NoError(t, err)

		records, err := store.ReadMetrics(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)

		assert.InDelta(t, 9000.0, records[0].EndValue, 1e-9)
		assert.InDelta(t, report.Metrics.MaxDrawdown, records[0].MaxDrawdown, 1e-9)
		assert.Equal(t, 100.0, records[0].Holdings["AAPL"])
	})

	t.Run("saver that fails to migrate releases its connection", func(t *testing.T) {
		require.NoError(t, db.Exec(`CREATE TABLE it_broken (start_time text)`).Error)
		require.NoError(t, db.Exec(`INSERT INTO it_broken (start_time) VALUES ('not a time')`).Error)

		const app = "saver_close_check"
		_, err := saver.New("postgres", saver.Params{DSN: dsn + " application_name=" + app, DB: "it_broken"})
		require.Error(t, err)

		assert.Eventually(t, func() bool {
			var open int64
			if err := db.Raw(`SELECT count(*) FROM pg_stat_activity WHERE application_name = ?`, app).Scan(&open).Error; err != nil {
				return false
			}
			return open == 0
		}, 5*time.Second, 100*time.Millisecond)
	})
}
