package strategies

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

type fakeAccounts struct {
	balance models.Balance
}

func (f *fakeAccounts) GetBalance(id uuid.UUID) (models.Balance, error) {
	return f.balance, nil
}

var start = time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC)

func tickAt(symbol eventmodels.StockSymbol, i int, price float64) models.Tick {
	return models.NewTick(symbol, start.Add(time.Duration(i)*time.Minute), price, price, price, price, 100, models.TradeTypeClose)
}

func newParams(symbols ...eventmodels.StockSymbol) (Params, *fakeAccounts) {
	accounts := &fakeAccounts{balance: models.Balance{InitialCash: 10000, Cash: 10000, Holdings: models.Holdings{}}}

	return Params{
		Config:    map[string]float64{},
		Symbols:   symbols,
		History:   models.NewHistory(100),
		Accounts:  accounts,
		AccountID: uuid.New(),
	}, accounts
}

func TestRegistry(t *testing.T) {
	assert.Subset(t, Names(), []string{"bollinger", "buy_and_hold", "rsi"})

	_, err := New("nope", Params{})
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = New("buy_and_hold", Params{})
	assert.ErrorIs(t, err, ErrNoSymbols)

	assert.ErrorIs(t, Register("rsi", NewRsiStrategy), ErrAlreadyRegistered)
}

func TestBuyAndHold(t *testing.T) {
	params, accounts := newParams("AAPL", "MSFT")

	strategy, err := New("buy_and_hold", params)
	require.NoError(t, err)

	action, err := strategy.Update(tickAt("AAPL", 0, 100))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Equal(t, models.OrderSideBuy, action.Side)
	assert.Equal(t, 50.0, action.Quantity)
	assert.Equal(t, eventmodels.StockSymbol("AAPL"), action.Symbol)

	action, err = strategy.Update(tickAt("AAPL", 1, 100))
	require.NoError(t, err)
	assert.Nil(t, action)

	accounts.balance.Cash = 5000
	action, err = strategy.Update(tickAt("MSFT", 1, 3000))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Equal(t, 1.0, action.Quantity)

	t.Run("unaffordable symbol is retried", func(t *testing.T) {
		params, _ := newParams("BRK")
		strategy, err := New("buy_and_hold", params)
		require.NoError(t, err)

		action, err := strategy.Update(tickAt("BRK", 0, 20000))
		require.NoError(t, err)
		assert.Nil(t, action)

		action, err = strategy.Update(tickAt("BRK", 1, 5000))
		require.NoError(t, err)
		require.NotNil(t, action)
		assert.Equal(t, 2.0, action.Quantity)
	})
}

func TestBollinger(t *testing.T) {
	t.Run("invalid params", func(t *testing.T) {
		params, _ := newParams("AAPL")
		params.Config["period"] = 1
		_, err := New("bollinger", params)
		assert.ErrorIs(t, err, ErrInvalidParam)

		params, _ = newParams("AAPL")
		params.History = nil
		_, err = New("bollinger", params)
		assert.ErrorIs(t, err, ErrNoHistory)
	})

	t.Run("buys below the lower band and sells above the upper band", func(t *testing.T) {
		params, accounts := newParams("AAPL")
		params.Config["period"] = 5
		params.Config["width"] = 1

		strategy, err := New("bollinger", params)
		require.NoError(t, err)

		feed := func(i int, price float64) *models.Action {
			tick := tickAt("AAPL", i, price)
			params.History.Append(tick)
			action, err := strategy.Update(tick)
			require.NoError(t, err)
			return action
		}

		for i, price := range []float64{100, 101, 100, 101} {
			assert.Nil(t, feed(i, price), "not enough history at %d", i)
		}

		action := feed(4, 90)
		require.NotNil(t, action)
		assert.Equal(t, models.OrderSideBuy, action.Side)

		accounts.balance.Holdings["AAPL"] = action.Quantity

		action = feed(5, 120)
		require.NotNil(t, action)
		assert.Equal(t, models.OrderSideSell, action.Side)
		assert.Equal(t, accounts.balance.Holdings["AAPL"], action.Quantity)
	})

	t.Run("ignores ticks after the current one", func(t *testing.T) {
		params, _ := newParams("AAPL")
		params.Config["period"] = 3

		strategy, err := New("bollinger", params)
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			params.History.Append(tickAt("AAPL", i+1, 100))
		}

		action, err := strategy.Update(tickAt("AAPL", 0, 50))
		require.NoError(t, err)
		assert.Nil(t, action)
	})
}

func TestRsiStrategy(t *testing.T) {
	t.Run("invalid params", func(t *testing.T) {
		params, _ := newParams("AAPL")
		params.Config["oversold"] = 80
		_, err := New("rsi", params)
		assert.ErrorIs(t, err, ErrInvalidParam)
	})

	t.Run("buys when oversold and sells when overbought", func(t *testing.T) {
		params, accounts := newParams("AAPL")
		params.Config["period"] = 2

		strategy, err := New("rsi", params)
		require.NoError(t, err)

		var actions []*models.Action
		for i, price := range []float64{10, 9, 5} {
			action, err := strategy.Update(tickAt("AAPL", i, price))
			require.NoError(t, err)
			actions = append(actions, action)
		}

		assert.Nil(t, actions[0])
		assert.Nil(t, actions[1])
		require.NotNil(t, actions[2])
		assert.Equal(t, models.OrderSideBuy, actions[2].Side)

		accounts.balance.Holdings["AAPL"] = actions[2].Quantity

		var sell *models.Action
		for i, price := range []float64{8, 12, 16} {
			action, err := strategy.Update(tickAt("AAPL", 3+i, price))
			require.NoError(t, err)
			if action != nil {
				sell = action
				break
			}
		}

		require.NotNil(t, sell)
		assert.Equal(t, models.OrderSideSell, sell.Side)
	})
}
