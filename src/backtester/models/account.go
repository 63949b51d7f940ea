package models

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

// QuantityTolerance absorbs float rounding in holdings. A remaining quantity below it is treated as zero.
const QuantityTolerance = 1e-9

// Account is a cash account that can only hold long positions.
type Account struct {
	ID           uuid.UUID
	InitialCash  float64
	Cash         float64
	Holdings     Holdings
	OrderHistory []*Order
	lastPrices   map[eventmodels.StockSymbol]float64
	orderNonce   uint
}

func (a *Account) nextOrderID() uint {
	a.orderNonce++
	return a.orderNonce
}

// UpdatePrice records the last known price for a symbol.
func (a *Account) UpdatePrice(symbol eventmodels.StockSymbol, price float64) {
	a.lastPrices[symbol] = price
}

func (a *Account) LastPrice(symbol eventmodels.StockSymbol) (float64, bool) {
	price, ok := a.lastPrices[symbol]
	return price, ok
}

// HoldingsValue sums holdings at their last known prices, in symbol order so the result is reproducible.
func (a *Account) HoldingsValue() float64 {
	total := 0.0
	for _, symbol := range a.Holdings.Symbols() {
		total += a.Holdings[symbol] * a.lastPrices[symbol]
	}

	return total
}

func (a *Account) TotalValue() float64 {
	return a.Cash + a.HoldingsValue()
}

// Execute fills the action at the last known price of its symbol. A rejected action leaves the account untouched.
func (a *Account) Execute(action *Action) (*Order, error) {
	if err := action.Validate(); err != nil {
		return nil, err
	}

	if action.Side == OrderSideHold {
		return nil, nil
	}

	price, ok := a.lastPrices[action.Symbol]
	if !ok {
		return nil, fmt.Errorf("Account.Execute: %s: %w", action.Symbol, ErrNoPriceAvailable)
	}

	cost := price * action.Quantity

	switch action.Side {
	case OrderSideBuy:
		if cost > a.Cash {
			return nil, fmt.Errorf("Account.Execute: buy %.4f %s costs %.2f, cash is %.2f: %w", action.Quantity, action.Symbol, cost, a.Cash, ErrInsufficientCash)
		}

		a.Cash -= cost
		a.Holdings[action.Symbol] += action.Quantity
	case OrderSideSell:
		held := a.Holdings[action.Symbol]
		if held+QuantityTolerance < action.Quantity {
			return nil, fmt.Errorf("Account.Execute: sell %.4f %s, holding %.4f: %w", action.Quantity, action.Symbol, held, ErrInsufficientHoldings)
		}

		a.Cash += cost
		remaining := held - action.Quantity
		if remaining < QuantityTolerance {
			delete(a.Holdings, action.Symbol)
		} else {
			a.Holdings[action.Symbol] = remaining
		}
	}

	order := &Order{
		ID:         a.nextOrderID(),
		Symbol:     action.Symbol,
		Side:       action.Side,
		Quantity:   action.Quantity,
		Price:      price,
		Timestamp:  action.Timestamp,
		IsBacktest: action.IsBacktest,
	}

	a.OrderHistory = append(a.OrderHistory, order)

	return order, nil
}

func (a *Account) Balance() Balance {
	return Balance{
		InitialCash: a.InitialCash,
		Cash:        a.Cash,
		Holdings:    a.Holdings.Clone(),
	}
}

// Clone returns a deep copy that is safe to read while the original keeps changing.
func (a *Account) Clone() *Account {
	clone := &Account{
		ID:           a.ID,
		InitialCash:  a.InitialCash,
		Cash:         a.Cash,
		Holdings:     a.Holdings.Clone(),
		OrderHistory: make([]*Order, len(a.OrderHistory)),
		lastPrices:   make(map[eventmodels.StockSymbol]float64, len(a.lastPrices)),
		orderNonce:   a.orderNonce,
	}

	for i, order := range a.OrderHistory {
		o := *order
		clone.OrderHistory[i] = &o
	}

	for symbol, price := range a.lastPrices {
		clone.lastPrices[symbol] = price
	}

	return clone
}

func (a *Account) String() string {
	return fmt.Sprintf("account %s: cash=%.2f holdings=%s total=%.2f orders=%d", a.ID, a.Cash, a.Holdings, a.TotalValue(), len(a.OrderHistory))
}

func NewAccount(id uuid.UUID, cash float64) *Account {
	return &Account{
		ID:          id,
		InitialCash: cash,
		Cash:        cash,
		Holdings:    make(Holdings),
		lastPrices:  make(map[eventmodels.StockSymbol]float64),
	}
}
