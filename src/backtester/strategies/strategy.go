package strategies

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

// Strategy turns one tick into at most one action. A nil action means do nothing.
type Strategy interface {
	Update(tick models.Tick) (*models.Action, error)
}

// AccountReader gives a strategy read access to the account it trades.
type AccountReader interface {
	GetBalance(id uuid.UUID) (models.Balance, error)
}

type Params struct {
	Name      string
	Config    map[string]float64
	Symbols   []eventmodels.StockSymbol
	History   *models.History
	Accounts  AccountReader
	AccountID uuid.UUID
}

// Float returns the config value for key, or fallback when it is not set.
func (p Params) Float(key string, fallback float64) float64 {
	if v, ok := p.Config[key]; ok {
		return v
	}

	return fallback
}

func (p Params) Int(key string, fallback int) int {
	return int(p.Float(key, float64(fallback)))
}

func (p Params) validate() error {
	if len(p.Symbols) == 0 {
		return ErrNoSymbols
	}

	if p.Accounts == nil {
		return ErrNoAccount
	}

	return nil
}

type Factory func(params Params) (Strategy, error)

var (
	registryMutex sync.RWMutex
	registry      = map[string]Factory{}
)

func Register(name string, factory Factory) error {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if _, ok := registry[name]; ok {
		return fmt.Errorf("strategies.Register: %w: %s", ErrAlreadyRegistered, name)
	}

	registry[name] = factory
	return nil
}

func New(name string, params Params) (Strategy, error) {
	registryMutex.RLock()
	factory, ok := registry[name]
	registryMutex.RUnlock()

	if !ok {
		return nil, fmt.Errorf("strategies.New: %w: %q", ErrUnknownStrategy, name)
	}

	params.Name = name

	strategy, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("strategies.New: %s: %w", name, err)
	}

	return strategy, nil
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

// allocate sizes a buy so that each symbol gets an equal share of the initial cash, capped by the cash left.
// It returns nil when not even one whole share is affordable.
func allocate(params Params, tick models.Tick) (*models.Action, error) {
	balance, err := params.Accounts.GetBalance(params.AccountID)
	if err != nil {
		return nil, err
	}

	if tick.Price <= 0 {
		return nil, nil
	}

	budget := math.Min(balance.Cash, balance.InitialCash/float64(len(params.Symbols)))
	quantity := math.Floor(budget / tick.Price)
	if quantity < 1 {
		return nil, nil
	}

	return models.NewBuyAction(tick.Symbol, quantity, tick.Timestamp), nil
}

// liquidate sells the whole position in the tick's symbol, or returns nil when there is none.
func liquidate(params Params, tick models.Tick) (*models.Action, error) {
	balance, err := params.Accounts.GetBalance(params.AccountID)
	if err != nil {
		return nil, err
	}

	quantity := balance.Quantity(tick.Symbol)
	if quantity <= 0 {
		return nil, nil
	}

	return models.NewSellAction(tick.Symbol, quantity, tick.Timestamp), nil
}

func holds(params Params, symbol eventmodels.StockSymbol) (bool, error) {
	balance, err := params.Accounts.GetBalance(params.AccountID)
	if err != nil {
		return false, err
	}

	return balance.Quantity(symbol) > 0, nil
}

func init() {
	for name, factory := range map[string]Factory{
		"buy_and_hold": NewBuyAndHold,
		"bollinger":    NewBollinger,
		"rsi":          NewRsiStrategy,
	} {
		if err := Register(name, factory); err != nil {
			panic(err)
		}
	}
}
