package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
)

// AccountManager owns the accounts of a run and their equity curves.
// Mutations happen on the engine worker; the lock lets the orchestrator read safely even if a worker was detached.
type AccountManager struct {
	mutex     sync.RWMutex
	accounts  map[uuid.UUID]*models.Account
	positions map[uuid.UUID][]models.PositionSnapshot
}

func (m *AccountManager) CreateAccount(cash float64) uuid.UUID {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	id := uuid.New()
	m.accounts[id] = models.NewAccount(id, cash)

	return id
}

func (m *AccountManager) account(id uuid.UUID) (*models.Account, error) {
	account, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}

	return account, nil
}

// recordSnapshot keeps one snapshot per timestamp. A later value for the same timestamp replaces the earlier one.
func (m *AccountManager) recordSnapshot(account *models.Account, timestamp time.Time) {
	snapshot := models.PositionSnapshot{Timestamp: timestamp, Value: account.TotalValue()}
	positions := m.positions[account.ID]

	if n := len(positions); n > 0 && !positions[n-1].Timestamp.Before(timestamp) {
		positions[n-1].Value = snapshot.Value
		return
	}

	m.positions[account.ID] = append(positions, snapshot)
}

// MarkToMarket records the tick's price on the account and snapshots its value at the tick's timestamp.
func (m *AccountManager) MarkToMarket(id uuid.UUID, tick models.Tick) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	account, err := m.account(id)
	if err != nil {
		return err
	}

	account.UpdatePrice(tick.Symbol, tick.Price)
	m.recordSnapshot(account, tick.Timestamp)

	return nil
}

// ApplyExecution fills the action against the account. A rejected action leaves the account and its equity curve untouched.
func (m *AccountManager) ApplyExecution(id uuid.UUID, action *models.Action) (*models.Order, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	account, err := m.account(id)
	if err != nil {
		return nil, err
	}

	order, err := account.Execute(action)
	if err != nil {
		return nil, err
	}

	if order != nil {
		m.recordSnapshot(account, order.Timestamp)
	}

	return order, nil
}

// GetAccountPositions returns the equity curve, oldest first, dropping snapshots before start when it is set.
func (m *AccountManager) GetAccountPositions(id uuid.UUID, start time.Time) ([]models.PositionSnapshot, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if _, err := m.account(id); err != nil {
		return nil, err
	}

	return models.FilterPositionsFrom(m.positions[id], start), nil
}

// GetAccount returns a copy of the account's current state.
func (m *AccountManager) GetAccount(id uuid.UUID) (*models.Account, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	account, err := m.account(id)
	if err != nil {
		return nil, err
	}

	return account.Clone(), nil
}

func (m *AccountManager) GetBalance(id uuid.UUID) (models.Balance, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	account, err := m.account(id)
	if err != nil {
		return models.Balance{}, err
	}

	return account.Balance(), nil
}

func NewAccountManager() *AccountManager {
	return &AccountManager{
		accounts:  make(map[uuid.UUID]*models.Account),
		positions: make(map[uuid.UUID][]models.PositionSnapshot),
	}
}
