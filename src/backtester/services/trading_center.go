package services

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/eventpubsub"
)

const tradingCenterName = "TradingCenter"

// TradingCenter fills actions for one account at the last tick price, with no slippage or fees.
type TradingCenter struct {
	mutex     sync.Mutex
	accounts  *AccountManager
	accountID uuid.UUID
	rejected  []error
	filled    uint
}

func (c *TradingCenter) handleMarket(tick models.Tick) error {
	return c.accounts.MarkToMarket(c.accountID, tick)
}

func (c *TradingCenter) handleAction(action *models.Action) error {
	order, err := c.accounts.ApplyExecution(c.accountID, action)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err != nil {
		c.rejected = append(c.rejected, err)
		return fmt.Errorf("rejected %s: %w", action, err)
	}

	if order != nil {
		c.filled++
		log.Debugf("%s: filled %s", tradingCenterName, order)
	}

	return nil
}

// Rejections returns the errors of the actions that could not be filled, in order.
func (c *TradingCenter) Rejections() []error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return append([]error(nil), c.rejected...)
}

func (c *TradingCenter) Filled() uint {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.filled
}

// NewTradingCenter subscribes the center to market and action events for accountID.
func NewTradingCenter(bus *eventpubsub.Bus, accounts *AccountManager, accountID uuid.UUID) (*TradingCenter, error) {
	c := &TradingCenter{
		accounts:  accounts,
		accountID: accountID,
	}

	if err := eventpubsub.Subscribe(bus, eventpubsub.TopicMarket, tradingCenterName, c.handleMarket); err != nil {
		return nil, err
	}

	if err := eventpubsub.Subscribe(bus, eventpubsub.TopicAction, tradingCenterName, c.handleAction); err != nil {
		return nil, err
	}

	return c, nil
}
