package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/backtester/strategies"
	"github.com/jiaming2012/tick-backtester/src/eventmodels"
	"github.com/jiaming2012/tick-backtester/src/eventpubsub"
)

const tradingEngineName = "TradingEngine"

// TradingEngine runs one strategy on a dedicated worker. Ticks reach the worker through a bounded queue,
// so a slow strategy holds back the feeder instead of buffering without limit.
type TradingEngine struct {
	mutex     sync.Mutex
	bus       *eventpubsub.Bus
	strategy  strategies.Strategy
	inbox     *eventmodels.FIFOQueue[models.Tick]
	stop      chan struct{}
	stopOnce  sync.Once
	processed atomic.Uint64
	failures  atomic.Uint64
	published atomic.Uint64
}

// Register attaches the strategy. An engine runs exactly one strategy for its lifetime.
func (e *TradingEngine) Register(strategy strategies.Strategy) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.strategy != nil {
		return ErrStrategyAlreadyRegistered
	}

	e.strategy = strategy
	return nil
}

// Stop asks the worker to exit once the tick in flight is finished. It is safe to call more than once.
func (e *TradingEngine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stop)
	})
}

func (e *TradingEngine) handleTick(tick models.Tick) error {
	if !e.inbox.Enqueue(tick, e.stop) {
		log.Debugf("%s: stopped, dropping %s", tradingEngineName, tick)
	}

	return nil
}

func (e *TradingEngine) handleFeedComplete(event models.FeedCompleteEvent) error {
	log.Debugf("%s: feed complete after %d ticks", tradingEngineName, event.Ticks)
	e.inbox.Close()
	return nil
}

func (e *TradingEngine) decide(tick models.Tick) (action *models.Action, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy panicked: %v", r)
		}
	}()

	return e.strategy.Update(tick)
}

func (e *TradingEngine) process(tick models.Tick) {
	e.processed.Add(1)

	e.bus.Publish(eventpubsub.TopicMarket, tick)

	action, err := e.decide(tick)
	if err != nil {
		e.failures.Add(1)
		log.WithError(err).Warnf("%s: strategy failed on %s, skipping tick", tradingEngineName, tick)
		return
	}

	if action.IsEmpty() {
		return
	}

	if err := action.Validate(); err != nil {
		e.failures.Add(1)
		log.WithError(err).Warnf("%s: strategy returned an invalid action on %s", tradingEngineName, tick)
		return
	}

	action.IsBacktest = true
	if action.Timestamp.IsZero() {
		action.Timestamp = tick.Timestamp
	}

	e.published.Add(1)
	e.bus.Publish(eventpubsub.TopicAction, action)
}

// RunListener processes ticks until Stop is called, the feed completes and the queue drains, or ctx ends.
func (e *TradingEngine) RunListener(ctx context.Context) error {
	e.mutex.Lock()
	strategy := e.strategy
	e.mutex.Unlock()

	if strategy == nil {
		return ErrNoStrategyRegistered
	}

	defer e.Stop()

	go func() {
		select {
		case <-ctx.Done():
			e.Stop()
		case <-e.stop:
		}
	}()

	for {
		select {
		case <-e.stop:
			return ctx.Err()
		case tick, ok := <-e.inbox.Items():
			if !ok {
				return nil
			}

			e.process(tick)
		}
	}
}

func (e *TradingEngine) Processed() uint64 {
	return e.processed.Load()
}

// Failures counts ticks on which the strategy returned an error, panicked or produced an invalid action.
func (e *TradingEngine) Failures() uint64 {
	return e.failures.Load()
}

func (e *TradingEngine) Published() uint64 {
	return e.published.Load()
}

func NewTradingEngine(bus *eventpubsub.Bus, queueSize int) (*TradingEngine, error) {
	e := &TradingEngine{
		bus:   bus,
		inbox: eventmodels.NewFIFOQueue[models.Tick](tradingEngineName, queueSize),
		stop:  make(chan struct{}),
	}

	if err := eventpubsub.Subscribe(bus, eventpubsub.TopicTick, tradingEngineName, e.handleTick); err != nil {
		return nil, err
	}

	if err := eventpubsub.Subscribe(bus, eventpubsub.TopicFeedComplete, tradingEngineName, e.handleFeedComplete); err != nil {
		return nil, err
	}

	return e, nil
}
