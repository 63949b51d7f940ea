package eventpubsub

import (
	"fmt"
	"sync"

	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"
)

// Bus fans events out to the handlers subscribed to a topic.
// Each topic is served by its own EventBus so that a handler blocking on one topic
// never holds up publishers on another. Handlers run synchronously in subscription order.
type Bus struct {
	mutex  sync.Mutex
	topics map[string]EventBus.Bus
}

func (b *Bus) topic(name string) EventBus.Bus {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	bus, ok := b.topics[name]
	if !ok {
		bus = EventBus.New()
		b.topics[name] = bus
	}

	return bus
}

// Publish delivers event to every handler subscribed to topic and returns once all of them have run.
func (b *Bus) Publish(topic string, event interface{}) {
	b.topic(topic).Publish(topic, event)
}

func (b *Bus) HasSubscribers(topic string) bool {
	return b.topic(topic).HasCallback(topic)
}

// Subscribe registers handler on topic. A handler that returns an error or panics is logged
// and the remaining handlers still receive the event.
func Subscribe[T any](b *Bus, topic string, subscriber string, handler func(event T) error) error {
	callback := func(event T) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("%s: recovered from panic handling %s: %v", subscriber, topic, r)
			}
		}()

		if err := handler(event); err != nil {
			log.WithError(err).Errorf("%s: failed to handle %s", subscriber, topic)
		}
	}

	if err := b.topic(topic).Subscribe(topic, callback); err != nil {
		return fmt.Errorf("eventpubsub.Subscribe: %s to %s: %w", subscriber, topic, err)
	}

	log.Debugf("%s subscribed to topic %s", subscriber, topic)

	return nil
}

func New() *Bus {
	return &Bus{
		topics: make(map[string]EventBus.Bus),
	}
}
