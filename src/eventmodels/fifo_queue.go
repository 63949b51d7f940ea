package eventmodels

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// FIFOQueue is a bounded, blocking handoff between one producer and one consumer.
// Enqueue blocks while the queue is full, so a slow consumer back-pressures the producer.
type FIFOQueue[T any] struct {
	caller    string
	queue     chan T
	closeOnce sync.Once
	mutex     *sync.Mutex
	counter   uint
}

func NewFIFOQueue[T any](caller string, size int) *FIFOQueue[T] {
	if size < 0 {
		size = 0
	}

	return &FIFOQueue[T]{
		caller: caller,
		queue:  make(chan T, size),
		mutex:  &sync.Mutex{},
	}
}

// Enqueue blocks until the item is accepted or done is closed. It reports whether the item was queued.
func (q *FIFOQueue[T]) Enqueue(item T, done <-chan struct{}) bool {
	select {
	case q.queue <- item:
		q.mutex.Lock()
		q.counter++
		counter := q.counter
		q.mutex.Unlock()

		log.Tracef("%v (%p): Enqueued item: %v, count=%v", q.caller, q, item, counter)
		return true
	case <-done:
		log.Tracef("%v (%p): dropped item after shutdown: %v", q.caller, q, item)
		return false
	}
}

// Items is drained by the consumer; it is closed once Close has been called and the queue is empty.
func (q *FIFOQueue[T]) Items() <-chan T {
	return q.queue
}

func (q *FIFOQueue[T]) Len() int {
	return len(q.queue)
}

// Enqueued returns the number of items accepted since creation.
func (q *FIFOQueue[T]) Enqueued() uint {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	return q.counter
}

// Close must only be called by the producer, after its final Enqueue.
func (q *FIFOQueue[T]) Close() {
	q.closeOnce.Do(func() {
		close(q.queue)
	})
}
