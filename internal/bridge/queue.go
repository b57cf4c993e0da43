// internal/bridge/queue.go
package bridge

import (
	"sync"

	"calc-bridge/internal/model"
)

// eventQueue is the unbounded inbound FIFO between the reader loop and the
// draining consumer. Insertion order is preserved end-to-end; nothing is
// dropped or coalesced.
type eventQueue struct {
	mutex sync.Mutex
	items []model.Event
}

func newEventQueue() *eventQueue {
	return &eventQueue{}
}

// Push appends an event to the tail of the queue
func (q *eventQueue) Push(event model.Event) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.items = append(q.items, event)
}

// DrainAll removes and returns all queued events in FIFO order.
// Returns nil when the queue is empty. Never blocks.
func (q *eventQueue) DrainAll() []model.Event {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	drained := q.items
	q.items = nil
	return drained
}

// Len returns the number of queued events
func (q *eventQueue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.items)
}
