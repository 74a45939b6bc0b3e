package controller

import (
	"sync"

	"github.com/radioflow/runtime/internal/cancel"
	"github.com/radioflow/runtime/internal/types"
)

// eventQueue is a controller's unbounded event inbox (spec §4.7
// "activateEvent... pushes the event into each controller's queue
// (non-blocking, unbounded)"), grounded on the same condvar shape as
// buffer.StackBuffer, minus the not-full wait since push never blocks.
type eventQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	items    []types.Event
	token    *cancel.Token

	watchOnce sync.Once
}

func newEventQueue(token *cancel.Token) *eventQueue {
	q := &eventQueue{token: token}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

func (q *eventQueue) watch() {
	if q.token == nil {
		return
	}
	q.watchOnce.Do(func() {
		go func() {
			<-q.token.Done()
			q.mu.Lock()
			q.notEmpty.Broadcast()
			q.mu.Unlock()
		}()
	})
}

// push enqueues event and never blocks.
func (q *eventQueue) push(event types.Event) {
	q.mu.Lock()
	q.items = append(q.items, event)
	q.mu.Unlock()
	q.notEmpty.Signal()
}

// pop blocks while the queue is empty, then dequeues the oldest event. It
// reports ok=false once the token is cancelled with nothing left queued.
func (q *eventQueue) pop() (event types.Event, ok bool) {
	q.watch()

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		if q.token.Cancelled() {
			return types.Event{}, false
		}
		q.notEmpty.Wait()
	}
	event = q.items[0]
	q.items = q.items[1:]
	return event, true
}

// len reports the number of events currently queued (spec §10 controller
// event-queue depth metric).
func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
