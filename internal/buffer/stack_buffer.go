package buffer

import (
	"sync"

	"github.com/radioflow/runtime/internal/cancel"
	"github.com/radioflow/runtime/internal/types"
)

// DefaultStackCapacity is the soft capacity used when a StackEngine
// doesn't override it per port (spec §4.2).
const DefaultStackCapacity = 10

// StackBuffer is a capacity-bounded FIFO of *StackDataSet, used as the
// per-port inbox of a StackComponent. Push blocks while the queue is at
// capacity; pop blocks while it is empty.
type StackBuffer struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    []*types.StackDataSet
	capacity int
	token    *cancel.Token

	watchOnce sync.Once
}

// NewStackBuffer builds a StackBuffer with the given soft capacity (≤ 0
// falls back to DefaultStackCapacity).
func NewStackBuffer(capacity int, token *cancel.Token) *StackBuffer {
	if capacity <= 0 {
		capacity = DefaultStackCapacity
	}
	b := &StackBuffer{capacity: capacity, token: token}
	b.notEmpty = sync.NewCond(&b.mu)
	b.notFull = sync.NewCond(&b.mu)
	return b
}

func (b *StackBuffer) watch() {
	if b.token == nil {
		return
	}
	b.watchOnce.Do(func() {
		go func() {
			<-b.token.Done()
			b.mu.Lock()
			b.notEmpty.Broadcast()
			b.notFull.Broadcast()
			b.mu.Unlock()
		}()
	})
}

// Push blocks while the buffer holds capacity items, then enqueues item.
// It reports false if the token was cancelled before a slot freed up.
func (b *StackBuffer) Push(item *types.StackDataSet) bool {
	b.watch()

	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.items) >= b.capacity {
		if b.token.Cancelled() {
			return false
		}
		b.notFull.Wait()
	}
	if b.token.Cancelled() {
		return false
	}
	b.items = append(b.items, item)
	b.notEmpty.Signal()
	return true
}

// Pop blocks while the buffer is empty, then dequeues the oldest item. It
// reports ok=false if the token was cancelled before an item arrived.
func (b *StackBuffer) Pop() (item *types.StackDataSet, ok bool) {
	b.watch()

	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.items) == 0 {
		if b.token.Cancelled() {
			return nil, false
		}
		b.notEmpty.Wait()
	}
	if b.token.Cancelled() {
		return nil, false
	}
	item = b.items[0]
	b.items = b.items[1:]
	b.notFull.Signal()
	return item, true
}

// Len reports the number of items currently queued.
func (b *StackBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Capacity reports the buffer's soft capacity.
func (b *StackBuffer) Capacity() int { return b.capacity }
