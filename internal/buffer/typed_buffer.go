// Package buffer implements the bounded FIFO primitives that sit between
// component ports: TypedBuffer (spec §4.1) for signal data and StackBuffer
// (spec §4.2) for byte messages.
package buffer

import (
	"sync"

	"github.com/radioflow/runtime/internal/cancel"
	"github.com/radioflow/runtime/internal/radioerr"
	"github.com/radioflow/runtime/internal/types"
)

// ErrCancelled is returned by a blocking acquire that unblocked because its
// token was cancelled rather than because its predicate cleared.
var ErrCancelled = radioerr.Newf(radioerr.DataBufferRelease, "TypedBuffer", "wait cancelled")

// TypedBuffer is a circular array of DataSet[T] slots. The multi-threaded
// inter-engine variant uses a condition variable guarding not-empty and
// not-full predicates; the intra-PhyEngine growing variant skips locking
// entirely, since it is only ever touched from one scheduler thread.
type TypedBuffer[T any] struct {
	elementType types.TypeID
	growing     bool

	mu        sync.Mutex
	notEmpty  *sync.Cond
	notFull   *sync.Cond
	slots     []types.DataSet[T]
	readCur   int
	writeCur  int
	count     int
	writeOpen bool
	readOpen  bool
	token     *cancel.Token

	watchOnce sync.Once
}

// NewTypedBuffer builds a fixed-capacity, full-locking TypedBuffer with at
// least two slots, used between engines and between components that do
// not share a scheduler thread.
func NewTypedBuffer[T any](elementType types.TypeID, capacity int, token *cancel.Token) *TypedBuffer[T] {
	if capacity < 2 {
		capacity = 2
	}
	b := &TypedBuffer[T]{
		elementType: elementType,
		slots:       make([]types.DataSet[T], capacity),
		token:       token,
	}
	b.notEmpty = sync.NewCond(&b.mu)
	b.notFull = sync.NewCond(&b.mu)
	return b
}

// NewGrowingTypedBuffer builds the intra-PhyEngine variant: on a full
// write it appends a slot instead of blocking. It is unlocked, so it must
// never be shared across goroutines.
func NewGrowingTypedBuffer[T any](elementType types.TypeID, capacity int) *TypedBuffer[T] {
	if capacity < 2 {
		capacity = 2
	}
	return &TypedBuffer[T]{
		elementType: elementType,
		slots:       make([]types.DataSet[T], capacity),
		growing:     true,
	}
}

// ElementType reports the type-id this buffer was constructed with.
func (b *TypedBuffer[T]) ElementType() types.TypeID { return b.elementType }

// Cap reports the current slot capacity (grows over time for a growing
// buffer, fixed otherwise).
func (b *TypedBuffer[T]) Cap() int {
	if b.growing {
		return len(b.slots)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.slots)
}

func (b *TypedBuffer[T]) full() bool  { return b.count == len(b.slots) }
func (b *TypedBuffer[T]) empty() bool { return b.count == 0 }

// Len reports the number of fully-written slots waiting to be read,
// without blocking — used by a PhyEngine's scheduler to decide whether a
// non-source vertex has pending input (spec §4.4).
func (b *TypedBuffer[T]) Len() int {
	if b.growing {
		return b.count
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// watch starts, at most once, a goroutine that broadcasts on both
// condition variables when the buffer's token is cancelled, unblocking
// anything parked in AcquireWrite/AcquireRead.
func (b *TypedBuffer[T]) watch() {
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

// AcquireWrite blocks until the buffer is not full, then returns a handle
// to the next write slot resized to size. Exactly one write handle may be
// outstanding at a time.
func (b *TypedBuffer[T]) AcquireWrite(size int) (*types.DataSet[T], error) {
	if b.growing {
		return b.acquireWriteGrowing(size)
	}
	b.watch()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writeOpen {
		return nil, radioerr.New(radioerr.DataBufferRelease, "TypedBuffer.AcquireWrite", nil)
	}
	for b.full() {
		if b.token.Cancelled() {
			return nil, ErrCancelled
		}
		b.notFull.Wait()
	}
	if b.token.Cancelled() {
		return nil, ErrCancelled
	}
	b.writeOpen = true
	slot := &b.slots[b.writeCur]
	slot.Resize(size)
	return slot, nil
}

func (b *TypedBuffer[T]) acquireWriteGrowing(size int) (*types.DataSet[T], error) {
	if b.writeOpen {
		return nil, radioerr.New(radioerr.DataBufferRelease, "TypedBuffer.AcquireWrite", nil)
	}
	if b.full() {
		b.growBy(1)
	}
	b.writeOpen = true
	slot := &b.slots[b.writeCur]
	slot.Resize(size)
	return slot, nil
}

// growBy is only ever called on a full buffer. It compacts the occupied
// slots into logical order starting at index 0, then appends n fresh
// slots at the tail, which sidesteps any circular-index arithmetic.
func (b *TypedBuffer[T]) growBy(n int) {
	old := len(b.slots)
	compacted := make([]types.DataSet[T], old, old+n)
	for i := 0; i < old; i++ {
		compacted[i] = b.slots[(b.readCur+i)%old]
	}
	b.slots = append(compacted, make([]types.DataSet[T], n)...)
	b.readCur = 0
	b.writeCur = old
}

// ReleaseWrite advances the write cursor and wakes one blocked reader.
func (b *TypedBuffer[T]) ReleaseWrite() error {
	if b.growing {
		if !b.writeOpen {
			return radioerr.New(radioerr.DataBufferRelease, "TypedBuffer.ReleaseWrite", nil)
		}
		b.writeCur = (b.writeCur + 1) % len(b.slots)
		b.count++
		b.writeOpen = false
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.writeOpen {
		return radioerr.New(radioerr.DataBufferRelease, "TypedBuffer.ReleaseWrite", nil)
	}
	b.writeCur = (b.writeCur + 1) % len(b.slots)
	b.count++
	b.writeOpen = false
	b.notEmpty.Signal()
	return nil
}

// AcquireRead blocks until the buffer is not empty, then returns the next
// slot to read. Exactly one read handle may be outstanding at a time.
func (b *TypedBuffer[T]) AcquireRead() (*types.DataSet[T], error) {
	if b.growing {
		if b.readOpen {
			return nil, radioerr.New(radioerr.DataBufferRelease, "TypedBuffer.AcquireRead", nil)
		}
		if b.empty() {
			return nil, radioerr.New(radioerr.DataBufferRelease, "TypedBuffer.AcquireRead", nil)
		}
		b.readOpen = true
		return &b.slots[b.readCur], nil
	}
	b.watch()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readOpen {
		return nil, radioerr.New(radioerr.DataBufferRelease, "TypedBuffer.AcquireRead", nil)
	}
	for b.empty() {
		if b.token.Cancelled() {
			return nil, ErrCancelled
		}
		b.notEmpty.Wait()
	}
	if b.token.Cancelled() {
		return nil, ErrCancelled
	}
	b.readOpen = true
	return &b.slots[b.readCur], nil
}

// ReleaseRead advances the read cursor and wakes one blocked writer.
func (b *TypedBuffer[T]) ReleaseRead() error {
	if b.growing {
		if !b.readOpen {
			return radioerr.New(radioerr.DataBufferRelease, "TypedBuffer.ReleaseRead", nil)
		}
		b.readCur = (b.readCur + 1) % len(b.slots)
		b.count--
		b.readOpen = false
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.readOpen {
		return radioerr.New(radioerr.DataBufferRelease, "TypedBuffer.ReleaseRead", nil)
	}
	b.readCur = (b.readCur + 1) % len(b.slots)
	b.count--
	b.readOpen = false
	b.notFull.Signal()
	return nil
}
