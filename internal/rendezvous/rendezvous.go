// Package rendezvous implements the NamedRendezvous ("CommandPrison")
// primitive from spec §4.3: a data structure on which goroutines park
// keyed by a string until a matching named message releases them.
package rendezvous

import (
	"sync"

	"github.com/radioflow/runtime/internal/cancel"
)

// Message is what a release() delivers to every waiter parked under its
// Name.
type Message struct {
	Name    string
	Payload any
}

// Rendezvous is a mutex-guarded table of parked waiters, grounded on the
// same manager-with-one-mutex shape used throughout the engine manager's
// subsystems.
type Rendezvous struct {
	mu      sync.Mutex
	waiters map[string][]chan Message
}

// New returns an empty Rendezvous.
func New() *Rendezvous {
	return &Rendezvous{waiters: make(map[string][]chan Message)}
}

// Trap atomically enqueues a waiter under name while releasing outer (a
// lock the caller already holds), then blocks until a matching Release
// delivers a message or token is cancelled. The outer lock is always
// released before Trap blocks, even on the cancellation path.
func (r *Rendezvous) Trap(outer sync.Locker, name string, token *cancel.Token) (Message, bool) {
	ch := make(chan Message, 1)

	r.mu.Lock()
	r.waiters[name] = append(r.waiters[name], ch)
	if outer != nil {
		outer.Unlock()
	}
	r.mu.Unlock()

	select {
	case msg := <-ch:
		return msg, true
	case <-token.Done():
		r.forget(name, ch)
		return Message{}, false
	}
}

// forget removes ch from the waiter list for name, used when Trap is
// cancelled before a Release ever claims it.
func (r *Rendezvous) forget(name string, ch chan Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.waiters[name]
	for i, c := range list {
		if c == ch {
			r.waiters[name] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(r.waiters[name]) == 0 {
		delete(r.waiters, name)
	}
}

// Release wakes every waiter parked under msg.Name, delivering msg to each
// exactly once, and removes them from the table. A Release with no
// matching waiters is a no-op, per spec §4.3.
func (r *Rendezvous) Release(msg Message) {
	r.mu.Lock()
	list := r.waiters[msg.Name]
	delete(r.waiters, msg.Name)
	r.mu.Unlock()

	for _, ch := range list {
		ch <- msg
	}
}

// Size returns the total number of waiters currently parked across all
// names (spec §8 Scenario 5).
func (r *Rendezvous) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, list := range r.waiters {
		n += len(list)
	}
	return n
}
