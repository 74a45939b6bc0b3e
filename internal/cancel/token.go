// Package cancel implements the per-engine cancellation token called for in
// spec §9: an explicit token checked at every suspension point, standing in
// for the source system's free use of thread interruption.
package cancel

import "context"

// Token is a cooperative cancellation handle. Every blocking wait in
// TypedBuffer, StackBuffer and NamedRendezvous takes one so a stopped
// engine can unblock its parked goroutines without an error.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// New returns a live token.
func New() *Token {
	ctx, cancel := context.WithCancel(context.Background())
	return &Token{ctx: ctx, cancel: cancel}
}

// Cancel signals every waiter holding this token.
func (t *Token) Cancel() {
	if t != nil {
		t.cancel()
	}
}

// Done reports the channel that closes once Cancel is called.
func (t *Token) Done() <-chan struct{} {
	if t == nil {
		return nil
	}
	return t.ctx.Done()
}

// Cancelled reports whether Cancel has already been called.
func (t *Token) Cancelled() bool {
	if t == nil {
		return false
	}
	select {
	case <-t.ctx.Done():
		return true
	default:
		return false
	}
}

// Context exposes the underlying context for callers that need to compose
// it with a caller-supplied deadline or value context.
func (t *Token) Context() context.Context {
	if t == nil {
		return context.Background()
	}
	return t.ctx
}
