// Package shutdown owns the process-wide cancellation token. It is the only
// mutable state shared between the signal handler, the service supervisor
// callback and the heartbeat loop.
package shutdown

import (
	"context"
	"sync"
)

// Coordinator is a trigger-once, many-waiter cancellation token. Trigger is
// safe to call from a signal handler or a supervisor callback: it does not
// block and only the first call has an effect.
type Coordinator struct {
	once sync.Once
	done chan struct{}
}

// NewCoordinator creates an untriggered coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{done: make(chan struct{})}
}

// Trigger requests shutdown. Idempotent and non-blocking.
func (c *Coordinator) Trigger() {
	c.once.Do(func() { close(c.done) })
}

// Done returns a channel that is closed once shutdown has been requested.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Triggered reports whether shutdown has been requested.
func (c *Coordinator) Triggered() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Context derives a context that is cancelled when the coordinator triggers.
// The returned cancel func releases the watcher goroutine and must be called.
func (c *Coordinator) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	if c.Triggered() {
		cancel()
		return ctx, cancel
	}
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
