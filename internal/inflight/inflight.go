// Package inflight tracks the request currently being sent so that it can be stopped.
//
// Within a process a [Tracker] hands out a [Handle] per request, starting a new request
// stops the previous one. Across processes a [Lock] records the pid of the running
// request in a file which [Signal] uses to interrupt it.
package inflight

import (
	"context"
	"errors"
	"sync"
)

// ErrTerminated is the cancellation cause of a request stopped by the user.
var ErrTerminated = errors.New("the request was terminated")

// Tracker tracks at most one in-flight request.
//
// The zero value is ready to use, a Tracker must not be copied after first use.
type Tracker struct {
	current *Handle    // The in-flight request, nil if there isn't one
	mu      sync.Mutex // Protects current
}

// Begin starts tracking a new request, stopping any request already in flight.
//
// The returned context must be used for all work done on behalf of the request and
// [Handle.Done] must be called once it has finished.
func (t *Tracker) Begin(ctx context.Context) (context.Context, *Handle) {
	ctx, cancel := context.WithCancelCause(ctx)
	handle := &Handle{cancel: cancel, tracker: t}

	t.mu.Lock()
	previous := t.current
	t.current = handle
	t.mu.Unlock()

	if previous != nil {
		previous.Stop()
	}

	return ctx, handle
}

// Stop stops the in-flight request if there is one, reporting whether there was.
func (t *Tracker) Stop() bool {
	t.mu.Lock()
	current := t.current
	t.mu.Unlock()

	if current == nil {
		return false
	}

	current.Stop()
	return true
}

// Running reports whether a request is in flight.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current != nil
}

// release forgets h if it is still the current request.
func (t *Tracker) release(h *Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == h {
		t.current = nil
	}
}

// Handle is a single in-flight request.
type Handle struct {
	cancel  context.CancelCauseFunc // Cancels the request's context
	tracker *Tracker                // The tracker that issued the handle
}

// Stop cancels the request with [ErrTerminated] as the cause.
//
// It is safe to call more than once and from any goroutine.
func (h *Handle) Stop() {
	h.cancel(ErrTerminated)
	h.tracker.release(h)
}

// Done marks the request as finished, releasing its context.
func (h *Handle) Done() {
	h.cancel(nil)
	h.tracker.release(h)
}
