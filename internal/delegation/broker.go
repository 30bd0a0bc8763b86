package delegation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrTimeout is returned when a delegated stage does not respond within
// the broker's bound. Callers treat it exactly like a direct-call failure.
var ErrTimeout = errors.New("delegated request timed out")

// Handler executes one delegated request and produces its response.
type Handler func(ctx context.Context, req Request) Response

// Broker routes requests to registered workers and matches responses back
// to callers by request id. Out-of-order and duplicate responses are
// tolerated: a response for an unknown or already-resolved id is dropped
// and logged, never surfaced as an error.
type Broker struct {
	timeout time.Duration

	mu      sync.Mutex
	pending map[uuid.UUID]chan Response
	inboxes map[Kind]chan Request

	quit chan struct{}
	wg   sync.WaitGroup
}

// NewBroker creates a Broker with the given per-request timeout. A zero
// timeout selects the 30s default.
func NewBroker(timeout time.Duration) *Broker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Broker{
		timeout: timeout,
		pending: make(map[uuid.UUID]chan Response),
		inboxes: make(map[Kind]chan Request),
		quit:    make(chan struct{}),
	}
}

// Register starts workers for a capability. Each worker consumes requests
// from the kind's inbox and delivers responses back through the broker.
func (b *Broker) Register(kind Kind, handler Handler, workers int) {
	if workers <= 0 {
		workers = 1
	}

	b.mu.Lock()
	inbox, ok := b.inboxes[kind]
	if !ok {
		inbox = make(chan Request, 16)
		b.inboxes[kind] = inbox
	}
	b.mu.Unlock()

	for i := 0; i < workers; i++ {
		w := &worker{
			inbox:   inbox,
			handler: handler,
			broker:  b,
		}
		w.Start()
	}
}

// Submit sends a request to the worker for its kind and waits for the
// matching response, bounded by the broker timeout.
func (b *Broker) Submit(ctx context.Context, req Request) (Response, error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	b.mu.Lock()
	inbox, ok := b.inboxes[req.Kind]
	if !ok {
		b.mu.Unlock()
		return Response{}, fmt.Errorf("no worker registered for kind %q", req.Kind)
	}
	reply := make(chan Response, 1)
	b.pending[req.ID] = reply
	b.mu.Unlock()

	// A late response after timeout or cancellation finds no pending entry
	// and is dropped by Deliver.
	defer b.forget(req.ID)

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case inbox <- req:
	case <-timer.C:
		return Response{}, ErrTimeout
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-b.quit:
		return Response{}, errors.New("broker closed")
	}

	select {
	case resp := <-reply:
		return resp, nil
	case <-timer.C:
		return Response{}, ErrTimeout
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-b.quit:
		return Response{}, errors.New("broker closed")
	}
}

// Deliver resolves the pending request matching the response id. Delivery
// is applied at most once per id.
func (b *Broker) Deliver(resp Response) {
	b.mu.Lock()
	reply, ok := b.pending[resp.ID]
	if ok {
		delete(b.pending, resp.ID)
	}
	b.mu.Unlock()

	if !ok {
		slog.Warn("Dropping response for unknown or resolved request",
			"request_id", resp.ID,
			"kind", resp.Kind,
		)
		return
	}
	reply <- resp
}

// Close stops all workers and waits for them to exit.
func (b *Broker) Close() {
	close(b.quit)
	b.wg.Wait()
}

func (b *Broker) forget(id uuid.UUID) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}
