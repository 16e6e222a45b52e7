package remote

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/Tiliavir/trivial-pay-tracker/internal/model"
)

// ConnectFunc builds a ready Store. It may block on network I/O.
type ConnectFunc func(ctx context.Context) (Store, error)

// Deferred is a Store whose client is initialized asynchronously.
// While connect is pending, Save and Fetch return ErrNotReady; if it fails
// they return a *FailureError carrying the cause.
type Deferred struct {
	connect ConnectFunc
	once    sync.Once
	done    chan struct{}

	mu    sync.RWMutex
	store Store
	err   error
}

// NewDeferred returns a Deferred that will call connect when started.
func NewDeferred(connect ConnectFunc) *Deferred {
	return &Deferred{connect: connect, done: make(chan struct{})}
}

// Start runs connect in the background. Subsequent calls are no-ops.
func (d *Deferred) Start(ctx context.Context) {
	d.once.Do(func() {
		go func() {
			defer close(d.done)
			s, err := d.connect(ctx)
			d.mu.Lock()
			d.store, d.err = s, err
			d.mu.Unlock()
		}()
	})
}

// Done is closed once initialization has finished, successfully or not.
func (d *Deferred) Done() <-chan struct{} { return d.done }

// Wait blocks until initialization finishes, ctx ends, or timeout elapses,
// and reports whether the store is ready.
func (d *Deferred) Wait(ctx context.Context, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-d.done:
	case <-ctx.Done():
	case <-timer.C:
	}
	s, _ := d.current()
	return s != nil
}

// Err returns the initialization error, if any.
func (d *Deferred) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.err
}

// Close releases the underlying store if it was initialized and holds
// resources (a database pool, for example).
func (d *Deferred) Close() error {
	s, _ := d.current()
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// current returns the ready store. Before initialization finishes it
// returns ErrNotReady; after a failed connect it returns that failure.
func (d *Deferred) current() (Store, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.store != nil {
		return d.store, nil
	}
	select {
	case <-d.done:
		if d.err != nil {
			return nil, Failure("connect", d.err)
		}
	default:
	}
	return nil, ErrNotReady
}

func (d *Deferred) Save(ctx context.Context, e model.Entry) (Confirmation, error) {
	s, err := d.current()
	if err != nil {
		return Confirmation{}, err
	}
	return s.Save(ctx, e)
}

func (d *Deferred) Fetch(ctx context.Context) ([]model.Entry, error) {
	s, err := d.current()
	if err != nil {
		return nil, err
	}
	return s.Fetch(ctx)
}

// Offline is the Store used when no remote is configured: saves succeed
// without writing anywhere and fetches return nothing, so the local slot is
// the only copy.
type Offline struct{}

func (Offline) Save(_ context.Context, _ model.Entry) (Confirmation, error) {
	return Confirmation{Timestamp: time.Now().UTC()}, nil
}

func (Offline) Fetch(_ context.Context) ([]model.Entry, error) {
	return []model.Entry{}, nil
}
