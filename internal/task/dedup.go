package task

import (
	"context"
	"sync"
)

// inflight tracks a single in-progress run.
type inflight struct {
	done   chan struct{}
	result *Result
}

// Deduplicator collapses concurrent manual runs of the same task. If a
// task is already running through the Deduplicator, later callers wait
// for that run and receive its result.
type Deduplicator struct {
	mu      sync.Mutex
	flights map[string]*inflight
}

// NewDeduplicator creates a Deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{
		flights: make(map[string]*inflight),
	}
}

// Execute runs t now unless a run of it is already in flight. shared
// reports whether the result came from another caller's run. A caller
// whose ctx ends while waiting gets a nil result.
func (d *Deduplicator) Execute(ctx context.Context, t Task) (result *Result, shared bool) {
	key := t.Name()

	d.mu.Lock()
	if f, ok := d.flights[key]; ok {
		d.mu.Unlock()
		select {
		case <-f.done:
			return f.result, true
		case <-ctx.Done():
			return nil, true
		}
	}

	f := &inflight{done: make(chan struct{})}
	d.flights[key] = f
	d.mu.Unlock()

	// The run must not be cut short by the first caller leaving, since
	// others may be waiting on it
	f.result = t.execute(context.WithoutCancel(ctx), TriggerManual)
	close(f.done)

	d.mu.Lock()
	delete(d.flights, key)
	d.mu.Unlock()

	return f.result, false
}
