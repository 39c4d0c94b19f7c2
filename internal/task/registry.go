package task

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry holds the loaded tasks and keeps them alive while they are
// activated. File-event watches stop by themselves once their task is no
// longer referenced, so dropping the registry is enough to stop them.
type Registry struct {
	mu      sync.Mutex
	tasks   []Task
	byName  map[string]Task
	watches []*Watch
	// nextID is the last id handed to a cron task; ids start at 1
	nextID uint64
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Task)}
}

// Add registers t. Task names are unique.
func (r *Registry) Add(t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[t.Name()]; exists {
		return fmt.Errorf("task '%s' already registered", t.Name())
	}
	r.tasks = append(r.tasks, t)
	r.byName[t.Name()] = t
	return nil
}

// Get returns the task called name
func (r *Registry) Get(name string) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byName[name]
	return t, ok
}

// Tasks returns every task sorted by name
func (r *Registry) Tasks() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Task, len(r.tasks))
	copy(out, r.tasks)
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Len returns the number of tasks
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// ActivateAll activates every task in registration order: cron tasks are
// handed to s with ids counting up from 1, file-event tasks start
// watching. It stops at the first activation error.
func (r *Registry) ActivateAll(ctx context.Context, s Scheduler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tasks {
		switch t := t.(type) {
		case *CronTask:
			r.nextID++
			if err := t.Activate(ctx, s, r.nextID); err != nil {
				return err
			}
		case *FileEventTask:
			w, err := t.Activate(ctx)
			if err != nil {
				return err
			}
			r.watches = append(r.watches, w)
		default:
			return fmt.Errorf("task '%s' has unknown trigger %T", t.Name(), t)
		}
	}
	return nil
}

// Close stops every watch started by ActivateAll
func (r *Registry) Close() error {
	r.mu.Lock()
	watches := r.watches
	r.watches = nil
	r.mu.Unlock()

	var errs []error
	for _, w := range watches {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, w := range watches {
		<-w.Done()
	}
	return errors.Join(errs...)
}
