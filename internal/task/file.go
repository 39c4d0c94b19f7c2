package task

import (
	"context"
	"fmt"
	"runtime"
	"time"
	"weak"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
)

// debounceWindow is how long an event suppresses identical followers
const debounceWindow = 500 * time.Millisecond

// EventKind is the filesystem change that fired a file-event task
type EventKind int

const (
	EventCreate EventKind = iota + 1
	EventModify
	EventRemove
)

func (k EventKind) String() string {
	switch k {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventRemove:
		return "remove"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is a relevant filesystem change
type Event struct {
	Kind EventKind
	Path string
	// op is the raw change; a permission change and a write are both
	// EventModify but are not the same event
	op fsnotify.Op
}

// translate maps an fsnotify event to an Event. Writes, renames and
// permission changes all count as modifications.
func translate(ev fsnotify.Event) (Event, bool) {
	switch {
	case ev.Has(fsnotify.Create):
		return Event{Kind: EventCreate, Path: ev.Name, op: ev.Op}, true
	case ev.Has(fsnotify.Remove):
		return Event{Kind: EventRemove, Path: ev.Name, op: ev.Op}, true
	case ev.Has(fsnotify.Write), ev.Has(fsnotify.Rename), ev.Has(fsnotify.Chmod):
		return Event{Kind: EventModify, Path: ev.Name, op: ev.Op}, true
	}
	return Event{}, false
}

// debouncer drops an event identical to the last forwarded one (same
// kind, path and raw op) when it arrives within the window. Only
// forwarded events update its state. It is owned by the event handling
// goroutine.
type debouncer struct {
	window   time.Duration
	prev     Event
	prevTime time.Time
	seen     bool
}

func (d *debouncer) forward(ev Event, now time.Time) bool {
	if d.seen && ev == d.prev && now.Sub(d.prevTime) < d.window {
		return false
	}
	d.prev, d.prevTime, d.seen = ev, now, true
	return true
}

// FileEventTask runs when a watched path changes
type FileEventTask struct {
	base
	paths []string
}

// NewFileEventTask creates a file-event task watching paths
func NewFileEventTask(name string, host Host, paths []string, commands []*Command, rt *Runtime) *FileEventTask {
	return &FileEventTask{
		base:  newBase(name, host, commands, rt),
		paths: paths,
	}
}

// Kind returns TriggerFile
func (t *FileEventTask) Kind() string { return TriggerFile }

// Paths returns the watched paths
func (t *FileEventTask) Paths() []string { return t.paths }

// Watch is a handle on an activated file-event task's background work
type Watch struct {
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// Done is closed once the watch has fully stopped
func (w *Watch) Done() <-chan struct{} {
	return w.done
}

// Close stops the watch. A run in progress is cancelled. Use Done to wait
// for it to unwind.
func (w *Watch) Close() error {
	w.cancel()
	return w.watcher.Close()
}

// Activate watches the task's paths (not recursively) and runs the task on
// each relevant, debounced event, one run at a time. Paths that cannot be
// watched are logged and skipped.
//
// The background goroutines hold the task only weakly: once the caller
// drops its last reference the watch stops by itself, at the latest when
// the task is garbage collected. Cancelling ctx or closing the returned
// Watch also stops it.
func (t *FileEventTask) Activate(ctx context.Context) (*Watch, error) {
	t.warnDependencies()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher for task '%s': %w", t.name, err)
	}

	log := t.log.WithName("watch")
	watched := 0
	for _, p := range t.paths {
		if err := watcher.Add(p); err != nil {
			log.Error(err, "failed to watch path, skipping", "path", p)
			continue
		}
		watched++
	}

	ctx, cancel := context.WithCancel(ctx)
	events := make(chan Event, 1)
	w := &Watch{watcher: watcher, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer watcher.Close()
		handleEvents(ctx, watcher.Events, watcher.Errors, events, &debouncer{window: debounceWindow}, log)
	}()
	go monitor(ctx, cancel, weak.Make(t), events, w.done, log)

	runtime.AddCleanup(t, func(w *fsnotify.Watcher) { _ = w.Close() }, watcher)

	t.log.Info("activated", "paths", t.paths, "watched", watched)
	return w, nil
}

// handleEvents turns raw watcher events into debounced Events on out. A
// send blocks until the monitor takes the previous event, so at most one
// event waits while a run is in progress. It closes out when it returns.
func handleEvents(ctx context.Context, raws <-chan fsnotify.Event, errs <-chan error, out chan<- Event, d *debouncer, log logr.Logger) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-raws:
			if !ok {
				return
			}
			ev, relevant := translate(raw)
			if !relevant {
				continue
			}
			if !d.forward(ev, time.Now()) {
				log.V(2).Info("debounced", "event", ev.Kind.String(), "path", ev.Path)
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		case err, ok := <-errs:
			if !ok {
				return
			}
			log.Error(err, "watch error")
		}
	}
}

// monitor runs the task for each event while the task is still alive.
// It exits when the task is gone, when events is closed, or when ctx is
// cancelled, and then closes done once the handler has stopped too.
func monitor(ctx context.Context, cancel context.CancelFunc, task weak.Pointer[FileEventTask], events <-chan Event, done chan<- struct{}, log logr.Logger) {
	defer close(done)
	defer func() {
		cancel()
		for range events {
		}
	}()

	for ev := range events {
		t := task.Value()
		if t == nil {
			log.V(1).Info("task released, stopping watch")
			return
		}
		log.V(1).Info("file event", "event", ev.Kind.String(), "path", ev.Path)
		t.fire(ctx, TriggerFile)
	}
}
