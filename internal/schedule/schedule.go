// Package schedule drives time-based tasks with robfig/cron.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"
)

// parser accepts standard five-field expressions, an optional leading
// seconds field and descriptors such as @hourly or @every 10s.
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Parse validates expr and returns its schedule
func Parse(expr string) (cron.Schedule, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return sched, nil
}

// Entry describes one registration
type Entry struct {
	ID   uint64
	Expr string
	Next time.Time
	Prev time.Time
}

type registration struct {
	entryID cron.EntryID
	expr    string
}

// Scheduler fires jobs registered under caller-chosen ids. A job never
// overlaps with itself: a firing that comes due while the previous one is
// still running is skipped.
type Scheduler struct {
	cron *cron.Cron
	log  logr.Logger

	mu      sync.Mutex
	entries map[uint64]registration
}

// New creates a stopped scheduler
func New(log logr.Logger) *Scheduler {
	log = log.WithName("schedule")
	// cron's own Info messages are chatty; keep them at debug
	cronLog := log.V(1)
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		log:     log,
		entries: make(map[uint64]registration),
	}
}

// Schedule registers job under id. Registering an id again replaces the
// previous job; an invalid expr leaves any previous registration intact.
func (s *Scheduler) Schedule(id uint64, expr string, job func()) error {
	sched, err := Parse(expr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.entries[id]; ok {
		s.cron.Remove(prev.entryID)
		s.log.Info("replacing scheduled job", "id", id, "previous", prev.expr, "schedule", expr)
	}
	entryID := s.cron.Schedule(sched, cron.FuncJob(job))
	s.entries[id] = registration{entryID: entryID, expr: expr}
	s.log.V(1).Info("scheduled job", "id", id, "schedule", expr)

	return nil
}

// Remove unregisters id. Unknown ids are ignored.
func (s *Scheduler) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reg, ok := s.entries[id]; ok {
		s.cron.Remove(reg.entryID)
		delete(s.entries, id)
	}
}

// Entries returns the current registrations ordered by id
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for id, reg := range s.entries {
		e := s.cron.Entry(reg.entryID)
		out = append(out, Entry{ID: id, Expr: reg.expr, Next: e.Next, Prev: e.Prev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Start begins firing jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops firing new jobs. The returned context is done once every
// running job has returned.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
