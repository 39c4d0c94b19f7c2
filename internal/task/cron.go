package task

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Scheduler registers jobs on a time-based schedule. Registering an id
// that is already registered replaces the earlier job.
type Scheduler interface {
	Schedule(id uint64, expr string, job func()) error
}

// CronTask runs on a cron schedule
type CronTask struct {
	base
	schedule string
	id       atomic.Uint64
}

// NewCronTask creates a time-based task
func NewCronTask(name string, host Host, schedule string, commands []*Command, rt *Runtime) *CronTask {
	return &CronTask{
		base:     newBase(name, host, commands, rt),
		schedule: schedule,
	}
}

// Kind returns TriggerCron
func (t *CronTask) Kind() string { return TriggerCron }

// Schedule returns the cron expression
func (t *CronTask) Schedule() string { return t.schedule }

// ID returns the id the task was last activated with, 0 before activation
func (t *CronTask) ID() uint64 { return t.id.Load() }

// Activate registers the task with s under id. The task is never run
// synchronously; s fires it and skips a firing while the previous one is
// still running. Runs use ctx, so cancelling it stops running commands.
// Keeping id unique is the caller's job.
func (t *CronTask) Activate(ctx context.Context, s Scheduler, id uint64) error {
	t.id.Store(id)
	t.warnDependencies()

	if err := s.Schedule(id, t.schedule, func() { t.fire(ctx, TriggerCron) }); err != nil {
		return fmt.Errorf("failed to schedule task '%s': %w", t.name, err)
	}
	t.log.Info("activated", "id", id, "schedule", t.schedule)
	return nil
}
