// Package task defines tasks, their triggers and how their commands run.
package task

import (
	"context"

	"github.com/go-logr/logr"

	"overseer.dev/internal/logs"
	"overseer.dev/internal/remote"
)

// Task is a named set of commands with a trigger. The variants are
// *CronTask and *FileEventTask; the set is closed.
type Task interface {
	Name() string
	Host() Host
	Commands() []*Command
	// Kind returns the trigger kind, TriggerCron or TriggerFile
	Kind() string
	// Run runs every command concurrently and waits for all of them. The
	// error is nil or a *RunError listing each failed command.
	Run(ctx context.Context) error
	// CheckDependencies always returns ErrDependenciesUnimplemented
	CheckDependencies(ctx context.Context) error

	execute(ctx context.Context, trigger string) *Result
}

// Runtime is what tasks need from the process around them
type Runtime struct {
	Log logr.Logger
	// Dialer opens sessions for remote hosts; remote commands fail with
	// KindRemoteTransport when nil
	Dialer remote.Dialer
	// Sessions records each run's output; output goes to stdout when nil
	Sessions  *logs.Store
	Retention logs.Retention
}

// Execute runs t once now and returns the detailed result
func Execute(ctx context.Context, t Task) *Result {
	return t.execute(ctx, TriggerManual)
}

// base holds what every variant shares
type base struct {
	name     string
	host     Host
	commands []*Command
	rt       *Runtime
	log      logr.Logger
}

func newBase(name string, host Host, commands []*Command, rt *Runtime) base {
	if rt == nil {
		rt = &Runtime{Log: logr.Discard()}
	}
	return base{
		name:     name,
		host:     host,
		commands: append([]*Command(nil), commands...),
		rt:       rt,
		log:      rt.Log.WithName("task").WithValues("task", name),
	}
}

func (b *base) Name() string { return b.name }
func (b *base) Host() Host   { return b.host }

// Commands returns a copy of the task's command list; the commands
// themselves are shared and must not be modified
func (b *base) Commands() []*Command {
	out := make([]*Command, len(b.commands))
	copy(out, b.commands)
	return out
}

func (b *base) Run(ctx context.Context) error {
	return b.execute(ctx, TriggerManual).Err
}

func (b *base) CheckDependencies(ctx context.Context) error {
	return ErrDependenciesUnimplemented
}

func (b *base) warnDependencies() {
	b.log.Info("warning: unable to check dependencies", "reason", ErrDependenciesUnimplemented.Error())
}

// fire runs the task for a trigger and logs the outcome
func (b *base) fire(ctx context.Context, trigger string) {
	res := b.execute(ctx, trigger)
	if res.Err != nil {
		b.log.Error(res.Err, "run failed", "trigger", trigger, "session", res.SessionID, "duration", res.Duration)
		return
	}
	b.log.Info("run succeeded", "trigger", trigger, "session", res.SessionID, "duration", res.Duration)
}
