package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"overseer.dev/internal/logs"
)

// execute starts one goroutine per command and waits for all of them.
// A failing command does not stop its siblings. Failures are reported in
// configured order whatever order the commands finish in.
func (b *base) execute(ctx context.Context, trigger string) *Result {
	start := time.Now()
	log := b.log.WithValues("trigger", trigger)
	res := &Result{
		TaskName: b.name,
		Trigger:  trigger,
		Host:     b.host.String(),
		Commands: make([]CommandResult, len(b.commands)),
	}

	var session *logs.Session
	if b.rt.Sessions != nil {
		s, err := b.rt.Sessions.OpenSession(b.name, trigger, b.host.String(), b.commandNames())
		if err != nil {
			log.Error(err, "failed to open run session, output goes to stdout")
		} else {
			session = s
			res.SessionID = s.ID()
			log = log.WithValues("session", s.ID())
		}
	}
	ctx = logr.NewContext(ctx, log)

	errs := make([]*CommandError, len(b.commands))
	// No derived context: siblings keep running when one fails
	var g errgroup.Group
	for i, cmd := range b.commands {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					errs[i] = &CommandError{Command: cmd.Name, Kind: KindPanic, Err: fmt.Errorf("%v", r)}
				}
			}()
			errs[i] = b.runCommand(ctx, cmd, session)
			return nil
		})
	}
	_ = g.Wait()

	var failed []*CommandError
	for i, cmd := range b.commands {
		cr := CommandResult{Name: cmd.Name, Success: errs[i] == nil}
		if session != nil {
			cr.LogPath = b.rt.Sessions.CommandLogPath(session.ID(), cmd.Name)
		}
		if ce := errs[i]; ce != nil {
			cr.ErrorKind = ce.Kind.String()
			cr.ExitCode = ce.Code
			cr.Error = ce.Error()
			failed = append(failed, ce)
		}
		res.Commands[i] = cr
	}

	res.Duration = time.Since(start)
	res.Success = len(failed) == 0
	if !res.Success {
		runErr := &RunError{Task: b.name, Errors: failed}
		res.Err = runErr
		res.Error = runErr.Error()
	}

	if session != nil {
		var names []string
		if !res.Success {
			names = res.Err.(*RunError).Failed()
		}
		if err := session.Finish(names); err != nil {
			log.Error(err, "failed to record session result")
		}
		if _, err := b.rt.Sessions.CleanupOldSessions(log, b.name, b.rt.Retention); err != nil {
			log.Error(err, "failed to clean up old sessions")
		}
	}

	return res
}

func (b *base) runCommand(ctx context.Context, cmd *Command, session *logs.Session) *CommandError {
	log := logr.FromContextOrDiscard(ctx).WithValues("command", cmd.Name)

	var out io.Writer
	if session != nil {
		w, err := session.CommandLog(cmd.Name)
		if err != nil {
			log.Error(err, "failed to open command log, output goes to stdout")
		} else {
			defer w.Close()
			out = w
		}
	}

	log.V(1).Info("starting command", "host", b.host.String())
	var err error
	if b.host.IsLocal() {
		err = cmd.RunLocal(ctx, out)
	} else {
		err = cmd.RunRemote(ctx, b.rt.Dialer, b.host.Address(), out)
	}
	if err == nil {
		return nil
	}

	var ce *CommandError
	if errors.As(err, &ce) {
		return ce
	}
	return &CommandError{Command: cmd.Name, Kind: KindIo, Err: err}
}

func (b *base) commandNames() []string {
	names := make([]string, len(b.commands))
	for i, cmd := range b.commands {
		names[i] = cmd.Name
	}
	return names
}
