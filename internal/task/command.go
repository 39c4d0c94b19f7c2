package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"strings"

	"github.com/go-logr/logr"

	"overseer.dev/internal/process"
	"overseer.dev/internal/remote"
)

// Command is one named command of a task. Commands are shared by every
// run of the task and are never modified after construction.
type Command struct {
	Name string
	// WorkingDir is where the command runs; empty inherits the
	// orchestrator's directory (local) or the login directory (remote)
	WorkingDir string
	Env        []EnvVar
	Spec       CommandSpec
}

// RunLocal runs the command on this machine and waits for it. Output goes
// to out, or to the orchestrator's stdout and stderr when out is nil. A
// non-nil error is always a *CommandError.
func (c *Command) RunLocal(ctx context.Context, out io.Writer) error {
	env := make([]string, len(c.Env))
	for i, ev := range c.Env {
		env[i] = ev.String()
	}

	cmd := process.Command(ctx, c.Spec.Program, c.Spec.Args, c.WorkingDir, env)
	if out != nil {
		cmd.Stdout, cmd.Stderr = out, out
	} else {
		cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return &CommandError{Command: c.Name, Kind: KindIo, Err: fmt.Errorf("failed to start: %w", err)}
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &CommandError{Command: c.Name, Kind: KindExitStatus, Code: exitErr.ExitCode(), Err: err}
		}
		return &CommandError{Command: c.Name, Kind: KindIo, Err: fmt.Errorf("failed to wait: %w", err)}
	}

	return nil
}

// RemoteLine builds the single shell line run on a remote host:
// export K=V ... && cd <dir> && <command>. Clauses are only present when
// configured. Nothing is quoted or escaped.
func (c *Command) RemoteLine() string {
	var clauses []string
	if len(c.Env) > 0 {
		pairs := make([]string, len(c.Env))
		for i, ev := range c.Env {
			pairs[i] = ev.String()
		}
		clauses = append(clauses, "export "+strings.Join(pairs, " "))
	}
	if c.WorkingDir != "" {
		clauses = append(clauses, "cd "+c.WorkingDir)
	}
	clauses = append(clauses, c.Spec.Line())
	return strings.Join(clauses, " && ")
}

// RunRemote runs the command on destination through dialer and waits for
// it. A non-nil error is always a *CommandError.
func (c *Command) RunRemote(ctx context.Context, dialer remote.Dialer, destination string, out io.Writer) error {
	log := logr.FromContextOrDiscard(ctx)
	if c.WorkingDir != "" && !path.IsAbs(c.WorkingDir) {
		log.Info("warning: remote working_dir is not absolute and resolves against the login directory",
			"command", c.Name, "working_dir", c.WorkingDir)
	}

	if dialer == nil {
		return &CommandError{Command: c.Name, Kind: KindRemoteTransport, Err: errors.New("no remote dialer configured")}
	}

	session, err := dialer.Dial(ctx, destination)
	if err != nil {
		return &CommandError{Command: c.Name, Kind: KindRemoteTransport, Err: err}
	}
	defer session.Close()

	stdout, stderr := io.Writer(os.Stdout), io.Writer(os.Stderr)
	if out != nil {
		stdout, stderr = out, out
	}

	line := c.RemoteLine()
	log.V(1).Info("running remote command", "command", c.Name, "host", destination, "line", line)
	if err := session.Run(line, stdout, stderr); err != nil {
		var exitErr *remote.ExitError
		if errors.As(err, &exitErr) {
			return &CommandError{Command: c.Name, Kind: KindExitStatus, Code: exitErr.Code, Err: err}
		}
		return &CommandError{Command: c.Name, Kind: KindRemoteTransport, Err: err}
	}

	return nil
}
