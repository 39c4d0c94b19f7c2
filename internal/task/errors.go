package task

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDependenciesUnimplemented is returned by CheckDependencies until
// dependency checking exists
var ErrDependenciesUnimplemented = errors.New("dependency checking is not implemented")

// ErrorKind classifies a command failure
type ErrorKind int

const (
	// KindIo means the command could not be started or waited on
	KindIo ErrorKind = iota
	// KindExitStatus means the command ran and exited non-zero
	KindExitStatus
	// KindRemoteTransport means the SSH connection or session failed
	KindRemoteTransport
	// KindPanic means running the command panicked
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindIo:
		return "io"
	case KindExitStatus:
		return "exit_status"
	case KindRemoteTransport:
		return "remote_transport"
	case KindPanic:
		return "panic"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// CommandError is the failure of one command of a task
type CommandError struct {
	Command string
	Kind    ErrorKind
	// Code is the exit status for KindExitStatus
	Code int
	Err  error
}

func (e *CommandError) Error() string {
	switch e.Kind {
	case KindExitStatus:
		return fmt.Sprintf("command '%s' exited with status %d", e.Command, e.Code)
	case KindPanic:
		return fmt.Sprintf("command '%s' panicked: %v", e.Command, e.Err)
	case KindRemoteTransport:
		return fmt.Sprintf("command '%s' remote execution failed: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("command '%s' failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// RunError aggregates every failed command of one task run, in the order
// the commands are configured
type RunError struct {
	Task   string
	Errors []*CommandError
}

func (e *RunError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("task '%s': %d command(s) failed: %s", e.Task, len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes every command error to errors.Is and errors.As
func (e *RunError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}

// Failed returns the names of the failed commands
func (e *RunError) Failed() []string {
	names := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		names[i] = err.Command
	}
	return names
}
