package process

import (
	"context"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// StopGrace is how long a cancelled command's process group gets between
// SIGTERM and SIGKILL
const StopGrace = 5 * time.Second

// Command builds an exec.Cmd for program that runs in its own process
// group. Cancelling ctx signals the whole group, so children spawned by a
// shell line go down with it. env is appended to the inherited environment
// in order; a later duplicate key wins.
func Command(ctx context.Context, program string, args []string, dir string, env []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	cmd.SysProcAttr = getProcAttrs()
	cmd.Cancel = func() error {
		return killProcessGroup(cmd.Process.Pid, syscall.SIGTERM)
	}
	// After the grace period Wait kills the leader and stops waiting on
	// output pipes
	cmd.WaitDelay = StopGrace
	return cmd
}

// IsProcessAlive reports whether a process with the given PID is running.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Send signal 0 to check if process exists
	return process.Signal(syscall.Signal(0)) == nil
}
