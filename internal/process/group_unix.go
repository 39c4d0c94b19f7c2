//go:build unix

package process

import (
	"fmt"
	"syscall"
)

// getProcAttrs puts the child in a new process group with itself as the
// leader (PGID == PID), so everything it spawns can be signalled at once.
func getProcAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// killProcessGroup sends sig to the process group led by pid. A group that
// is already gone is not an error.
func killProcessGroup(pid int, sig syscall.Signal) error {
	// Negative PID addresses the group
	err := syscall.Kill(-pid, sig)
	if err != nil {
		if err == syscall.ESRCH {
			return nil
		}
		return fmt.Errorf("failed to signal process group %d: %w", pid, err)
	}
	return nil
}
