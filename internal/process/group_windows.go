//go:build windows

package process

import (
	"fmt"
	"os/exec"
	"strconv"
	"syscall"
)

// getProcAttrs makes the child the leader of a new process group,
// equivalent to Setpgid=true on Unix.
func getProcAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// killProcessGroup terminates a process and its child tree with taskkill.
// Windows has no group signals so sig is ignored. Exit code 128 means the
// process is already gone.
func killProcessGroup(pid int, sig syscall.Signal) error {
	err := exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
	if err == nil {
		return nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 128 {
		return nil
	}
	return fmt.Errorf("failed to kill process group (PID %d): %w", pid, err)
}
