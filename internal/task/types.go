package task

import (
	"time"
)

// Triggers recorded on run results and sessions
const (
	TriggerCron   = "cron"
	TriggerFile   = "file"
	TriggerManual = "manual"
)

// CommandResult is the outcome of one command in a run
type CommandResult struct {
	Name      string `json:"name"`
	Success   bool   `json:"success"`
	ErrorKind string `json:"error_kind,omitempty"`
	ExitCode  int    `json:"exit_code"`
	Error     string `json:"error,omitempty"`
	LogPath   string `json:"log_path,omitempty"`
}

// Result represents the outcome of one run of a task
type Result struct {
	Success   bool            `json:"success"`
	TaskName  string          `json:"task_name"`
	Trigger   string          `json:"trigger"`
	Host      string          `json:"host"`
	SessionID string          `json:"session_id,omitempty"`
	Duration  time.Duration   `json:"duration"`
	Commands  []CommandResult `json:"commands"`
	Error     string          `json:"error,omitempty"`

	// Err is nil or a *RunError
	Err error `json:"-"`
}
