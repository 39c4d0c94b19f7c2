package process

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const pidFileName = "overseer.pid"

// PIDFileData is persisted in the state dir while an orchestrator runs.
type PIDFileData struct {
	PID       int       `json:"pid"`
	StartTime time.Time `json:"start_time"`
	TasksDir  string    `json:"tasks_dir"`
	Tasks     []string  `json:"tasks"`
}

// ErrAlreadyRunning is returned by WritePIDFile when a live orchestrator
// already owns the state dir.
var ErrAlreadyRunning = errors.New("orchestrator already running")

func pidFilePath(stateDir string) string {
	return filepath.Join(stateDir, pidFileName)
}

// WritePIDFile records data in stateDir. A pidfile left behind by a dead
// process is replaced.
func WritePIDFile(stateDir string, data PIDFileData) error {
	if existing, err := ReadPIDFile(stateDir); err == nil && existing.PID != data.PID && IsProcessAlive(existing.PID) {
		return fmt.Errorf("%w with PID %d", ErrAlreadyRunning, existing.PID)
	}

	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal PID file: %w", err)
	}
	return os.WriteFile(pidFilePath(stateDir), b, 0644)
}

// ReadPIDFile reads the pidfile from stateDir
func ReadPIDFile(stateDir string) (*PIDFileData, error) {
	b, err := os.ReadFile(pidFilePath(stateDir))
	if err != nil {
		return nil, err
	}
	var data PIDFileData
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("failed to parse PID file: %w", err)
	}
	return &data, nil
}

// RemovePIDFile deletes the pidfile
func RemovePIDFile(stateDir string) {
	_ = os.Remove(pidFilePath(stateDir))
}

// Running returns the pidfile contents when the orchestrator it names is
// still alive. Stale or corrupt pidfiles are removed.
func Running(stateDir string) (*PIDFileData, bool) {
	data, err := ReadPIDFile(stateDir)
	if err != nil {
		if !os.IsNotExist(err) {
			RemovePIDFile(stateDir)
		}
		return nil, false
	}
	if !IsProcessAlive(data.PID) {
		RemovePIDFile(stateDir)
		return nil, false
	}
	return data, true
}
