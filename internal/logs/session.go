package logs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionMetadata holds metadata about one firing of a task
type SessionMetadata struct {
	SessionID      string         `json:"session_id"`
	TaskName       string         `json:"task_name"`
	Trigger        string         `json:"trigger"` // "cron", "file" or "manual"
	Host           string         `json:"host"`
	Commands       []string       `json:"commands"`
	StartTime      time.Time      `json:"start_time"`
	EndTime        *time.Time     `json:"end_time,omitempty"`
	Duration       *time.Duration `json:"duration,omitempty"`
	Success        *bool          `json:"success,omitempty"`
	FailedCommands []string       `json:"failed_commands,omitempty"`
}

// SessionInfo holds basic information about a session
type SessionInfo struct {
	SessionID string    `json:"session_id"`
	TaskName  string    `json:"task_name"`
	StartTime time.Time `json:"start_time"`
	Dir       string    `json:"dir"`
}

// Session is an open run session. Command logs may be opened from
// several goroutines at once.
type Session struct {
	store    *Store
	mu       sync.Mutex
	metadata SessionMetadata
}

// ErrInvalidSessionID is returned when a session id given by a caller is
// not one GenerateSessionID could have produced
var ErrInvalidSessionID = errors.New("invalid session id")

// GenerateSessionID generates a new UUID for a session
func GenerateSessionID() string {
	return uuid.New().String()
}

// ValidateSessionID rejects ids that are not UUIDs, so a caller supplied
// id can never resolve outside the sessions directory
func ValidateSessionID(sessionID string) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return fmt.Errorf("%w %q", ErrInvalidSessionID, sessionID)
	}
	return nil
}

// SessionDir returns the directory path for a session
func (s *Store) SessionDir(sessionID string) string {
	return filepath.Join(s.sessionsDir(), sessionID)
}

// CommandLogPath returns the path of a command's log inside a session
func (s *Store) CommandLogPath(sessionID, command string) string {
	return filepath.Join(s.SessionDir(sessionID), sanitizeName(command)+".log")
}

func (s *Store) metadataPath(sessionID string) string {
	return filepath.Join(s.SessionDir(sessionID), "metadata.json")
}

func (s *Store) latestLinkPath(taskName string) string {
	return filepath.Join(s.root, "latest", sanitizeName(taskName))
}

// OpenSession creates the directory and metadata for a new run of taskName
// and points the task's latest link at it
func (s *Store) OpenSession(taskName, trigger, host string, commands []string) (*Session, error) {
	meta := SessionMetadata{
		SessionID: GenerateSessionID(),
		TaskName:  taskName,
		Trigger:   trigger,
		Host:      host,
		Commands:  commands,
		StartTime: time.Now(),
	}

	if err := os.MkdirAll(s.SessionDir(meta.SessionID), 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := s.writeMetadata(&meta); err != nil {
		return nil, err
	}
	if err := s.createLatestLink(taskName, meta.SessionID); err != nil {
		return nil, err
	}

	return &Session{store: s, metadata: meta}, nil
}

// ID returns the session id
func (ss *Session) ID() string {
	return ss.metadata.SessionID
}

// Dir returns the session directory
func (ss *Session) Dir() string {
	return ss.store.SessionDir(ss.metadata.SessionID)
}

// CommandLog opens the output log for one command of the session
func (ss *Session) CommandLog(command string) (*Writer, error) {
	return NewWriter(ss.store.CommandLogPath(ss.metadata.SessionID, command))
}

// Finish records the outcome of the run. failed lists the commands that
// did not succeed, in configured order.
func (ss *Session) Finish(failed []string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	end := time.Now()
	duration := end.Sub(ss.metadata.StartTime)
	success := len(failed) == 0
	ss.metadata.EndTime = &end
	ss.metadata.Duration = &duration
	ss.metadata.Success = &success
	ss.metadata.FailedCommands = failed

	return ss.store.writeMetadata(&ss.metadata)
}

func (s *Store) writeMetadata(metadata *SessionMetadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(s.metadataPath(metadata.SessionID), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// ReadSessionMetadata reads session metadata from its JSON file
func (s *Store) ReadSessionMetadata(sessionID string) (*SessionMetadata, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.metadataPath(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var metadata SessionMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return &metadata, nil
}

// LatestSessionID resolves the latest session ID for a task by reading its link
func (s *Store) LatestSessionID(taskName string) (string, error) {
	target, err := os.Readlink(s.latestLinkPath(taskName))
	if err != nil {
		return "", fmt.Errorf("failed to read latest symlink: %w", err)
	}
	return filepath.Base(target), nil
}

// createLatestLink creates or updates the latest symlink for a task
func (s *Store) createLatestLink(taskName, sessionID string) error {
	linkPath := s.latestLinkPath(taskName)
	target := filepath.Join("..", sessionsDirName, sessionID)

	if err := os.MkdirAll(filepath.Dir(linkPath), 0755); err != nil {
		return fmt.Errorf("failed to create latest directory: %w", err)
	}

	// Concurrent firings of one task race here; the last writer wins
	tmp := linkPath + "." + sessionID
	if err := os.Symlink(target, tmp); err != nil {
		return fmt.Errorf("failed to create symlink: %w", err)
	}
	if err := os.Rename(tmp, linkPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace symlink: %w", err)
	}

	return nil
}

// ListSessions lists recent sessions for a task, newest first
func (s *Store) ListSessions(taskName string, limit int) ([]SessionInfo, error) {
	entries, err := os.ReadDir(s.sessionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []SessionInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	sessions := []SessionInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		metadata, err := s.ReadSessionMetadata(entry.Name())
		if err != nil {
			// Skip sessions with missing or invalid metadata
			continue
		}
		if taskName != "" && metadata.TaskName != taskName {
			continue
		}

		sessions = append(sessions, SessionInfo{
			SessionID: metadata.SessionID,
			TaskName:  metadata.TaskName,
			StartTime: metadata.StartTime,
			Dir:       s.SessionDir(metadata.SessionID),
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})

	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}

	return sessions, nil
}

// sanitizeName makes a task or command name safe to use as a file name
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, name)
}
