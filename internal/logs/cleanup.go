package logs

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/go-logr/logr"
)

// Retention defines how many run sessions are kept
type Retention struct {
	MaxSessions int           // Maximum number of sessions to keep per task (0 = unlimited)
	MaxAge      time.Duration // Maximum age of sessions to keep (0 = unlimited)
}

// DefaultRetention keeps 100 sessions per task for at most 7 days
var DefaultRetention = Retention{
	MaxSessions: 100,
	MaxAge:      7 * 24 * time.Hour,
}

// CleanupOldSessions removes a task's sessions that fall outside retention.
// Returns the number of sessions deleted.
func (s *Store) CleanupOldSessions(log logr.Logger, taskName string, retention Retention) (int, error) {
	sessions, err := s.ListSessions(taskName, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	// ListSessions is newest first; everything past the count limit or
	// older than MaxAge goes
	now := time.Now()
	deleted := 0
	for i, session := range sessions {
		tooMany := retention.MaxSessions > 0 && i >= retention.MaxSessions
		tooOld := retention.MaxAge > 0 && now.Sub(session.StartTime) > retention.MaxAge
		if !tooMany && !tooOld {
			continue
		}
		if err := os.RemoveAll(s.SessionDir(session.SessionID)); err != nil {
			log.Error(err, "failed to delete session", "session", session.SessionID)
			continue
		}
		deleted++
	}

	return deleted, nil
}

// CleanupAllSessions applies retention to the sessions of every task
func (s *Store) CleanupAllSessions(log logr.Logger, retention Retention) (int, error) {
	sessions, err := s.ListSessions("", 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	taskNames := make(map[string]bool)
	for _, session := range sessions {
		taskNames[session.TaskName] = true
	}
	names := make([]string, 0, len(taskNames))
	for name := range taskNames {
		names = append(names, name)
	}
	sort.Strings(names)

	total := 0
	for _, name := range names {
		deleted, err := s.CleanupOldSessions(log, name, retention)
		if err != nil {
			log.Error(err, "failed to clean up sessions", "task", name)
		}
		total += deleted
	}
	if total > 0 {
		log.V(1).Info("removed expired sessions", "count", total)
	}

	return total, nil
}
