package logs

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
)

// ReadOptions contains options for reading command logs
type ReadOptions struct {
	Lines     int    // Number of lines to tail (0 means all)
	Filter    string // Regex pattern to filter lines (empty means no filter)
	SessionID string // Session to read from (empty means latest for the task)
	Command   string // Command whose log is read (empty means every command in order)
}

// ReadLog reads the output of a task's run session with optional tailing
// and filtering. Without a Command, the logs of every command recorded in
// the session metadata are concatenated, each preceded by a header line.
func (s *Store) ReadLog(taskName string, opts ReadOptions) ([]string, error) {
	sessionID := opts.SessionID
	if sessionID != "" {
		if err := ValidateSessionID(sessionID); err != nil {
			return nil, err
		}
	} else {
		latest, err := s.LatestSessionID(taskName)
		if err != nil {
			return []string{}, nil // No session yet
		}
		sessionID = latest
	}

	var lines []string
	if opts.Command != "" {
		read, err := readLines(s.CommandLogPath(sessionID, opts.Command))
		if err != nil {
			return nil, err
		}
		lines = read
	} else {
		metadata, err := s.ReadSessionMetadata(sessionID)
		if err != nil {
			return nil, err
		}
		for _, command := range metadata.Commands {
			read, err := readLines(s.CommandLogPath(sessionID, command))
			if err != nil {
				return nil, err
			}
			lines = append(lines, fmt.Sprintf("==> %s <==", command))
			lines = append(lines, read...)
		}
	}

	if opts.Filter != "" {
		filtered, err := filterLines(lines, opts.Filter)
		if err != nil {
			return nil, fmt.Errorf("failed to filter lines: %w", err)
		}
		lines = filtered
	}

	if opts.Lines > 0 && len(lines) > opts.Lines {
		lines = lines[len(lines)-opts.Lines:]
	}

	return lines, nil
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			// A command that never started has no log
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	lines := []string{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	return lines, nil
}

// filterLines filters lines using a regex pattern
func filterLines(lines []string, pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}

	filtered := []string{}
	for _, line := range lines {
		if re.MatchString(line) {
			filtered = append(filtered, line)
		}
	}

	return filtered, nil
}
