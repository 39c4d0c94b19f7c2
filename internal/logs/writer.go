package logs

import (
	"fmt"
	"os"
	"sync"
)

const truncatedMarker = "\n[output truncated]\n"

// Writer appends a command's output to its session log. It is safe for
// concurrent use so stdout and stderr can share it. Output past
// MaxLogSize is discarded.
type Writer struct {
	mu        sync.Mutex
	file      *os.File
	logPath   string
	written   int64
	truncated bool
}

// NewWriter opens/creates the log file at logPath for appending
func NewWriter(logPath string) (*Writer, error) {
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &Writer{
		file:    file,
		logPath: logPath,
	}, nil
}

// Write writes p to the log file. It always reports len(p) as written so
// a full log never fails the command producing the output.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.truncated {
		return len(p), nil
	}

	chunk := p
	if remaining := MaxLogSize - w.written; int64(len(chunk)) > remaining {
		chunk = chunk[:remaining]
		w.truncated = true
	}

	n, err := w.file.Write(chunk)
	w.written += int64(n)
	if err != nil {
		return n, err
	}
	if w.truncated {
		_, _ = w.file.WriteString(truncatedMarker)
	}

	return len(p), nil
}

// Path returns the log file path
func (w *Writer) Path() string {
	return w.logPath
}

// Close closes the log file
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}
