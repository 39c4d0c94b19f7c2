package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// sessionsDirName is the directory under the state dir holding one
	// directory per run session
	sessionsDirName = "sessions"
	// MaxLogSize caps a single command log; output past it is discarded (10MB)
	MaxLogSize = 10 * 1024 * 1024
)

// Store is the on-disk home of run sessions, rooted at the state directory
type Store struct {
	root string
}

// Setup initializes the state directory structure under root and returns
// a Store for it. A .gitignore is created so the state never gets committed.
func Setup(root string) (*Store, error) {
	s := &Store{root: root}

	if err := os.MkdirAll(s.sessionsDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	gitignorePath := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		if err := os.WriteFile(gitignorePath, []byte("*\n"), 0644); err != nil {
			return nil, fmt.Errorf("failed to create .gitignore: %w", err)
		}
	}

	return s, nil
}

// Root returns the state directory the store lives in
func (s *Store) Root() string {
	return s.root
}

func (s *Store) sessionsDir() string {
	return filepath.Join(s.root, sessionsDirName)
}

// NewLogger builds the process logger. level is one of debug, info, warn,
// error; format is console or json.
func NewLogger(level, format string) (logr.Logger, error) {
	var zl zapcore.Level
	if err := zl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return logr.Discard(), fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console", "":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return logr.Discard(), fmt.Errorf("invalid log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(zl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	zlog, err := cfg.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("failed to build logger: %w", err)
	}

	return zapr.NewLogger(zlog), nil
}
