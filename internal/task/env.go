package task

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"
)

// EnvVar is one KEY=value pair of a command's environment
type EnvVar struct {
	Key   string
	Value string
}

func (e EnvVar) String() string {
	return e.Key + "=" + e.Value
}

// ParseEnvVar parses a KEY=value line, splitting on the first '=' and
// trimming whitespace around both halves. Keys with lowercase letters are
// accepted but logged as a warning.
func ParseEnvVar(log logr.Logger, line string) (EnvVar, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return EnvVar{}, fmt.Errorf("invalid env var %q: expected KEY=value", line)
	}

	ev := EnvVar{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)}
	if ev.Key == "" {
		return EnvVar{}, fmt.Errorf("invalid env var %q: empty key", line)
	}
	if strings.ToUpper(ev.Key) != ev.Key {
		log.Info("warning: env var key is not uppercase", "key", ev.Key)
	}

	return ev, nil
}

// ParseEnvVars parses lines in order. Duplicate keys are kept.
func ParseEnvVars(log logr.Logger, lines []string) ([]EnvVar, error) {
	vars := make([]EnvVar, 0, len(lines))
	for _, line := range lines {
		ev, err := ParseEnvVar(log, line)
		if err != nil {
			return nil, err
		}
		vars = append(vars, ev)
	}
	return vars, nil
}
