// Package remote runs shell lines on other hosts over SSH.
package remote

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
)

// Session is one remote shell invocation
type Session interface {
	// Run executes line through the remote user's shell and waits for it.
	// A non-zero exit is reported as *ExitError; anything else is a
	// transport failure.
	Run(line string, stdout, stderr io.Writer) error
	Close() error
}

// Dialer opens sessions to a destination of the form [user@]host[:port]
type Dialer interface {
	Dial(ctx context.Context, destination string) (Session, error)
}

// ExitError reports a remote command that ran and exited non-zero
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("remote command exited with status %d", e.Code)
}

// ParseDestination splits destination into a user and a dialable
// host:port, filling in defaultUser and defaultPort when absent. Bracketed
// and bare IPv6 addresses are accepted.
func ParseDestination(destination, defaultUser string, defaultPort int) (user, addr string, err error) {
	user = defaultUser
	rest := strings.TrimSpace(destination)
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		user, rest = rest[:i], rest[i+1:]
	}

	host, port := rest, strconv.Itoa(defaultPort)
	if h, p, splitErr := net.SplitHostPort(rest); splitErr == nil {
		host, port = h, p
	} else if strings.HasPrefix(rest, "[") && strings.HasSuffix(rest, "]") {
		host = rest[1 : len(rest)-1]
	}

	if host == "" {
		return "", "", fmt.Errorf("invalid destination %q: missing host", destination)
	}
	if user == "" {
		return "", "", fmt.Errorf("invalid destination %q: missing user", destination)
	}
	if n, convErr := strconv.Atoi(port); convErr != nil || n < 1 || n > 65535 {
		return "", "", fmt.Errorf("invalid destination %q: bad port %q", destination, port)
	}

	return user, net.JoinHostPort(host, port), nil
}
