package task

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"overseer.dev/internal/remote"
)

// fakeDialer records every remote line it is asked to run. A line
// containing a key of exitCodes exits with that code; a line containing
// panicOn panics.
type fakeDialer struct {
	mu        sync.Mutex
	lines     []string
	dialErr   error
	exitCodes map[string]int
	panicOn   string
}

func (d *fakeDialer) Dial(ctx context.Context, destination string) (remote.Session, error) {
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return &fakeSession{dialer: d, dest: destination}, nil
}

func (d *fakeDialer) ran() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.lines))
	copy(out, d.lines)
	return out
}

type fakeSession struct {
	dialer *fakeDialer
	dest   string
}

func (s *fakeSession) Run(line string, stdout, stderr io.Writer) error {
	d := s.dialer
	if d.panicOn != "" && strings.Contains(line, d.panicOn) {
		panic("fake session exploded")
	}

	d.mu.Lock()
	d.lines = append(d.lines, s.dest+": "+line)
	d.mu.Unlock()

	fmt.Fprintf(stdout, "remote %s\n", line)
	for key, code := range d.exitCodes {
		if strings.Contains(line, key) {
			return &remote.ExitError{Code: code}
		}
	}
	return nil
}

func (s *fakeSession) Close() error { return nil }

type scheduled struct {
	id   uint64
	expr string
	job  func()
}

// fakeScheduler keeps registrations so tests can fire them by hand
type fakeScheduler struct {
	mu   sync.Mutex
	jobs []scheduled
	err  error
}

func (s *fakeScheduler) Schedule(id uint64, expr string, job func()) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, scheduled{id: id, expr: expr, job: job})
	return nil
}

func (s *fakeScheduler) registered() []scheduled {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]scheduled, len(s.jobs))
	copy(out, s.jobs)
	return out
}
