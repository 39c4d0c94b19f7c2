package logs

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Setup(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	return s
}

func TestSetup(t *testing.T) {
	root := filepath.Join(t.TempDir(), "state")

	s, err := Setup(root)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if s.Root() != root {
		t.Errorf("expected root %s, got %s", root, s.Root())
	}

	if _, err := os.Stat(filepath.Join(root, "sessions")); err != nil {
		t.Errorf("sessions directory was not created: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		t.Fatalf("failed to read .gitignore: %v", err)
	}
	if strings.TrimSpace(string(content)) != "*" {
		t.Errorf("expected .gitignore to ignore everything, got: %s", content)
	}

	if _, err := Setup(root); err != nil {
		t.Errorf("Setup should be idempotent, but failed on second run: %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		wantErr bool
	}{
		{"info", "console", false},
		{"debug", "json", false},
		{"WARN", "", false},
		{"loud", "console", true},
		{"info", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			_, err := NewLogger(tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLogger(%q, %q) error = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
			}
		})
	}
}

func TestOpenSession(t *testing.T) {
	s := newStore(t)

	session, err := s.OpenSession("backup", "cron", "db1", []string{"dump", "upload"})
	if err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}

	meta, err := s.ReadSessionMetadata(session.ID())
	if err != nil {
		t.Fatalf("failed to read metadata: %v", err)
	}
	if meta.TaskName != "backup" || meta.Trigger != "cron" || meta.Host != "db1" {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if meta.Success != nil || meta.EndTime != nil {
		t.Errorf("expected an unfinished session, got %+v", meta)
	}

	latest, err := s.LatestSessionID("backup")
	if err != nil {
		t.Fatalf("LatestSessionID failed: %v", err)
	}
	if latest != session.ID() {
		t.Errorf("expected latest %s, got %s", session.ID(), latest)
	}

	if err := session.Finish([]string{"upload"}); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	meta, err = s.ReadSessionMetadata(session.ID())
	if err != nil {
		t.Fatalf("failed to read metadata: %v", err)
	}
	if meta.Success == nil || *meta.Success {
		t.Errorf("expected failed session, got %+v", meta.Success)
	}
	if len(meta.FailedCommands) != 1 || meta.FailedCommands[0] != "upload" {
		t.Errorf("unexpected failed commands: %v", meta.FailedCommands)
	}
	if meta.Duration == nil || meta.EndTime == nil {
		t.Error("expected duration and end time to be recorded")
	}

	second, err := s.OpenSession("backup", "manual", "db1", []string{"dump"})
	if err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}
	latest, _ = s.LatestSessionID("backup")
	if latest != second.ID() {
		t.Errorf("expected latest link to move to %s, got %s", second.ID(), latest)
	}
}

func TestMetadataJSON(t *testing.T) {
	s := newStore(t)
	session, err := s.OpenSession("t", "file", "local", []string{"a"})
	if err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(session.Dir(), "metadata.json"))
	if err != nil {
		t.Fatalf("failed to read metadata.json: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("metadata is not valid JSON: %v", err)
	}
	for _, key := range []string{"session_id", "task_name", "trigger", "start_time", "commands"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("expected key %q in metadata", key)
		}
	}
}

func TestWriterConcurrent(t *testing.T) {
	s := newStore(t)
	session, err := s.OpenSession("t", "manual", "local", []string{"echo"})
	if err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}

	w, err := session.CommandLog("echo")
	if err != nil {
		t.Fatalf("CommandLog failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := w.Write([]byte("line\n")); err != nil {
				t.Errorf("write failed: %v", err)
			}
		}()
	}
	wg.Wait()
	if err := w.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	lines, err := s.ReadLog("t", ReadOptions{Command: "echo"})
	if err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}
	if len(lines) != 10 {
		t.Errorf("expected 10 lines, got %d", len(lines))
	}
}

func TestWriterCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.log")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	chunk := []byte(strings.Repeat("x", 1024*1024))
	for i := 0; i < 12; i++ {
		n, err := w.Write(chunk)
		if err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
		if n != len(chunk) {
			t.Fatalf("expected full write to be reported, got %d", n)
		}
	}
	w.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	want := int64(MaxLogSize + len(truncatedMarker))
	if info.Size() != want {
		t.Errorf("expected log capped at %d bytes, got %d", want, info.Size())
	}
}

func TestReadLog(t *testing.T) {
	s := newStore(t)
	session, err := s.OpenSession("build", "manual", "local", []string{"compile", "test"})
	if err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}

	write := func(command, content string) {
		w, err := session.CommandLog(command)
		if err != nil {
			t.Fatalf("CommandLog failed: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		w.Close()
	}
	write("compile", "compiling\nERROR: missing symbol\n")
	write("test", "ok 1\nok 2\nERROR: flaky\n")

	tests := []struct {
		name string
		opts ReadOptions
		want []string
	}{
		{
			name: "all commands",
			want: []string{"==> compile <==", "compiling", "ERROR: missing symbol", "==> test <==", "ok 1", "ok 2", "ERROR: flaky"},
		},
		{
			name: "single command",
			opts: ReadOptions{Command: "test"},
			want: []string{"ok 1", "ok 2", "ERROR: flaky"},
		},
		{
			name: "tail",
			opts: ReadOptions{Lines: 2},
			want: []string{"ok 2", "ERROR: flaky"},
		},
		{
			name: "filter",
			opts: ReadOptions{Filter: "^ERROR"},
			want: []string{"ERROR: missing symbol", "ERROR: flaky"},
		},
		{
			name: "explicit session",
			opts: ReadOptions{SessionID: session.ID(), Command: "compile", Lines: 1},
			want: []string{"ERROR: missing symbol"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ReadLog("build", tt.opts)
			if err != nil {
				t.Fatalf("ReadLog failed: %v", err)
			}
			if strings.Join(got, "\n") != strings.Join(tt.want, "\n") {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	if _, err := s.ReadLog("build", ReadOptions{Filter: "("}); err == nil {
		t.Error("expected error for invalid filter")
	}

	lines, err := s.ReadLog("never-ran", ReadOptions{})
	if err != nil || len(lines) != 0 {
		t.Errorf("expected no lines for a task without sessions, got %v, %v", lines, err)
	}
}

func TestInvalidSessionIDRejected(t *testing.T) {
	s := newStore(t)

	// A metadata file outside the sessions directory must stay unreachable
	outside := filepath.Join(s.Root(), "metadata.json")
	if err := os.WriteFile(outside, []byte(`{"task_name":"leak"}`), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	for _, id := range []string{"..", "../..", "../../etc", "not-a-uuid", "/tmp"} {
		t.Run(id, func(t *testing.T) {
			if _, err := s.ReadSessionMetadata(id); !errors.Is(err, ErrInvalidSessionID) {
				t.Errorf("ReadSessionMetadata(%q) error = %v, want ErrInvalidSessionID", id, err)
			}
			if _, err := s.ReadLog("build", ReadOptions{SessionID: id, Command: "x"}); !errors.Is(err, ErrInvalidSessionID) {
				t.Errorf("ReadLog(%q) error = %v, want ErrInvalidSessionID", id, err)
			}
		})
	}

	if err := ValidateSessionID(GenerateSessionID()); err != nil {
		t.Errorf("generated id should be valid, got %v", err)
	}
}

func TestListSessions(t *testing.T) {
	s := newStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		session, err := s.OpenSession("a", "cron", "local", nil)
		if err != nil {
			t.Fatalf("OpenSession failed: %v", err)
		}
		ids = append(ids, session.ID())
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := s.OpenSession("b", "cron", "local", nil); err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}

	sessions, err := s.ListSessions("a", 0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	if sessions[0].SessionID != ids[2] {
		t.Errorf("expected newest session first")
	}

	limited, _ := s.ListSessions("a", 2)
	if len(limited) != 2 {
		t.Errorf("expected limit to apply, got %d", len(limited))
	}

	all, _ := s.ListSessions("", 0)
	if len(all) != 4 {
		t.Errorf("expected 4 sessions across tasks, got %d", len(all))
	}
}

func TestCleanupSessions(t *testing.T) {
	s := newStore(t)

	for i := 0; i < 5; i++ {
		if _, err := s.OpenSession("a", "cron", "local", nil); err != nil {
			t.Fatalf("OpenSession failed: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	old, err := s.OpenSession("b", "cron", "local", nil)
	if err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}
	meta, _ := s.ReadSessionMetadata(old.ID())
	meta.StartTime = time.Now().Add(-48 * time.Hour)
	if err := s.writeMetadata(meta); err != nil {
		t.Fatalf("failed to rewrite metadata: %v", err)
	}

	deleted, err := s.CleanupAllSessions(logr.Discard(), Retention{MaxSessions: 2, MaxAge: 24 * time.Hour})
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if deleted != 4 {
		t.Errorf("expected 4 sessions deleted, got %d", deleted)
	}

	remaining, _ := s.ListSessions("", 0)
	if len(remaining) != 2 {
		t.Errorf("expected 2 sessions to remain, got %d", len(remaining))
	}
	for _, r := range remaining {
		if r.TaskName != "a" {
			t.Errorf("expected only task a sessions to remain, got %s", r.TaskName)
		}
	}
}
