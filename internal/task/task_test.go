package task

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// captureLogger returns a logger that records every line it writes
func captureLogger() (logr.Logger, *[]string) {
	var lines []string
	log := funcr.New(func(prefix, args string) {
		lines = append(lines, prefix+" "+args)
	}, funcr.Options{Verbosity: 1})
	return log, &lines
}

func TestParseHost(t *testing.T) {
	tests := []struct {
		in        string
		wantLocal bool
		wantAddr  string
	}{
		{in: "", wantLocal: true},
		{in: "local", wantLocal: true},
		{in: "LOCALHOST", wantLocal: true},
		{in: "127.0.0.1", wantLocal: true},
		{in: "::1", wantLocal: true},
		{in: " local ", wantLocal: true},
		{in: "db1.example.com", wantAddr: "db1.example.com"},
		{in: "deploy@db1:2222", wantAddr: "deploy@db1:2222"},
		{in: "127.0.0.2", wantAddr: "127.0.0.2"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h := ParseHost(tt.in)
			if h.IsLocal() != tt.wantLocal {
				t.Errorf("ParseHost(%q).IsLocal() = %v, want %v", tt.in, h.IsLocal(), tt.wantLocal)
			}
			if h.Address() != tt.wantAddr {
				t.Errorf("ParseHost(%q).Address() = %q, want %q", tt.in, h.Address(), tt.wantAddr)
			}
		})
	}

	if ParseHost("") != ParseHost("local") {
		t.Error("expected an absent host to equal host: local")
	}
	if LocalHost.String() != "local" {
		t.Errorf("expected local host to print as local, got %s", LocalHost)
	}
}

func TestParseEnvVar(t *testing.T) {
	tests := []struct {
		line     string
		want     EnvVar
		wantErr  bool
		wantWarn bool
	}{
		{line: "KEY=value", want: EnvVar{"KEY", "value"}},
		{line: " KEY = value ", want: EnvVar{"KEY", "value"}},
		{line: "URL=http://x?a=b", want: EnvVar{"URL", "http://x?a=b"}},
		{line: "EMPTY=", want: EnvVar{"EMPTY", ""}},
		{line: "key=val", want: EnvVar{"key", "val"}, wantWarn: true},
		{line: "NOEQUALS", wantErr: true},
		{line: "=value", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			log, lines := captureLogger()
			got, err := ParseEnvVar(log, tt.line)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got %+v", tt.line, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseEnvVar(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
			warned := len(*lines) > 0 && strings.Contains((*lines)[0], "not uppercase")
			if warned != tt.wantWarn {
				t.Errorf("expected warning=%v, got log lines %v", tt.wantWarn, *lines)
			}
		})
	}
}

func TestParseEnvVarsKeepsDuplicates(t *testing.T) {
	vars, err := ParseEnvVars(logr.Discard(), []string{"A=1", "B=2", "A=3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []EnvVar{{"A", "1"}, {"B", "2"}, {"A", "3"}}
	if !reflect.DeepEqual(vars, want) {
		t.Errorf("expected %v, got %v", want, vars)
	}

	if _, err := ParseEnvVars(logr.Discard(), []string{"A=1", "broken"}); err == nil {
		t.Error("expected error for malformed entry")
	}
}

func TestParseCommandSpec(t *testing.T) {
	if _, err := os.Stat("/bin/echo"); err != nil {
		t.Skip("/bin/echo not available")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "run.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho hi\n"), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	plain := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(plain, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	tests := []struct {
		name        string
		line        string
		wantProgram string
		wantArgs    []string
		wantShell   bool
	}{
		{name: "executable", line: "/bin/echo hello", wantProgram: "/bin/echo", wantArgs: []string{"hello"}},
		{name: "extra whitespace", line: "/bin/echo  a   b", wantProgram: "/bin/echo", wantArgs: []string{"a", "b"}},
		{name: "no args", line: script, wantProgram: script, wantArgs: []string{}},
		{name: "shell line", line: "echo hello && echo world", wantProgram: "sh", wantArgs: []string{"-c", "echo hello && echo world"}, wantShell: true},
		{name: "not executable", line: plain + " arg", wantProgram: "sh", wantArgs: []string{"-c", plain + " arg"}, wantShell: true},
		{name: "directory", line: dir, wantProgram: "sh", wantArgs: []string{"-c", dir}, wantShell: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := ParseCommandSpec(tt.line)
			if spec.Program != tt.wantProgram || spec.Shell != tt.wantShell {
				t.Errorf("ParseCommandSpec(%q) = %+v", tt.line, spec)
			}
			if !reflect.DeepEqual(spec.Args, tt.wantArgs) {
				t.Errorf("expected args %q, got %q", tt.wantArgs, spec.Args)
			}
			if spec.Raw != tt.line {
				t.Errorf("expected raw line to be kept, got %q", spec.Raw)
			}
		})
	}
}

func TestRemoteLine(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{
			name: "env, dir and command",
			cmd:  Command{WorkingDir: "/srv/app", Env: []EnvVar{{"FOO", "bar"}}, Spec: ParseCommandSpec("./start.sh")},
			want: "export FOO=bar && cd /srv/app && ./start.sh",
		},
		{
			name: "command only",
			cmd:  Command{Spec: ParseCommandSpec("uptime")},
			want: "uptime",
		},
		{
			name: "several env vars",
			cmd:  Command{Env: []EnvVar{{"A", "1"}, {"B", "2"}, {"A", "3"}}, Spec: ParseCommandSpec("env")},
			want: "export A=1 B=2 A=3 && env",
		},
		{
			name: "dir only",
			cmd:  Command{WorkingDir: "logs", Spec: ParseCommandSpec("ls -la")},
			want: "cd logs && ls -la",
		},
		{
			name: "program spec",
			cmd:  Command{Spec: CommandSpec{Program: "/usr/bin/rsync", Args: []string{"-a", "src", "dst"}}},
			want: "/usr/bin/rsync -a src dst",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cmd.RemoteLine(); got != tt.want {
				t.Errorf("RemoteLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunLocal(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")

	cmd := &Command{
		Name:       "write",
		WorkingDir: dir,
		Env:        []EnvVar{{"GREETING", "hi"}, {"GREETING", "hello"}},
		Spec:       ParseCommandSpec("echo \"$GREETING\" > out.txt"),
	}
	if err := cmd.RunLocal(context.Background(), nil); err != nil {
		t.Fatalf("RunLocal failed: %v", err)
	}
	content, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("expected output file in working dir: %v", err)
	}
	if strings.TrimSpace(string(content)) != "hello" {
		t.Errorf("expected last duplicate env var to win, got %q", content)
	}

	fail := &Command{Name: "fail", Spec: ParseCommandSpec("exit 7")}
	err = fail.RunLocal(context.Background(), nil)
	var ce *CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CommandError, got %v", err)
	}
	if ce.Kind != KindExitStatus || ce.Code != 7 || ce.Command != "fail" {
		t.Errorf("unexpected error: %+v", ce)
	}

	missing := &Command{Name: "missing", WorkingDir: filepath.Join(dir, "nope"), Spec: ParseCommandSpec("true")}
	err = missing.RunLocal(context.Background(), nil)
	if !errors.As(err, &ce) || ce.Kind != KindIo {
		t.Errorf("expected an Io error for a missing working dir, got %v", err)
	}
}

func TestRunRemote(t *testing.T) {
	dialer := &fakeDialer{exitCodes: map[string]int{"false": 1}}

	cmd := &Command{Name: "deploy", WorkingDir: "/srv/app", Env: []EnvVar{{"FOO", "bar"}}, Spec: ParseCommandSpec("./start.sh")}
	if err := cmd.RunRemote(context.Background(), dialer, "app1", nil); err != nil {
		t.Fatalf("RunRemote failed: %v", err)
	}
	if got := dialer.ran(); len(got) != 1 || got[0] != "app1: export FOO=bar && cd /srv/app && ./start.sh" {
		t.Errorf("unexpected remote invocations: %v", got)
	}

	var ce *CommandError
	err := (&Command{Name: "f", Spec: ParseCommandSpec("false")}).RunRemote(context.Background(), dialer, "app1", nil)
	if !errors.As(err, &ce) || ce.Kind != KindExitStatus || ce.Code != 1 {
		t.Errorf("expected exit status 1, got %v", err)
	}

	broken := &fakeDialer{dialErr: errors.New("connection refused")}
	err = cmd.RunRemote(context.Background(), broken, "app1", nil)
	if !errors.As(err, &ce) || ce.Kind != KindRemoteTransport {
		t.Errorf("expected transport error, got %v", err)
	}

	err = cmd.RunRemote(context.Background(), nil, "app1", nil)
	if !errors.As(err, &ce) || ce.Kind != KindRemoteTransport {
		t.Errorf("expected transport error without a dialer, got %v", err)
	}
}

func TestRemoteRelativeWorkingDirWarns(t *testing.T) {
	log, lines := captureLogger()
	ctx := logr.NewContext(context.Background(), log)

	cmd := &Command{Name: "rel", WorkingDir: "app", Spec: ParseCommandSpec("ls")}
	if err := cmd.RunRemote(ctx, &fakeDialer{}, "h", nil); err != nil {
		t.Fatalf("RunRemote failed: %v", err)
	}
	found := false
	for _, l := range *lines {
		if strings.Contains(l, "not absolute") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a warning for a relative working dir, got %v", *lines)
	}
}

func TestRunErrorUnwrap(t *testing.T) {
	sentinel := errors.New("boom")
	runErr := &RunError{Task: "t", Errors: []*CommandError{
		{Command: "a", Kind: KindExitStatus, Code: 2},
		{Command: "b", Kind: KindIo, Err: sentinel},
	}}

	if !errors.Is(runErr, sentinel) {
		t.Error("expected errors.Is to reach command errors")
	}
	var ce *CommandError
	if !errors.As(runErr, &ce) || ce.Command != "a" {
		t.Errorf("expected errors.As to find the first command error, got %v", ce)
	}
	if got := runErr.Failed(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("unexpected failed names: %v", got)
	}
	if !strings.Contains(runErr.Error(), "2 command(s) failed") {
		t.Errorf("unexpected message: %s", runErr.Error())
	}
}
