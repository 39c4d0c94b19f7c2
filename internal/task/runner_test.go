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

	"overseer.dev/internal/logs"
)

func shellCommand(name, line string) *Command {
	return &Command{Name: name, Spec: ParseCommandSpec(line)}
}

func TestRunAggregatesFailuresInOrder(t *testing.T) {
	// Failures finish in reverse order of their position
	commands := []*Command{
		shellCommand("slow-fail", "sleep 0.4; exit 2"),
		shellCommand("ok", "true"),
		shellCommand("fast-fail", "exit 5"),
		shellCommand("slow-ok", "sleep 0.1"),
		shellCommand("mid-fail", "sleep 0.2; exit 9"),
	}
	task := NewCronTask("agg", LocalHost, "@hourly", commands, nil)

	err := task.Run(context.Background())
	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected *RunError, got %v", err)
	}
	if runErr.Task != "agg" {
		t.Errorf("expected task name agg, got %s", runErr.Task)
	}

	wantNames := []string{"slow-fail", "fast-fail", "mid-fail"}
	wantCodes := []int{2, 5, 9}
	if len(runErr.Errors) != len(wantNames) {
		t.Fatalf("expected %d errors, got %d: %v", len(wantNames), len(runErr.Errors), runErr)
	}
	for i, ce := range runErr.Errors {
		if ce.Command != wantNames[i] || ce.Code != wantCodes[i] || ce.Kind != KindExitStatus {
			t.Errorf("error %d: expected %s exiting %d, got %+v", i, wantNames[i], wantCodes[i], ce)
		}
	}
}

func TestCommandsCannotBeReplaced(t *testing.T) {
	commands := []*Command{shellCommand("a", "true"), shellCommand("b", "true")}
	task := NewCronTask("fixed", LocalHost, "@hourly", commands, nil)

	// Neither the constructor's slice nor a returned slice reaches the task
	commands[0] = shellCommand("swapped", "exit 1")
	got := task.Commands()
	got[1] = shellCommand("swapped", "exit 1")
	_ = append(got[:1], shellCommand("extra", "exit 1"))

	names := namesOf(task.Commands())
	if !reflect.DeepEqual(names, []string{"a", "b"}) {
		t.Errorf("expected commands [a b], got %v", names)
	}
	if err := task.Run(context.Background()); err != nil {
		t.Errorf("expected the original commands to run, got %v", err)
	}
}

func TestRunSuccess(t *testing.T) {
	task := NewCronTask("ok", LocalHost, "@hourly", []*Command{
		shellCommand("a", "true"),
		shellCommand("b", "true"),
	}, nil)
	if err := task.Run(context.Background()); err != nil {
		t.Errorf("expected success, got %v", err)
	}

	empty := NewCronTask("empty", LocalHost, "@hourly", nil, nil)
	if err := empty.Run(context.Background()); err != nil {
		t.Errorf("expected a task without commands to succeed, got %v", err)
	}
}

func TestRunRecoversPanics(t *testing.T) {
	dialer := &fakeDialer{panicOn: "explode"}
	rt := &Runtime{Log: logr.Discard(), Dialer: dialer}
	task := NewCronTask("panicky", RemoteHost("app1"), "@hourly", []*Command{
		shellCommand("fine", "uptime"),
		shellCommand("bad", "explode now"),
	}, rt)

	err := task.Run(context.Background())
	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected *RunError, got %v", err)
	}
	if len(runErr.Errors) != 1 {
		t.Fatalf("expected only the panicking command to fail, got %v", runErr)
	}
	ce := runErr.Errors[0]
	if ce.Kind != KindPanic || ce.Command != "bad" {
		t.Errorf("expected a panic failure for 'bad', got %+v", ce)
	}
	if !strings.Contains(ce.Error(), "fake session exploded") {
		t.Errorf("expected panic value in message, got %s", ce.Error())
	}
	if got := dialer.ran(); len(got) != 1 || !strings.HasSuffix(got[0], "uptime") {
		t.Errorf("expected sibling to run to completion, got %v", got)
	}
}

func TestRunRemoteHost(t *testing.T) {
	dialer := &fakeDialer{exitCodes: map[string]int{"migrate": 3}}
	rt := &Runtime{Log: logr.Discard(), Dialer: dialer}
	task := NewCronTask("deploy", RemoteHost("deploy@app1"), "@daily", []*Command{
		{Name: "pull", WorkingDir: "/srv/app", Spec: ParseCommandSpec("git pull")},
		{Name: "migrate", WorkingDir: "/srv/app", Env: []EnvVar{{"ENV", "prod"}}, Spec: ParseCommandSpec("./migrate")},
	}, rt)

	res := Execute(context.Background(), task)
	if res.Success {
		t.Fatal("expected failure from migrate")
	}
	if res.Host != "deploy@app1" || res.Trigger != TriggerManual {
		t.Errorf("unexpected result metadata: %+v", res)
	}
	if !res.Commands[0].Success || res.Commands[1].Success {
		t.Errorf("unexpected per-command results: %+v", res.Commands)
	}
	if res.Commands[1].ExitCode != 3 || res.Commands[1].ErrorKind != "exit_status" {
		t.Errorf("expected exit status 3, got %+v", res.Commands[1])
	}

	ran := dialer.ran()
	if len(ran) != 2 {
		t.Fatalf("expected 2 remote invocations, got %v", ran)
	}
	want := map[string]bool{
		"deploy@app1: cd /srv/app && git pull":                     true,
		"deploy@app1: export ENV=prod && cd /srv/app && ./migrate": true,
	}
	for _, line := range ran {
		if !want[line] {
			t.Errorf("unexpected remote invocation %q", line)
		}
	}
}

func TestRunRecordsSession(t *testing.T) {
	store, err := logs.Setup(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("failed to set up store: %v", err)
	}
	rt := &Runtime{Log: logr.Discard(), Sessions: store, Retention: logs.Retention{MaxSessions: 2}}
	task := NewFileEventTask("build", LocalHost, []string{"/src"}, []*Command{
		shellCommand("compile", "echo compiling; echo warning >&2"),
		shellCommand("test", "echo testing; exit 1"),
	}, rt)

	res := Execute(context.Background(), task)
	if res.SessionID == "" {
		t.Fatal("expected a session id")
	}

	meta, err := store.ReadSessionMetadata(res.SessionID)
	if err != nil {
		t.Fatalf("failed to read metadata: %v", err)
	}
	if meta.Success == nil || *meta.Success {
		t.Errorf("expected failed session, got %+v", meta)
	}
	if !reflect.DeepEqual(meta.FailedCommands, []string{"test"}) {
		t.Errorf("expected failed commands [test], got %v", meta.FailedCommands)
	}
	if !reflect.DeepEqual(meta.Commands, []string{"compile", "test"}) {
		t.Errorf("expected commands in configured order, got %v", meta.Commands)
	}

	content, err := os.ReadFile(res.Commands[0].LogPath)
	if err != nil {
		t.Fatalf("failed to read command log: %v", err)
	}
	if !strings.Contains(string(content), "compiling") || !strings.Contains(string(content), "warning") {
		t.Errorf("expected stdout and stderr in the log, got %q", content)
	}

	// Retention keeps the two newest sessions
	for i := 0; i < 3; i++ {
		Execute(context.Background(), task)
	}
	sessions, err := store.ListSessions("build", 0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("expected retention to keep 2 sessions, got %d", len(sessions))
	}
}

func TestCheckDependencies(t *testing.T) {
	tasks := []Task{
		NewCronTask("c", LocalHost, "@hourly", nil, nil),
		NewFileEventTask("f", LocalHost, nil, nil, nil),
	}
	for _, task := range tasks {
		if err := task.CheckDependencies(context.Background()); !errors.Is(err, ErrDependenciesUnimplemented) {
			t.Errorf("%s: expected ErrDependenciesUnimplemented, got %v", task.Name(), err)
		}
	}
}

func namesOf(commands []*Command) []string {
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.Name
	}
	return names
}
