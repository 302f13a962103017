package trigger

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vietddude/crashwatch/internal/infra/remote"
)

type recordingExecutor struct {
	commands []string
	err      error
	closed   bool
}

func (e *recordingExecutor) Run(ctx context.Context, command string) (*remote.Result, error) {
	e.commands = append(e.commands, command)
	if e.err != nil {
		return nil, e.err
	}
	return &remote.Result{}, nil
}

func (e *recordingExecutor) Endpoint() string { return "test:22" }
func (e *recordingExecutor) Close() error     { e.closed = true; return nil }

func TestArm(t *testing.T) {
	exec := &recordingExecutor{}
	if err := New(-1, nil).Arm(context.Background(), exec); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}

	if len(exec.commands) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(exec.commands))
	}
	if !strings.Contains(exec.commands[0], "/proc/sys/kernel/sysrq") {
		t.Errorf("first command should enable sysrq, got %q", exec.commands[0])
	}
	if exec.commands[1] != "sync" {
		t.Errorf("second command should sync, got %q", exec.commands[1])
	}
}

func TestInvoke_Plain(t *testing.T) {
	exec := &recordingExecutor{}
	if err := New(-1, nil).Invoke(context.Background(), exec); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	if exec.commands[0] != "echo c > /proc/sysrq-trigger" {
		t.Errorf("unexpected trigger command %q", exec.commands[0])
	}
	if !exec.closed {
		t.Error("executor should be closed after trigger")
	}
}

func TestInvoke_PinnedCPU(t *testing.T) {
	exec := &recordingExecutor{}
	if err := New(32, nil).Invoke(context.Background(), exec); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	if exec.commands[0] != "taskset -c 32 echo c > /proc/sysrq-trigger" {
		t.Errorf("unexpected pinned trigger command %q", exec.commands[0])
	}
}

func TestInvoke_ConnectionLossIsSuccess(t *testing.T) {
	exec := &recordingExecutor{
		err: &remote.ConnectivityError{Endpoint: "test:22", Err: errors.New("EOF")},
	}
	if err := New(-1, nil).Invoke(context.Background(), exec); err != nil {
		t.Fatalf("connection loss during trigger must be ignored, got %v", err)
	}
}

func TestInvoke_CommandErrorSurfaces(t *testing.T) {
	exec := &recordingExecutor{
		err: &remote.CommandError{Command: "echo c", ExitCode: 1, Stderr: "permission denied"},
	}
	if err := New(-1, nil).Invoke(context.Background(), exec); err == nil {
		t.Fatal("a trigger that ran and failed must surface the error")
	}
}
