package control

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/crashwatch/internal/core/config"
	"github.com/vietddude/crashwatch/internal/core/domain"
	"github.com/vietddude/crashwatch/internal/infra/remote"
	"github.com/vietddude/crashwatch/internal/infra/storage/memory"
)

// rule maps a command substring to a canned response.
type rule struct {
	substr string
	stdout string
	err    error
}

// scriptedExecutor answers commands by first matching rule. Unmatched
// commands succeed with empty output.
type scriptedExecutor struct {
	mu    sync.Mutex
	rules []rule
	calls []string
}

func (e *scriptedExecutor) Run(ctx context.Context, command string) (*remote.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, command)
	for _, r := range e.rules {
		if strings.Contains(command, r.substr) {
			if r.err != nil {
				return nil, r.err
			}
			return &remote.Result{Stdout: r.stdout}, nil
		}
	}
	return &remote.Result{}, nil
}

func (e *scriptedExecutor) Endpoint() string { return "test:22" }
func (e *scriptedExecutor) Close() error     { return nil }

func fastVerifyConfig() config.VerifyConfig {
	return config.VerifyConfig{
		SessionTimeout:    2 * time.Second,
		PollInterval:      time.Millisecond,
		ReconnectInterval: time.Millisecond,
		ScanTimeout:       time.Second,
		MaxStallPolls:     3,
		ArtifactDir:       "/var/crash",
		FinalNames:        config.DefaultFinalNames(),
		MinArtifactBytes:  10 * 1024 * 1024,
		InProgressPattern: "*incomplete*",
	}
}

func newTestRunner(exec *scriptedExecutor, repo *memory.SessionRepo) *Runner {
	target := domain.Target{Name: "node-a", Host: "10.0.0.5", TriggerCPU: -1}
	r := NewRunner(target, fastVerifyConfig(), repo, "", nil)
	r.newExec = func(domain.Target) remote.Executor { return exec }
	return r
}

func TestRunner_FullCycleSuccess(t *testing.T) {
	exec := &scriptedExecutor{rules: []rule{
		{substr: "kexec_crash_loaded", stdout: "1\n"},
		{substr: "/proc/cmdline", stdout: "BOOT_IMAGE=/vmlinuz root=/dev/sda1 crashkernel=512M\n"},
		{substr: "/proc/iomem", stdout: "  3f000000-5effffff : Crash kernel\n"},
		{substr: "sysrq-trigger", err: &remote.ConnectivityError{Endpoint: "test:22"}},
		{substr: "-size +", stdout: "/var/crash/vmcore\n"},
	}}
	repo := memory.NewSessionRepo()

	sess, err := newTestRunner(exec, repo).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sess.Verdict == nil || sess.Verdict.Kind != domain.VerdictSuccess {
		t.Fatalf("expected success verdict, got %+v", sess.Verdict)
	}
	if sess.Verdict.ArtifactPath != "/var/crash/vmcore" {
		t.Errorf("unexpected artifact path: %s", sess.Verdict.ArtifactPath)
	}

	saved, err := repo.GetByID(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("session not persisted: %v", err)
	}
	if saved.Status != domain.SessionStatusFinished {
		t.Errorf("expected finished status, got %s", saved.Status)
	}
}

func TestRunner_SkipsUnsupportedTarget(t *testing.T) {
	exec := &scriptedExecutor{rules: []rule{
		{substr: "kexec_crash_loaded", stdout: "0\n"},
	}}
	repo := memory.NewSessionRepo()

	sess, err := newTestRunner(exec, repo).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sess.Status != domain.SessionStatusSkipped {
		t.Fatalf("expected skipped session, got %s", sess.Status)
	}
	if sess.Verdict != nil {
		t.Errorf("skipped session must carry no verdict")
	}

	// Nothing was armed or triggered on the unprepared box.
	for _, cmd := range exec.calls {
		if strings.Contains(cmd, "sysrq") {
			t.Errorf("trigger command ran on skipped target: %s", cmd)
		}
	}

	if _, err := repo.GetByID(context.Background(), sess.ID); err != nil {
		t.Errorf("skipped session not persisted: %v", err)
	}
}

func TestRunner_ArtifactDirIsCleanedBeforeTrigger(t *testing.T) {
	exec := &scriptedExecutor{rules: []rule{
		{substr: "kexec_crash_loaded", stdout: "1\n"},
		{substr: "/proc/cmdline", stdout: "crashkernel=512M\n"},
		{substr: "/proc/iomem", stdout: "  Crash kernel\n"},
		{substr: "sysrq-trigger", err: &remote.ConnectivityError{Endpoint: "test:22"}},
		{substr: "-size +", stdout: "/var/crash/vmcore\n"},
	}}

	if _, err := newTestRunner(exec, memory.NewSessionRepo()).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	cleanIdx, triggerIdx := -1, -1
	for i, cmd := range exec.calls {
		if strings.Contains(cmd, "rm -rf") && cleanIdx == -1 {
			cleanIdx = i
		}
		if strings.Contains(cmd, "sysrq-trigger") && triggerIdx == -1 {
			triggerIdx = i
		}
	}
	if cleanIdx == -1 || triggerIdx == -1 || cleanIdx > triggerIdx {
		t.Errorf("artifact dir must be cleaned before the trigger: clean=%d trigger=%d", cleanIdx, triggerIdx)
	}
}
