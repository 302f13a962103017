package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/crashwatch/internal/infra/remote"
)

// sysrq 'c' forces an immediate kernel crash once the sysrq mask allows it.
const (
	armSysrqCmd   = "echo 1 > /proc/sys/kernel/sysrq"
	crashCmd      = "echo c > /proc/sysrq-trigger"
	triggerBudget = 10 * time.Second
)

// Trigger issues the crash-inducing action on a target. Invoking it is
// expected to kill the connection; losing the session mid-command is the
// success path, not an error.
type Trigger struct {
	// CPU pins the trigger to a specific CPU via taskset; -1 disables pinning.
	CPU int
	log *slog.Logger
}

// New creates a trigger, optionally pinned to a CPU.
func New(cpu int, log *slog.Logger) *Trigger {
	if log == nil {
		log = slog.Default()
	}
	return &Trigger{CPU: cpu, log: log}
}

// Arm enables the sysrq crash key and flushes filesystem buffers so the
// pre-crash state is on disk.
func (t *Trigger) Arm(ctx context.Context, exec remote.Executor) error {
	if _, err := exec.Run(ctx, armSysrqCmd); err != nil {
		return fmt.Errorf("enable sysrq: %w", err)
	}
	if _, err := exec.Run(ctx, "sync"); err != nil {
		return fmt.Errorf("sync before trigger: %w", err)
	}
	return nil
}

// Invoke fires the crash. The command is bounded by a short timeout because
// it never returns on success: the kernel panics under it.
func (t *Trigger) Invoke(ctx context.Context, exec remote.Executor) error {
	cmd := crashCmd
	if t.CPU >= 0 {
		cmd = fmt.Sprintf("taskset -c %d %s", t.CPU, crashCmd)
	}

	runCtx, cancel := context.WithTimeout(ctx, triggerBudget)
	defer cancel()

	_, err := exec.Run(runCtx, cmd)
	if err != nil && remote.IsConnectivity(err) {
		// The box went down with the command still attached. Exactly what
		// was asked for.
		t.log.Debug("Connection lost on trigger", "endpoint", exec.Endpoint(), "error", err)
		err = nil
	}
	_ = exec.Close()
	if err != nil {
		return fmt.Errorf("trigger crash: %w", err)
	}
	return nil
}
