package precheck

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vietddude/crashwatch/internal/infra/remote"
)

// ErrNotSupported marks a target where kdump cannot work as configured.
// Callers should skip the target rather than fail it.
var ErrNotSupported = errors.New("kdump not supported on target")

// Checker verifies that a target is actually ready to produce a crash dump
// before anything is triggered. A crash on an unprepared box would burn the
// whole session budget to report a misconfiguration.
type Checker struct {
	artifactDir string
}

// NewChecker creates a checker for the given dump directory.
func NewChecker(artifactDir string) *Checker {
	return &Checker{artifactDir: artifactDir}
}

// Verify runs all readiness checks.
func (c *Checker) Verify(ctx context.Context, exec remote.Executor, crashKernel string) error {
	if err := c.checkCrashKernelLoaded(ctx, exec); err != nil {
		return err
	}
	if err := c.checkCmdline(ctx, exec, crashKernel); err != nil {
		return err
	}
	return c.checkReservedMemory(ctx, exec)
}

// CleanArtifactDir removes leftovers from previous crash cycles so a stale
// vmcore cannot masquerade as this session's artifact.
func (c *Checker) CleanArtifactDir(ctx context.Context, exec remote.Executor) error {
	cmd := fmt.Sprintf("mkdir -p %s && rm -rf %s/*", c.artifactDir, c.artifactDir)
	if _, err := exec.Run(ctx, cmd); err != nil {
		return fmt.Errorf("clean artifact dir %s: %w", c.artifactDir, err)
	}
	return nil
}

// checkCrashKernelLoaded reads /sys/kernel/kexec_crash_loaded, which is 1
// only when a crash kernel is staged for kexec.
func (c *Checker) checkCrashKernelLoaded(ctx context.Context, exec remote.Executor) error {
	res, err := exec.Run(ctx, "cat /sys/kernel/kexec_crash_loaded")
	if err != nil {
		if remote.IsCommand(err) {
			return fmt.Errorf("%w: kexec_crash_loaded is missing", ErrNotSupported)
		}
		return fmt.Errorf("read kexec_crash_loaded: %w", err)
	}
	if strings.TrimSpace(res.Stdout) != "1" {
		return fmt.Errorf("%w: crash kernel is not loaded", ErrNotSupported)
	}
	return nil
}

// checkCmdline confirms the booted kernel reserved crash memory with the
// expected crashkernel= value.
func (c *Checker) checkCmdline(ctx context.Context, exec remote.Executor, crashKernel string) error {
	res, err := exec.Run(ctx, "cat /proc/cmdline")
	if err != nil {
		return fmt.Errorf("read /proc/cmdline: %w", err)
	}

	if crashKernel == "" {
		if !strings.Contains(res.Stdout, "crashkernel=") {
			return fmt.Errorf("%w: no crashkernel option on cmdline", ErrNotSupported)
		}
		return nil
	}

	want := "crashkernel=" + crashKernel
	if !strings.Contains(res.Stdout, want) {
		return fmt.Errorf(
			"%w: cmdline is missing %s (have: %s)",
			ErrNotSupported, want, strings.TrimSpace(res.Stdout),
		)
	}
	return nil
}

// checkReservedMemory confirms /proc/iomem carries a crash-kernel
// reservation, which catches a stale cmdline that never took effect.
func (c *Checker) checkReservedMemory(ctx context.Context, exec remote.Executor) error {
	res, err := exec.Run(ctx, "grep -i 'Crash kernel' /proc/iomem")
	if err != nil {
		if remote.IsCommand(err) {
			return fmt.Errorf("%w: no crash kernel memory reserved", ErrNotSupported)
		}
		return fmt.Errorf("read /proc/iomem: %w", err)
	}
	if strings.TrimSpace(res.Stdout) == "" {
		return fmt.Errorf("%w: no crash kernel memory reserved", ErrNotSupported)
	}
	return nil
}
