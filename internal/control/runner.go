package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/crashwatch/internal/core/config"
	"github.com/vietddude/crashwatch/internal/core/domain"
	"github.com/vietddude/crashwatch/internal/infra/console"
	"github.com/vietddude/crashwatch/internal/infra/remote"
	"github.com/vietddude/crashwatch/internal/infra/storage"
	"github.com/vietddude/crashwatch/internal/verify/connect"
	"github.com/vietddude/crashwatch/internal/verify/metrics"
	"github.com/vietddude/crashwatch/internal/verify/precheck"
	"github.com/vietddude/crashwatch/internal/verify/scan"
	"github.com/vietddude/crashwatch/internal/verify/session"
	"github.com/vietddude/crashwatch/internal/verify/trigger"
)

// executorFactory builds an executor for a target. Overridable in tests.
type executorFactory func(target domain.Target) remote.Executor

func sshFactory(target domain.Target) remote.Executor {
	return remote.NewSSHExecutor(remote.SSHConfig{
		Endpoint: target.Endpoint(),
		User:     target.User,
		KeyFile:  target.KeyFile,
		Password: target.Password,
	})
}

// Runner drives one full crash/verify cycle against a single target:
// precheck, clean, arm, trigger, then the recovery session.
type Runner struct {
	target   domain.Target
	verify   config.VerifyConfig
	sessions storage.SessionRepository
	logDir   string
	log      *slog.Logger
	newExec  executorFactory
}

// NewRunner creates a runner for one target.
func NewRunner(
	target domain.Target,
	verify config.VerifyConfig,
	sessions storage.SessionRepository,
	logDir string,
	log *slog.Logger,
) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		target:   target,
		verify:   verify,
		sessions: sessions,
		logDir:   logDir,
		log:      log.With("target", target.Name),
		newExec:  sshFactory,
	}
}

func (r *Runner) collector() console.Collector {
	if r.target.ConsoleURL == "" {
		return console.NopCollector{}
	}
	return console.NewHTTPCollector(r.target.Name, r.target.ConsoleURL, r.logDir)
}

// Run executes the full cycle and returns the recorded session. A target
// that fails the kdump prechecks is recorded as skipped, not failed.
func (r *Runner) Run(ctx context.Context) (*domain.Session, error) {
	exec := r.newExec(r.target)
	defer exec.Close()

	diag := r.collector()

	checker := precheck.NewChecker(r.verify.ArtifactDir)
	if err := checker.Verify(ctx, exec, r.target.CrashKernel); err != nil {
		if errors.Is(err, precheck.ErrNotSupported) {
			r.log.Warn("Target skipped, kdump not ready", "reason", err)
			sess := r.skippedSession()
			if saveErr := r.sessions.Save(ctx, sess); saveErr != nil {
				r.log.Error("Failed to save skipped session", "error", saveErr)
			}
			return sess, nil
		}
		return nil, fmt.Errorf("precheck: %w", err)
	}

	if err := checker.CleanArtifactDir(ctx, exec); err != nil {
		return nil, err
	}

	trg := trigger.New(r.target.TriggerCPU, r.log)
	if err := trg.Arm(ctx, exec); err != nil {
		return nil, err
	}

	r.log.Info("Triggering kernel crash", "endpoint", exec.Endpoint())
	if err := trg.Invoke(ctx, exec); err != nil {
		return nil, err
	}

	monitor := connect.NewMonitor(r.verify.ReconnectInterval, r.verify.ScanTimeout, diag, r.log)
	monitor.SetAttemptHook(func(connected bool) {
		outcome := "failed"
		if connected {
			outcome = "connected"
		}
		metrics.ReconnectAttempts.WithLabelValues(r.target.Name, outcome).Inc()
	})

	scanner := scan.NewScanner(scan.Config{
		ArtifactDir:       r.verify.ArtifactDir,
		FinalNames:        r.verify.FinalNames,
		InProgressPattern: r.verify.InProgressPattern,
		MinArtifactBytes:  r.verify.MinArtifactBytes,
		Timeout:           r.verify.ScanTimeout,
	})

	orch := session.NewOrchestrator(session.Config{
		Target:         r.target.Name,
		SessionTimeout: r.verify.SessionTimeout,
		PollInterval:   r.verify.PollInterval,
		MaxStallPolls:  r.verify.MaxStallPolls,
	}, exec, scanner, monitor, diag, r.log)

	metrics.ActiveSessions.Inc()
	sess := orch.Run(ctx)
	metrics.ActiveSessions.Dec()

	metrics.SessionsTotal.WithLabelValues(r.target.Name, string(sess.Verdict.Kind)).Inc()
	metrics.SessionDuration.WithLabelValues(string(sess.Verdict.Kind)).
		Observe(sess.Verdict.Elapsed.Seconds())

	if err := r.sessions.Save(ctx, sess); err != nil {
		r.log.Error("Failed to save session", "session", sess.ID, "error", err)
	}
	return sess, nil
}

func (r *Runner) skippedSession() *domain.Session {
	now := time.Now()
	return &domain.Session{
		ID:         uuid.New().String(),
		Target:     r.target.Name,
		StartedAt:  now,
		Deadline:   now,
		Status:     domain.SessionStatusSkipped,
		FinishedAt: now,
	}
}
