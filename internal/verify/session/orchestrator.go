package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/crashwatch/internal/core/domain"
	"github.com/vietddude/crashwatch/internal/infra/console"
	"github.com/vietddude/crashwatch/internal/infra/remote"
	"github.com/vietddude/crashwatch/internal/verify/growth"
	"github.com/vietddude/crashwatch/internal/verify/metrics"
)

// Scanner classifies the dump directory state on the target.
type Scanner interface {
	Scan(ctx context.Context, exec remote.Executor) (domain.Observation, error)
}

// Reconnector re-establishes a session with an unreachable target.
type Reconnector interface {
	AwaitReconnection(
		ctx context.Context,
		exec remote.Executor,
		deadline time.Time,
	) domain.ConnectionState
}

type state int

const (
	stateAwaitingReconnect state = iota
	stateScanning
)

// Config holds the per-session budget.
type Config struct {
	Target         string
	SessionTimeout time.Duration
	PollInterval   time.Duration
	MaxStallPolls  int
}

// Orchestrator drives one crash/verify cycle to a verdict. After the crash
// is triggered the target vanishes from the network, may answer transiently
// during early boot, and only then starts writing the dump; the orchestrator
// walks AwaitingReconnect and Scanning until one of the four terminal
// verdicts is forced. Transient failures are absorbed inside the states;
// only deadline or stall-counter exhaustion escalates.
type Orchestrator struct {
	cfg     Config
	exec    remote.Executor
	scanner Scanner
	monitor Reconnector
	diag    console.Collector
	log     *slog.Logger
}

// NewOrchestrator assembles an orchestrator from its collaborators.
func NewOrchestrator(
	cfg Config,
	exec remote.Executor,
	scanner Scanner,
	monitor Reconnector,
	diag console.Collector,
	log *slog.Logger,
) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		cfg:     cfg,
		exec:    exec,
		scanner: scanner,
		monitor: monitor,
		diag:    diag,
		log:     log.With("target", cfg.Target),
	}
}

// Run executes the session and returns it with exactly one verdict set.
func (o *Orchestrator) Run(ctx context.Context) *domain.Session {
	now := time.Now()
	sess := &domain.Session{
		ID:            uuid.New().String(),
		Target:        o.cfg.Target,
		StartedAt:     now,
		Deadline:      now.Add(o.cfg.SessionTimeout),
		PollInterval:  o.cfg.PollInterval,
		MaxStallPolls: o.cfg.MaxStallPolls,
		Status:        domain.SessionStatusRunning,
	}

	verdict := o.verify(ctx, sess)
	verdict.Elapsed = time.Since(sess.StartedAt)

	sess.Verdict = &verdict
	sess.Status = domain.SessionStatusFinished
	sess.FinishedAt = time.Now()

	o.log.Info("Session finished",
		"session", sess.ID,
		"verdict", verdict.Kind,
		"elapsed", verdict.Elapsed,
	)
	return sess
}

func (o *Orchestrator) verify(ctx context.Context, sess *domain.Session) domain.Verdict {
	tracker := growth.NewTracker(o.cfg.MaxStallPolls)
	st := stateAwaitingReconnect

	for {
		switch st {
		case stateAwaitingReconnect:
			if o.monitor.AwaitReconnection(ctx, o.exec, sess.Deadline) == domain.ConnectionDisconnected {
				o.collect(ctx, "reconnect_timeout")
				return domain.Verdict{Kind: domain.VerdictConnectivityTimeout}
			}
			// The target may have answered while the crash kernel was still
			// booting; drop the session so the next command dials fresh.
			_ = o.exec.Close()
			st = stateScanning

		case stateScanning:
			if o.expired(ctx, sess) {
				o.collect(ctx, "production_timeout")
				return domain.Verdict{
					Kind:     domain.VerdictProductionTimeout,
					LastSize: tracker.LastSize(),
				}
			}

			obs, err := o.scanner.Scan(ctx, o.exec)
			switch {
			case err != nil && remote.IsConnectivity(err):
				// The target dropped again, e.g. the post-dump reboot. Not
				// "nothing was produced" -- go wait for it to come back.
				metrics.ScanErrors.WithLabelValues(o.cfg.Target).Inc()
				o.log.Debug("Connection lost during scan", "error", err)
				st = stateAwaitingReconnect
				continue

			case err != nil:
				// Unexpected but transient by policy; absorbed into the loop.
				o.log.Warn("Scan failed", "error", err)

			case obs.Kind == domain.ObservationComplete:
				return domain.Verdict{
					Kind:         domain.VerdictSuccess,
					ArtifactPath: obs.Path,
				}

			case obs.Kind == domain.ObservationInProgress:
				metrics.InProgressBytes.WithLabelValues(o.cfg.Target).Set(float64(obs.Size))
				if tracker.Observe(obs) == growth.DecisionNoChange && tracker.Stalled() {
					o.collect(ctx, "stalled")
					return domain.Verdict{
						Kind:     domain.VerdictStalled,
						LastSize: tracker.LastSize(),
					}
				}
				o.log.Debug("Dump in progress",
					"size", obs.Size,
					"no_growth_polls", tracker.NoGrowthPolls(),
				)

			default:
				tracker.Observe(obs)
			}

			if !o.sleep(ctx) {
				// Cancelled mid-poll; the deadline check at the top of the
				// next iteration converts this into a timeout verdict.
				continue
			}
		}
	}
}

// expired reports whether the session budget is gone. Cancellation counts
// as an expired deadline; there is no separate cancellation outcome.
func (o *Orchestrator) expired(ctx context.Context, sess *domain.Session) bool {
	return ctx.Err() != nil || !time.Now().Before(sess.Deadline)
}

func (o *Orchestrator) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(o.cfg.PollInterval):
		return true
	}
}

func (o *Orchestrator) collect(ctx context.Context, tag string) {
	metrics.DiagnosticsCaptures.WithLabelValues(o.cfg.Target, tag).Inc()
	// Diagnostics must still be attempted when the session context is
	// already cancelled or past deadline.
	console.TryCapture(context.WithoutCancel(ctx), o.diag, o.log, tag)
}
