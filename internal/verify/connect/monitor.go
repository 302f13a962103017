package connect

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/crashwatch/internal/core/domain"
	"github.com/vietddude/crashwatch/internal/infra/console"
	"github.com/vietddude/crashwatch/internal/infra/remote"
)

// Monitor re-establishes a session with a target that went dark. Every
// failed attempt captures diagnostics so evidence accumulates even before a
// terminal verdict. DNS failures, refused connections and broken handshakes
// are all the same thing here: not reachable yet, retry.
type Monitor struct {
	interval    time.Duration
	probeBudget time.Duration
	diag        console.Collector
	log         *slog.Logger

	// onAttempt is invoked after every probe, for metrics.
	onAttempt func(connected bool)
}

// NewMonitor creates a monitor that probes every interval, bounding each
// probe by probeBudget.
func NewMonitor(interval, probeBudget time.Duration, diag console.Collector, log *slog.Logger) *Monitor {
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{
		interval:    interval,
		probeBudget: probeBudget,
		diag:        diag,
		log:         log,
	}
}

// SetAttemptHook registers a callback fired after each probe.
func (m *Monitor) SetAttemptHook(fn func(connected bool)) {
	m.onAttempt = fn
}

// AwaitReconnection attempts to reach the target until it answers or the
// deadline passes. It returns Connected on success and Disconnected when
// the deadline is exhausted (or the context is cancelled).
func (m *Monitor) AwaitReconnection(
	ctx context.Context,
	exec remote.Executor,
	deadline time.Time,
) domain.ConnectionState {
	for {
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			return domain.ConnectionDisconnected
		}

		if m.probe(ctx, exec) {
			return domain.ConnectionConnected
		}

		select {
		case <-ctx.Done():
			return domain.ConnectionDisconnected
		case <-time.After(m.interval):
		}
	}
}

func (m *Monitor) probe(ctx context.Context, exec remote.Executor) bool {
	probeCtx := ctx
	if m.probeBudget > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, m.probeBudget)
		defer cancel()
	}

	_, err := exec.Run(probeCtx, "true")
	connected := err == nil || remote.IsCommand(err)
	if m.onAttempt != nil {
		m.onAttempt(connected)
	}
	if connected {
		return true
	}

	m.log.Debug("Reconnect attempt failed",
		"endpoint", exec.Endpoint(),
		"error", err,
	)
	console.TryCapture(ctx, m.diag, m.log, "post_trigger_reconnect_failed")
	return false
}
