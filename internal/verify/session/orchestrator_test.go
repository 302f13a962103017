package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/crashwatch/internal/core/domain"
	"github.com/vietddude/crashwatch/internal/infra/remote"
)

// =============================================================================
// Fakes
// =============================================================================

type stubExecutor struct{}

func (stubExecutor) Run(ctx context.Context, command string) (*remote.Result, error) {
	return &remote.Result{}, nil
}
func (stubExecutor) Endpoint() string { return "test:22" }
func (stubExecutor) Close() error     { return nil }

type scanStep struct {
	obs domain.Observation
	err error
}

// scriptedScanner replays a fixed sequence; once exhausted it repeats the
// last step, the way a real dump directory keeps answering the same thing.
type scriptedScanner struct {
	steps []scanStep
	i     int
}

func (s *scriptedScanner) Scan(ctx context.Context, exec remote.Executor) (domain.Observation, error) {
	step := s.steps[s.i]
	if s.i < len(s.steps)-1 {
		s.i++
	}
	return step.obs, step.err
}

// scriptedMonitor replays connection states; once exhausted it repeats the
// last one. It honors an already-expired deadline like the real monitor.
type scriptedMonitor struct {
	states []domain.ConnectionState
	i      int
	calls  int
}

func (m *scriptedMonitor) AwaitReconnection(
	ctx context.Context,
	exec remote.Executor,
	deadline time.Time,
) domain.ConnectionState {
	m.calls++
	if !time.Now().Before(deadline) {
		return domain.ConnectionDisconnected
	}
	st := m.states[m.i]
	if m.i < len(m.states)-1 {
		m.i++
	}
	return st
}

type recordingCollector struct {
	mu   sync.Mutex
	tags []string
}

func (c *recordingCollector) Capture(ctx context.Context, tag string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags = append(c.tags, tag)
	return nil
}

func (c *recordingCollector) has(tag string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tags {
		if t == tag {
			return true
		}
	}
	return false
}

func newOrchestrator(
	scanner Scanner,
	monitor Reconnector,
	diag *recordingCollector,
	timeout time.Duration,
	maxStall int,
) *Orchestrator {
	return NewOrchestrator(
		Config{
			Target:         "node-a",
			SessionTimeout: timeout,
			PollInterval:   time.Millisecond,
			MaxStallPolls:  maxStall,
		},
		stubExecutor{},
		scanner,
		monitor,
		diag,
		nil,
	)
}

func connected() *scriptedMonitor {
	return &scriptedMonitor{states: []domain.ConnectionState{domain.ConnectionConnected}}
}

// =============================================================================
// Scenarios
// =============================================================================

func TestRun_Success(t *testing.T) {
	// None, None, InProgress(1MB), InProgress(5MB), Complete -> Success.
	scanner := &scriptedScanner{steps: []scanStep{
		{obs: domain.None()},
		{obs: domain.None()},
		{obs: domain.InProgress(1 << 20)},
		{obs: domain.InProgress(5 << 20)},
		{obs: domain.Complete("/var/crash/vmcore")},
	}}
	diag := &recordingCollector{}

	sess := newOrchestrator(scanner, connected(), diag, time.Second, 5).Run(context.Background())

	if sess.Verdict == nil {
		t.Fatal("session finished without a verdict")
	}
	if sess.Verdict.Kind != domain.VerdictSuccess {
		t.Fatalf("expected success, got %s", sess.Verdict.Kind)
	}
	if sess.Verdict.ArtifactPath != "/var/crash/vmcore" {
		t.Errorf("unexpected artifact path %s", sess.Verdict.ArtifactPath)
	}
	if len(diag.tags) != 0 {
		t.Errorf("success must not capture diagnostics, got %v", diag.tags)
	}
}

func TestRun_Stalled(t *testing.T) {
	// The marker holds at 10MB forever; with max_stall_polls=3 the verdict
	// is Stalled with the last observed size.
	scanner := &scriptedScanner{steps: []scanStep{
		{obs: domain.InProgress(10 << 20)},
	}}
	diag := &recordingCollector{}

	sess := newOrchestrator(scanner, connected(), diag, 5*time.Second, 3).Run(context.Background())

	if sess.Verdict.Kind != domain.VerdictStalled {
		t.Fatalf("expected stalled, got %s", sess.Verdict.Kind)
	}
	if sess.Verdict.LastSize != 10<<20 {
		t.Errorf("expected last size %d, got %d", 10<<20, sess.Verdict.LastSize)
	}
	if !diag.has("stalled") {
		t.Error("stalled verdict must capture diagnostics")
	}
}

func TestRun_ConnectivityTimeout(t *testing.T) {
	monitor := &scriptedMonitor{states: []domain.ConnectionState{domain.ConnectionDisconnected}}
	diag := &recordingCollector{}

	sess := newOrchestrator(&scriptedScanner{steps: []scanStep{{obs: domain.None()}}},
		monitor, diag, 50*time.Millisecond, 3).Run(context.Background())

	if sess.Verdict.Kind != domain.VerdictConnectivityTimeout {
		t.Fatalf("expected connectivity timeout, got %s", sess.Verdict.Kind)
	}
	if !diag.has("reconnect_timeout") {
		t.Error("connectivity timeout must capture diagnostics before returning")
	}
}

func TestRun_ProductionTimeout(t *testing.T) {
	// Target reachable but the artifact never shows up.
	scanner := &scriptedScanner{steps: []scanStep{{obs: domain.None()}}}
	diag := &recordingCollector{}

	start := time.Now()
	sess := newOrchestrator(scanner, connected(), diag, 30*time.Millisecond, 100).Run(context.Background())

	if sess.Verdict.Kind != domain.VerdictProductionTimeout {
		t.Fatalf("expected production timeout, got %s", sess.Verdict.Kind)
	}
	// Bounded by deadline plus roughly one poll interval.
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("overshot deadline: %v", elapsed)
	}
	if !diag.has("production_timeout") {
		t.Error("production timeout must capture diagnostics")
	}
}

func TestRun_ReconnectAfterScanDrop(t *testing.T) {
	// A scan call loses the connection mid-loop: the orchestrator must go
	// back to AwaitingReconnect rather than record None, then still reach
	// Success once a later scan finds the artifact.
	connErr := &remote.ConnectivityError{Endpoint: "test:22", Err: errors.New("reset by peer")}
	scanner := &scriptedScanner{steps: []scanStep{
		{obs: domain.None()},
		{err: connErr},
		{obs: domain.InProgress(1 << 20)},
		{obs: domain.Complete("/var/crash/dump.202608230300")},
	}}
	monitor := connected()
	diag := &recordingCollector{}

	sess := newOrchestrator(scanner, monitor, diag, time.Second, 5).Run(context.Background())

	if sess.Verdict.Kind != domain.VerdictSuccess {
		t.Fatalf("expected success, got %s", sess.Verdict.Kind)
	}
	if monitor.calls != 2 {
		t.Errorf("expected a second reconnect after the scan drop, got %d calls", monitor.calls)
	}
}

func TestRun_CompleteIsSticky(t *testing.T) {
	// Complete ends the session in Success even after earlier reconnect
	// failures and stale markers.
	scanner := &scriptedScanner{steps: []scanStep{
		{err: &remote.ConnectivityError{Endpoint: "test:22", Err: errors.New("refused")}},
		{obs: domain.InProgress(4 << 20)},
		{obs: domain.InProgress(4 << 20)},
		{obs: domain.Complete("/var/crash/vmcore.node-a")},
	}}

	sess := newOrchestrator(scanner, connected(), &recordingCollector{}, time.Second, 10).
		Run(context.Background())

	if sess.Verdict.Kind != domain.VerdictSuccess {
		t.Fatalf("expected success, got %s", sess.Verdict.Kind)
	}
}

func TestRun_MarkerDisappearanceResetsStallCounter(t *testing.T) {
	// None between stalled polls restarts stall tracking; with the deadline
	// as the only other bound the verdict is ProductionTimeout, not Stalled.
	scanner := &scriptedScanner{steps: []scanStep{
		{obs: domain.InProgress(1 << 20)},
		{obs: domain.InProgress(1 << 20)},
		{obs: domain.None()},
		{obs: domain.InProgress(1 << 20)},
		{obs: domain.InProgress(1 << 20)},
		{obs: domain.None()},
	}}

	sess := newOrchestrator(scanner, connected(), &recordingCollector{}, 40*time.Millisecond, 3).
		Run(context.Background())

	if sess.Verdict.Kind != domain.VerdictProductionTimeout {
		t.Fatalf("expected production timeout, got %s", sess.Verdict.Kind)
	}
}

func TestRun_ExactlyOneVerdict(t *testing.T) {
	scanner := &scriptedScanner{steps: []scanStep{
		{obs: domain.Complete("/var/crash/vmcore")},
	}}

	sess := newOrchestrator(scanner, connected(), &recordingCollector{}, time.Second, 3).
		Run(context.Background())

	if sess.Status != domain.SessionStatusFinished {
		t.Errorf("expected finished status, got %s", sess.Status)
	}
	if sess.Verdict == nil {
		t.Fatal("expected a verdict")
	}
	if sess.FinishedAt.Before(sess.StartedAt) {
		t.Error("finished before it started")
	}
}

func TestRun_CancelledContextYieldsTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scanner := &scriptedScanner{steps: []scanStep{{obs: domain.None()}}}
	sess := newOrchestrator(scanner, connected(), &recordingCollector{}, time.Minute, 3).Run(ctx)

	if sess.Verdict.Kind != domain.VerdictProductionTimeout {
		t.Fatalf("cancellation should read as an expired deadline, got %s", sess.Verdict.Kind)
	}
}
