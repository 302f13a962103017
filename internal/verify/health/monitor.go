package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vietddude/crashwatch/internal/core/domain"
	"github.com/vietddude/crashwatch/internal/infra/storage"
)

// QueueCounter reports the number of pending verification requests.
type QueueCounter interface {
	Count(ctx context.Context) (int, error)
}

// Monitor aggregates health status from recorded sessions and the queue.
type Monitor struct {
	targets    []string
	sessions   storage.SessionRepository
	queue      QueueCounter
	lastCheck  time.Time
	lastReport *HealthReport
	mu         sync.RWMutex
}

// NewMonitor creates a new health monitor. queue may be nil when no Redis
// queue is configured.
func NewMonitor(targets []string, sessions storage.SessionRepository, queue QueueCounter) *Monitor {
	return &Monitor{
		targets:  targets,
		sessions: sessions,
		queue:    queue,
	}
}

// CheckHealth builds a health report across all targets.
func (m *Monitor) CheckHealth(ctx context.Context) *HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit checks (max once per 10s) to avoid hammering storage
	if time.Since(m.lastCheck) < 10*time.Second && m.lastReport != nil {
		return m.lastReport
	}

	report := &HealthReport{
		SystemStatus: StatusHealthy,
		Targets:      make(map[string]TargetHealth),
	}

	for _, target := range m.targets {
		th := TargetHealth{
			Target: target,
			Status: StatusHealthy,
		}

		sess, err := m.sessions.GetLatestByTarget(ctx, target)
		switch {
		case errors.Is(err, storage.ErrSessionNotFound):
			// Never verified yet
			th.Status = StatusDegraded
		case err != nil:
			th.Status = StatusDegraded
		default:
			th.LastSession = sess.ID
			th.Running = sess.Status == domain.SessionStatusRunning
			if th.Running {
				th.RunningFor = time.Since(sess.StartedAt).Round(time.Second).String()
			}
			if !sess.FinishedAt.IsZero() {
				th.LastFinished = sess.FinishedAt.Format(time.RFC3339)
			}
			switch {
			case sess.Status == domain.SessionStatusSkipped:
				th.Status = StatusDegraded
			case sess.Verdict == nil:
				// Still running or never concluded
			case sess.Verdict.OK():
				th.LastVerdict = string(sess.Verdict.Kind)
			default:
				th.LastVerdict = string(sess.Verdict.Kind)
				th.Status = StatusCritical
			}
		}

		report.Targets[target] = th
	}

	if m.queue != nil {
		if depth, err := m.queue.Count(ctx); err == nil {
			report.QueueDepth = depth
		}
	}

	// Aggregate status (worst case wins)
	for _, th := range report.Targets {
		if th.Status == StatusCritical {
			report.SystemStatus = StatusCritical
			break
		}
		if th.Status == StatusDegraded {
			report.SystemStatus = StatusDegraded
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
