// Package health provides system health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// TargetHealth contains health metrics for a single verification target.
type TargetHealth struct {
	Target       string       `json:"target"`
	Status       SystemStatus `json:"status"`
	LastVerdict  string       `json:"last_verdict,omitempty"`
	LastSession  string       `json:"last_session,omitempty"`
	LastFinished string       `json:"last_finished,omitempty"`
	Running      bool         `json:"running"`
	RunningFor   string       `json:"running_for,omitempty"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus            `json:"system_status"`
	Targets      map[string]TargetHealth `json:"targets"`
	QueueDepth   int                     `json:"queue_depth"`
}
