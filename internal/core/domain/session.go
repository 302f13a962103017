package domain

import "time"

// Session represents one crash/verify cycle against a single target.
// It is owned by the orchestrator that runs it and carries exactly one
// verdict once finished.
type Session struct {
	ID            string        `json:"id"`
	Target        string        `json:"target"`
	StartedAt     time.Time     `json:"started_at"`
	Deadline      time.Time     `json:"deadline"`
	PollInterval  time.Duration `json:"poll_interval"`
	MaxStallPolls int           `json:"max_stall_polls"`
	Status        SessionStatus `json:"status"`
	Verdict       *Verdict      `json:"verdict,omitempty"`
	FinishedAt    time.Time     `json:"finished_at,omitempty"`
}

type SessionStatus string

const (
	SessionStatusPending  SessionStatus = "pending"
	SessionStatusRunning  SessionStatus = "running"
	SessionStatusFinished SessionStatus = "finished"
	SessionStatusSkipped  SessionStatus = "skipped"
)

// Remaining returns the time left until the session deadline, floored at zero.
func (s *Session) Remaining(now time.Time) time.Duration {
	if now.After(s.Deadline) {
		return 0
	}
	return s.Deadline.Sub(now)
}
