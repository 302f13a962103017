package domain

import "time"

// VerificationRequest is a queued ask for a target to be verified. Requests
// arrive through the control API or are re-queued after a failed attempt.
type VerificationRequest struct {
	ID          string    `json:"id"`
	Target      string    `json:"target"`
	RequestedAt time.Time `json:"requested_at"`
	Attempts    int       `json:"attempts"`
	LastAttempt time.Time `json:"last_attempt,omitempty"`
}
