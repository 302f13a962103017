package domain

import "time"

// VerdictKind is the terminal outcome of a recovery session.
type VerdictKind string

const (
	// VerdictSuccess means a complete dump artifact was found.
	VerdictSuccess VerdictKind = "success"
	// VerdictStalled means the in-progress marker stopped growing for
	// max_stall_polls consecutive polls.
	VerdictStalled VerdictKind = "stalled"
	// VerdictConnectivityTimeout means the target never became reachable
	// again within the session budget.
	VerdictConnectivityTimeout VerdictKind = "connectivity_timeout"
	// VerdictProductionTimeout means the target reconnected but no complete
	// artifact appeared before the deadline.
	VerdictProductionTimeout VerdictKind = "production_timeout"
)

// Verdict is the sole output of a session. Immutable once produced.
type Verdict struct {
	Kind         VerdictKind   `json:"kind"`
	ArtifactPath string        `json:"artifact_path,omitempty"`
	LastSize     int64         `json:"last_size,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
}

// OK reports whether the verdict is a pass.
func (v Verdict) OK() bool {
	return v.Kind == VerdictSuccess
}
