package growth

import (
	"github.com/vietddude/crashwatch/internal/core/domain"
)

// Decision is the tracker's judgement for one observation.
type Decision string

const (
	// DecisionGrowing means the in-progress marker got bigger.
	DecisionGrowing Decision = "growing"
	// DecisionNoChange means the marker size did not increase.
	DecisionNoChange Decision = "no_change"
	// DecisionReset means the marker disappeared and tracking started over.
	DecisionReset Decision = "reset"
)

// Tracker keeps the running memory of the previous in-progress size and a
// consecutive no-growth counter. A size reported as momentarily unchanged is
// tolerated up to the stall threshold rather than treated as immediately
// fatal, which absorbs filesystem caching jitter.
type Tracker struct {
	maxStallPolls int
	lastSize      int64
	noGrowth      int
}

// NewTracker creates a tracker with the given stall threshold.
func NewTracker(maxStallPolls int) *Tracker {
	return &Tracker{maxStallPolls: maxStallPolls}
}

// Observe feeds one poll result into the tracker.
//
// None resets all state: either a fresh crash cycle is starting or the
// marker was cleaned up, and stale counters must not leak into it.
// InProgress with a larger size records it and zeroes the counter;
// InProgress with an unchanged or smaller size increments the counter.
// Complete observations never reach the tracker (the caller ends the
// session first) but are treated as a reset for safety.
func (t *Tracker) Observe(obs domain.Observation) Decision {
	switch obs.Kind {
	case domain.ObservationInProgress:
		if obs.Size > t.lastSize {
			t.lastSize = obs.Size
			t.noGrowth = 0
			return DecisionGrowing
		}
		if t.noGrowth < t.maxStallPolls {
			t.noGrowth++
		}
		return DecisionNoChange
	default:
		t.lastSize = 0
		t.noGrowth = 0
		return DecisionReset
	}
}

// Stalled reports whether the no-growth counter has reached the threshold.
func (t *Tracker) Stalled() bool {
	return t.noGrowth >= t.maxStallPolls
}

// LastSize returns the last recorded in-progress size in bytes.
func (t *Tracker) LastSize() int64 {
	return t.lastSize
}

// NoGrowthPolls returns the current consecutive no-growth count.
func (t *Tracker) NoGrowthPolls() int {
	return t.noGrowth
}
