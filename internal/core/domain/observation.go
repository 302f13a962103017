package domain

// ObservationKind classifies what one scan of the dump directory found.
type ObservationKind string

const (
	// ObservationNone means neither a final artifact nor an in-progress
	// marker is visible yet.
	ObservationNone ObservationKind = "none"
	// ObservationInProgress means an incomplete marker exists; Size carries
	// its current byte count.
	ObservationInProgress ObservationKind = "in_progress"
	// ObservationComplete means a final artifact was found at Path.
	ObservationComplete ObservationKind = "complete"
)

// Observation is the result of a single artifact scan. Produced fresh each
// poll and never mutated, only compared across polls.
type Observation struct {
	Kind ObservationKind
	Size int64
	Path string
}

// None returns an empty observation.
func None() Observation {
	return Observation{Kind: ObservationNone}
}

// InProgress returns an observation for an incomplete marker of the given size.
func InProgress(size int64) Observation {
	return Observation{Kind: ObservationInProgress, Size: size}
}

// Complete returns an observation for a finished artifact.
func Complete(path string) Observation {
	return Observation{Kind: ObservationComplete, Path: path}
}
