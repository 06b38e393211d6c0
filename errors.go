package refcycles

import "errors"

// Sentinel errors. Usage errors are raised as panics wrapping these, so a
// recovered value can still be matched with errors.Is.
var (
	// ErrInvalidCycles is raised when ConstLatencyLoop is given a cycle count
	// that is not a multiple of 4 or is not below 0xFFFFFFFF.
	ErrInvalidCycles = errors.New("refcycles: invalid cycle count")

	// ErrRegionBusy is raised when a sample is opened against a region that
	// already has an open sample.
	ErrRegionBusy = errors.New("refcycles: region already has an open sample")

	// ErrInvalidRounds is returned for a calibration round count below 1.
	ErrInvalidRounds = errors.New("refcycles: invalid calibration rounds")
)
