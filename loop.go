package refcycles

import "fmt"

const (
	// maxLoopCycles is the exclusive upper bound for ConstLatencyLoop.
	maxLoopCycles = 0xFFFFFFFF

	// loopMask keeps the counter inside its own dependency chain. Every valid
	// counter value fits under it, so the AND never changes the result.
	loopMask = 0x700FFFFFFFF
)

// CheckLoopCycles reports whether cycles is a valid ConstLatencyLoop budget.
func CheckLoopCycles(cycles uint64) error {
	if cycles%4 != 0 {
		return fmt.Errorf("%w: %d is not a multiple of 4", ErrInvalidCycles, cycles)
	}

	if cycles >= maxLoopCycles {
		return fmt.Errorf("%w: %d is not below %d", ErrInvalidCycles, cycles, uint64(maxLoopCycles))
	}

	return nil
}

// ConstLatencyLoop runs a chain of cycles/2 dependent subtract+and pairs.
// Both ops have single-cycle latency on every supported core, so the call
// takes roughly cycles core clocks. Another thread on the same physical
// core (SMT) breaks that assumption.
//
// The returned counter value is always 0; feed it into a later computation
// to build dependency chains of known latency.
//
// It panics with ErrInvalidCycles if CheckLoopCycles rejects cycles.
//
//go:noinline
func ConstLatencyLoop(cycles uint64) uint64 {
	if err := CheckLoopCycles(cycles); err != nil {
		panic(err)
	}

	n := cycles / 2
	for n > 0 {
		n--
		n &= loopMask
	}

	return n
}
