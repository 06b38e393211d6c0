package refcycles

import "github.com/cwbudde/refcycles/internal/cpu"

// CycleInstant is a cycle-counter reading, the counter analogue of
// time.Time for elapsed measurements. It is meaningful only on the core
// that took it.
type CycleInstant struct {
	start uint64
}

// Now captures the current counter value.
func Now() CycleInstant {
	return CycleInstant{start: cpu.ReadCycleCounter()}
}

// Elapsed returns the counter ticks since the instant was captured.
func (i CycleInstant) Elapsed() uint64 {
	return cpu.ReadCycleCounter() - i.start
}

// Start returns the raw counter value captured by Now.
func (i CycleInstant) Start() uint64 {
	return i.start
}
