//go:build arm64

package cpu

const highPrecision = true

// readCycleCounter reads the virtual counter (CNTVCT_EL0).
// Implemented in cycles_arm64.s
//
//go:noescape
func readCycleCounter() uint64

// readCounterFrequency reads CNTFRQ_EL0.
// Implemented in cycles_arm64.s
//
//go:noescape
func readCounterFrequency() uint64

func getCounterFrequencyHz() uint64 {
	return readCounterFrequency()
}
